package math

// Vec2 is a 2D vector, used for texture coordinates. Wire size is 8 bytes.
type Vec2 struct {
	X, Y float32
}
