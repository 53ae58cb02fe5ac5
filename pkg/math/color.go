package math

import "fmt"

// Color is an 8-bit per channel color stored in B, G, R, A order, which
// is how authoring tools on little-endian hosts lay out a packed ARGB
// word. Wire size is 4 bytes.
type Color struct {
	B, G, R, A uint8
}

// White is opaque white.
var White = Color{B: 255, G: 255, R: 255, A: 255}

// RGBA returns a Color from channels given in R, G, B, A order.
func RGBA(r, g, b, a uint8) Color {
	return Color{B: b, G: g, R: r, A: a}
}

// String returns the color as #RRGGBBAA.
func (c Color) String() string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}
