package mesh

import "strings"

// Flags describes which optional streams the sender filled in.
// It is informational; decoding never depends on it.
type Flags uint32

const (
	HasIndices          Flags = 1 << 0
	HasUV0              Flags = 1 << 1
	HasUV1              Flags = 1 << 2
	HasNormal           Flags = 1 << 3
	HasColor0           Flags = 1 << 4
	HasTexID            Flags = 1 << 5
	HasInstancePosition Flags = 1 << 6
	HasInstanceColor0   Flags = 1 << 7

	// Common combinations emitted by the authoring exporter.
	HasIndicesUV01Color0TexID  = HasIndices | HasUV0 | HasUV1 | HasColor0 | HasTexID
	HasIndicesInstancePosColor = HasIndices | HasInstancePosition | HasInstanceColor0
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{HasIndices, "indices"},
	{HasUV0, "uv0"},
	{HasUV1, "uv1"},
	{HasNormal, "normal"},
	{HasColor0, "color0"},
	{HasTexID, "texid"},
	{HasInstancePosition, "instance_position"},
	{HasInstanceColor0, "instance_color0"},
}

// Has reports whether all bits of other are set.
func (f Flags) Has(other Flags) bool {
	return f&other == other
}

// String returns the set flags joined by '|', or "none".
func (f Flags) String() string {
	var parts []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
