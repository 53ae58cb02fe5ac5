// Package materials resolves material slot names to material assets.
package materials

import (
	"fmt"
	"strings"

	"github.com/Faultbox/meshsync/pkg/math"
)

// Prefix marks a conventional material asset name.
const Prefix = "MT_"

// Category selects the base material a derived instance is parented to.
type Category uint16

const (
	Terrain Category = 0
	Decor   Category = 1
	Knobs   Category = 2
	Water   Category = 3
)

// Categories lists the closed set of known categories.
var Categories = []Category{Terrain, Decor, Knobs, Water}

// String returns the category name.
func (c Category) String() string {
	switch c {
	case Terrain:
		return "Terrain"
	case Decor:
		return "Decor"
	case Knobs:
		return "Knobs"
	case Water:
		return "Water"
	default:
		return fmt.Sprintf("Category(%d)", uint16(c))
	}
}

// ParseCategory parses a category name, case-insensitively.
func ParseCategory(name string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(name, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown material category %q", name)
}

// BaseName returns the conventional name of the category's base
// material, or "" when the category has no base material. Water has a
// category of its own but no parent template.
func (c Category) BaseName() string {
	switch c {
	case Terrain, Decor, Knobs:
		return Prefix + c.String()
	default:
		return ""
	}
}

// Material is a material asset handle. A base material has no parent;
// an instance copies its parent's shading model and overrides parameters.
type Material struct {
	Name     string // conventional name, e.g. MT_Rock
	Path     string // package path the asset lives at
	Parent   string // package path of the parent, empty for base materials
	Category Category

	BaseColor    math.Vec3
	Roughness    float32
	Metallic     float32
	BaseColorMap string
	NormalMap    string
}

// IsInstance reports whether m derives from a parent material.
func (m *Material) IsInstance() bool {
	return m.Parent != ""
}

// HasPrefix reports whether name is already in conventional form.
func HasPrefix(name string) bool {
	return strings.HasPrefix(name, Prefix)
}

// Normalize returns name in conventional form.
func Normalize(name string) string {
	if HasPrefix(name) {
		return name
	}
	return Prefix + name
}
