// Package mesh holds the raw triangle geometry streamed by authoring tools.
package mesh

import (
	"errors"
	"fmt"

	"github.com/Faultbox/meshsync/pkg/math"
)

// NumTexCoords is the number of UV channels a mesh carries.
// Channel 0 is the primary texture, 1 the normal map and 2 the
// roughness/metallic map.
const NumTexCoords = 3

// ErrInvalidGeometry is returned by Validate for structurally broken meshes.
var ErrInvalidGeometry = errors.New("invalid mesh geometry")

// RawMesh is wedge-based triangle geometry. Every three consecutive
// wedges form one face; a wedge references a vertex position and carries
// its own UVs and color.
type RawMesh struct {
	FaceMaterialIndices []uint32
	FaceSmoothingMasks  []uint32
	WedgeIndices        []uint32
	VertexPositions     []math.Vec3
	WedgeTexCoords      [NumTexCoords][]math.Vec2
	WedgeColors         []math.Color
}

// NumFaces returns the number of triangles.
func (m *RawMesh) NumFaces() int {
	return len(m.WedgeIndices) / 3
}

// NumWedges returns the number of triangle corners.
func (m *RawMesh) NumWedges() int {
	return len(m.WedgeIndices)
}

// NumVertices returns the number of vertex positions.
func (m *RawMesh) NumVertices() int {
	return len(m.VertexPositions)
}

// Validate reports whether the geometry can be turned into a mesh asset.
// UV channel 0 needs one entry per wedge. The other UV channels and the
// wedge colors may be empty, but when present they must have one entry
// per wedge.
func (m *RawMesh) Validate() error {
	numVertices := m.NumVertices()
	numWedges := m.NumWedges()
	numFaces := m.NumFaces()

	switch {
	case numVertices == 0:
		return fmt.Errorf("%w: no vertices", ErrInvalidGeometry)
	case numWedges == 0:
		return fmt.Errorf("%w: no wedges", ErrInvalidGeometry)
	case numWedges%3 != 0:
		return fmt.Errorf("%w: %d wedges is not a whole number of triangles", ErrInvalidGeometry, numWedges)
	case len(m.FaceMaterialIndices) != numFaces:
		return fmt.Errorf("%w: %d face material indices for %d faces",
			ErrInvalidGeometry, len(m.FaceMaterialIndices), numFaces)
	case len(m.FaceSmoothingMasks) != numFaces:
		return fmt.Errorf("%w: %d smoothing masks for %d faces",
			ErrInvalidGeometry, len(m.FaceSmoothingMasks), numFaces)
	}

	if len(m.WedgeTexCoords[0]) != numWedges {
		return fmt.Errorf("%w: uv channel 0 has %d entries for %d wedges",
			ErrInvalidGeometry, len(m.WedgeTexCoords[0]), numWedges)
	}
	for i, uvs := range m.WedgeTexCoords[1:] {
		if !perWedge(len(uvs), numWedges) {
			return fmt.Errorf("%w: uv channel %d has %d entries for %d wedges",
				ErrInvalidGeometry, i+1, len(uvs), numWedges)
		}
	}
	if !perWedge(len(m.WedgeColors), numWedges) {
		return fmt.Errorf("%w: %d wedge colors for %d wedges",
			ErrInvalidGeometry, len(m.WedgeColors), numWedges)
	}

	for i, idx := range m.WedgeIndices {
		if idx >= uint32(numVertices) {
			return fmt.Errorf("%w: wedge %d references vertex %d of %d",
				ErrInvalidGeometry, i, idx, numVertices)
		}
	}
	return nil
}

// perWedge accepts an optional channel: absent, or exactly one per wedge.
func perWedge(n, numWedges int) bool {
	return n == 0 || n == numWedges
}
