package mesh

import (
	vec3d "github.com/flywave/go3d/float64/vec3"
)

// degenerateArea is the face area below which a triangle is counted as
// degenerate.
const degenerateArea = 1e-8

// Stats summarizes validated geometry.
type Stats struct {
	Faces           int
	Wedges          int
	Vertices        int
	DegenerateFaces int
	Bounds          [2][3]float64 // min, max
}

// ComputeStats measures the mesh. It assumes Validate succeeded.
func (m *RawMesh) ComputeStats() Stats {
	s := Stats{
		Faces:    m.NumFaces(),
		Wedges:   m.NumWedges(),
		Vertices: m.NumVertices(),
		Bounds:   [2][3]float64{vec3d.MaxVal, vec3d.MinVal},
	}

	for _, p := range m.VertexPositions {
		v := vec3d.T(p.Float64())
		s.Bounds[0] = vec3d.Min((*vec3d.T)(&s.Bounds[0]), &v)
		s.Bounds[1] = vec3d.Max((*vec3d.T)(&s.Bounds[1]), &v)
	}
	if s.Vertices == 0 {
		s.Bounds = [2][3]float64{}
	}

	for f := 0; f < s.Faces; f++ {
		a := m.VertexPositions[m.WedgeIndices[f*3]]
		b := m.VertexPositions[m.WedgeIndices[f*3+1]]
		c := m.VertexPositions[m.WedgeIndices[f*3+2]]
		area := b.Sub(a).Cross(c.Sub(a)).Length() / 2
		if area < degenerateArea {
			s.DegenerateFaces++
		}
	}
	return s
}
