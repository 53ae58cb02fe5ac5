package main

import (
	"github.com/Faultbox/meshsync/internal/mesh"
	"github.com/Faultbox/meshsync/internal/protocol"
	"github.com/Faultbox/meshsync/pkg/math"
)

// buildQuad returns a unit square in the XY plane made of two triangles.
func buildQuad(name, material string) *protocol.MeshRecord {
	return buildGrid(name, 1, material)
}

// buildGrid returns an n x n grid of unit cells with per-wedge UVs and
// vertex colors, as the exporter sends terrain tiles.
func buildGrid(name string, n int, material string) *protocol.MeshRecord {
	rec := &protocol.MeshRecord{
		Name:          name,
		Flags:         mesh.HasIndices | mesh.HasUV0 | mesh.HasNormal | mesh.HasColor0,
		MaterialSlots: []string{material},
	}
	m := &rec.Mesh

	row := uint32(n + 1)
	for y := 0; y <= n; y++ {
		for x := 0; x <= n; x++ {
			m.VertexPositions = append(m.VertexPositions, math.Vec3{X: float32(x), Y: float32(y)})
		}
	}
	for y := uint32(0); y < uint32(n); y++ {
		for x := uint32(0); x < uint32(n); x++ {
			i := y*row + x
			for _, v := range []uint32{i, i + 1, i + row, i + 1, i + row + 1, i + row} {
				m.WedgeIndices = append(m.WedgeIndices, v)
				m.WedgeTexCoords[0] = append(m.WedgeTexCoords[0], math.Vec2{
					X: float32(v%row) / float32(n),
					Y: float32(v/row) / float32(n),
				})
				m.WedgeColors = append(m.WedgeColors, math.White)
			}
			m.FaceMaterialIndices = append(m.FaceMaterialIndices, 0, 0)
			m.FaceSmoothingMasks = append(m.FaceSmoothingMasks, 1, 1)
		}
	}
	return rec
}

// flatNormals returns +Z normals; the server discards them anyway.
func flatNormals(n int) []math.Vec3 {
	normals := make([]math.Vec3, n)
	for i := range normals {
		normals[i] = math.Vec3{Z: 1}
	}
	return normals
}
