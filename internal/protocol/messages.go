package protocol

import (
	"fmt"

	"github.com/Faultbox/meshsync/internal/mesh"
	"github.com/Faultbox/meshsync/pkg/math"
)

// MaterialID packs a material category in the high 16 bits and an
// instance discriminator in the low 16 bits.
type MaterialID uint32

// NewMaterialID packs a category and instance discriminator.
func NewMaterialID(category, instance uint16) MaterialID {
	return MaterialID(uint32(category)<<16 | uint32(instance))
}

// Category returns the high 16 bits.
func (id MaterialID) Category() uint16 {
	return uint16(id >> 16)
}

// Instance returns the low 16 bits.
func (id MaterialID) Instance() uint16 {
	return uint16(id & 0xFFFF)
}

// MeshRecord is a decoded SendMesh payload. By convention Name also
// encodes the tile triple ("Name+X_Y_Z"), but the explicit tile fields
// are authoritative.
type MeshRecord struct {
	Name              string
	Flags             mesh.Flags
	TileX             uint32
	TileY             uint32
	TileZ             uint32
	Mesh              mesh.RawMesh
	MaterialID        uint32
	MaterialSlots     []string
	InstancePositions []math.Vec3
	InstanceColors    []math.Color
}

// MaterialRecord is a decoded SendMaterial payload.
type MaterialRecord struct {
	Name         string
	MaterialID   MaterialID
	BaseColor    math.Vec3
	Roughness    float32
	Metallic     float32
	BaseColorMap string
	NormalMap    string
}

// DecodeMesh reads a SendMesh payload. Normals are read and discarded;
// they are recomputed when the asset is built.
func DecodeMesh(d *Decoder) (*MeshRecord, error) {
	rec := &MeshRecord{}
	m := &rec.Mesh
	var err error

	if rec.Name, err = d.String(); err != nil {
		return nil, fieldErr("name", err)
	}
	flags, err := d.Uint32()
	if err != nil {
		return nil, fieldErr("flags", err)
	}
	rec.Flags = mesh.Flags(flags)
	if rec.TileX, err = d.Uint32(); err != nil {
		return nil, fieldErr("tile x", err)
	}
	if rec.TileY, err = d.Uint32(); err != nil {
		return nil, fieldErr("tile y", err)
	}
	if rec.TileZ, err = d.Uint32(); err != nil {
		return nil, fieldErr("tile z", err)
	}

	if m.FaceMaterialIndices, err = ReadArray[uint32](d); err != nil {
		return nil, fieldErr("face material indices", err)
	}
	if m.FaceSmoothingMasks, err = ReadArray[uint32](d); err != nil {
		return nil, fieldErr("face smoothing masks", err)
	}
	if m.WedgeIndices, err = ReadArray[uint32](d); err != nil {
		return nil, fieldErr("wedge indices", err)
	}
	if m.VertexPositions, err = ReadArray[math.Vec3](d); err != nil {
		return nil, fieldErr("vertex positions", err)
	}
	if _, err = ReadArray[math.Vec3](d); err != nil {
		return nil, fieldErr("normals", err)
	}
	for i := range m.WedgeTexCoords {
		if m.WedgeTexCoords[i], err = ReadArray[math.Vec2](d); err != nil {
			return nil, fieldErr(fmt.Sprintf("uv%d", i), err)
		}
	}
	if m.WedgeColors, err = ReadArray[math.Color](d); err != nil {
		return nil, fieldErr("wedge colors", err)
	}

	if rec.MaterialID, err = d.Uint32(); err != nil {
		return nil, fieldErr("material id", err)
	}
	if rec.MaterialSlots, err = d.StringList(); err != nil {
		return nil, fieldErr("material slots", err)
	}
	if rec.InstancePositions, err = ReadArray[math.Vec3](d); err != nil {
		return nil, fieldErr("instance positions", err)
	}
	if rec.InstanceColors, err = ReadArray[math.Color](d); err != nil {
		return nil, fieldErr("instance colors", err)
	}
	return rec, nil
}

// DecodeMaterial reads a SendMaterial payload.
func DecodeMaterial(d *Decoder) (*MaterialRecord, error) {
	rec := &MaterialRecord{}
	var err error

	if rec.Name, err = d.String(); err != nil {
		return nil, fieldErr("name", err)
	}
	id, err := d.Uint32()
	if err != nil {
		return nil, fieldErr("material id", err)
	}
	rec.MaterialID = MaterialID(id)
	if rec.BaseColor, err = d.Vec3(); err != nil {
		return nil, fieldErr("base color", err)
	}
	if rec.Roughness, err = d.Float32(); err != nil {
		return nil, fieldErr("roughness", err)
	}
	if rec.Metallic, err = d.Float32(); err != nil {
		return nil, fieldErr("metallic", err)
	}
	if rec.BaseColorMap, err = d.String(); err != nil {
		return nil, fieldErr("base color map", err)
	}
	if rec.NormalMap, err = d.String(); err != nil {
		return nil, fieldErr("normal map", err)
	}
	return rec, nil
}

// EncodeMesh writes rec as a SendMesh payload. normals may be nil.
func EncodeMesh(e *Encoder, rec *MeshRecord, normals []math.Vec3) {
	m := &rec.Mesh
	e.String(rec.Name)
	e.Uint32(uint32(rec.Flags))
	e.Uint32(rec.TileX)
	e.Uint32(rec.TileY)
	e.Uint32(rec.TileZ)
	WriteArray(e, m.FaceMaterialIndices)
	WriteArray(e, m.FaceSmoothingMasks)
	WriteArray(e, m.WedgeIndices)
	WriteArray(e, m.VertexPositions)
	WriteArray(e, normals)
	for _, uvs := range m.WedgeTexCoords {
		WriteArray(e, uvs)
	}
	WriteArray(e, m.WedgeColors)
	e.Uint32(rec.MaterialID)
	e.StringList(rec.MaterialSlots)
	WriteArray(e, rec.InstancePositions)
	WriteArray(e, rec.InstanceColors)
}

// EncodeMaterial writes rec as a SendMaterial payload.
func EncodeMaterial(e *Encoder, rec *MaterialRecord) {
	e.String(rec.Name)
	e.Uint32(uint32(rec.MaterialID))
	e.Vec3(rec.BaseColor)
	e.Float32(rec.Roughness)
	e.Float32(rec.Metallic)
	e.String(rec.BaseColorMap)
	e.String(rec.NormalMap)
}

func fieldErr(field string, err error) error {
	return fmt.Errorf("decoding %s: %w", field, err)
}
