// Package scene owns asset creation. Work items from connection workers
// are applied one at a time on a single consumer goroutine.
package scene

import (
	"context"
	"time"

	"github.com/Faultbox/meshsync/internal/materials"
	"github.com/Faultbox/meshsync/internal/mesh"
	"github.com/Faultbox/meshsync/internal/protocol"
	"github.com/Faultbox/meshsync/pkg/math"
)

// BuildSettings are recorded on every mesh asset and tell the importer
// how to finish the geometry.
type BuildSettings struct {
	RecomputeNormals         bool `cbor:"recompute_normals" json:"recompute_normals"`
	RecomputeTangents        bool `cbor:"recompute_tangents" json:"recompute_tangents"`
	GenerateLightmapUVs      bool `cbor:"generate_lightmap_uvs" json:"generate_lightmap_uvs"`
	ComplexAsSimpleCollision bool `cbor:"complex_as_simple_collision" json:"complex_as_simple_collision"`
}

// DefaultBuildSettings returns the settings applied to streamed meshes.
// Normals are never sent usable, so they are always rebuilt.
func DefaultBuildSettings() BuildSettings {
	return BuildSettings{
		RecomputeNormals:         true,
		RecomputeTangents:        true,
		GenerateLightmapUVs:      true,
		ComplexAsSimpleCollision: true,
	}
}

// MeshAsset is a static mesh ready to be persisted.
type MeshAsset struct {
	Name              string        `cbor:"name"`
	Path              string        `cbor:"path"`
	Flags             mesh.Flags    `cbor:"flags"`
	Tile              [3]uint32     `cbor:"tile"`
	MaterialID        uint32        `cbor:"material_id"`
	Mesh              mesh.RawMesh  `cbor:"mesh"`
	MaterialSlots     []string      `cbor:"material_slots"` // package paths, "" for an empty slot
	InstancePositions []math.Vec3   `cbor:"instance_positions,omitempty"`
	InstanceColors    []math.Color  `cbor:"instance_colors,omitempty"`
	Build             BuildSettings `cbor:"build"`
	Stats             mesh.Stats    `cbor:"stats"`
}

// CreateMesh asks the integrator to create a mesh asset at Path.
// Materials holds the handle resolved for each slot when the frame
// arrived. Slots holds the conventional names of the same slots ("" for
// an empty one); a nil handle with a name is resolved again when the item
// runs, so a material created earlier in the queue is picked up.
type CreateMesh struct {
	Path      string
	Record    *protocol.MeshRecord
	Materials []*materials.Material
	Slots     []string
}

// CreateMaterialInstance asks the integrator to derive a material
// instance. Name is the conventional name the instance is registered
// under and Parent may be nil for categories without a base material.
// OnCreated runs on the integrator goroutine once the handle exists.
type CreateMaterialInstance struct {
	Path      string
	Name      string
	Category  materials.Category
	Parent    *materials.Material
	Record    *protocol.MaterialRecord
	OnCreated func(*materials.Material)
}

func (CreateMesh) isWorkItem()             {}
func (CreateMaterialInstance) isWorkItem() {}

type workItem interface {
	isWorkItem()
}

// Store persists assets. Implementations only need to tolerate calls
// from the integrator goroutine plus concurrent Exists checks.
type Store interface {
	Exists(ctx context.Context, path string) (bool, error)
	SaveMesh(ctx context.Context, asset *MeshAsset) error
	SaveMaterial(ctx context.Context, m *materials.Material) error
	LoadMaterial(path string) (*materials.Material, error)
}

// Resolver looks up material handles by conventional name.
// materials.Registry implements it.
type Resolver interface {
	Resolve(name string) *materials.Material
}

// EventKind names what an AssetEvent reports.
type EventKind string

const (
	MeshCreated     EventKind = "mesh_created"
	MaterialCreated EventKind = "material_created"
)

// AssetEvent is published after an asset has been saved.
type AssetEvent struct {
	Kind     EventKind `json:"kind"`
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Parent   string    `json:"parent,omitempty"`
	Faces    int       `json:"faces,omitempty"`
	Vertices int       `json:"vertices,omitempty"`
	Time     time.Time `json:"time"`
}

// Notifier receives asset events. Publish must not block.
type Notifier interface {
	Publish(AssetEvent)
}

type nopNotifier struct{}

func (nopNotifier) Publish(AssetEvent) {}
