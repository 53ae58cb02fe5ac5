package server

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/meshsync/internal/materials"
	"github.com/Faultbox/meshsync/internal/protocol"
	"github.com/Faultbox/meshsync/internal/scene"
)

// handleMesh decodes a SendMesh payload and enqueues its creation.
// Only decode and enqueue failures are returned; a record with bad
// geometry is dropped and the connection carries on.
func (c *Connection) handleMesh(d *protocol.Decoder) error {
	rec, err := protocol.DecodeMesh(d)
	if err != nil {
		return fmt.Errorf("decoding mesh: %w", err)
	}

	log := c.log.With(zap.String("mesh", rec.Name))
	if rec.Name == "" {
		c.dropped.Add(1)
		log.Info("dropping unnamed mesh")
		return nil
	}
	if err := rec.Mesh.Validate(); err != nil {
		c.dropped.Add(1)
		log.Info("dropping mesh", zap.Error(err))
		return nil
	}

	path := c.opts.MeshPackage + rec.Name
	if c.scene.Exists(path) {
		c.dropped.Add(1)
		log.Info("mesh already exists, skipping", zap.String("path", path))
		return nil
	}

	names := make([]string, len(rec.MaterialSlots))
	handles := make([]*materials.Material, len(rec.MaterialSlots))
	for i, slot := range rec.MaterialSlots {
		if slot == "" {
			continue
		}
		names[i] = materials.Normalize(slot)
		handles[i] = c.registry.Resolve(names[i])
	}

	log.Debug("mesh decoded",
		zap.Stringer("flags", rec.Flags),
		zap.Int("faces", rec.Mesh.NumFaces()),
		zap.Int("vertices", rec.Mesh.NumVertices()),
		zap.Int("slots", len(handles)),
	)
	if err := c.scene.EnqueueMesh(scene.CreateMesh{
		Path:      path,
		Record:    rec,
		Materials: handles,
		Slots:     names,
	}); err != nil {
		return fmt.Errorf("enqueueing mesh %s: %w", rec.Name, err)
	}
	return nil
}

// handleMaterial decodes a SendMaterial payload. Names already in
// conventional form refer to base materials and are not created.
// Anything else becomes an instance of its category's base material,
// registered under the conventional name once it exists.
func (c *Connection) handleMaterial(d *protocol.Decoder) error {
	rec, err := protocol.DecodeMaterial(d)
	if err != nil {
		return fmt.Errorf("decoding material: %w", err)
	}

	log := c.log.With(zap.String("material", rec.Name))
	if rec.Name == "" {
		c.dropped.Add(1)
		log.Info("dropping unnamed material")
		return nil
	}
	if materials.HasPrefix(rec.Name) {
		log.Debug("material references a base material, skipping")
		return nil
	}

	name := materials.Normalize(rec.Name)
	path := c.opts.MaterialPackage + name
	if c.scene.Exists(path) {
		c.dropped.Add(1)
		log.Info("material already exists, skipping", zap.String("path", path))
		c.registry.Resolve(name)
		return nil
	}

	category := materials.Category(rec.MaterialID.Category())
	var parent *materials.Material
	if base := category.BaseName(); base != "" {
		parent = c.registry.Resolve(base)
	} else if category != materials.Water {
		log.Warn("unknown material category, creating without parent",
			zap.Uint16("category", uint16(category)))
	}

	registry := c.registry
	err = c.scene.EnqueueMaterialInstance(scene.CreateMaterialInstance{
		Path:     path,
		Name:     name,
		Category: category,
		Parent:   parent,
		Record:   rec,
		OnCreated: func(m *materials.Material) {
			registry.Register(name, m)
		},
	})
	if err != nil {
		return fmt.Errorf("enqueueing material %s: %w", rec.Name, err)
	}
	return nil
}
