package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshsync/internal/logger"
	"github.com/Faultbox/meshsync/internal/materials"
)

// ErrClosed is returned when enqueuing after the integrator stopped.
var ErrClosed = errors.New("scene integrator closed")

// existsTimeout bounds catalog lookups made from connection goroutines.
const existsTimeout = 2 * time.Second

// Stats counts work item outcomes.
type Stats struct {
	Created int64
	Dropped int64
	Failed  int64
}

// Integrator is the single serialized context that creates assets.
type Integrator struct {
	store    Store
	resolver Resolver
	notify   Notifier
	build    BuildSettings
	log      *zap.Logger

	queue    chan workItem
	stopping chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	created atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// New creates an integrator with a queue of the given depth. resolver
// and notify may be nil.
func New(store Store, resolver Resolver, notify Notifier, queueDepth int) *Integrator {
	if notify == nil {
		notify = nopNotifier{}
	}
	if queueDepth < 1 {
		queueDepth = 1
	}
	return &Integrator{
		store:    store,
		resolver: resolver,
		notify:   notify,
		build:    DefaultBuildSettings(),
		log:      logger.Named("scene"),
		queue:    make(chan workItem, queueDepth),
		stopping: make(chan struct{}),
	}
}

// Run consumes work items until ctx is cancelled. Items still queued at
// that point are discarded. Run must be called at most once.
func (in *Integrator) Run(ctx context.Context) error {
	if !in.running.CompareAndSwap(false, true) {
		return errors.New("scene integrator already running")
	}
	defer in.close()

	for {
		select {
		case <-ctx.Done():
			if n := len(in.queue); n > 0 {
				in.dropped.Add(int64(n))
				in.log.Warn("discarding queued work items", zap.Int("count", n))
			}
			return ctx.Err()
		case item := <-in.queue:
			in.process(ctx, item)
		}
	}
}

func (in *Integrator) close() {
	in.stopOnce.Do(func() { close(in.stopping) })
}

// EnqueueMesh hands a mesh creation to the integrator. It blocks only
// while the queue is full.
func (in *Integrator) EnqueueMesh(item CreateMesh) error {
	return in.enqueue(item)
}

// EnqueueMaterialInstance hands a material instance creation to the
// integrator. OnCreated fires asynchronously.
func (in *Integrator) EnqueueMaterialInstance(item CreateMaterialInstance) error {
	return in.enqueue(item)
}

func (in *Integrator) enqueue(item workItem) error {
	select {
	case <-in.stopping:
		return ErrClosed
	default:
	}
	select {
	case in.queue <- item:
		return nil
	case <-in.stopping:
		return ErrClosed
	}
}

// Exists reports whether an asset is already stored at path. Lookup
// errors are logged and reported as absent.
func (in *Integrator) Exists(path string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), existsTimeout)
	defer cancel()
	ok, err := in.store.Exists(ctx, path)
	if err != nil {
		in.log.Warn("asset lookup failed", zap.String("path", path), zap.Error(err))
		return false
	}
	return ok
}

// Stats returns a snapshot of the outcome counters.
func (in *Integrator) Stats() Stats {
	return Stats{
		Created: in.created.Load(),
		Dropped: in.dropped.Load(),
		Failed:  in.failed.Load(),
	}
}

func (in *Integrator) process(ctx context.Context, item workItem) {
	defer func() {
		if r := recover(); r != nil {
			in.failed.Add(1)
			in.log.Error("work item panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	var err error
	switch w := item.(type) {
	case CreateMesh:
		err = in.createMesh(ctx, w)
	case CreateMaterialInstance:
		err = in.createMaterialInstance(ctx, w)
	default:
		err = fmt.Errorf("unknown work item %T", item)
	}
	if err != nil {
		in.failed.Add(1)
		in.log.Error("asset creation failed", zap.Error(err))
	}
}

func (in *Integrator) createMesh(ctx context.Context, w CreateMesh) error {
	exists, err := in.store.Exists(ctx, w.Path)
	if err != nil {
		return fmt.Errorf("checking %s: %w", w.Path, err)
	}
	if exists {
		in.dropped.Add(1)
		in.log.Info("mesh already exists, skipping", zap.String("path", w.Path))
		return nil
	}

	asset := in.meshAsset(w)
	if err := in.store.SaveMesh(ctx, asset); err != nil {
		return fmt.Errorf("saving mesh %s: %w", w.Path, err)
	}
	in.created.Add(1)
	in.log.Info("mesh created",
		zap.String("path", asset.Path),
		zap.Int("faces", asset.Stats.Faces),
		zap.Int("vertices", asset.Stats.Vertices),
		zap.Int("degenerate", asset.Stats.DegenerateFaces),
	)
	in.notify.Publish(AssetEvent{
		Kind:     MeshCreated,
		Path:     asset.Path,
		Name:     asset.Name,
		Faces:    asset.Stats.Faces,
		Vertices: asset.Stats.Vertices,
		Time:     time.Now(),
	})
	return nil
}

func (in *Integrator) meshAsset(w CreateMesh) *MeshAsset {
	rec := w.Record
	slots := make([]string, max(len(w.Materials), len(w.Slots)))
	for i := range slots {
		if m := in.slotMaterial(w, i); m != nil {
			slots[i] = m.Path
		}
	}
	return &MeshAsset{
		Name:              rec.Name,
		Path:              w.Path,
		Flags:             rec.Flags,
		Tile:              [3]uint32{rec.TileX, rec.TileY, rec.TileZ},
		MaterialID:        rec.MaterialID,
		Mesh:              rec.Mesh,
		MaterialSlots:     slots,
		InstancePositions: rec.InstancePositions,
		InstanceColors:    rec.InstanceColors,
		Build:             in.build,
		Stats:             rec.Mesh.ComputeStats(),
	}
}

// slotMaterial returns the handle for slot i, resolving it now if the
// connection could not.
func (in *Integrator) slotMaterial(w CreateMesh, i int) *materials.Material {
	if i < len(w.Materials) && w.Materials[i] != nil {
		return w.Materials[i]
	}
	if in.resolver == nil || i >= len(w.Slots) || w.Slots[i] == "" {
		return nil
	}
	return in.resolver.Resolve(w.Slots[i])
}

func (in *Integrator) createMaterialInstance(ctx context.Context, w CreateMaterialInstance) error {
	exists, err := in.store.Exists(ctx, w.Path)
	if err != nil {
		return fmt.Errorf("checking %s: %w", w.Path, err)
	}
	if exists {
		in.dropped.Add(1)
		in.log.Info("material already exists, skipping", zap.String("path", w.Path))
		// Hand the stored copy back so the name still resolves.
		if w.OnCreated != nil {
			if m, err := in.store.LoadMaterial(w.Path); err == nil {
				w.OnCreated(m)
			}
		}
		return nil
	}

	m := &materials.Material{
		Name:     w.Name,
		Path:     w.Path,
		Category: w.Category,
	}
	if w.Parent != nil {
		m.Parent = w.Parent.Path
	}
	if rec := w.Record; rec != nil {
		m.BaseColor = rec.BaseColor
		m.Roughness = rec.Roughness
		m.Metallic = rec.Metallic
		m.BaseColorMap = rec.BaseColorMap
		m.NormalMap = rec.NormalMap
	}

	if err := in.store.SaveMaterial(ctx, m); err != nil {
		return fmt.Errorf("saving material %s: %w", w.Path, err)
	}
	in.created.Add(1)
	in.log.Info("material instance created",
		zap.String("path", m.Path),
		zap.String("parent", m.Parent),
	)
	if w.OnCreated != nil {
		w.OnCreated(m)
	}
	in.notify.Publish(AssetEvent{
		Kind:   MaterialCreated,
		Path:   m.Path,
		Name:   m.Name,
		Parent: m.Parent,
		Time:   time.Now(),
	})
	return nil
}
