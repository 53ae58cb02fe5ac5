package materials

import (
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Faultbox/meshsync/internal/logger"
)

// Loader loads a material asset from its package path.
type Loader interface {
	LoadMaterial(path string) (*Material, error)
}

// Registry caches material handles by conventional name. It is shared by
// every connection; entries live for the lifetime of the process.
type Registry struct {
	loader  Loader
	pkgPath string

	mu      sync.RWMutex
	entries map[string]*Material
	flight  singleflight.Group

	// Stats
	loads  int
	misses int
}

// NewRegistry creates a registry that loads misses from
// packagePath+name through loader.
func NewRegistry(loader Loader, packagePath string) *Registry {
	return &Registry{
		loader:  loader,
		pkgPath: packagePath,
		entries: make(map[string]*Material),
	}
}

// PathFor returns the conventional package path for a material name.
func (r *Registry) PathFor(name string) string {
	return r.pkgPath + name
}

// Resolve returns the handle for name, loading it on first use.
// A nil result means no such material; callers leave the slot empty.
// Concurrent misses for one name share a single load.
func (r *Registry) Resolve(name string) *Material {
	if m, ok := r.lookup(name); ok {
		return m
	}

	v, _, _ := r.flight.Do(name, func() (any, error) {
		// Another flight may have finished between lookup and Do.
		if m, ok := r.lookup(name); ok {
			return m, nil
		}
		return r.load(name, r.PathFor(name)), nil
	})
	m, _ := v.(*Material)
	return m
}

// Register inserts or replaces the handle for name.
func (r *Registry) Register(name string, m *Material) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = m
}

// Preload loads materials from explicit package paths, keyed by name.
// Missing materials are logged and skipped. It returns how many loaded.
func (r *Registry) Preload(paths map[string]string) int {
	loaded := 0
	for name, path := range paths {
		if m := r.load(name, path); m != nil {
			loaded++
		}
	}
	return loaded
}

// Len returns the number of cached entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Names returns the cached names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Stats returns how many loads were attempted and how many failed.
func (r *Registry) Stats() (loads, misses int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loads, r.misses
}

func (r *Registry) lookup(name string) (*Material, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.entries[name]
	return m, ok
}

// load reads one material and caches it. A registration that raced the
// load wins over the loaded copy so only one handle is ever visible.
func (r *Registry) load(name, path string) *Material {
	m, err := r.loader.LoadMaterial(path)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	if err != nil || m == nil {
		r.misses++
		logger.Warn("material not found",
			zap.String("name", name),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil
	}
	if existing, ok := r.entries[name]; ok {
		return existing
	}
	r.entries[name] = m
	return m
}
