package materials

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeLoader struct {
	mu     sync.Mutex
	assets map[string]*Material
	calls  map[string]int
	total  atomic.Int32
	delay  time.Duration
}

func newFakeLoader(assets ...*Material) *fakeLoader {
	l := &fakeLoader{assets: make(map[string]*Material), calls: make(map[string]int)}
	for _, m := range assets {
		l.assets[m.Path] = m
	}
	return l
}

func (l *fakeLoader) LoadMaterial(path string) (*Material, error) {
	l.total.Add(1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[path]++
	m, ok := l.assets[path]
	if !ok {
		return nil, errors.New("asset not found")
	}
	copied := *m
	return &copied, nil
}

func (l *fakeLoader) callsFor(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[path]
}

const pkg = "/Game/Lego/Scene/Materials/"

func TestResolveCachesHandle(t *testing.T) {
	loader := newFakeLoader(&Material{Name: "MT_Rock", Path: pkg + "MT_Rock"})
	reg := NewRegistry(loader, pkg)

	first := reg.Resolve("MT_Rock")
	if first == nil {
		t.Fatal("Resolve(MT_Rock) = nil")
	}
	second := reg.Resolve("MT_Rock")
	if first != second {
		t.Error("second Resolve returned a different handle")
	}
	if n := loader.callsFor(pkg + "MT_Rock"); n != 1 {
		t.Errorf("loads = %d, want 1", n)
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestResolveMiss(t *testing.T) {
	loader := newFakeLoader()
	reg := NewRegistry(loader, pkg)

	if m := reg.Resolve("MT_Nope"); m != nil {
		t.Fatalf("Resolve(MT_Nope) = %+v, want nil", m)
	}
	if reg.Len() != 0 {
		t.Errorf("a miss was cached")
	}
	loads, misses := reg.Stats()
	if loads != 1 || misses != 1 {
		t.Errorf("Stats() = %d, %d, want 1, 1", loads, misses)
	}

	// Misses are not cached, so a later registration becomes visible.
	reg.Register("MT_Nope", &Material{Name: "MT_Nope"})
	if reg.Resolve("MT_Nope") == nil {
		t.Error("registered material not resolved after earlier miss")
	}
}

func TestRegisterSkipsLoad(t *testing.T) {
	loader := newFakeLoader()
	reg := NewRegistry(loader, pkg)

	inst := &Material{Name: "MT_Red", Path: pkg + "MT_Red", Parent: "/MeshSync/Materials/MT_Terrain"}
	reg.Register("MT_Red", inst)

	if got := reg.Resolve("MT_Red"); got != inst {
		t.Errorf("Resolve returned %p, want registered %p", got, inst)
	}
	if loader.total.Load() != 0 {
		t.Errorf("loader called %d times, want 0", loader.total.Load())
	}
}

func TestResolveConcurrentSingleLoad(t *testing.T) {
	loader := newFakeLoader(&Material{Name: "MT_Brick", Path: pkg + "MT_Brick"})
	loader.delay = 20 * time.Millisecond
	reg := NewRegistry(loader, pkg)

	const workers = 32
	results := make([]*Material, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = reg.Resolve("MT_Brick")
		}(i)
	}
	close(start)
	wg.Wait()

	for i, m := range results {
		if m == nil {
			t.Fatalf("worker %d got nil", i)
		}
		if m != results[0] {
			t.Fatalf("worker %d got a different handle", i)
		}
	}
	if n := loader.callsFor(pkg + "MT_Brick"); n != 1 {
		t.Errorf("loads = %d, want 1", n)
	}
}

func TestLoadKeepsRacingRegistration(t *testing.T) {
	loader := newFakeLoader(&Material{Name: "MT_Sand", Path: pkg + "MT_Sand"})
	reg := NewRegistry(loader, pkg)

	registered := &Material{Name: "MT_Sand"}
	reg.Register("MT_Sand", registered)
	if got := reg.load("MT_Sand", pkg+"MT_Sand"); got != registered {
		t.Error("load replaced a registered handle")
	}
}

func TestPreload(t *testing.T) {
	base := "/MeshSync/Materials/"
	loader := newFakeLoader(
		&Material{Name: "MT_Terrain", Path: base + "MT_Terrain"},
		&Material{Name: "MT_Decor", Path: base + "MT_Decor"},
	)
	reg := NewRegistry(loader, pkg)

	n := reg.Preload(map[string]string{
		"MT_Terrain": base + "MT_Terrain",
		"MT_Decor":   base + "MT_Decor",
		"MT_Knobs":   base + "MT_Knobs",
	})
	if n != 2 {
		t.Errorf("Preload() = %d, want 2", n)
	}

	names := reg.Names()
	want := []string{"MT_Decor", "MT_Terrain"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	// Preloaded entries resolve without touching the slot package path.
	if reg.Resolve("MT_Terrain") == nil {
		t.Error("preloaded MT_Terrain not resolved")
	}
	if loader.callsFor(pkg+"MT_Terrain") != 0 {
		t.Error("preloaded material was loaded again")
	}
}
