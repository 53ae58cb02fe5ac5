// Package assetstore persists created assets under a content root and
// keeps a SQLite catalog of what exists.
package assetstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshsync/internal/logger"
	"github.com/Faultbox/meshsync/internal/materials"
	"github.com/Faultbox/meshsync/internal/scene"
	"github.com/Faultbox/meshsync/pkg/math"
)

// Options configure Open.
type Options struct {
	ContentRoot string
	Compression string // none, lz4 or zstd
	CatalogPath string // empty = <ContentRoot>/catalog.db
	PoolSize    int    // catalog connections, 0 = 4
}

// Store writes assets as files and records them in the catalog. It
// implements materials.Loader and scene.Store.
type Store struct {
	root        string
	compression Compression
	catalog     *catalog
	materials   *Cache[*materials.Material]
	log         *zap.Logger
}

var (
	_ materials.Loader = (*Store)(nil)
	_ scene.Store      = (*Store)(nil)
)

// Open creates the content root if needed and opens the catalog.
func Open(opts Options) (*Store, error) {
	if opts.ContentRoot == "" {
		return nil, errors.New("assetstore: content root is required")
	}
	comp, err := ParseCompression(opts.Compression)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.ContentRoot, 0755); err != nil {
		return nil, fmt.Errorf("creating content root: %w", err)
	}

	catalogPath := opts.CatalogPath
	if catalogPath == "" {
		catalogPath = filepath.Join(opts.ContentRoot, "catalog.db")
	}
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}
	cat, err := openCatalog(catalogPath, poolSize)
	if err != nil {
		return nil, err
	}

	s := &Store{
		root:        opts.ContentRoot,
		compression: comp,
		catalog:     cat,
		materials:   NewCache[*materials.Material](),
		log:         logger.Named("assetstore"),
	}
	s.log.Info("asset store opened",
		zap.String("root", opts.ContentRoot),
		zap.String("catalog", catalogPath),
		zap.Stringer("compression", comp),
	)
	return s, nil
}

// Close closes the catalog.
func (s *Store) Close() error {
	return s.catalog.close()
}

// FilePath maps a package path such as /Game/Lego/Scene/Plate to its
// file under the content root.
func (s *Store) FilePath(pkgPath string) (string, error) {
	if !strings.HasPrefix(pkgPath, "/") {
		return "", fmt.Errorf("%w: %q", ErrBadPath, pkgPath)
	}
	clean := path.Clean(pkgPath)
	if clean == "/" || clean != pkgPath {
		return "", fmt.Errorf("%w: %q", ErrBadPath, pkgPath)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean[1:])) + fileExt, nil
}

// Exists reports whether the catalog has an asset at pkgPath.
func (s *Store) Exists(ctx context.Context, pkgPath string) (bool, error) {
	return s.catalog.exists(ctx, pkgPath)
}

// List returns catalog entries of one kind, or all when kind is 0.
func (s *Store) List(ctx context.Context, kind Kind) ([]Entry, error) {
	return s.catalog.list(ctx, kind)
}

// SaveMesh writes a mesh asset. It fails with ErrExists if the path is
// taken.
func (s *Store) SaveMesh(ctx context.Context, asset *scene.MeshAsset) error {
	return s.save(ctx, KindMesh, asset.Path, asset.Name, asset)
}

// SaveMaterial writes a material asset. It fails with ErrExists if the
// path is taken.
func (s *Store) SaveMaterial(ctx context.Context, m *materials.Material) error {
	if err := s.save(ctx, KindMaterial, m.Path, m.Name, toMaterialDoc(m)); err != nil {
		return err
	}
	s.materials.Set(m.Path, m)
	return nil
}

// LoadMaterial reads the material stored at pkgPath.
func (s *Store) LoadMaterial(pkgPath string) (*materials.Material, error) {
	if m, ok := s.materials.Get(pkgPath); ok {
		return m, nil
	}
	var doc materialDoc
	if err := s.load(KindMaterial, pkgPath, &doc); err != nil {
		return nil, err
	}
	m := doc.material(pkgPath)
	s.materials.Set(pkgPath, m)
	return m, nil
}

// LoadMesh reads the mesh asset stored at pkgPath.
func (s *Store) LoadMesh(pkgPath string) (*scene.MeshAsset, error) {
	var asset scene.MeshAsset
	if err := s.load(KindMesh, pkgPath, &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

// SeedBaseMaterials writes each named base material that is not stored
// yet. Names must be in conventional form; the category is taken from
// the name. It returns how many were created.
func (s *Store) SeedBaseMaterials(ctx context.Context, base map[string]string) (int, error) {
	created := 0
	for name, pkgPath := range base {
		ok, err := s.Exists(ctx, pkgPath)
		if err != nil {
			return created, err
		}
		if ok {
			continue
		}
		cat, err := materials.ParseCategory(strings.TrimPrefix(name, materials.Prefix))
		if err != nil {
			s.log.Warn("base material has no category", zap.String("name", name), zap.Error(err))
		}
		m := &materials.Material{
			Name:      name,
			Path:      pkgPath,
			Category:  cat,
			BaseColor: math.Vec3{X: 0.8, Y: 0.8, Z: 0.8},
			Roughness: 0.5,
		}
		if err := s.SaveMaterial(ctx, m); err != nil {
			return created, fmt.Errorf("seeding %s: %w", name, err)
		}
		created++
	}
	return created, nil
}

func (s *Store) save(ctx context.Context, kind Kind, pkgPath, name string, v any) error {
	file, err := s.FilePath(pkgPath)
	if err != nil {
		return err
	}
	exists, err := s.catalog.exists(ctx, pkgPath)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrExists, pkgPath)
	}

	data, digest, err := encodeFile(kind, s.compression, v)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(file, data); err != nil {
		return fmt.Errorf("writing %s: %w", pkgPath, err)
	}

	err = s.catalog.insert(ctx, Entry{
		Path:      pkgPath,
		Kind:      kind.String(),
		Name:      name,
		Digest:    digest.String(),
		Size:      int64(len(data)),
		CreatedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	s.log.Debug("asset saved",
		zap.String("path", pkgPath),
		zap.Stringer("kind", kind),
		zap.Int("bytes", len(data)),
		zap.Stringer("digest", digest),
	)
	return nil
}

func (s *Store) load(kind Kind, pkgPath string, v any) error {
	file, err := s.FilePath(pkgPath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, pkgPath)
	}
	if err != nil {
		return err
	}
	if err := decodeFile(data, kind, v); err != nil {
		return fmt.Errorf("reading %s: %w", pkgPath, err)
	}
	return nil
}

func writeFileAtomic(file string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(file), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), file)
}

// materialDoc is the stored form of a material.
type materialDoc struct {
	Name         string     `cbor:"name"`
	Parent       string     `cbor:"parent,omitempty"`
	Category     uint16     `cbor:"category"`
	BaseColor    [3]float32 `cbor:"base_color"`
	Roughness    float32    `cbor:"roughness"`
	Metallic     float32    `cbor:"metallic"`
	BaseColorMap string     `cbor:"base_color_map,omitempty"`
	NormalMap    string     `cbor:"normal_map,omitempty"`
}

func toMaterialDoc(m *materials.Material) *materialDoc {
	return &materialDoc{
		Name:         m.Name,
		Parent:       m.Parent,
		Category:     uint16(m.Category),
		BaseColor:    [3]float32{m.BaseColor.X, m.BaseColor.Y, m.BaseColor.Z},
		Roughness:    m.Roughness,
		Metallic:     m.Metallic,
		BaseColorMap: m.BaseColorMap,
		NormalMap:    m.NormalMap,
	}
}

func (d *materialDoc) material(pkgPath string) *materials.Material {
	return &materials.Material{
		Name:         d.Name,
		Path:         pkgPath,
		Parent:       d.Parent,
		Category:     materials.Category(d.Category),
		BaseColor:    math.Vec3{X: d.BaseColor[0], Y: d.BaseColor[1], Z: d.BaseColor[2]},
		Roughness:    d.Roughness,
		Metallic:     d.Metallic,
		BaseColorMap: d.BaseColorMap,
		NormalMap:    d.NormalMap,
	}
}
