package assetstore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/meshsync/internal/materials"
	"github.com/Faultbox/meshsync/internal/mesh"
	"github.com/Faultbox/meshsync/internal/scene"
	"github.com/Faultbox/meshsync/pkg/math"
)

func openTestStore(t *testing.T, compression string) *Store {
	t.Helper()
	s, err := Open(Options{ContentRoot: t.TempDir(), Compression: compression, PoolSize: 2})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func gridAsset(path string, n int) *scene.MeshAsset {
	m := mesh.RawMesh{}
	for y := 0; y <= n; y++ {
		for x := 0; x <= n; x++ {
			m.VertexPositions = append(m.VertexPositions, math.Vec3{X: float32(x), Y: float32(y)})
		}
	}
	row := uint32(n + 1)
	for y := uint32(0); y < uint32(n); y++ {
		for x := uint32(0); x < uint32(n); x++ {
			i := y*row + x
			for _, v := range []uint32{i, i + 1, i + row, i + 1, i + row + 1, i + row} {
				m.WedgeIndices = append(m.WedgeIndices, v)
				m.WedgeTexCoords[0] = append(m.WedgeTexCoords[0], math.Vec2{
					X: float32(v%row) / float32(n),
					Y: float32(v/row) / float32(n),
				})
			}
			m.FaceMaterialIndices = append(m.FaceMaterialIndices, 0, 0)
			m.FaceSmoothingMasks = append(m.FaceSmoothingMasks, 1, 1)
		}
	}
	return &scene.MeshAsset{
		Name:          filepath.Base(path),
		Path:          path,
		Flags:         mesh.HasIndices | mesh.HasUV0,
		Tile:          [3]uint32{3, 4, 0},
		Mesh:          m,
		MaterialSlots: []string{"/MeshSync/Materials/MT_Terrain"},
		Build:         scene.DefaultBuildSettings(),
		Stats:         m.ComputeStats(),
	}
}

func TestMeshRoundTrip(t *testing.T) {
	for _, comp := range []string{"none", "lz4", "zstd"} {
		t.Run(comp, func(t *testing.T) {
			s := openTestStore(t, comp)
			ctx := context.Background()
			asset := gridAsset("/Game/Lego/Scene/Grid+3_4_0", 8)

			if err := s.SaveMesh(ctx, asset); err != nil {
				t.Fatalf("SaveMesh: %v", err)
			}
			ok, err := s.Exists(ctx, asset.Path)
			if err != nil || !ok {
				t.Fatalf("Exists = %v, %v", ok, err)
			}

			got, err := s.LoadMesh(asset.Path)
			if err != nil {
				t.Fatalf("LoadMesh: %v", err)
			}
			if got.Name != asset.Name || got.Tile != asset.Tile || got.Build != asset.Build {
				t.Errorf("header fields differ: %+v", got)
			}
			if len(got.Mesh.WedgeIndices) != len(asset.Mesh.WedgeIndices) {
				t.Fatalf("wedges = %d, want %d", len(got.Mesh.WedgeIndices), len(asset.Mesh.WedgeIndices))
			}
			for i := range asset.Mesh.WedgeIndices {
				if got.Mesh.WedgeIndices[i] != asset.Mesh.WedgeIndices[i] {
					t.Fatalf("wedge %d = %d, want %d", i, got.Mesh.WedgeIndices[i], asset.Mesh.WedgeIndices[i])
				}
			}
			if got.Mesh.VertexPositions[80] != asset.Mesh.VertexPositions[80] {
				t.Errorf("vertex 80 = %v", got.Mesh.VertexPositions[80])
			}
			if got.Stats != asset.Stats {
				t.Errorf("stats = %+v, want %+v", got.Stats, asset.Stats)
			}
			if err := got.Mesh.Validate(); err != nil {
				t.Errorf("reloaded mesh invalid: %v", err)
			}
		})
	}
}

func TestSaveDuplicate(t *testing.T) {
	s := openTestStore(t, "zstd")
	ctx := context.Background()
	asset := gridAsset("/Game/Lego/Scene/Dup", 1)

	if err := s.SaveMesh(ctx, asset); err != nil {
		t.Fatalf("SaveMesh: %v", err)
	}
	if err := s.SaveMesh(ctx, asset); !errors.Is(err, ErrExists) {
		t.Errorf("second SaveMesh = %v, want ErrExists", err)
	}
}

func TestMaterialRoundTrip(t *testing.T) {
	s := openTestStore(t, "lz4")
	ctx := context.Background()

	m := &materials.Material{
		Name:         "MT_Rock",
		Path:         "/Game/Lego/Scene/Materials/MT_Rock",
		Parent:       "/MeshSync/Materials/MT_Terrain",
		Category:     materials.Terrain,
		BaseColor:    math.Vec3{X: 0.25, Y: 0.5, Z: 0.75},
		Roughness:    0.9,
		Metallic:     0.1,
		BaseColorMap: "T_Rock_D",
	}
	if err := s.SaveMaterial(ctx, m); err != nil {
		t.Fatalf("SaveMaterial: %v", err)
	}

	// Bypass the cache to exercise the file path.
	s.materials.Clear()
	got, err := s.LoadMaterial(m.Path)
	if err != nil {
		t.Fatalf("LoadMaterial: %v", err)
	}
	if *got != *m {
		t.Errorf("got %+v, want %+v", got, m)
	}

	again, _ := s.LoadMaterial(m.Path)
	if again != got {
		t.Error("second load did not come from the cache")
	}
	if hits, misses := s.materials.Stats(); hits != 1 || misses != 1 {
		t.Errorf("cache stats = %d hits, %d misses", hits, misses)
	}
}

func TestLoadErrors(t *testing.T) {
	s := openTestStore(t, "none")
	ctx := context.Background()

	if _, err := s.LoadMaterial("/Game/Nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing = %v, want ErrNotFound", err)
	}

	asset := gridAsset("/Game/Lego/Scene/Mesh", 1)
	if err := s.SaveMesh(ctx, asset); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadMaterial(asset.Path); !errors.Is(err, ErrWrongKind) {
		t.Errorf("mesh as material = %v, want ErrWrongKind", err)
	}

	file, _ := s.FilePath("/Game/Garbage")
	os.MkdirAll(filepath.Dir(file), 0755)
	os.WriteFile(file, []byte("not an asset"), 0644)
	if _, err := s.LoadMesh("/Game/Garbage"); !errors.Is(err, ErrBadFile) {
		t.Errorf("garbage = %v, want ErrBadFile", err)
	}
}

func TestFilePath(t *testing.T) {
	s := &Store{root: "/content"}
	tests := []struct {
		pkg     string
		want    string
		wantErr bool
	}{
		{"/Game/Lego/Scene/Plate+1_2_0", filepath.FromSlash("/content/Game/Lego/Scene/Plate+1_2_0.masset"), false},
		{"Game/NoSlash", "", true},
		{"/Game/../../etc/passwd", "", true},
		{"/Game//Double", "", true},
		{"/", "", true},
		{"/Game/Trailing/", "", true},
	}
	for _, tt := range tests {
		got, err := s.FilePath(tt.pkg)
		if tt.wantErr {
			if !errors.Is(err, ErrBadPath) {
				t.Errorf("FilePath(%q) err = %v, want ErrBadPath", tt.pkg, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("FilePath(%q) = %q, %v, want %q", tt.pkg, got, err, tt.want)
		}
	}
}

func TestListAndSeed(t *testing.T) {
	s := openTestStore(t, "zstd")
	ctx := context.Background()

	base := map[string]string{
		"MT_Terrain": "/MeshSync/Materials/MT_Terrain",
		"MT_Decor":   "/MeshSync/Materials/MT_Decor",
		"MT_Knobs":   "/MeshSync/Materials/MT_Knobs",
	}
	n, err := s.SeedBaseMaterials(ctx, base)
	if err != nil || n != 3 {
		t.Fatalf("SeedBaseMaterials = %d, %v", n, err)
	}
	if n, _ := s.SeedBaseMaterials(ctx, base); n != 0 {
		t.Errorf("reseeding created %d", n)
	}

	knobs, err := s.LoadMaterial("/MeshSync/Materials/MT_Knobs")
	if err != nil {
		t.Fatalf("LoadMaterial: %v", err)
	}
	if knobs.Category != materials.Knobs || knobs.IsInstance() {
		t.Errorf("knobs = %+v", knobs)
	}

	if err := s.SaveMesh(ctx, gridAsset("/Game/Lego/Scene/A", 1)); err != nil {
		t.Fatal(err)
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("List(all) = %d entries", len(all))
	}
	meshes, _ := s.List(ctx, KindMesh)
	if len(meshes) != 1 || meshes[0].Path != "/Game/Lego/Scene/A" || meshes[0].Kind != "mesh" {
		t.Fatalf("List(mesh) = %+v", meshes)
	}
	if len(meshes[0].Digest) != 64 || meshes[0].Size <= fileHeaderSize {
		t.Errorf("entry = %+v", meshes[0])
	}
}

func TestDigestIndependentOfCompression(t *testing.T) {
	asset := gridAsset("/Game/D", 4)
	_, plain, err := encodeFile(KindMesh, CompressionNone, asset)
	if err != nil {
		t.Fatal(err)
	}
	_, packed, err := encodeFile(KindMesh, CompressionZstd, asset)
	if err != nil {
		t.Fatal(err)
	}
	if plain != packed {
		t.Error("digest depends on compression")
	}
}

func TestCompressFallsBackOnIncompressible(t *testing.T) {
	data := []byte{1, 2, 3}
	for _, c := range []Compression{CompressionLZ4, CompressionZstd} {
		out, used, err := compress(data, c)
		if err != nil {
			t.Fatalf("%s: %v", c, err)
		}
		if used != CompressionNone || !bytes.Equal(out, data) {
			t.Errorf("%s: used %s", c, used)
		}
	}

	big := bytes.Repeat([]byte("mesh"), 1024)
	for _, c := range []Compression{CompressionLZ4, CompressionZstd} {
		out, used, err := compress(big, c)
		if err != nil || used != c {
			t.Fatalf("%s: used %s, err %v", c, used, err)
		}
		back, err := decompress(out, used, len(big))
		if err != nil || !bytes.Equal(back, big) {
			t.Errorf("%s: round trip failed: %v", c, err)
		}
	}
}

func TestParseCompression(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd"} {
		c, err := ParseCompression(name)
		if err != nil || c.String() != name {
			t.Errorf("ParseCompression(%q) = %v, %v", name, c, err)
		}
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Error("ParseCompression(gzip) succeeded")
	}
}
