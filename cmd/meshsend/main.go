// meshsend streams test meshes and materials to a meshsync server, the
// way the authoring tool's exporter does.
package main

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/Faultbox/meshsync/internal/materials"
	"github.com/Faultbox/meshsync/internal/protocol"
	"github.com/Faultbox/meshsync/pkg/encoding"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "quad":
		err = cmdQuad(args)
	case "grid":
		err = cmdGrid(args)
	case "material", "mat":
		err = cmdMaterial(args)
	case "raw-magic":
		err = cmdRawMagic(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshsend - send test frames to a meshsync server

Usage:
  meshsend <command> [options]

Commands:
  quad       Send a single two-triangle mesh
  grid       Send one or more N x N grid tiles
  material   Send a material instance
  raw-magic  Send a header with a wrong magic (server must disconnect)

Common options:
  --addr      Server address (default 127.0.0.1:20196)
  --encoding  Text code page for strings (default windows-1252)

Examples:
  meshsend quad --name Plate --material Terrain
  meshsend grid --size 32 --tiles 4 --material Decor
  meshsend material --name Rock --category terrain --color 0.5,0.4,0.3`)
}

type commonFlags struct {
	addr     *string
	encoding *string
	timeout  *time.Duration
}

func addCommon(fs *pflag.FlagSet) commonFlags {
	return commonFlags{
		addr:     fs.String("addr", "127.0.0.1:20196", "Server address"),
		encoding: fs.String("encoding", encoding.Windows1252, "Text code page for strings"),
		timeout:  fs.Duration("timeout", 5*time.Second, "Dial timeout"),
	}
}

func (c commonFlags) dial() (net.Conn, *protocol.Encoder, error) {
	_, enc, err := encoding.Lookup(*c.encoding)
	if err != nil {
		return nil, nil, err
	}
	conn, err := net.DialTimeout("tcp", *c.addr, *c.timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", *c.addr, err)
	}
	return conn, protocol.NewEncoder(enc), nil
}

func cmdQuad(args []string) error {
	fs := pflag.NewFlagSet("quad", pflag.ExitOnError)
	common := addCommon(fs)
	name := fs.String("name", "Quad", "Mesh name")
	material := fs.String("material", "Terrain", "Material slot name")
	tile := fs.UintSlice("tile", []uint{0, 0, 0}, "Tile x,y,z")
	fs.Parse(args)

	rec := buildQuad(*name, *material)
	if err := setTile(rec, *tile); err != nil {
		return err
	}

	conn, e, err := common.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	protocol.EncodeMesh(e, rec, flatNormals(len(rec.Mesh.VertexPositions)))
	if err := protocol.WriteFrame(conn, protocol.SendMesh, e.Bytes()); err != nil {
		return err
	}
	fmt.Printf("sent mesh %s (%d bytes)\n", rec.Name, e.Len())
	return nil
}

func cmdGrid(args []string) error {
	fs := pflag.NewFlagSet("grid", pflag.ExitOnError)
	common := addCommon(fs)
	name := fs.String("name", "Grid", "Mesh name prefix")
	size := fs.Int("size", 16, "Cells per side")
	tiles := fs.Int("tiles", 1, "Number of tiles to send along X")
	material := fs.String("material", "Terrain", "Material slot name")
	fs.Parse(args)

	if *size < 1 || *tiles < 1 {
		return fmt.Errorf("size and tiles must be positive")
	}

	conn, e, err := common.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	for x := 0; x < *tiles; x++ {
		rec := buildGrid(fmt.Sprintf("%s+%d_0_0", *name, x), *size, *material)
		rec.TileX = uint32(x)
		e.Reset()
		protocol.EncodeMesh(e, rec, flatNormals(len(rec.Mesh.VertexPositions)))
		if err := protocol.WriteFrame(conn, protocol.SendMesh, e.Bytes()); err != nil {
			return err
		}
		fmt.Printf("sent mesh %s: %d faces, %d bytes\n", rec.Name, rec.Mesh.NumFaces(), e.Len())
	}
	return nil
}

func cmdMaterial(args []string) error {
	fs := pflag.NewFlagSet("material", pflag.ExitOnError)
	common := addCommon(fs)
	name := fs.String("name", "Rock", "Material name (MT_ names reference base materials)")
	category := fs.String("category", "terrain", "Category: terrain, decor, knobs, water")
	instance := fs.Uint16("instance", 0, "Instance discriminator")
	color := fs.Float32Slice("color", []float32{0.8, 0.8, 0.8}, "Base color r,g,b")
	roughness := fs.Float32("roughness", 0.5, "Roughness")
	metallic := fs.Float32("metallic", 0, "Metallic")
	baseMap := fs.String("base-map", "", "Base color texture")
	normalMap := fs.String("normal-map", "", "Normal texture")
	fs.Parse(args)

	cat, err := materials.ParseCategory(*category)
	if err != nil {
		return err
	}
	if len(*color) != 3 {
		return fmt.Errorf("--color needs 3 components, got %d", len(*color))
	}
	rec := &protocol.MaterialRecord{
		Name:         *name,
		MaterialID:   protocol.NewMaterialID(uint16(cat), *instance),
		Roughness:    *roughness,
		Metallic:     *metallic,
		BaseColorMap: *baseMap,
		NormalMap:    *normalMap,
	}
	rec.BaseColor.X, rec.BaseColor.Y, rec.BaseColor.Z = (*color)[0], (*color)[1], (*color)[2]

	conn, e, err := common.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	protocol.EncodeMaterial(e, rec)
	if err := protocol.WriteFrame(conn, protocol.SendMaterial, e.Bytes()); err != nil {
		return err
	}
	fmt.Printf("sent material %s (%s)\n", rec.Name, strings.ToLower(cat.String()))
	return nil
}

func cmdRawMagic(args []string) error {
	fs := pflag.NewFlagSet("raw-magic", pflag.ExitOnError)
	common := addCommon(fs)
	magic := fs.Uint64("magic", 0xBADC0FFEE, "Magic value to send")
	fs.Parse(args)

	conn, _, err := common.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	hdr := protocol.EncodeHeader(protocol.Header{Magic: *magic, Command: protocol.SendMesh})
	if _, err := conn.Write(hdr[:]); err != nil {
		return err
	}

	// The server should hang up without reading further.
	conn.SetReadDeadline(time.Now().Add(*common.timeout))
	var b [1]byte
	if _, err := conn.Read(b[:]); err == nil {
		return fmt.Errorf("server sent data instead of closing")
	} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return fmt.Errorf("server kept the connection open")
	}
	fmt.Printf("server closed the connection after magic 0x%x\n", *magic)
	return nil
}

func setTile(rec *protocol.MeshRecord, tile []uint) error {
	if len(tile) != 3 {
		return fmt.Errorf("--tile needs 3 components, got %d", len(tile))
	}
	rec.TileX, rec.TileY, rec.TileZ = uint32(tile[0]), uint32(tile[1]), uint32(tile[2])
	rec.Name = fmt.Sprintf("%s+%d_%d_%d", rec.Name, tile[0], tile[1], tile[2])
	return nil
}
