// Package config handles server configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Faultbox/meshsync/pkg/encoding"
)

// ErrInvalid is returned by Validate for unusable settings.
var ErrInvalid = errors.New("invalid config")

// Config holds all server settings.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Protocol  ProtocolConfig  `yaml:"protocol" toml:"protocol"`
	Assets    AssetsConfig    `yaml:"assets" toml:"assets"`
	Materials MaterialsConfig `yaml:"materials" toml:"materials"`
	Scene     SceneConfig     `yaml:"scene" toml:"scene"`
	Browser   BrowserConfig   `yaml:"browser" toml:"browser"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Host            string        `yaml:"host" toml:"host"`
	Port            int           `yaml:"port" toml:"port"`
	AcceptTick      time.Duration `yaml:"accept_tick" toml:"accept_tick"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	ReadBuffer      int           `yaml:"read_buffer" toml:"read_buffer"` // bytes, 0 = unbuffered
}

// ProtocolConfig holds wire decoding settings.
type ProtocolConfig struct {
	TextEncoding     string `yaml:"text_encoding" toml:"text_encoding"`
	MaxArrayElements uint32 `yaml:"max_array_elements" toml:"max_array_elements"`
	MaxStringBytes   uint32 `yaml:"max_string_bytes" toml:"max_string_bytes"`
}

// AssetsConfig holds asset store settings.
type AssetsConfig struct {
	ContentRoot     string `yaml:"content_root" toml:"content_root"`
	MeshPackage     string `yaml:"mesh_package" toml:"mesh_package"`
	MaterialPackage string `yaml:"material_package" toml:"material_package"`
	Compression     string `yaml:"compression" toml:"compression"` // none, lz4, zstd
	Catalog         string `yaml:"catalog" toml:"catalog"`         // empty = <content_root>/catalog.db
}

// MaterialsConfig holds the base materials preloaded at startup, keyed by
// conventional name.
type MaterialsConfig struct {
	Base map[string]string `yaml:"base" toml:"base"`
}

// SceneConfig holds scene integrator settings.
type SceneConfig struct {
	QueueDepth int `yaml:"queue_depth" toml:"queue_depth"`
}

// BrowserConfig holds content-browser feed settings.
type BrowserConfig struct {
	Addr string `yaml:"addr" toml:"addr"` // empty disables the feed
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            20196,
			AcceptTick:      250 * time.Millisecond,
			ShutdownTimeout: 5 * time.Second,
			ReadBuffer:      64 * 1024,
		},
		Protocol: ProtocolConfig{
			TextEncoding:     encoding.Windows1252,
			MaxArrayElements: 16 << 20,
			MaxStringBytes:   64 << 10,
		},
		Assets: AssetsConfig{
			ContentRoot:     "Content",
			MeshPackage:     "/Game/Lego/Scene/",
			MaterialPackage: "/Game/Lego/Scene/Materials/",
			Compression:     "zstd",
		},
		Materials: MaterialsConfig{
			Base: map[string]string{
				"MT_Terrain": "/MeshSync/Materials/MT_Terrain",
				"MT_Decor":   "/MeshSync/Materials/MT_Decor",
				"MT_Knobs":   "/MeshSync/Materials/MT_Knobs",
			},
		},
		Scene: SceneConfig{
			QueueDepth: 256,
		},
		Browser: BrowserConfig{
			Addr: "127.0.0.1:20197",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// ListenAddr returns the host:port the server binds.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalid, c.Server.Port)
	}
	if c.Server.AcceptTick <= 0 {
		return fmt.Errorf("%w: server.accept_tick must be positive", ErrInvalid)
	}
	if c.Server.ReadBuffer < 0 {
		return fmt.Errorf("%w: server.read_buffer must not be negative", ErrInvalid)
	}
	if _, _, err := encoding.Lookup(c.Protocol.TextEncoding); err != nil {
		return fmt.Errorf("%w: protocol.text_encoding: %v", ErrInvalid, err)
	}
	if c.Protocol.MaxArrayElements == 0 || c.Protocol.MaxStringBytes == 0 {
		return fmt.Errorf("%w: protocol limits must be positive", ErrInvalid)
	}
	switch strings.ToLower(c.Assets.Compression) {
	case "none", "lz4", "zstd":
	default:
		return fmt.Errorf("%w: assets.compression %q", ErrInvalid, c.Assets.Compression)
	}
	for _, pkg := range []string{c.Assets.MeshPackage, c.Assets.MaterialPackage} {
		if !strings.HasPrefix(pkg, "/") || !strings.HasSuffix(pkg, "/") {
			return fmt.Errorf("%w: package path %q must start and end with /", ErrInvalid, pkg)
		}
	}
	if c.Scene.QueueDepth < 1 {
		return fmt.Errorf("%w: scene.queue_depth must be at least 1", ErrInvalid)
	}
	return nil
}
