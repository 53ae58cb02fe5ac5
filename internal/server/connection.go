// Package server accepts authoring-tool connections and turns their
// frames into scene work items.
package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshsync/internal/materials"
	"github.com/Faultbox/meshsync/internal/protocol"
	"github.com/Faultbox/meshsync/internal/scene"
	"github.com/Faultbox/meshsync/pkg/encoding"
)

// SceneIntegrator receives decoded assets. scene.Integrator implements it.
type SceneIntegrator interface {
	EnqueueMesh(scene.CreateMesh) error
	EnqueueMaterialInstance(scene.CreateMaterialInstance) error
	Exists(path string) bool
}

// Options control how connections decode and name assets.
type Options struct {
	MeshPackage     string // prefix for mesh package paths, ends in /
	MaterialPackage string // prefix for material package paths, ends in /
	Limits          protocol.Limits
	Text            encoding.TextDecoder
	ReadBuffer      int // 0 reads the socket directly
}

// Connection serves one authoring-tool socket on its own goroutine.
type Connection struct {
	id       uint64
	conn     net.Conn
	r        io.Reader
	registry *materials.Registry
	scene    SceneIntegrator
	opts     Options
	log      *zap.Logger

	stopped  atomic.Bool
	running  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}

	frames  atomic.Int64
	dropped atomic.Int64
}

func newConnection(id uint64, conn net.Conn, registry *materials.Registry, sc SceneIntegrator, opts Options, log *zap.Logger) *Connection {
	var r io.Reader = conn
	if opts.ReadBuffer > 0 {
		r = bufio.NewReaderSize(conn, opts.ReadBuffer)
	}
	return &Connection{
		id:       id,
		conn:     conn,
		r:        r,
		registry: registry,
		scene:    sc,
		opts:     opts,
		log: log.With(
			zap.Uint64("conn", id),
			zap.String("remote", conn.RemoteAddr().String()),
		),
		done: make(chan struct{}),
	}
}

// start launches the read loop.
func (c *Connection) start() {
	c.running.Store(true)
	go c.run()
}

func (c *Connection) run() {
	defer close(c.done)
	defer c.running.Store(false)
	defer c.closeSocket()

	c.log.Info("connection accepted")
	for !c.stopped.Load() {
		if err := c.serveFrame(); err != nil {
			c.logExit(err)
			return
		}
		c.frames.Add(1)
	}
	c.log.Info("connection stopped", zap.Int64("frames", c.frames.Load()))
}

func (c *Connection) logExit(err error) {
	fields := []zap.Field{
		zap.Int64("frames", c.frames.Load()),
		zap.Int64("dropped", c.dropped.Load()),
	}
	switch {
	case c.stopped.Load() || errors.Is(err, net.ErrClosed):
		c.log.Info("connection stopped", fields...)
	case errors.Is(err, io.EOF):
		c.log.Info("connection closed by peer", fields...)
	default:
		c.log.Warn("closing connection", append(fields, zap.Error(err))...)
	}
}

// serveFrame reads and handles one frame. Any error ends the connection.
func (c *Connection) serveFrame() error {
	hdr, err := protocol.ReadHeader(c.r)
	if err != nil {
		return err
	}

	d := protocol.NewDecoder(c.r, c.opts.Limits, c.opts.Text)
	switch hdr.Command {
	case protocol.SendMesh:
		err = c.handleMesh(d)
	case protocol.SendMaterial:
		err = c.handleMaterial(d)
	default:
		return fmt.Errorf("%w: %d", protocol.ErrUnknownCommand, uint32(hdr.Command))
	}
	if err != nil {
		return err
	}

	if d.Consumed() != int64(hdr.Length) {
		c.log.Debug("payload length differs from header",
			zap.Stringer("command", hdr.Command),
			zap.Uint32("declared", hdr.Length),
			zap.Int64("consumed", d.Consumed()),
		)
	}
	return nil
}

// Alive reports whether the read loop is still serving an open socket.
func (c *Connection) Alive() bool {
	return !c.stopped.Load() && c.running.Load()
}

// Stop asks the connection to end. Closing the socket unblocks a
// pending read. Safe to call more than once.
func (c *Connection) Stop() {
	c.stopped.Store(true)
	c.closeSocket()
}

// Close stops the connection and waits up to timeout for its goroutine
// to exit. It reports whether the goroutine finished.
func (c *Connection) Close(timeout time.Duration) bool {
	c.Stop()
	select {
	case <-c.done:
		return true
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-c.done:
		return true
	case <-timer.C:
		c.log.Warn("connection did not stop in time", zap.Duration("timeout", timeout))
		return false
	}
}

// Done is closed when the read loop has exited.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) closeSocket() {
	c.stopOnce.Do(func() {
		c.conn.Close()
	})
}
