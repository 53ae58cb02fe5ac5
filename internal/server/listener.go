package server

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshsync/internal/logger"
	"github.com/Faultbox/meshsync/internal/materials"
)

// Default timings.
const (
	DefaultAcceptTick      = 250 * time.Millisecond
	DefaultShutdownTimeout = 5 * time.Second
)

// Config configures a Listener.
type Config struct {
	Addr            string
	AcceptTick      time.Duration
	ShutdownTimeout time.Duration
	Options         Options
}

// Listener accepts connections and owns the pool of live ones.
type Listener struct {
	cfg      Config
	registry *materials.Registry
	scene    SceneIntegrator
	log      *zap.Logger

	ln      *net.TCPListener
	started atomic.Bool
	stopped atomic.Bool
	done    chan struct{}

	mu     sync.Mutex
	conns  []*Connection
	nextID uint64
}

// NewListener creates a listener. Nothing is bound until Start.
func NewListener(cfg Config, registry *materials.Registry, sc SceneIntegrator) *Listener {
	if cfg.AcceptTick <= 0 {
		cfg.AcceptTick = DefaultAcceptTick
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &Listener{
		cfg:      cfg,
		registry: registry,
		scene:    sc,
		log:      logger.Named("server"),
		done:     make(chan struct{}),
	}
}

// Start binds the configured address and starts the accept loop. If the
// bind fails the error is logged and returned and the listener stays
// inert.
func (l *Listener) Start() error {
	if !l.started.CompareAndSwap(false, true) {
		return errors.New("listener already started")
	}
	ln, err := net.Listen("tcp", l.cfg.Addr)
	if err != nil {
		l.log.Error("bind failed", zap.String("addr", l.cfg.Addr), zap.Error(err))
		close(l.done)
		return fmt.Errorf("listening on %s: %w", l.cfg.Addr, err)
	}
	l.ln = ln.(*net.TCPListener)
	l.log.Info("listening", zap.String("addr", ln.Addr().String()))

	go l.acceptLoop()
	return nil
}

// Addr returns the bound address, or nil if not listening.
func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

func (l *Listener) acceptLoop() {
	defer close(l.done)

	for !l.stopped.Load() {
		l.reap()

		l.ln.SetDeadline(time.Now().Add(l.cfg.AcceptTick))
		conn, err := l.ln.Accept()
		if err != nil {
			if l.stopped.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			l.log.Warn("accept failed", zap.Error(err))
			time.Sleep(l.cfg.AcceptTick)
			continue
		}
		l.add(conn)
	}
}

func (l *Listener) add(conn net.Conn) {
	l.mu.Lock()
	l.nextID++
	c := newConnection(l.nextID, conn, l.registry, l.scene, l.cfg.Options, l.log)
	l.conns = append(l.conns, c)
	l.mu.Unlock()

	c.start()
}

// reap drops connections whose loop has ended.
func (l *Listener) reap() {
	l.mu.Lock()
	defer l.mu.Unlock()

	live := l.conns[:0]
	for _, c := range l.conns {
		if c.Alive() {
			live = append(live, c)
		}
	}
	for i := len(live); i < len(l.conns); i++ {
		l.conns[i] = nil
	}
	l.conns = live
}

// ConnectionCount returns how many connections are currently alive.
func (l *Listener) ConnectionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, c := range l.conns {
		if c.Alive() {
			n++
		}
	}
	return n
}

// Stop closes the listener, waits for the accept loop and then stops
// every connection, waiting at most the shutdown timeout in total.
func (l *Listener) Stop() {
	if !l.started.Load() || !l.stopped.CompareAndSwap(false, true) {
		return
	}
	if l.ln != nil {
		l.ln.Close()
	}
	<-l.done

	l.mu.Lock()
	conns := l.conns
	l.conns = nil
	l.mu.Unlock()

	for _, c := range conns {
		c.Stop()
	}
	deadline := time.Now().Add(l.cfg.ShutdownTimeout)
	for _, c := range conns {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		c.Close(remaining)
	}
	l.log.Info("listener stopped", zap.Int("connections", len(conns)))
}
