package browser

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Faultbox/meshsync/internal/assetstore"
)

const writeTimeout = 5 * time.Second

// Lister returns catalog entries; assetstore.Store implements it.
type Lister interface {
	List(ctx context.Context, kind assetstore.Kind) ([]assetstore.Entry, error)
}

// Server serves /ws (event stream) and /assets (catalog listing).
type Server struct {
	hub      *Hub
	lister   Lister
	upgrader websocket.Upgrader
	http     *http.Server
	listener net.Listener
	log      *zap.Logger
}

// NewServer creates a feed server for addr. lister may be nil, in which
// case /assets is not served.
func NewServer(addr string, hub *Hub, lister Lister) *Server {
	s := &Server{
		hub:    hub,
		lister: lister,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: hub.log,
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	if s.lister != nil {
		mux.HandleFunc("/assets", s.handleAssets)
	}
	return mux
}

// Start binds the address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.log.Info("content browser feed listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("content browser feed stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting requests and disconnects subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()
	return s.http.Shutdown(ctx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	sub := s.hub.subscribe()
	s.log.Debug("subscriber connected", zap.String("remote", r.RemoteAddr))

	go s.writeLoop(conn, sub)

	// Clients never send anything meaningful; reading detects closes.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.unsubscribe(sub)
	s.log.Debug("subscriber disconnected", zap.String("remote", r.RemoteAddr))
}

func (s *Server) writeLoop(conn *websocket.Conn, sub *subscriber) {
	defer conn.Close()
	for data := range sub.send {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.hub.unsubscribe(sub)
			return
		}
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var kind assetstore.Kind
	switch r.URL.Query().Get("kind") {
	case "":
	case "mesh":
		kind = assetstore.KindMesh
	case "material":
		kind = assetstore.KindMaterial
	default:
		http.Error(w, "unknown kind", http.StatusBadRequest)
		return
	}

	entries, err := s.lister.List(r.Context(), kind)
	if err != nil {
		s.log.Error("listing assets", zap.Error(err))
		http.Error(w, "listing failed", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []assetstore.Entry{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}
