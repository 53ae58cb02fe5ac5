package browser

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Faultbox/meshsync/internal/assetstore"
	"github.com/Faultbox/meshsync/internal/scene"
)

type fakeLister struct {
	entries []assetstore.Entry
	err     error
	kind    assetstore.Kind
}

func (f *fakeLister) List(_ context.Context, kind assetstore.Kind) ([]assetstore.Entry, error) {
	f.kind = kind
	return f.entries, f.err
}

func websocketURL(srvURL string) string {
	return "ws" + strings.TrimPrefix(srvURL, "http") + "/ws"
}

func waitCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber count = %d, want %d", hub.Count(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEventStream(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewServer("", hub, nil).Handler())
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial(websocketURL(srv.URL), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		resp.Body.Close()
	})
	waitCount(t, hub, 1)

	hub.Publish(scene.AssetEvent{
		Kind:  scene.MeshCreated,
		Path:  "/Game/Lego/Scene/Plate",
		Name:  "Plate",
		Faces: 2,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev scene.AssetEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != scene.MeshCreated || ev.Path != "/Game/Lego/Scene/Plate" || ev.Faces != 2 {
		t.Errorf("event = %+v", ev)
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	waitCount(t, hub, 0)
}

func TestSlowSubscriberDropped(t *testing.T) {
	hub := NewHub()
	slow := hub.subscribe()
	fast := hub.subscribe()

	for i := 0; i < sendBuffer; i++ {
		hub.Publish(scene.AssetEvent{Kind: scene.MaterialCreated, Name: "MT_X"})
		<-fast.send
	}
	if hub.Count() != 2 {
		t.Fatalf("count = %d before overflow", hub.Count())
	}

	hub.Publish(scene.AssetEvent{Kind: scene.MaterialCreated, Name: "MT_Overflow"})
	if hub.Count() != 1 {
		t.Errorf("count = %d, want 1", hub.Count())
	}
	if _, dropped := hub.Stats(); dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}

	// The slow subscriber's channel is closed after its buffer drains.
	n := 0
	for range slow.send {
		n++
	}
	if n != sendBuffer {
		t.Errorf("slow subscriber drained %d events, want %d", n, sendBuffer)
	}
}

func TestCloseAll(t *testing.T) {
	hub := NewHub()
	sub := hub.subscribe()
	hub.CloseAll()
	if _, ok := <-sub.send; ok {
		t.Error("channel still open after CloseAll")
	}
	// Unsubscribing after removal is a no-op.
	hub.unsubscribe(sub)
	hub.Publish(scene.AssetEvent{})
}

func TestAssetsListing(t *testing.T) {
	lister := &fakeLister{entries: []assetstore.Entry{
		{Path: "/Game/Lego/Scene/A", Kind: "mesh", Name: "A", Size: 120},
	}}
	srv := httptest.NewServer(NewServer("", NewHub(), lister).Handler())
	t.Cleanup(srv.Close)

	tests := []struct {
		query    string
		status   int
		wantKind assetstore.Kind
	}{
		{"", http.StatusOK, 0},
		{"?kind=mesh", http.StatusOK, assetstore.KindMesh},
		{"?kind=material", http.StatusOK, assetstore.KindMaterial},
		{"?kind=texture", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			lister.kind = 0
			resp, err := http.Get(srv.URL + "/assets" + tt.query)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}
			if lister.kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", lister.kind, tt.wantKind)
			}
			var got []assetstore.Entry
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(got) != 1 || got[0].Path != "/Game/Lego/Scene/A" {
				t.Errorf("entries = %+v", got)
			}
		})
	}
}

func TestAssetsListingError(t *testing.T) {
	lister := &fakeLister{err: errors.New("catalog locked")}
	srv := httptest.NewServer(NewServer("", NewHub(), lister).Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/assets")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d", resp.StatusCode)
	}

	post, err := http.Post(srv.URL+"/assets", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d", post.StatusCode)
	}
}

func TestStartAndShutdown(t *testing.T) {
	s := NewServer("127.0.0.1:0", NewHub(), nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.Addr() == nil {
		t.Fatal("Addr() = nil after Start")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
