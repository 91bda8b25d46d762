package subscriber

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/codec404/Konfig/internal/model"
)

// fakeDistributionServer accepts exactly one subscribe frame, then pushes
// a single ConfigUpdate, then blocks until the connection closes.
func fakeDistributionServer(t *testing.T, update model.ConfigUpdate) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		var req model.SubscribeRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if err := conn.WriteJSON(update); err != nil {
			return
		}
		// Keep the connection open until the client disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsAddress(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestStartDeliversConfigUpdateAndPersists(t *testing.T) {
	doc := model.ConfigDocument{ConfigID: "svcA-v1", ServiceName: "svcA", Version: 1, Content: []byte("x")}
	srv := fakeDistributionServer(t, model.ConfigUpdate{UpdateType: model.UpdateNewConfig, Config: &doc})
	defer srv.Close()

	cacheDir := t.TempDir()
	c := New(wsAddress(t, srv), "svcA", WithCacheDir(cacheDir), WithInstanceID("instance-000001"))

	var mu sync.Mutex
	var received model.ConfigDocument
	done := make(chan struct{})
	c.OnConfigUpdate(func(d model.ConfigDocument) {
		mu.Lock()
		received = d
		mu.Unlock()
		close(done)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if !c.Start(ctx) {
		t.Fatalf("expected Start to succeed")
	}
	defer c.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for config update")
	}

	mu.Lock()
	got := received
	mu.Unlock()
	if got.Version != 1 || got.ConfigID != "svcA-v1" {
		t.Fatalf("unexpected config update: %+v", got)
	}
	if c.CurrentVersion() != 1 {
		t.Fatalf("expected current version 1, got %d", c.CurrentVersion())
	}
	if cached := c.cache.Load("svcA"); cached.Version != 1 || cached.ConfigID != "svcA-v1" {
		t.Fatalf("expected update persisted to disk cache, got %+v", cached)
	}
}

func TestStartTwiceIsNoop(t *testing.T) {
	c := New("127.0.0.1:0", "svcA", WithCacheDir(t.TempDir()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !c.Start(ctx) {
		t.Fatalf("expected first Start to succeed")
	}
	defer c.Stop()

	if c.Start(ctx) {
		t.Fatalf("expected second Start to be a no-op")
	}
}

func TestGeneratedInstanceIDHasExpectedShape(t *testing.T) {
	c := New("127.0.0.1:0", "svcA", WithCacheDir(t.TempDir()))
	if !strings.HasPrefix(c.instanceID, "instance-") {
		t.Fatalf("expected generated instance id to start with instance-, got %q", c.instanceID)
	}
}

func TestCurrentConfigLoadsFromDiskCacheBeforeNetwork(t *testing.T) {
	cacheDir := t.TempDir()
	seed := New("", "svcA", WithCacheDir(cacheDir))
	seedDoc := model.ConfigDocument{ConfigID: "svcA-v1", ServiceName: "svcA", Version: 1, Content: []byte("cached")}
	if err := seed.cache.Save(seedDoc); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	c := New("127.0.0.1:0", "svcA", WithCacheDir(cacheDir))
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	defer func() {
		cancel()
		c.Stop()
	}()

	if c.CurrentVersion() != 1 {
		t.Fatalf("expected cached version 1 available immediately, got %d", c.CurrentVersion())
	}
}
