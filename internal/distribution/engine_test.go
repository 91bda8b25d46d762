package distribution

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/codec404/Konfig/internal/cache"
	"github.com/codec404/Konfig/internal/events"
	"github.com/codec404/Konfig/internal/model"
	"github.com/codec404/Konfig/internal/store"
	"github.com/codec404/Konfig/pkg/log"
)

type fakeSender struct {
	mu      sync.Mutex
	updates []model.ConfigUpdate
	fail    bool
}

func (f *fakeSender) Send(u model.ConfigUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return context.DeadlineExceeded
	}
	f.updates = append(f.updates, u)
	return nil
}

func (f *fakeSender) received() []model.ConfigUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ConfigUpdate, len(f.updates))
	copy(out, f.updates)
	return out
}

func newTestEngine(t *testing.T) (*Engine, store.Store) {
	t.Helper()
	s := store.NewMem()
	e := New(s, cache.NoopCache{}, events.NoopEmitter{}, nil, log.NewLogger(log.WithLevel(log.ErrorLevel)), Config{
		HeartbeatInterval: 50 * time.Millisecond,
		HeartbeatTimeout:  100 * time.Millisecond,
	})
	return e, s
}

func TestSubscribePushesLatestConfigWhenNewer(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	s.InsertConfig(ctx, model.ConfigDocument{ConfigID: "svcA-v1", ServiceName: "svcA", Version: 1, Content: []byte("a")}, "")

	sender := &fakeSender{}
	key, err := e.Subscribe(ctx, model.SubscribeRequest{ServiceName: "svcA", InstanceID: "inst1", CurrentVersion: 0}, sender)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if key != "svcA:inst1" {
		t.Fatalf("unexpected key %q", key)
	}

	updates := sender.received()
	if len(updates) != 1 || updates[0].Config.Version != 1 {
		t.Fatalf("expected one push of v1, got %+v", updates)
	}
}

func TestSubscribeSkipsPushWhenAlreadyCurrent(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	s.InsertConfig(ctx, model.ConfigDocument{ConfigID: "svcA-v1", ServiceName: "svcA", Version: 1, Content: []byte("a")}, "")

	sender := &fakeSender{}
	_, err := e.Subscribe(ctx, model.SubscribeRequest{ServiceName: "svcA", InstanceID: "inst1", CurrentVersion: 1}, sender)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if len(sender.received()) != 0 {
		t.Fatalf("expected no push, subscriber is already current")
	}
}

func TestHeartbeatKeepsClientAlive(t *testing.T) {
	e, _ := newTestEngine(t)
	sender := &fakeSender{}
	key, _ := e.Subscribe(context.Background(), model.SubscribeRequest{ServiceName: "svcA", InstanceID: "inst1"}, sender)

	if !e.Heartbeat(key) {
		t.Fatalf("expected heartbeat to succeed for active client")
	}
}

func TestHeartbeatMonitorEvictsSilentClient(t *testing.T) {
	e, _ := newTestEngine(t)
	sender := &fakeSender{}
	e.Subscribe(context.Background(), model.SubscribeRequest{ServiceName: "svcA", InstanceID: "inst1"}, sender)

	e.Start()
	defer e.Stop()

	if e.ActiveClientCount() != 1 {
		t.Fatalf("expected 1 active client before timeout")
	}

	time.Sleep(300 * time.Millisecond)

	if e.ActiveClientCount() != 0 {
		t.Fatalf("expected silent client to be evicted, count=%d", e.ActiveClientCount())
	}
}

func TestPushDeliversToAllSubscribersOfService(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	s1, s2 := &fakeSender{}, &fakeSender{}
	e.Subscribe(ctx, model.SubscribeRequest{ServiceName: "svcA", InstanceID: "inst1"}, s1)
	e.Subscribe(ctx, model.SubscribeRequest{ServiceName: "svcA", InstanceID: "inst2"}, s2)

	e.Push(ctx, "svcA", model.ConfigDocument{ConfigID: "svcA-v2", ServiceName: "svcA", Version: 2})

	if len(s1.received()) == 0 || len(s2.received()) == 0 {
		t.Fatalf("expected push to reach both subscribers")
	}
}

func TestUnsubscribeRemovesClient(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	sender := &fakeSender{}
	key, _ := e.Subscribe(ctx, model.SubscribeRequest{ServiceName: "svcA", InstanceID: "inst1"}, sender)

	e.Unsubscribe(ctx, key)
	if e.ActiveClientCount() != 0 {
		t.Fatalf("expected client to be removed after unsubscribe")
	}
	if e.Heartbeat(key) {
		t.Fatalf("expected heartbeat to fail after unsubscribe")
	}
}
