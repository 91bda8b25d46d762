package controlplane

import (
	"context"
	"sync"
	"testing"

	"github.com/codec404/Konfig/internal/events"
	"github.com/codec404/Konfig/internal/model"
	"github.com/codec404/Konfig/internal/store"
	"github.com/codec404/Konfig/pkg/log"
)

type fakeValidator struct {
	valid  bool
	errors []model.ValidationError
}

func (f fakeValidator) ValidateConfig(context.Context, model.ValidateConfigRequest) model.ValidateConfigResponse {
	return model.ValidateConfigResponse{Valid: f.valid, Errors: f.errors}
}

type fakeNotifier struct {
	mu     sync.Mutex
	pushed []model.ConfigDocument
}

func (f *fakeNotifier) Push(_ context.Context, _ string, config model.ConfigDocument) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, config)
}

func newTestControlPlane(t *testing.T, valid bool) (*ControlPlane, store.Store, *fakeNotifier) {
	t.Helper()
	s := store.NewMem()
	n := &fakeNotifier{}
	cp := New(s, fakeValidator{valid: valid}, n, events.NoopEmitter{}, nil, log.NewLogger(log.WithLevel(log.ErrorLevel)))
	return cp, s, n
}

func TestUploadAssignsVersionOneOnFirstUpload(t *testing.T) {
	cp, _, notifier := newTestControlPlane(t, true)
	resp, err := cp.Upload(context.Background(), model.UploadConfigRequest{
		ServiceName: "svcA", Content: []byte(`{"port":8080}`), Format: "json",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !resp.Success || resp.Version != 1 || resp.ConfigID != "svcA-v1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(notifier.pushed) != 1 {
		t.Fatalf("expected notifier to receive one push")
	}
}

func TestUploadVersionsIncrementPerService(t *testing.T) {
	cp, _, _ := newTestControlPlane(t, true)
	ctx := context.Background()
	cp.Upload(ctx, model.UploadConfigRequest{ServiceName: "svcA", Content: []byte(`{"a":1}`)})
	resp, _ := cp.Upload(ctx, model.UploadConfigRequest{ServiceName: "svcA", Content: []byte(`{"a":2}`)})
	if resp.Version != 2 {
		t.Fatalf("expected version 2, got %d", resp.Version)
	}
}

func TestUploadRejectsEmptyServiceName(t *testing.T) {
	cp, _, _ := newTestControlPlane(t, true)
	resp, err := cp.Upload(context.Background(), model.UploadConfigRequest{Content: []byte(`{}`)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if resp.Success {
		t.Fatalf("expected failure without service_name")
	}
}

func TestUploadRejectsMalformedJSON(t *testing.T) {
	cp, _, _ := newTestControlPlane(t, true)
	resp, _ := cp.Upload(context.Background(), model.UploadConfigRequest{ServiceName: "svcA", Content: []byte(`{bad`)})
	if resp.Success {
		t.Fatalf("expected failure for malformed JSON")
	}
}

func TestUploadAlwaysCallsValidatorEvenWhenRequestSaysNo(t *testing.T) {
	cp, _, _ := newTestControlPlane(t, false)
	resp, _ := cp.Upload(context.Background(), model.UploadConfigRequest{
		ServiceName: "svcA", Content: []byte(`{"a":1}`), Validate: false,
	})
	if resp.Success {
		t.Fatalf("expected upload to be rejected by the (always-called) validator")
	}
}

func TestGetReturnsNotFoundSentinelForMissingID(t *testing.T) {
	cp, _, _ := newTestControlPlane(t, true)
	resp, err := cp.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.Found {
		t.Fatalf("expected not found")
	}
}

func TestDeleteThenGetIsNotFound(t *testing.T) {
	cp, _, _ := newTestControlPlane(t, true)
	ctx := context.Background()
	upload, _ := cp.Upload(ctx, model.UploadConfigRequest{ServiceName: "svcA", Content: []byte(`{"a":1}`)})

	del, err := cp.Delete(ctx, upload.ConfigID)
	if err != nil || !del.Deleted {
		t.Fatalf("delete: %+v err=%v", del, err)
	}

	get, _ := cp.Get(ctx, upload.ConfigID)
	if get.Found {
		t.Fatalf("expected deleted config to be gone")
	}
}

func TestRollbackWithoutTargetVersionGoesOneBack(t *testing.T) {
	cp, _, notifier := newTestControlPlane(t, true)
	ctx := context.Background()
	cp.Upload(ctx, model.UploadConfigRequest{ServiceName: "svcA", Content: []byte(`{"a":1}`)})
	cp.Upload(ctx, model.UploadConfigRequest{ServiceName: "svcA", Content: []byte(`{"a":2}`)})

	resp, err := cp.Rollback(ctx, model.RollbackRequest{ServiceName: "svcA"})
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if !resp.Success || resp.ConfigID != "svcA-v3" {
		t.Fatalf("unexpected rollback response: %+v", resp)
	}

	got, _ := cp.Get(ctx, resp.ConfigID)
	if string(got.Config.Content) != `{"a":1}` {
		t.Fatalf("expected rollback content to match v1, got %s", got.Config.Content)
	}
	if len(notifier.pushed) != 3 {
		t.Fatalf("expected 3 pushes (2 uploads + 1 rollback), got %d", len(notifier.pushed))
	}
}

func TestRollbackFailsWithNoPreviousVersion(t *testing.T) {
	cp, _, _ := newTestControlPlane(t, true)
	ctx := context.Background()
	cp.Upload(ctx, model.UploadConfigRequest{ServiceName: "svcA", Content: []byte(`{"a":1}`)})

	resp, err := cp.Rollback(ctx, model.RollbackRequest{ServiceName: "svcA"})
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if resp.Success {
		t.Fatalf("expected rollback to fail: no previous version")
	}
}

func TestStartRolloutRequiresExistingConfig(t *testing.T) {
	cp, _, _ := newTestControlPlane(t, true)
	_, err := cp.StartRollout(context.Background(), model.StartRolloutRequest{ConfigID: "nope"})
	if err == nil {
		t.Fatalf("expected error for nonexistent config")
	}
}

func TestStartRolloutThenStatusReportsInProgress(t *testing.T) {
	cp, _, _ := newTestControlPlane(t, true)
	ctx := context.Background()
	upload, _ := cp.Upload(ctx, model.UploadConfigRequest{ServiceName: "svcA", Content: []byte(`{"a":1}`)})

	resp, err := cp.StartRollout(ctx, model.StartRolloutRequest{ConfigID: upload.ConfigID})
	if err != nil {
		t.Fatalf("start rollout: %v", err)
	}
	if resp.Rollout.Status != model.RolloutInProgress {
		t.Fatalf("expected IN_PROGRESS, got %v", resp.Rollout.Status)
	}
}
