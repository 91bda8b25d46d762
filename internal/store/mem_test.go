package store

import (
	"context"
	"testing"

	"github.com/codec404/Konfig/internal/model"
)

func TestNextVersionStartsAtOne(t *testing.T) {
	s := NewMem()
	v, err := s.NextVersion(context.Background(), "svcA")
	if err != nil || v != 1 {
		t.Fatalf("expected version 1, got %d err %v", v, err)
	}
}

func TestInsertThenNextVersionIncrements(t *testing.T) {
	s := NewMem()
	ctx := context.Background()
	if err := s.InsertConfig(ctx, model.ConfigDocument{ConfigID: "svcA-v1", ServiceName: "svcA", Version: 1}, ""); err != nil {
		t.Fatalf("insert: %v", err)
	}
	v, err := s.NextVersion(ctx, "svcA")
	if err != nil || v != 2 {
		t.Fatalf("expected version 2, got %d err %v", v, err)
	}
}

func TestInsertDuplicateConfigIDConflicts(t *testing.T) {
	s := NewMem()
	ctx := context.Background()
	doc := model.ConfigDocument{ConfigID: "svcA-v1", ServiceName: "svcA", Version: 1}
	if err := s.InsertConfig(ctx, doc, ""); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := s.InsertConfig(ctx, doc, ""); err == nil {
		t.Fatalf("expected conflict on duplicate insert")
	}
}

func TestGetLatestReturnsHighestVersion(t *testing.T) {
	s := NewMem()
	ctx := context.Background()
	s.InsertConfig(ctx, model.ConfigDocument{ConfigID: "svcA-v1", ServiceName: "svcA", Version: 1, Content: []byte("a")}, "")
	s.InsertConfig(ctx, model.ConfigDocument{ConfigID: "svcA-v2", ServiceName: "svcA", Version: 2, Content: []byte("b")}, "")
	got, _ := s.GetLatest(ctx, "svcA")
	if got.Version != 2 || string(got.Content) != "b" {
		t.Fatalf("expected latest v2, got %+v", got)
	}
}

func TestGetLatestEmptySentinel(t *testing.T) {
	s := NewMem()
	got, _ := s.GetLatest(context.Background(), "nope")
	if !got.Empty() {
		t.Fatalf("expected empty sentinel, got %+v", got)
	}
}

func TestListMetadataPagination(t *testing.T) {
	s := NewMem()
	ctx := context.Background()
	for i := int64(1); i <= 5; i++ {
		id := "svcA-v" + string(rune('0'+i))
		s.InsertConfig(ctx, model.ConfigDocument{ConfigID: id, ServiceName: "svcA", Version: i}, "")
	}
	items, total, err := s.ListMetadata(ctx, "svcA", 2, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
}

func TestUpsertRolloutIdempotent(t *testing.T) {
	s := NewMem()
	ctx := context.Background()
	if err := s.UpsertRollout(ctx, "svcA-v1", model.RolloutStrategyCanary, 50); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertRollout(ctx, "svcA-v1", model.RolloutStrategyCanary, 50); err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	r, err := s.GetRolloutState(ctx, "svcA-v1")
	if err != nil {
		t.Fatalf("get rollout: %v", err)
	}
	if r.Status != model.RolloutInProgress {
		t.Fatalf("expected IN_PROGRESS, got %v", r.Status)
	}
}

func TestAppendAuditRecordsUpload(t *testing.T) {
	s := NewMem()
	ctx := context.Background()
	if err := s.AppendAudit(ctx, "svcA", "svcA-v1", "uploaded", "api", nil); err != nil {
		t.Fatalf("append audit: %v", err)
	}
	entries := s.Audit()
	if len(entries) != 1 || entries[0].Action != "uploaded" {
		t.Fatalf("expected one uploaded audit entry, got %+v", entries)
	}
}
