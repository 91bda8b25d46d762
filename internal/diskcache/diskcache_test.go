package diskcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/codec404/Konfig/internal/contenthash"
	"github.com/codec404/Konfig/internal/model"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "cache")
	return New(dir)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	c := newTestCache(t)
	doc := model.ConfigDocument{
		ConfigID: "svcA-v1", ServiceName: "svcA", Version: 1,
		Content: []byte(`{"k":1}`), Format: "json",
	}
	doc.ContentHash = contenthash.Compute(doc.Content)

	if err := c.Save(doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	got := c.Load("svcA")
	if got.Empty() || got.Version != 1 || string(got.Content) != `{"k":1}` {
		t.Fatalf("expected round-tripped doc, got %+v", got)
	}
}

func TestLoadAbsentFileIsEmptyNotError(t *testing.T) {
	c := newTestCache(t)
	got := c.Load("missing-service")
	if !got.Empty() {
		t.Fatalf("expected empty sentinel, got %+v", got)
	}
}

func TestLoadCorruptJSONIsDiscarded(t *testing.T) {
	c := newTestCache(t)
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := c.Path("svcA")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := c.Load("svcA")
	if !got.Empty() {
		t.Fatalf("expected empty sentinel for corrupt file, got %+v", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected corrupt cache file to be removed")
	}
}

func TestLoadHashMismatchIsDiscarded(t *testing.T) {
	c := newTestCache(t)
	doc := model.ConfigDocument{
		ConfigID: "svcA-v1", ServiceName: "svcA", Version: 1,
		Content: []byte(`{"k":1}`), Format: "json",
		ContentHash: "not-the-real-hash",
	}
	if err := c.Save(doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := c.Load("svcA")
	if !got.Empty() {
		t.Fatalf("expected empty sentinel on hash mismatch, got %+v", got)
	}
	if _, err := os.Stat(c.Path("svcA")); !os.IsNotExist(err) {
		t.Fatalf("expected mismatched cache file to be removed")
	}
}

func TestPathSanitizesSeparators(t *testing.T) {
	c := New("/tmp/konfig-cache")
	got := c.Path("team/service\\name")
	want := filepath.Join("/tmp/konfig-cache", "team_service_name.cache")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestExistsReflectsSaveState(t *testing.T) {
	c := newTestCache(t)
	if c.Exists("svcA") {
		t.Fatalf("expected no cache file before save")
	}
	doc := model.ConfigDocument{ConfigID: "svcA-v1", ServiceName: "svcA", Version: 1}
	if err := c.Save(doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !c.Exists("svcA") {
		t.Fatalf("expected cache file to exist after save")
	}
}
