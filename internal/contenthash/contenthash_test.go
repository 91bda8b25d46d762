package contenthash

import "testing"

func TestComputeIsDeterministic(t *testing.T) {
	a := Compute([]byte(`{"k":1}`))
	b := Compute([]byte(`{"k":1}`))
	if a != b {
		t.Fatalf("expected deterministic hash, got %q and %q", a, b)
	}
}

func TestComputeDiffersOnDifferentContent(t *testing.T) {
	a := Compute([]byte(`{"k":1}`))
	b := Compute([]byte(`{"k":2}`))
	if a == b {
		t.Fatalf("expected different hashes for different content")
	}
}

func TestComputeKnownVector(t *testing.T) {
	// sha256("") is a well-known vector.
	got := Compute([]byte(""))
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
