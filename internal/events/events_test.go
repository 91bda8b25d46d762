package events

import (
	"context"
	"testing"
)

func TestNoopEmitter(t *testing.T) {
	var e Emitter = NoopEmitter{}
	if err := e.Publish("config.uploaded", "svcA", "", 1, "api"); err != nil {
		t.Fatalf("noop publish should never fail: %v", err)
	}
	if err := e.Shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown should never fail: %v", err)
	}
}
