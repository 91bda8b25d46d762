package distnotifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codec404/Konfig/internal/model"
	"github.com/codec404/Konfig/pkg/log"
)

func TestPushSendsConfigToEndpoint(t *testing.T) {
	received := make(chan model.PushUpdateRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/distribution/push" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var req model.PushUpdateRequest
		json.NewDecoder(r.Body).Decode(&req)
		received <- req
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, log.NewLogger(log.WithLevel(log.ErrorLevel)))
	c.Push(context.Background(), "svcA", model.ConfigDocument{ConfigID: "svcA-v1", ServiceName: "svcA", Version: 1})

	select {
	case req := <-received:
		if req.ServiceName != "svcA" || req.Config.ConfigID != "svcA-v1" {
			t.Fatalf("unexpected push payload: %+v", req)
		}
	default:
		t.Fatal("push was not received")
	}
}

func TestPushToUnreachableServerDoesNotPanic(t *testing.T) {
	c := New("http://127.0.0.1:1", log.NewLogger(log.WithLevel(log.ErrorLevel)))
	c.Push(context.Background(), "svcA", model.ConfigDocument{ConfigID: "svcA-v1"})
}
