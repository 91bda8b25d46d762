package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codec404/Konfig/internal/controlplane"
	"github.com/codec404/Konfig/internal/events"
	"github.com/codec404/Konfig/internal/model"
	"github.com/codec404/Konfig/internal/store"
	"github.com/codec404/Konfig/pkg/log"
)

type acceptValidator struct{}

func (acceptValidator) ValidateConfig(context.Context, model.ValidateConfigRequest) model.ValidateConfigResponse {
	return model.ValidateConfigResponse{Valid: true}
}

type noopNotifier struct{}

func (noopNotifier) Push(context.Context, string, model.ConfigDocument) {}

func newTestAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	cp := controlplane.New(store.NewMem(), acceptValidator{}, noopNotifier{}, events.NoopEmitter{}, nil, log.NewLogger(log.WithLevel(log.ErrorLevel)))
	s := NewAPIServer(cp, log.NewLogger(log.WithLevel(log.ErrorLevel)))
	return httptest.NewServer(s.srv.Handler)
}

func TestAPIServerHealthz(t *testing.T) {
	srv := newTestAPIServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
}

func TestAPIServerUploadThenGet(t *testing.T) {
	srv := newTestAPIServer(t)
	defer srv.Close()

	body, _ := json.Marshal(model.UploadConfigRequest{ServiceName: "svcA", Content: []byte(`{"a":1}`), Format: "json"})
	resp, err := http.Post(srv.URL+"/v1/configs/upload", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	var uploadResp model.UploadConfigResponse
	json.NewDecoder(resp.Body).Decode(&uploadResp)
	resp.Body.Close()
	if !uploadResp.Success {
		t.Fatalf("expected upload success: %+v", uploadResp)
	}

	getResp, err := http.Get(srv.URL + "/v1/configs/get?config_id=" + uploadResp.ConfigID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var getBody model.GetConfigResponse
	json.NewDecoder(getResp.Body).Decode(&getBody)
	getResp.Body.Close()
	if !getBody.Found || getBody.Config.Version != 1 {
		t.Fatalf("unexpected get response: %+v", getBody)
	}
}

func TestAPIServerUploadRejectsEmptyBody(t *testing.T) {
	srv := newTestAPIServer(t)
	defer srv.Close()

	body, _ := json.Marshal(model.UploadConfigRequest{ServiceName: "svcA"})
	resp, err := http.Post(srv.URL+"/v1/configs/upload", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var uploadResp model.UploadConfigResponse
	json.NewDecoder(resp.Body).Decode(&uploadResp)
	if uploadResp.Success {
		t.Fatalf("expected upload rejection for empty content")
	}
}
