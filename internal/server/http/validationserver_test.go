package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codec404/Konfig/internal/cache"
	"github.com/codec404/Konfig/internal/model"
	"github.com/codec404/Konfig/internal/validationsvc"
	"github.com/codec404/Konfig/pkg/log"
)

func newTestValidationServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := validationsvc.New(validationsvc.NewMem(), cache.NoopCache{}, nil, log.NewLogger(log.WithLevel(log.ErrorLevel)), validationsvc.Config{})
	s := NewValidationServer(svc, log.NewLogger(log.WithLevel(log.ErrorLevel)))
	return httptest.NewServer(s.srv.Handler)
}

func TestValidationServerValidateEndpoint(t *testing.T) {
	srv := newTestValidationServer(t)
	defer srv.Close()

	body, _ := json.Marshal(model.ValidateConfigRequest{ServiceName: "svcA", Content: []byte(`{"a":1}`), Format: "json"})
	resp, err := http.Post(srv.URL+"/v1/validate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var out model.ValidateConfigResponse
	json.NewDecoder(resp.Body).Decode(&out)
	if !out.Valid {
		t.Fatalf("expected valid response, got %+v", out)
	}
}

func TestValidationServerRegisterThenGetSchema(t *testing.T) {
	srv := newTestValidationServer(t)
	defer srv.Close()

	body, _ := json.Marshal(model.RegisterSchemaRequest{SchemaID: "s1", ServiceName: "svcA", SchemaType: "json-schema", SchemaContent: "{}"})
	resp, err := http.Post(srv.URL+"/v1/schemas/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	var regResp model.RegisterSchemaResponse
	json.NewDecoder(resp.Body).Decode(&regResp)
	resp.Body.Close()
	if !regResp.Success {
		t.Fatalf("expected registration success: %+v", regResp)
	}

	getResp, err := http.Get(srv.URL + "/v1/schemas/get?schema_id=s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer getResp.Body.Close()
	var getBody model.GetSchemaResponse
	json.NewDecoder(getResp.Body).Decode(&getBody)
	if !getBody.Success || getBody.Schema.SchemaID != "s1" {
		t.Fatalf("unexpected get schema response: %+v", getBody)
	}
}
