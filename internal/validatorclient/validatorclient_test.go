package validatorclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codec404/Konfig/internal/model"
)

func TestValidateConfigRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req model.ValidateConfigRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ServiceName != "svcA" {
			t.Fatalf("unexpected service name %q", req.ServiceName)
		}
		json.NewEncoder(w).Encode(model.ValidateConfigResponse{Valid: true, Message: "Configuration is valid"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	resp := c.ValidateConfig(context.Background(), model.ValidateConfigRequest{ServiceName: "svcA", Content: []byte("{}"), Format: "json"})
	if !resp.Valid {
		t.Fatalf("expected valid response, got %+v", resp)
	}
}

func TestValidateConfigUnreachableServerDegradesToInvalid(t *testing.T) {
	c := New("http://127.0.0.1:1") // nothing listens here
	resp := c.ValidateConfig(context.Background(), model.ValidateConfigRequest{ServiceName: "svcA"})
	if resp.Valid {
		t.Fatalf("expected invalid result when validator is unreachable")
	}
}
