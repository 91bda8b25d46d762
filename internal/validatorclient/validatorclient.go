// Package validatorclient is the control plane's HTTP client for the
// validation service, grounded on api-service's validation_client.cpp:
// a 10-second deadline per call, and a connectivity failure degrades to
// an explicit "invalid" response rather than propagating a transport
// error up through the write path.
package validatorclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/codec404/Konfig/internal/model"
)

const callTimeout = 10 * time.Second

// Client talks to a konfig-validation instance over HTTP/JSON.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: callTimeout}}
}

// ValidateConfig mirrors ValidationClient::ValidateConfig. Any transport
// failure is reported as an invalid result carrying the error, never as
// a Go error — the write path treats validation failure and validator
// unavailability identically: reject the upload.
func (c *Client) ValidateConfig(ctx context.Context, req model.ValidateConfigRequest) model.ValidateConfigResponse {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return model.ValidateConfigResponse{Valid: false, Message: fmt.Sprintf("validation request encoding failed: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/validate", bytes.NewReader(body))
	if err != nil {
		return model.ValidateConfigResponse{Valid: false, Message: fmt.Sprintf("validation request build failed: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return model.ValidateConfigResponse{Valid: false, Message: "validation service error: " + err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.ValidateConfigResponse{Valid: false, Message: fmt.Sprintf("validation service returned status %d", resp.StatusCode)}
	}

	var out model.ValidateConfigResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.ValidateConfigResponse{Valid: false, Message: "validation service returned an unreadable response"}
	}
	return out
}
