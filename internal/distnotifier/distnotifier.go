// Package distnotifier implements controlplane.Notifier over HTTP,
// letting the control-plane process announce a newly written config to
// the distribution engine process without sharing memory. Mirrors
// validatorclient's call shape: a bounded deadline per call, and a
// delivery failure is logged, never propagated back into the write path
// (the write already succeeded; a missed fan-out push is recovered by
// the next subscriber reconnect's read-through fetch).
package distnotifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/codec404/Konfig/internal/model"
	"github.com/codec404/Konfig/pkg/log"
)

const callTimeout = 10 * time.Second

// Client talks to a konfig-distribution instance's internal push endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	logger  log.Logger
}

func New(baseURL string, logger log.Logger) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: callTimeout}, logger: logger}
}

// Push satisfies controlplane.Notifier.
func (c *Client) Push(ctx context.Context, serviceName string, config model.ConfigDocument) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	body, err := json.Marshal(model.PushUpdateRequest{ServiceName: serviceName, Config: config})
	if err != nil {
		c.logger.Warnf("push encode failed for %s: %v", serviceName, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/distribution/push", bytes.NewReader(body))
	if err != nil {
		c.logger.Warnf("push request build failed for %s: %v", serviceName, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warnf("distribution engine unreachable, push dropped for %s: %v", serviceName, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.logger.Warnf("distribution engine rejected push for %s: %s", serviceName, fmt.Sprintf("status %d", resp.StatusCode))
	}
}
