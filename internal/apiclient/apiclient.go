// Package apiclient is konfigctl's HTTP/JSON client for the control-plane
// write path (konfig-api); it has no calls to the validation service.
// It replaces the original CLI's generated gRPC stub with plain HTTP calls
// against the endpoints in internal/server/http.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/codec404/Konfig/internal/model"
)

const defaultTimeout = 30 * time.Second

// Client talks to one konfig-api instance.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: defaultTimeout}}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && out == nil {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) UploadConfig(ctx context.Context, req model.UploadConfigRequest) (model.UploadConfigResponse, error) {
	var out model.UploadConfigResponse
	err := c.do(ctx, http.MethodPost, "/v1/configs/upload", nil, req, &out)
	return out, err
}

func (c *Client) GetConfig(ctx context.Context, configID string) (model.GetConfigResponse, error) {
	var out model.GetConfigResponse
	err := c.do(ctx, http.MethodGet, "/v1/configs/get", url.Values{"config_id": {configID}}, nil, &out)
	return out, err
}

func (c *Client) ListConfigs(ctx context.Context, serviceName string, limit, offset int) (model.ListConfigsResponse, error) {
	var out model.ListConfigsResponse
	q := url.Values{}
	if serviceName != "" {
		q.Set("service_name", serviceName)
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	err := c.do(ctx, http.MethodGet, "/v1/configs/list", q, nil, &out)
	return out, err
}

func (c *Client) DeleteConfig(ctx context.Context, configID string) (model.DeleteConfigResponse, error) {
	var out model.DeleteConfigResponse
	err := c.do(ctx, http.MethodDelete, "/v1/configs/delete", url.Values{"config_id": {configID}}, nil, &out)
	return out, err
}

func (c *Client) StartRollout(ctx context.Context, req model.StartRolloutRequest) (model.RolloutStatusResponse, error) {
	var out model.RolloutStatusResponse
	err := c.do(ctx, http.MethodPost, "/v1/rollout/start", nil, req, &out)
	return out, err
}

func (c *Client) GetRolloutStatus(ctx context.Context, configID string) (model.RolloutStatusResponse, error) {
	var out model.RolloutStatusResponse
	err := c.do(ctx, http.MethodGet, "/v1/rollout/status", url.Values{"config_id": {configID}}, nil, &out)
	return out, err
}

func (c *Client) Rollback(ctx context.Context, req model.RollbackRequest) (model.RollbackResponse, error) {
	var out model.RollbackResponse
	err := c.do(ctx, http.MethodPost, "/v1/rollback", nil, req, &out)
	return out, err
}
