// Package subscriber implements the client-side runtime that keeps a
// config document current against a konfig-distribution server: dial,
// subscribe, read updates, persist to disk, and reconnect on failure.
// Grounded on the client SDK's config_client.cpp/config_client_impl.go:
// the same start sequence (disk cache loaded before the first network
// attempt), the same fixed-delay reconnect loop, and the same
// connected/disconnected callback semantics.
package subscriber

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/codec404/Konfig/internal/diskcache"
	"github.com/codec404/Konfig/internal/model"
	"github.com/codec404/Konfig/pkg/log"
)

// ReconnectDelay is the pause between stream attempts while running.
const ReconnectDelay = 5 * time.Second

// ConfigUpdateFunc is invoked whenever a new config is received.
type ConfigUpdateFunc func(model.ConfigDocument)

// ConnectionStatusFunc is invoked whenever the connected/disconnected
// state transitions.
type ConnectionStatusFunc func(connected bool)

// Client maintains a subscription stream against a distribution server
// for one service instance, with disk-backed continuity across restarts
// and reconnects.
type Client struct {
	serverAddress string
	serviceName   string
	instanceID    string
	cache         *diskcache.Cache
	logger        log.Logger

	mu             sync.Mutex
	currentConfig  model.ConfigDocument
	running        bool
	connected      bool
	cancel         context.CancelFunc
	done           chan struct{}

	cbMu             sync.Mutex
	onConfigUpdate   ConfigUpdateFunc
	onConnectionStat ConnectionStatusFunc
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithInstanceID overrides the generated instance ID.
func WithInstanceID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.instanceID = id
		}
	}
}

// WithCacheDir overrides the disk cache directory.
func WithCacheDir(dir string) Option {
	return func(c *Client) { c.cache = diskcache.New(dir) }
}

// WithLogger overrides the client's logger.
func WithLogger(l log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New constructs a Client. An empty instanceID is replaced by a
// generated "instance-<6 digits>" identifier.
func New(serverAddress, serviceName string, opts ...Option) *Client {
	c := &Client{
		serverAddress: serverAddress,
		serviceName:   serviceName,
		instanceID:    generateInstanceID(),
		cache:         diskcache.New(""),
		logger:        log.NewLogger(log.WithLevel(log.InfoLevel)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func generateInstanceID() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "instance-100000"
	}
	return fmt.Sprintf("instance-%d", 100000+n.Int64())
}

// OnConfigUpdate registers the callback fired on each received update.
func (c *Client) OnConfigUpdate(fn ConfigUpdateFunc) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onConfigUpdate = fn
}

// OnConnectionStatus registers the callback fired on connect/disconnect.
func (c *Client) OnConnectionStatus(fn ConnectionStatusFunc) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onConnectionStat = fn
}

// IsConnected reports whether the stream is currently up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// CurrentConfig returns the most recently known config, which may come
// from disk cache if the network has never come up.
func (c *Client) CurrentConfig() model.ConfigDocument {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentConfig
}

// CurrentVersion is a convenience accessor over CurrentConfig.
func (c *Client) CurrentVersion() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentConfig.Version
}

// Start loads the disk cache synchronously so callers have an immediate
// value, then launches the background stream loop. A second call on an
// already-running client is a no-op, mirroring ConfigClientImpl::Start.
func (c *Client) Start(ctx context.Context) bool {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return false
	}
	c.running = true

	if cached := c.cache.Load(c.serviceName); !cached.Empty() {
		c.currentConfig = cached
	}

	streamCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.streamLoop(streamCtx)
	return true
}

// Stop cancels the stream and waits for the background loop to exit.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	c.setConnectionStatus(false)
}

func (c *Client) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Client) streamLoop(ctx context.Context) {
	defer close(c.done)
	for c.isRunning() {
		c.logger.Debugf("attempting to connect to %s", c.serverAddress)
		if err := c.connectAndSubscribe(ctx); err != nil {
			c.logger.Warnf("stream error: %v", err)
		}

		if !c.isRunning() {
			return
		}
		c.logger.Debugf("reconnecting in %s", ReconnectDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(ReconnectDelay):
		}
	}
}

func (c *Client) connectAndSubscribe(ctx context.Context) error {
	wsURL := url.URL{Scheme: "ws", Host: c.serverAddress, Path: "/v1/distribution/subscribe"}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		c.setConnectionStatus(false)
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	// Closing the socket on cancellation unblocks ReadJSON, so Stop returns.
	stopClose := context.AfterFunc(ctx, func() { conn.Close() })
	defer stopClose()

	req := model.SubscribeRequest{
		ServiceName:    c.serviceName,
		InstanceID:     c.instanceID,
		CurrentVersion: c.CurrentVersion(),
	}
	if err := conn.WriteJSON(req); err != nil {
		c.setConnectionStatus(false)
		return fmt.Errorf("write subscribe request: %w", err)
	}

	c.setConnectionStatus(true)
	c.logger.Infof("connected to %s as %s/%s", c.serverAddress, c.serviceName, c.instanceID)

	for c.isRunning() {
		var update model.ConfigUpdate
		if err := conn.ReadJSON(&update); err != nil {
			c.setConnectionStatus(false)
			return fmt.Errorf("read update: %w", err)
		}
		c.handleConfigUpdate(update)
	}
	c.setConnectionStatus(false)
	return nil
}

func (c *Client) handleConfigUpdate(update model.ConfigUpdate) {
	if update.UpdateType != model.UpdateNewConfig || update.Config == nil {
		return
	}
	doc := *update.Config
	c.logger.Infof("received config update v%d for %s", doc.Version, c.serviceName)

	c.mu.Lock()
	c.currentConfig = doc
	c.mu.Unlock()

	if err := c.cache.Save(doc); err != nil {
		c.logger.Warnf("disk cache save failed: %v", err)
	}

	c.cbMu.Lock()
	cb := c.onConfigUpdate
	c.cbMu.Unlock()
	if cb != nil {
		cb(doc)
	}
}

func (c *Client) setConnectionStatus(connected bool) {
	c.mu.Lock()
	was := c.connected
	c.connected = connected
	c.mu.Unlock()

	if was == connected {
		return
	}
	c.cbMu.Lock()
	cb := c.onConnectionStat
	c.cbMu.Unlock()
	if cb != nil {
		cb(connected)
	}
}
