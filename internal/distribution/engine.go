// Package distribution implements the fan-out server side of the
// distribution stream: track subscribers, push updates, evict silent
// clients. Grounded line-for-line on distribution_service.cpp's
// Subscribe/FetchConfig/SendConfigToClient/HeartbeatMonitorLoop, with
// the gRPC bidirectional stream replaced by a transport-agnostic Sender
// interface (implemented by the WebSocket server wrapper in
// internal/server/http) per SPEC_FULL.md §4.5's transport substitution.
package distribution

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/codec404/Konfig/internal/apierr"
	"github.com/codec404/Konfig/internal/cache"
	"github.com/codec404/Konfig/internal/events"
	"github.com/codec404/Konfig/internal/metrics"
	"github.com/codec404/Konfig/internal/model"
	"github.com/codec404/Konfig/internal/store"
	"github.com/codec404/Konfig/pkg/log"
)

// Sender is the transport-facing half of one subscriber connection: the
// distribution engine calls Send to push a frame and never touches the
// socket directly.
type Sender interface {
	Send(model.ConfigUpdate) error
}

// clientInfo mirrors ClientInfo: per-subscriber state held under the
// engine's lock, independent of the transport.
type clientInfo struct {
	serviceName    string
	instanceID     string
	currentVersion int64
	sender         Sender
	lastHeartbeat  time.Time
	active         bool
}

// Engine owns the process-local subscriber registry and the background
// heartbeat watchdog. One Engine serves every service.
type Engine struct {
	store   store.Store
	cache   cache.Cache
	events  events.Emitter
	metrics *metrics.Client
	logger  log.Logger

	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
	cacheTTL          time.Duration

	mu      sync.Mutex
	clients map[string]*clientInfo // "service:instance" -> info

	stopCh chan struct{}
	doneCh chan struct{}
}

// Config governs heartbeat cadence and cache TTL.
type Config struct {
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	CacheTTL          time.Duration
}

func New(s store.Store, c cache.Cache, e events.Emitter, m *metrics.Client, logger log.Logger, cfg Config) *Engine {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = 90 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &Engine{
		store: s, cache: c, events: e, metrics: m, logger: logger,
		heartbeatInterval: cfg.HeartbeatInterval, heartbeatTimeout: cfg.HeartbeatTimeout, cacheTTL: cfg.CacheTTL,
		clients: map[string]*clientInfo{},
	}
}

func clientKey(serviceName, instanceID string) string { return serviceName + ":" + instanceID }

func marshalDoc(doc model.ConfigDocument) ([]byte, error) { return json.Marshal(doc) }
func unmarshalDoc(raw []byte, doc *model.ConfigDocument) error { return json.Unmarshal(raw, doc) }

// Start launches the heartbeat watchdog goroutine.
func (e *Engine) Start() {
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	go e.heartbeatMonitorLoop()
}

// Stop halts the watchdog and marks every registered client inactive.
func (e *Engine) Stop() {
	close(e.stopCh)
	<-e.doneCh

	e.mu.Lock()
	for _, c := range e.clients {
		c.active = false
	}
	e.clients = map[string]*clientInfo{}
	e.mu.Unlock()
}

// ActiveClientCount reports the current subscriber count, for metrics
// and tests.
func (e *Engine) ActiveClientCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.clients)
}

// Subscribe registers a new subscriber, fetches the latest config (push
// only if newer than the caller's current_version), and returns the
// clientKey the caller must pass to Heartbeat/Unsubscribe. It never
// blocks on the stream itself — that is the transport wrapper's job.
func (e *Engine) Subscribe(ctx context.Context, req model.SubscribeRequest, sender Sender) (string, error) {
	if req.ServiceName == "" || req.InstanceID == "" {
		return "", apierr.New(apierr.InvalidArgument, "service_name and instance_id are required")
	}

	key := clientKey(req.ServiceName, req.InstanceID)
	client := &clientInfo{
		serviceName: req.ServiceName, instanceID: req.InstanceID,
		currentVersion: req.CurrentVersion, sender: sender,
		lastHeartbeat: time.Now(), active: true,
	}

	e.mu.Lock()
	e.clients[key] = client
	count := len(e.clients)
	e.mu.Unlock()

	e.metrics.Increment("client.connect")
	e.metrics.Gauge("clients.active", count)
	e.events.Publish(model.EventClientConnect, req.ServiceName, req.InstanceID, 0, "")

	if err := e.store.UpdateInstanceStatus(ctx, req.ServiceName, req.InstanceID, req.CurrentVersion, model.InstanceConnected); err != nil {
		e.logger.Warnf("update instance status failed: %v", err)
	}

	start := time.Now()
	config, err := e.FetchConfig(ctx, req.ServiceName, -1)
	e.metrics.Timing("config.fetch_time_ms", int(time.Since(start).Milliseconds()))
	if err != nil {
		e.logger.Warnf("fetch config failed for %s: %v", req.ServiceName, err)
		e.metrics.Increment("config.failed")
		return key, nil
	}

	if config.Version > req.CurrentVersion {
		if err := e.sendConfigToClient(client, config); err != nil {
			e.unregister(key)
			e.metrics.Increment("config.failed")
			return "", apierr.Wrap(apierr.Internal, "failed to send config", err)
		}
		if err := e.store.UpdateInstanceStatus(ctx, req.ServiceName, req.InstanceID, config.Version, model.InstanceConnected); err != nil {
			e.logger.Warnf("update instance status failed: %v", err)
		}
		if err := e.store.RecordDelivery(ctx, req.ServiceName, req.InstanceID, config.Version); err != nil {
			e.logger.Warnf("record delivery failed: %v", err)
		}
		e.events.Publish(model.EventConfigUpdate, req.ServiceName, req.InstanceID, config.Version, "")
	}

	return key, nil
}

// Heartbeat refreshes a subscriber's last-seen timestamp and is called
// on every subsequent frame from the transport wrapper.
func (e *Engine) Heartbeat(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.clients[key]
	if !ok || !c.active {
		return false
	}
	c.lastHeartbeat = time.Now()
	e.metrics.Increment("heartbeat.received")
	return true
}

// Unsubscribe removes a subscriber and records the disconnect.
func (e *Engine) Unsubscribe(ctx context.Context, key string) {
	e.mu.Lock()
	c, ok := e.clients[key]
	delete(e.clients, key)
	count := len(e.clients)
	e.mu.Unlock()
	if !ok {
		return
	}

	e.metrics.Increment("client.disconnect")
	e.metrics.Gauge("clients.active", count)
	e.events.Publish(model.EventClientDisconnect, c.serviceName, c.instanceID, 0, "")

	if err := e.store.UpdateInstanceStatus(ctx, c.serviceName, c.instanceID, c.currentVersion, model.InstanceDisconnected); err != nil {
		e.logger.Warnf("update instance status failed: %v", err)
	}
}

func (e *Engine) unregister(key string) {
	e.mu.Lock()
	delete(e.clients, key)
	e.mu.Unlock()
}

// FetchConfig implements the read-through algorithm: cache first, then
// store, populating the cache on a store hit.
func (e *Engine) FetchConfig(ctx context.Context, serviceName string, version int64) (model.ConfigDocument, error) {
	cacheStart := time.Now()
	key := cache.ConfigVersionKey(serviceName, version)
	if raw, ok := e.cache.Get(ctx, key); ok {
		e.metrics.Timing("cache.lookup_time_ms", int(time.Since(cacheStart).Milliseconds()))
		var doc model.ConfigDocument
		if err := unmarshalDoc(raw, &doc); err == nil && !doc.Empty() {
			return doc, nil
		}
	}
	e.metrics.Timing("cache.lookup_time_ms", int(time.Since(cacheStart).Milliseconds()))

	dbStart := time.Now()
	var doc model.ConfigDocument
	var err error
	if version <= 0 {
		doc, err = e.store.GetLatest(ctx, serviceName)
	} else {
		doc, err = e.store.GetByVersion(ctx, serviceName, version)
	}
	e.metrics.Timing("db.query_time_ms", int(time.Since(dbStart).Milliseconds()))
	if err != nil {
		return model.ConfigDocument{}, err
	}

	if !doc.Empty() {
		cache.CacheConfig(ctx, e.cache, doc, e.cacheTTL, marshalDoc)
	}
	return doc, nil
}

func (e *Engine) sendConfigToClient(c *clientInfo, config model.ConfigDocument) error {
	e.mu.Lock()
	active := c.active
	e.mu.Unlock()
	if !active {
		return apierr.New(apierr.Internal, "client is no longer active")
	}

	update := model.ConfigUpdate{
		UpdateType:  model.UpdateNewConfig,
		Config:      &config,
		ForceReload: config.Version > c.currentVersion,
	}
	if err := c.sender.Send(update); err != nil {
		return err
	}

	e.mu.Lock()
	c.currentVersion = config.Version
	e.mu.Unlock()
	e.metrics.Increment("config.sent")
	return nil
}

// Push sends a config update to every currently connected subscriber of
// serviceName, used by the control plane after a new version is
// uploaded. Send failures unregister the subscriber rather than
// propagating, mirroring the per-client disconnect handling above.
func (e *Engine) Push(ctx context.Context, serviceName string, config model.ConfigDocument) {
	e.mu.Lock()
	var targets []*clientInfo
	for _, c := range e.clients {
		if c.serviceName == serviceName && c.active {
			targets = append(targets, c)
		}
	}
	e.mu.Unlock()

	for _, c := range targets {
		if err := e.sendConfigToClient(c, config); err != nil {
			e.logger.Warnf("push to %s failed: %v", c.instanceID, err)
			e.Unsubscribe(ctx, clientKey(c.serviceName, c.instanceID))
		}
	}
}

func (e *Engine) heartbeatMonitorLoop() {
	defer close(e.doneCh)
	ticker := time.NewTicker(e.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.evictSilentClients()
		}
	}
}

// evictSilentClients scans under a short lock and performs no I/O while
// holding it, matching the original's two-phase scan-then-erase.
func (e *Engine) evictSilentClients() {
	now := time.Now()
	var dead []string

	e.mu.Lock()
	for key, c := range e.clients {
		if now.Sub(c.lastHeartbeat) > e.heartbeatTimeout {
			dead = append(dead, key)
			c.active = false
		}
	}
	for _, key := range dead {
		delete(e.clients, key)
	}
	count := len(e.clients)
	e.mu.Unlock()

	for _, key := range dead {
		e.logger.Infof("client timeout: %s", key)
		e.metrics.Increment("heartbeat.timeout")
	}
	e.metrics.Gauge("clients.active", count)
}
