// Package metrics implements the fire-and-forget UDP metrics sink
// collaborator: a single datagram per call, text-line statsd wire
// protocol, with sample-rate gating and RAII-style scoped timers.
package metrics

import (
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Client is a fire-and-forget UDP statsd client. A nil *Client is valid and
// every method on it is a no-op, so callers never need to guard calls
// behind an "is metrics enabled" check.
type Client struct {
	prefix string
	conn   net.Conn // nil if the socket could not be opened; calls are then no-ops

	mu  sync.Mutex
	rng *rand.Rand
}

// New resolves host:port and opens a UDP socket. A resolution or dial
// failure is non-fatal: it returns a Client whose sends are silently
// dropped, matching the original's "not connected" short-circuit in send().
func New(host string, port int, prefix string) *Client {
	c := &Client{prefix: prefix, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	conn, err := net.Dial("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err == nil {
		c.conn = conn
	}
	return c
}

// Close releases the underlying UDP socket.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) Increment(metric string, sampleRate ...float64) { c.Count(metric, 1, sampleRate...) }
func (c *Client) Decrement(metric string, sampleRate ...float64) { c.Count(metric, -1, sampleRate...) }

func (c *Client) Count(metric string, value int, sampleRate ...float64) {
	c.send(metric, value, "c", rate(sampleRate))
}

func (c *Client) Gauge(metric string, value int, sampleRate ...float64) {
	c.send(metric, value, "g", rate(sampleRate))
}

func (c *Client) Timing(metric string, milliseconds int, sampleRate ...float64) {
	c.send(metric, milliseconds, "ms", rate(sampleRate))
}

func (c *Client) Histogram(metric string, value int, sampleRate ...float64) {
	c.send(metric, value, "h", rate(sampleRate))
}

func (c *Client) Set(metric string, value int, sampleRate ...float64) {
	c.send(metric, value, "s", rate(sampleRate))
}

func rate(sampleRate []float64) float64 {
	if len(sampleRate) == 0 {
		return 1.0
	}
	return sampleRate[0]
}

func (c *Client) send(metric string, value int, typ string, sampleRate float64) {
	if c == nil || c.conn == nil {
		return
	}
	if !c.shouldSample(sampleRate) {
		return
	}
	var b strings.Builder
	if c.prefix != "" {
		b.WriteString(c.prefix)
		if !strings.HasSuffix(c.prefix, ".") {
			b.WriteByte('.')
		}
	}
	fmt.Fprintf(&b, "%s:%d|%s", metric, value, typ)
	if sampleRate < 1.0 {
		fmt.Fprintf(&b, "|@%v", sampleRate)
	}
	// UDP fire-and-forget: errors are not surfaced to callers.
	_, _ = c.conn.Write([]byte(b.String()))
}

func (c *Client) shouldSample(sampleRate float64) bool {
	if sampleRate >= 1.0 {
		return true
	}
	if sampleRate <= 0.0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Float64() <= sampleRate
}

// Timer records elapsed time as a "ms" metric when Stop is called. Typical
// use is `defer metrics.NewTimer(client, "op.duration").Stop()`.
type Timer struct {
	client *Client
	metric string
	start  time.Time
}

func NewTimer(client *Client, metric string) *Timer {
	return &Timer{client: client, metric: metric, start: time.Now()}
}

func (t *Timer) Stop() {
	t.client.Timing(t.metric, int(time.Since(t.start).Milliseconds()))
}
