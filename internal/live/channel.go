// Package live keeps a push connection to the conversion server open.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/webmconv/internal/metrics"
	"github.com/raphaelgruber/webmconv/internal/models"
)

// ReconnectDelay is the fixed wait between a disconnect and the next attempt.
const ReconnectDelay = 3 * time.Second

// Message tags sent by the server.
const (
	TypeInitial   = "initial"
	TypeUpdate    = "update"
	TypeJobUpdate = "job_update" // alias some servers use for TypeUpdate
)

// Message is one push frame.
type Message struct {
	Type string       `json:"type"`
	Jobs []models.Job `json:"jobs,omitempty"`
	Job  *models.Job  `json:"job,omitempty"`
}

// Handler receives decoded push messages.
type Handler interface {
	Snapshot(jobs []models.Job)
	Update(job models.Job)
}

// StateHandler is optionally implemented by a Handler to observe the
// connection coming up and going down.
type StateHandler interface {
	Connected(ok bool)
}

// Dialer opens a WebSocket connection. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Channel is a reconnecting push channel client.
// It retries forever with a constant delay; there is no backoff and no limit.
type Channel struct {
	url     string
	handler Handler
	dialer  Dialer
	delay   time.Duration
	after   func(time.Duration) <-chan time.Time
	logger  *slog.Logger
	metrics *metrics.Collector
}

// Option configures a Channel.
type Option func(*Channel)

// WithDialer replaces the default WebSocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Channel) {
		c.dialer = d
	}
}

// WithDelay overrides the reconnect delay.
func WithDelay(d time.Duration) Option {
	return func(c *Channel) {
		c.delay = d
	}
}

// WithTimer overrides how the reconnect wait is scheduled.
func WithTimer(after func(time.Duration) <-chan time.Time) Option {
	return func(c *Channel) {
		c.after = after
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Channel) {
		c.logger = l
	}
}

// WithMetrics records connect timings and failures.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Channel) {
		c.metrics = m
	}
}

// New creates a channel for the given ws:// or wss:// URL.
func New(url string, h Handler, opts ...Option) *Channel {
	c := &Channel{
		url:     url,
		handler: h,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		delay:  ReconnectDelay,
		after:  time.After,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run connects and dispatches messages until ctx is cancelled.
// Every disconnect, including a failed dial, schedules exactly one new
// attempt after the fixed delay. Run only returns ctx.Err().
func (c *Channel) Run(ctx context.Context) error {
	for {
		if err := c.session(ctx); err != nil && ctx.Err() == nil {
			c.logger.Debug("push channel disconnected", "url", c.url, "error", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.after(c.delay):
		}
	}
}

// session runs one connection until it closes.
func (c *Channel) session(ctx context.Context) error {
	start := time.Now()
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.metrics.RecordFailure(metrics.OpConnect)
		return fmt.Errorf("websocket connect: %w", err)
	}
	c.metrics.RecordTiming(metrics.OpConnect, time.Since(start))
	c.logger.Info("push channel connected", "url", c.url)

	if sh, ok := c.handler.(StateHandler); ok {
		sh.Connected(true)
		defer sh.Connected(false)
	}

	// Unblock ReadMessage when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read message: %w", err)
		}
		c.dispatch(data)
	}
}

func (c *Channel) dispatch(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("skipping undecodable push message", "error", err, "bytes", len(data))
		return
	}

	switch msg.Type {
	case TypeInitial:
		c.handler.Snapshot(msg.Jobs)
	case TypeUpdate, TypeJobUpdate:
		if msg.Job == nil {
			c.logger.Warn("skipping update without job")
			return
		}
		c.handler.Update(*msg.Job)
	default:
		c.logger.Debug("ignoring push message", "type", msg.Type)
	}
}

// HandlerFuncs adapts functions to Handler and StateHandler.
// Nil functions are skipped.
type HandlerFuncs struct {
	OnSnapshot  func(jobs []models.Job)
	OnUpdate    func(job models.Job)
	OnConnected func(ok bool)
}

// Snapshot calls OnSnapshot.
func (h HandlerFuncs) Snapshot(jobs []models.Job) {
	if h.OnSnapshot != nil {
		h.OnSnapshot(jobs)
	}
}

// Update calls OnUpdate.
func (h HandlerFuncs) Update(job models.Job) {
	if h.OnUpdate != nil {
		h.OnUpdate(job)
	}
}

// Connected calls OnConnected.
func (h HandlerFuncs) Connected(ok bool) {
	if h.OnConnected != nil {
		h.OnConnected(ok)
	}
}
