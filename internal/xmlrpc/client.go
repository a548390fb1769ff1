// Package xmlrpc implements the subset of XML-RPC spoken by the rTorrent
// daemon: positional method calls over HTTP POST, i8 integers, base64
// payloads and struct faults.
package xmlrpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrNotConnected is returned by Call before Connect has succeeded.
var ErrNotConnected = errors.New("xmlrpc: client not connected")

const probeMethod = "system.client_version"

// Config carries the fixed endpoint parameters for one daemon. The endpoint
// cannot change over a client's lifetime.
type Config struct {
	Host string
	Port int
	Path string

	// Optional HTTP basic auth credentials.
	Username string
	Password string

	// MaxCallsPerSecond throttles outgoing calls when > 0. Zero disables
	// throttling.
	MaxCallsPerSecond float64

	Logger *logrus.Logger
}

// Client issues XML-RPC calls against a single daemon endpoint. Calls are
// serialized; the daemon handles one request per connection at a time. The
// client imposes no timeout of its own, callers bound each call through ctx.
type Client interface {
	// Connect probes the endpoint with a lightweight call and marks the
	// client usable. Calling Connect on a connected client is a no-op.
	Connect(ctx context.Context) error
	// Call invokes one named method with positional arguments. A daemon-side
	// rejection is returned as a *Fault error.
	Call(ctx context.Context, method string, args ...any) (any, error)
	// Connected reports whether Connect has succeeded.
	Connected() bool
	Close() error
}

type client struct {
	endpoint string
	username string
	password string
	hc       *http.Client
	limiter  *rate.Limiter
	logger   *logrus.Logger

	mu        sync.Mutex
	connected bool
}

var _ Client = (*client)(nil)

// NewClient builds a client for the given endpoint. No network traffic
// happens until Connect.
func NewClient(cfg Config) Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	var limiter *rate.Limiter
	if cfg.MaxCallsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxCallsPerSecond), 1)
	}
	return &client{
		endpoint: fmt.Sprintf("http://%s:%d%s", cfg.Host, cfg.Port, cfg.Path),
		username: cfg.Username,
		password: cfg.Password,
		hc:       &http.Client{},
		limiter:  limiter,
		logger:   cfg.Logger,
	}
}

func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}
	version, err := c.roundTrip(ctx, probeMethod)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.endpoint, err)
	}
	c.connected = true
	c.logger.WithFields(logrus.Fields{
		"endpoint": c.endpoint,
		"version":  version,
	}).Info("Connected to torrent daemon")
	return nil
}

func (c *client) Call(ctx context.Context, method string, args ...any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, ErrNotConnected
	}
	return c.roundTrip(ctx, method, args...)
}

func (c *client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.hc.CloseIdleConnections()
	return nil
}

// roundTrip performs one HTTP POST exchange. Callers hold c.mu.
func (c *client) roundTrip(ctx context.Context, method string, args ...any) (any, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}
	}

	body, err := marshalCall(method, args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode call %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, c.endpoint)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return parseResponse(data)
}
