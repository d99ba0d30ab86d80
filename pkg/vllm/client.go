package vllm

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/samcharles93/vllmc/internal/logger"
	"github.com/samcharles93/vllmc/pkg/vllm/transport"
)

const (
	DefaultHost = "localhost"
	DefaultPort = 9000
)

// Config configures a Client. Zero values resolve to the process-wide
// defaults (environment, then built-ins) captured once at first use.
type Config struct {
	Host    string
	Port    int
	Timeout time.Duration

	// Session overrides the HTTP transport, e.g. for tests.
	Session transport.Session

	Logger logger.Logger
}

// envDefaults is resolved once and never mutated afterwards.
var envDefaults = sync.OnceValue(func() Config {
	cfg := Config{
		Host:    DefaultHost,
		Port:    DefaultPort,
		Timeout: transport.DefaultTimeout,
	}
	if v := os.Getenv("VLLM_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("VLLM_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.Port = p
		}
	}
	if v := os.Getenv("VLLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		} else if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			cfg.Timeout = time.Duration(secs * float64(time.Second))
		}
	}
	return cfg
})

// Client talks to one engine endpoint. It is safe for concurrent use; any
// number of unary calls and streams may be in flight at once over the one
// shared session.
type Client struct {
	session transport.Session
	coord   *Coordinator
	log     logger.Logger

	mu    sync.RWMutex
	model string
}

// New builds a client. Missing config fields fall back to VLLM_HOST,
// VLLM_PORT and VLLM_TIMEOUT, then to the built-in defaults.
func New(cfg Config) *Client {
	def := envDefaults()
	if cfg.Host == "" {
		cfg.Host = def.Host
	}
	if cfg.Port == 0 {
		cfg.Port = def.Port
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}

	session := cfg.Session
	if session == nil {
		session = transport.New(transport.Options{
			Host:    cfg.Host,
			Port:    cfg.Port,
			Timeout: cfg.Timeout,
			Logger:  cfg.Logger,
		})
	}
	return &Client{
		session: session,
		coord:   newCoordinator(session, cfg.Logger),
		log:     cfg.Logger,
	}
}

// Close releases the underlying session. In-flight streams fail with a
// disconnect once their buffers drain.
func (c *Client) Close() error {
	return c.session.Close()
}

// Coordinator exposes the abort registry, for supervisory contexts that
// cancel requests they did not issue.
func (c *Client) Coordinator() *Coordinator {
	return c.coord
}

// Abort cancels in-flight requests by id. See Coordinator.Abort.
func (c *Client) Abort(ctx context.Context, ids ...string) error {
	return c.coord.Abort(ctx, ids...)
}

// HealthCheck reports engine liveness.
func (c *Client) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	hs, err := c.session.HealthCheck(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return &HealthStatus{Healthy: hs.Healthy, Message: hs.Message}, nil
}

// IsHealthy is a convenience wrapper that folds any failure into false.
func (c *Client) IsHealthy(ctx context.Context) bool {
	hs, err := c.HealthCheck(ctx)
	return err == nil && hs.Healthy
}

// ServerInfo returns read-only engine status.
func (c *Client) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	si, err := c.session.ServerInfo(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return &ServerInfo{
		ActiveRequests:       si.ActiveRequests,
		IsPaused:             si.IsPaused,
		LastReceiveTimestamp: si.LastReceiveTimestamp,
		UptimeSeconds:        si.UptimeSeconds,
		ServerType:           si.ServerType,
	}, nil
}

// ModelInfo returns the served model's metadata and caches the model path
// for response stamping.
func (c *Client) ModelInfo(ctx context.Context) (*ModelInfo, error) {
	mc, err := c.session.ModelInfo(ctx)
	if err != nil {
		return nil, classify(err)
	}
	c.setModel(mc.ModelPath)
	return &ModelInfo{
		ModelPath:        mc.ModelPath,
		IsGeneration:     mc.IsGeneration,
		MaxContextLength: mc.MaxContextLength,
		VocabSize:        mc.VocabSize,
		SupportsVision:   mc.SupportsVision,
	}, nil
}

// WaitForReady polls health until the engine responds healthy or ctx ends.
// On success the served model name is fetched for response metadata.
func (c *Client) WaitForReady(ctx context.Context, pollInterval time.Duration) error {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		probe, cancel := context.WithTimeout(ctx, pollInterval)
		healthy := c.IsHealthy(probe)
		cancel()
		if healthy {
			if _, err := c.ModelInfo(ctx); err != nil {
				c.log.Warn("model info unavailable after health check", "error", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return classify(ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) setModel(name string) {
	c.mu.Lock()
	c.model = name
	c.mu.Unlock()
}

func (c *Client) modelName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// abortAsync issues a best-effort courtesy abort, detached from the failing
// call's context.
func (c *Client) abortAsync(id string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.coord.Abort(ctx, id); err != nil {
			c.log.Debug("courtesy abort failed", "request_id", id, "error", err)
		}
	}()
}
