package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/samcharles93/vllmc/internal/logger"
)

// DefaultTimeout bounds a call when the caller's context carries no
// deadline. For streams it bounds the total stream duration.
const DefaultTimeout = 60 * time.Second

// Options configures an HTTPSession.
type Options struct {
	Host    string
	Port    int
	Timeout time.Duration

	// HTTPClient overrides the default client. It must not set a client
	// level timeout: per-call deadlines come from the context so streams
	// are not cut off by a transport-wide limit.
	HTTPClient *http.Client

	Logger logger.Logger
}

// HTTPSession speaks the engine's JSON-over-HTTP surface. Streaming
// responses arrive as SSE frames, one GenerateResponse per event.
type HTTPSession struct {
	base    string
	timeout time.Duration
	http    *http.Client
	log     logger.Logger
}

var _ Session = (*HTTPSession)(nil)

// New builds a session for one engine endpoint. No connection is opened
// until the first call.
func New(opts Options) *HTTPSession {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &HTTPSession{
		base:    fmt.Sprintf("http://%s:%d", opts.Host, opts.Port),
		timeout: timeout,
		http:    hc,
		log:     log,
	}
}

func (s *HTTPSession) Generate(ctx context.Context, req *GenerateRequest) (*GenerateComplete, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	var out GenerateComplete
	if err := s.call(ctx, http.MethodPost, "/v1/generate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *HTTPSession) GenerateStream(ctx context.Context, req *GenerateRequest) (ResponseStream, error) {
	ctx, cancel := s.deadline(ctx)

	body, err := json.Marshal(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("encode request: %w", err)
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "text/event-stream")

	resp, err := s.http.Do(hreq)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		defer cancel()
		return nil, s.statusError(resp)
	}
	s.log.Debug("stream opened", "request_id", req.RequestID)
	return newSSEStream(resp.Body, cancel), nil
}

func (s *HTTPSession) Abort(ctx context.Context, requestIDs []string) error {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	s.log.Debug("abort", "request_ids", requestIDs)
	return s.call(ctx, http.MethodPost, "/v1/abort", &AbortRequest{RequestIDs: requestIDs}, nil)
}

func (s *HTTPSession) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	var out HealthStatus
	if err := s.call(ctx, http.MethodGet, "/v1/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *HTTPSession) ServerInfo(ctx context.Context) (*ServerStatus, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	var out ServerStatus
	if err := s.call(ctx, http.MethodGet, "/v1/server", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *HTTPSession) ModelInfo(ctx context.Context) (*ModelCard, error) {
	ctx, cancel := s.deadline(ctx)
	defer cancel()

	var out ModelCard
	if err := s.call(ctx, http.MethodGet, "/v1/model", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *HTTPSession) Close() error {
	s.http.CloseIdleConnections()
	return nil
}

// deadline applies the session default timeout when the caller supplied
// none.
func (s *HTTPSession) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *HTTPSession) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		// Prefer the context error so deadline expiry stays
		// distinguishable from connection failures.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return s.statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (s *HTTPSession) statusError(resp *http.Response) error {
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var we wireError
	if err := json.Unmarshal(raw, &we); err == nil && we.Code != "" {
		return &StatusError{
			Code:       StatusCode(we.Code),
			Message:    we.Message,
			HTTPStatus: resp.StatusCode,
		}
	}
	return &StatusError{
		Code:       statusFromHTTP(resp.StatusCode),
		Message:    string(bytes.TrimSpace(raw)),
		HTTPStatus: resp.StatusCode,
	}
}
