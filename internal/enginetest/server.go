// Package enginetest provides an in-process engine endpoint with scripted
// token output for exercising the client: streaming and unary generation,
// abort, fault injection and the status endpoints.
package enginetest

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/vllmc/pkg/vllm/transport"
)

// Script is the canned outcome for one generation.
type Script struct {
	OutputIDs    []int
	FinishReason string // defaults to "stop", or "length" when truncated
	PromptTokens int
	CachedTokens int
}

// Engine is a fake generation server. Configure it before Serve; the
// exported fields are read per request and must not change while requests
// are in flight.
type Engine struct {
	// Default is used when no prompt-specific script matches.
	Default Script

	// ChunkSize is how many token ids each streamed chunk carries.
	ChunkSize int

	// ChunkDelay paces streamed chunks so tests can abort mid-stream.
	ChunkDelay time.Duration

	// Delay stalls generation before the first byte of the response.
	Delay time.Duration

	// DisconnectAfter drops the connection after that many chunks without
	// a terminal frame. Zero disables injection.
	DisconnectAfter int

	// FailCode, when set, makes generation calls fail with this status.
	FailCode   transport.StatusCode
	FailStatus int

	ModelPath string

	mu       sync.Mutex
	scripts  map[string]Script
	aborted  map[string]bool
	abortLog [][]string
	active   int
	started  time.Time
}

// ScriptFor registers a script keyed by prompt text (or the original text of
// a tokenized prompt).
func (e *Engine) ScriptFor(prompt string, s Script) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scripts == nil {
		e.scripts = make(map[string]Script)
	}
	e.scripts[prompt] = s
}

// AbortCalls returns the id lists received on the abort endpoint, in order.
func (e *Engine) AbortCalls() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]string, len(e.abortLog))
	copy(out, e.abortLog)
	return out
}

// Aborted reports whether an abort for the id has been received.
func (e *Engine) Aborted(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aborted[id]
}

// Serve starts the engine on an ephemeral port. Returns the host and port to
// dial plus a shutdown func.
func Serve(e *Engine) (host string, port int, stop func()) {
	e.mu.Lock()
	e.started = time.Now()
	if e.aborted == nil {
		e.aborted = make(map[string]bool)
	}
	e.mu.Unlock()

	srv := httptest.NewServer(e.handler())
	h, p, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		panic(err)
	}
	n, _ := strconv.Atoi(p)
	return h, n, srv.Close
}

func (e *Engine) handler() http.Handler {
	ec := echo.New()
	ec.POST("/v1/generate", e.handleGenerate)
	ec.POST("/v1/abort", e.handleAbort)
	ec.GET("/v1/health", e.handleHealth)
	ec.GET("/v1/server", e.handleServer)
	ec.GET("/v1/model", e.handleModel)
	return ec
}

func (e *Engine) handleGenerate(c *echo.Context) error {
	var req transport.GenerateRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return writeStatus(c, http.StatusBadRequest, transport.StatusInvalidArgument, "malformed request body")
	}
	if req.RequestID == "" {
		return writeStatus(c, http.StatusBadRequest, transport.StatusInvalidArgument, "request_id is required")
	}
	if (req.Text == "") == (req.Tokenized == nil) {
		return writeStatus(c, http.StatusBadRequest, transport.StatusInvalidArgument, "exactly one of text or tokenized must be set")
	}
	if mt := req.SamplingParams.MaxTokens; mt != nil && *mt <= 0 {
		return writeStatus(c, http.StatusBadRequest, transport.StatusInvalidArgument, "max_tokens must be positive")
	}
	if e.FailCode != "" {
		status := e.FailStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return writeStatus(c, status, e.FailCode, "injected failure")
	}

	if e.Delay > 0 {
		time.Sleep(e.Delay)
	}

	script := e.lookup(&req)
	ids, finish := truncate(script, req.SamplingParams.MaxTokens)

	e.mu.Lock()
	e.active++
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.active--
		e.mu.Unlock()
	}()

	if !req.Stream {
		return c.JSON(http.StatusOK, &transport.GenerateComplete{
			OutputIDs:        ids,
			FinishReason:     finish,
			PromptTokens:     script.PromptTokens,
			CompletionTokens: len(ids),
			CachedTokens:     script.CachedTokens,
		})
	}
	return e.stream(c, &req, script, ids, finish)
}

func (e *Engine) stream(c *echo.Context, req *transport.GenerateRequest, script Script, ids []int, finish string) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	flusher, _ := res.(interface{ Flush() })
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	size := e.ChunkSize
	if size <= 0 {
		size = 1
	}

	sent := 0
	chunks := 0
	for sent < len(ids) {
		if e.isAborted(req.RequestID) {
			finish = "abort"
			break
		}
		if e.DisconnectAfter > 0 && chunks >= e.DisconnectAfter {
			// Drop mid-stream: no terminal frame, no done sentinel.
			return nil
		}
		end := sent + size
		if end > len(ids) {
			end = len(ids)
		}
		frame := &transport.GenerateResponse{Chunk: &transport.GenerateChunk{
			TokenIDs:         ids[sent:end],
			PromptTokens:     script.PromptTokens,
			CompletionTokens: end,
			CachedTokens:     script.CachedTokens,
		}}
		if err := writeEvent(res, frame); err != nil {
			return nil
		}
		flush()
		sent = end
		chunks++
		if e.ChunkDelay > 0 {
			time.Sleep(e.ChunkDelay)
		}
	}
	if e.isAborted(req.RequestID) {
		finish = "abort"
	}

	terminal := &transport.GenerateResponse{Complete: &transport.GenerateComplete{
		OutputIDs:        []int{},
		FinishReason:     finish,
		PromptTokens:     script.PromptTokens,
		CompletionTokens: sent,
		CachedTokens:     script.CachedTokens,
	}}
	if err := writeEvent(res, terminal); err != nil {
		return nil
	}
	flush()
	_, _ = fmt.Fprint(res, "data: [DONE]\n\n")
	flush()
	return nil
}

func (e *Engine) handleAbort(c *echo.Context) error {
	var req transport.AbortRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return writeStatus(c, http.StatusBadRequest, transport.StatusInvalidArgument, "malformed request body")
	}
	e.mu.Lock()
	if e.aborted == nil {
		e.aborted = make(map[string]bool)
	}
	for _, id := range req.RequestIDs {
		e.aborted[id] = true
	}
	e.abortLog = append(e.abortLog, req.RequestIDs)
	e.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]any{})
}

func (e *Engine) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, &transport.HealthStatus{Healthy: true})
}

func (e *Engine) handleServer(c *echo.Context) error {
	e.mu.Lock()
	active := e.active
	uptime := time.Since(e.started).Seconds()
	e.mu.Unlock()
	return c.JSON(http.StatusOK, &transport.ServerStatus{
		ActiveRequests:       active,
		LastReceiveTimestamp: float64(time.Now().Unix()),
		UptimeSeconds:        uptime,
		ServerType:           "enginetest",
	})
}

func (e *Engine) handleModel(c *echo.Context) error {
	path := e.ModelPath
	if path == "" {
		path = "enginetest/scripted"
	}
	return c.JSON(http.StatusOK, &transport.ModelCard{
		ModelPath:        path,
		IsGeneration:     true,
		MaxContextLength: 4096,
		VocabSize:        32000,
	})
}

func (e *Engine) lookup(req *transport.GenerateRequest) Script {
	key := req.Text
	if req.Tokenized != nil {
		key = req.Tokenized.OriginalText
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.scripts[key]; ok {
		return s
	}
	return e.Default
}

func (e *Engine) isAborted(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aborted[id]
}

func truncate(s Script, maxTokens *int) ([]int, string) {
	ids := s.OutputIDs
	finish := s.FinishReason
	if finish == "" {
		finish = "stop"
	}
	if maxTokens != nil && len(ids) > *maxTokens {
		ids = ids[:*maxTokens]
		finish = "length"
	}
	return ids, finish
}

func writeEvent(w io.Writer, frame *transport.GenerateResponse) error {
	b, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", b)
	return err
}

func writeStatus(c *echo.Context, status int, code transport.StatusCode, msg string) error {
	return c.JSON(status, map[string]any{
		"code":    string(code),
		"message": msg,
	})
}
