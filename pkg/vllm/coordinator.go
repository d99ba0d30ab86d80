package vllm

import (
	"context"
	"sort"
	"sync"

	"github.com/samcharles93/vllmc/internal/logger"
	"github.com/samcharles93/vllmc/pkg/vllm/transport"
)

// Coordinator tracks live request ids and issues out-of-band abort calls.
// It holds no token-level state and is safe to use from any goroutine,
// including concurrently with the stream consumption it interrupts.
type Coordinator struct {
	mu      sync.Mutex
	live    map[string]struct{}
	session transport.Session
	log     logger.Logger
}

func newCoordinator(session transport.Session, log logger.Logger) *Coordinator {
	return &Coordinator{
		live:    make(map[string]struct{}),
		session: session,
		log:     log,
	}
}

// Register records a request id as in flight.
func (c *Coordinator) Register(id string) {
	c.mu.Lock()
	c.live[id] = struct{}{}
	c.mu.Unlock()
}

// Deregister removes a request id. Idempotent: unknown ids are ignored.
func (c *Coordinator) Deregister(id string) {
	c.mu.Lock()
	delete(c.live, id)
	c.mu.Unlock()
}

// IsLive reports whether the id is registered and not yet terminal.
func (c *Coordinator) IsLive(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.live[id]
	return ok
}

// Live returns the registered ids, sorted.
func (c *Coordinator) Live() []string {
	c.mu.Lock()
	ids := make([]string, 0, len(c.live))
	for id := range c.live {
		ids = append(ids, id)
	}
	c.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Abort cancels the given requests server-side. Aborting an unknown or
// already-terminal id is a server-side no-op, and the race with natural
// completion is benign. Still-iterating streams for aborted ids observe a
// terminal chunk with FinishAbort through the normal chunk path.
func (c *Coordinator) Abort(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.session.Abort(ctx, ids); err != nil {
		return classify(err)
	}
	c.log.Debug("aborted", "request_ids", ids)
	return nil
}

// AbortLive cancels every registered request.
func (c *Coordinator) AbortLive(ctx context.Context) error {
	return c.Abort(ctx, c.Live()...)
}
