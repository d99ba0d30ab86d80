package vllm

import (
	"context"
	"errors"
	"io"
	"sync"
)

// AsyncStream delivers chunks over a channel so many streams can interleave
// on one goroutine via select. Cancellation is observed at each yield
// boundary: the pump never mutates consumer state from outside.
type AsyncStream struct {
	s    *Stream
	ch   chan *Chunk
	done chan struct{}

	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

// StreamChannel starts a streamed generation and pumps its chunks into an
// unbuffered channel, preserving backpressure: the producer blocks until
// the consumer takes each chunk. The channel closes after the terminal
// chunk, on failure, or when ctx ends; consult Err afterwards.
func (c *Client) StreamChannel(ctx context.Context, req *Request) (*AsyncStream, error) {
	s, err := c.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	as := &AsyncStream{
		s:    s,
		ch:   make(chan *Chunk),
		done: make(chan struct{}),
	}
	go as.pump(ctx)
	return as, nil
}

// C is the chunk channel. It is closed when the stream ends for any reason.
func (as *AsyncStream) C() <-chan *Chunk { return as.ch }

// RequestID is the handle the Coordinator aborts by.
func (as *AsyncStream) RequestID() string { return as.s.RequestID() }

// Err reports how the stream ended. Nil means the terminal chunk was
// delivered or the caller closed the stream. Valid once C is closed.
func (as *AsyncStream) Err() error {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.err
}

// FinalCompletion returns the accumulated terminal result once C is closed
// with a nil Err.
func (as *AsyncStream) FinalCompletion() *Completion {
	return as.s.FinalCompletion()
}

// Close abandons the stream. The pump exits even when the consumer has
// stopped receiving, and C closes shortly after.
func (as *AsyncStream) Close() error {
	as.closeOnce.Do(func() { close(as.done) })
	return as.s.Close()
}

func (as *AsyncStream) pump(ctx context.Context) {
	defer close(as.ch)
	for {
		chunk, err := as.s.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) && !as.closed() {
				as.setErr(err)
			}
			return
		}
		select {
		case as.ch <- chunk:
		case <-as.done:
			return
		case <-ctx.Done():
			_ = as.s.Close()
			err := ctx.Err()
			if errors.Is(err, context.DeadlineExceeded) {
				as.s.client.abortAsync(as.s.RequestID())
			}
			as.setErr(classifyStream(err))
			return
		}
	}
}

// closed reports whether Close has been called.
func (as *AsyncStream) closed() bool {
	select {
	case <-as.done:
		return true
	default:
		return false
	}
}

func (as *AsyncStream) setErr(err error) {
	as.mu.Lock()
	as.err = err
	as.mu.Unlock()
}

// CompletionFuture is the suspension-point form of Complete: the result is
// ready when Done is closed.
type CompletionFuture struct {
	done chan struct{}
	c    *Completion
	err  error
}

// CompleteAsync issues a non-streaming generation without blocking the
// caller. Any number of futures may be awaited from one goroutine.
func (c *Client) CompleteAsync(ctx context.Context, req *Request) *CompletionFuture {
	f := &CompletionFuture{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.c, f.err = c.Complete(ctx, req)
	}()
	return f
}

// Done is closed once the result is available.
func (f *CompletionFuture) Done() <-chan struct{} { return f.done }

// Result blocks until the completion or error is available. The error kinds
// and messages match the blocking facade exactly.
func (f *CompletionFuture) Result() (*Completion, error) {
	<-f.done
	return f.c, f.err
}
