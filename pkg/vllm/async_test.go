package vllm

import (
	"context"
	"testing"
	"time"

	"github.com/samcharles93/vllmc/internal/enginetest"
)

func TestStreamChannelDeliversAllChunks(t *testing.T) {
	t.Parallel()

	want := seqIDs(9)
	e := &enginetest.Engine{
		Default:   enginetest.Script{OutputIDs: want, PromptTokens: 2},
		ChunkSize: 2,
	}
	c := newTestClient(t, e)

	as, err := c.StreamChannel(context.Background(), &Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("stream channel: %v", err)
	}

	var got []int
	var sawUsage bool
	for chunk := range as.C() {
		got = append(got, chunk.Choices[0].DeltaTokenIDs...)
		if chunk.Usage != nil {
			sawUsage = true
		}
	}
	if err := as.Err(); err != nil {
		t.Fatalf("stream ended with error: %v", err)
	}
	if !sawUsage {
		t.Fatalf("terminal chunk with usage never delivered")
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order violated at %d: %v", i, got)
		}
	}
	final := as.FinalCompletion()
	if final == nil || final.Choices[0].FinishReason != FinishStop {
		t.Fatalf("unexpected final completion: %+v", final)
	}
}

func TestStreamChannelInterleavesStreams(t *testing.T) {
	t.Parallel()

	e := &enginetest.Engine{
		Default:   enginetest.Script{OutputIDs: seqIDs(20)},
		ChunkSize: 1,
	}
	c := newTestClient(t, e)

	ctx := context.Background()
	a, err := c.StreamChannel(ctx, &Request{Prompt: "a"})
	if err != nil {
		t.Fatalf("stream a: %v", err)
	}
	b, err := c.StreamChannel(ctx, &Request{Prompt: "b"})
	if err != nil {
		t.Fatalf("stream b: %v", err)
	}

	// One goroutine selects over both streams until each closes.
	counts := map[string]int{}
	aCh, bCh := a.C(), b.C()
	for aCh != nil || bCh != nil {
		select {
		case chunk, ok := <-aCh:
			if !ok {
				aCh = nil
				continue
			}
			counts[a.RequestID()] += len(chunk.Choices[0].DeltaTokenIDs)
		case chunk, ok := <-bCh:
			if !ok {
				bCh = nil
				continue
			}
			counts[b.RequestID()] += len(chunk.Choices[0].DeltaTokenIDs)
		}
	}
	if a.Err() != nil || b.Err() != nil {
		t.Fatalf("stream errors: %v, %v", a.Err(), b.Err())
	}
	if counts[a.RequestID()] != 20 || counts[b.RequestID()] != 20 {
		t.Fatalf("unexpected per-stream counts: %v", counts)
	}
}

func TestStreamChannelReportsFailure(t *testing.T) {
	t.Parallel()

	e := &enginetest.Engine{
		Default:         enginetest.Script{OutputIDs: seqIDs(10)},
		ChunkSize:       1,
		DisconnectAfter: 2,
	}
	c := newTestClient(t, e)

	as, err := c.StreamChannel(context.Background(), &Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("stream channel: %v", err)
	}

	var delivered int
	for chunk := range as.C() {
		delivered += len(chunk.Choices[0].DeltaTokenIDs)
	}
	if delivered != 2 {
		t.Fatalf("expected 2 chunks before the failure, got %d", delivered)
	}
	if KindOf(as.Err()) != KindStreamDisconnected {
		t.Fatalf("expected stream_disconnected, got %v", as.Err())
	}
	if as.FinalCompletion() != nil {
		t.Fatalf("no final completion after failure")
	}
}

func TestStreamChannelObservesCancellation(t *testing.T) {
	t.Parallel()

	e := &enginetest.Engine{
		Default:    enginetest.Script{OutputIDs: seqIDs(500)},
		ChunkSize:  1,
		ChunkDelay: 2 * time.Millisecond,
	}
	c := newTestClient(t, e)

	ctx, cancel := context.WithCancel(context.Background())
	as, err := c.StreamChannel(ctx, &Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("stream channel: %v", err)
	}

	// Take a few chunks, then stop consuming and cancel. The pump is
	// blocked on the unbuffered channel and must observe ctx at the yield
	// boundary, closing the channel instead of leaking.
	for i := 0; i < 3; i++ {
		if _, ok := <-as.C(); !ok {
			t.Fatalf("channel closed early")
		}
	}
	cancel()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-as.C():
			if !ok {
				if as.Err() == nil {
					t.Fatalf("expected a cancellation error")
				}
				return
			}
		case <-deadline:
			t.Fatalf("pump did not observe cancellation")
		}
	}
}

func TestStreamChannelCloseWithoutCancel(t *testing.T) {
	t.Parallel()

	e := &enginetest.Engine{
		Default:    enginetest.Script{OutputIDs: seqIDs(500)},
		ChunkSize:  1,
		ChunkDelay: 2 * time.Millisecond,
	}
	c := newTestClient(t, e)

	// Background context: only Close signals abandonment.
	as, err := c.StreamChannel(context.Background(), &Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("stream channel: %v", err)
	}
	if _, ok := <-as.C(); !ok {
		t.Fatalf("channel closed before first chunk")
	}
	if err := as.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := as.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	// No further receives. The pump must not stay parked on the
	// unbuffered send; it exits on its own and closes the channel.
	time.Sleep(200 * time.Millisecond)
	select {
	case chunk, ok := <-as.C():
		if ok {
			t.Fatalf("chunk delivered after close: %+v", chunk)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("channel still open after close")
	}
	if err := as.Err(); err != nil {
		t.Fatalf("caller-initiated close recorded an error: %v", err)
	}
}

func TestCompleteAsyncParity(t *testing.T) {
	t.Parallel()

	e := &enginetest.Engine{
		Default: enginetest.Script{OutputIDs: seqIDs(4), PromptTokens: 2},
	}
	c := newTestClient(t, e)
	ctx := context.Background()

	sync, err := c.Complete(ctx, &Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	future := c.CompleteAsync(ctx, &Request{Prompt: "x"})
	<-future.Done()
	async, err := future.Result()
	if err != nil {
		t.Fatalf("async complete: %v", err)
	}

	if len(async.Choices[0].TokenIDs) != len(sync.Choices[0].TokenIDs) {
		t.Fatalf("facade divergence: %v vs %v", async.Choices[0].TokenIDs, sync.Choices[0].TokenIDs)
	}
	if *async.Usage != *sync.Usage {
		t.Fatalf("usage divergence: %+v vs %+v", async.Usage, sync.Usage)
	}
}

func TestCompleteAsyncErrorParity(t *testing.T) {
	t.Parallel()

	c := New(Config{Host: "localhost", Port: 1})
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()
	bad := &Request{Prompt: "x", Sampling: SamplingParams{TopP: 2}}

	_, syncErr := c.Complete(ctx, bad)
	_, asyncErr := c.CompleteAsync(ctx, bad).Result()

	if KindOf(syncErr) != KindInvalidArgument || KindOf(asyncErr) != KindInvalidArgument {
		t.Fatalf("expected invalid_argument from both facades: %v, %v", syncErr, asyncErr)
	}
	if syncErr.Error() != asyncErr.Error() {
		t.Fatalf("facade messages differ: %q vs %q", syncErr, asyncErr)
	}
}

func TestStreamChannelMatchesBlockingFacade(t *testing.T) {
	t.Parallel()

	e := &enginetest.Engine{
		Default:   enginetest.Script{OutputIDs: seqIDs(8)},
		ChunkSize: 3,
	}
	c := newTestClient(t, e)
	ctx := context.Background()

	collectSync := func() []int {
		s, err := c.Stream(ctx, &Request{Prompt: "x"})
		if err != nil {
			t.Fatalf("stream: %v", err)
		}
		defer s.Close()
		var out []int
		for {
			chunk, err := s.Recv()
			if err != nil {
				return out
			}
			out = append(out, chunk.Choices[0].DeltaTokenIDs...)
		}
	}
	collectAsync := func() []int {
		as, err := c.StreamChannel(ctx, &Request{Prompt: "x"})
		if err != nil {
			t.Fatalf("stream channel: %v", err)
		}
		var out []int
		for chunk := range as.C() {
			out = append(out, chunk.Choices[0].DeltaTokenIDs...)
		}
		return out
	}

	a, b := collectSync(), collectAsync()
	if len(a) != len(b) {
		t.Fatalf("facade divergence: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("facade divergence at %d: %v vs %v", i, a, b)
		}
	}
}
