package transport

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func sseBody(events ...string) io.ReadCloser {
	var b strings.Builder
	for _, ev := range events {
		b.WriteString(ev)
	}
	return io.NopCloser(strings.NewReader(b.String()))
}

func TestSSEStreamRecv(t *testing.T) {
	t.Parallel()

	body := sseBody(
		"data: {\"chunk\":{\"token_ids\":[1,2],\"prompt_tokens\":3,\"completion_tokens\":2}}\n\n",
		": keepalive comment\n\n",
		"data: {\"complete\":{\"output_ids\":[],\"finish_reason\":\"stop\",\"prompt_tokens\":3,\"completion_tokens\":2}}\n\n",
		"data: [DONE]\n\n",
	)
	s := newSSEStream(body, func() {})

	first, err := s.Recv()
	if err != nil {
		t.Fatalf("recv chunk: %v", err)
	}
	if first.Chunk == nil || first.Complete != nil {
		t.Fatalf("expected chunk frame, got %+v", first)
	}
	if len(first.Chunk.TokenIDs) != 2 || first.Chunk.TokenIDs[0] != 1 {
		t.Fatalf("unexpected token ids: %v", first.Chunk.TokenIDs)
	}

	second, err := s.Recv()
	if err != nil {
		t.Fatalf("recv complete: %v", err)
	}
	if second.Complete == nil || second.Complete.FinishReason != "stop" {
		t.Fatalf("expected complete frame, got %+v", second)
	}

	if _, err := s.Recv(); err != io.EOF {
		t.Fatalf("expected io.EOF after done sentinel, got %v", err)
	}
}

func TestSSEStreamMultilineData(t *testing.T) {
	t.Parallel()

	body := sseBody(
		"data: {\"chunk\":{\"token_ids\":[7],\n",
		"data: \"completion_tokens\":1}}\n\n",
	)
	s := newSSEStream(body, func() {})

	resp, err := s.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if resp.Chunk == nil || resp.Chunk.TokenIDs[0] != 7 {
		t.Fatalf("unexpected frame: %+v", resp)
	}
}

func TestSSEStreamAbruptEOF(t *testing.T) {
	t.Parallel()

	body := sseBody("data: {\"chunk\":{\"token_ids\":[1]}}\n\n")
	s := newSSEStream(body, func() {})

	if _, err := s.Recv(); err != nil {
		t.Fatalf("recv: %v", err)
	}
	// Body ends without a complete frame or done sentinel.
	if _, err := s.Recv(); err != io.EOF {
		t.Fatalf("expected io.EOF on truncated body, got %v", err)
	}
}

func TestSSEStreamCloseIdempotent(t *testing.T) {
	t.Parallel()

	cancels := 0
	s := newSSEStream(sseBody(), func() { cancels++ })
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if cancels != 1 {
		t.Fatalf("cancel called %d times", cancels)
	}
}

func TestStatusFromHTTP(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		want   StatusCode
	}{
		{http.StatusBadRequest, StatusInvalidArgument},
		{http.StatusUnprocessableEntity, StatusInvalidArgument},
		{http.StatusNotImplemented, StatusUnimplemented},
		{http.StatusServiceUnavailable, StatusUnavailable},
		{http.StatusBadGateway, StatusUnavailable},
		{http.StatusGatewayTimeout, StatusDeadlineExceeded},
		{http.StatusRequestTimeout, StatusDeadlineExceeded},
		{http.StatusConflict, StatusAborted},
		{http.StatusInternalServerError, StatusInternal},
		{http.StatusTeapot, StatusUnknown},
	}
	for _, tc := range cases {
		if got := statusFromHTTP(tc.status); got != tc.want {
			t.Fatalf("statusFromHTTP(%d): got %s, want %s", tc.status, got, tc.want)
		}
	}
}

func TestStatusErrorMessage(t *testing.T) {
	t.Parallel()

	e := &StatusError{Code: StatusUnavailable, Message: "engine starting"}
	if got := e.Error(); got != "engine: UNAVAILABLE: engine starting" {
		t.Fatalf("unexpected error string: %q", got)
	}
	bare := &StatusError{Code: StatusInternal}
	if got := bare.Error(); got != "engine: INTERNAL" {
		t.Fatalf("unexpected bare error string: %q", got)
	}
}

func TestDeadlineHonorsCallerContext(t *testing.T) {
	t.Parallel()

	s := New(Options{Host: "localhost", Port: 1, Timeout: time.Second})

	// Without a caller deadline the session timeout applies.
	bare, cancel := s.deadline(context.Background())
	defer cancel()
	if _, ok := bare.Deadline(); !ok {
		t.Fatalf("expected session timeout to apply")
	}

	// A caller deadline is preserved, not replaced.
	far := time.Now().Add(time.Hour)
	ctx, cancel2 := context.WithDeadline(context.Background(), far)
	defer cancel2()
	got, cancel3 := s.deadline(ctx)
	defer cancel3()
	dl, ok := got.Deadline()
	if !ok || !dl.Equal(far) {
		t.Fatalf("caller deadline replaced: got %v, want %v", dl, far)
	}
}
