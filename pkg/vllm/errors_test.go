package vllm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/vllmc/pkg/detok"
	"github.com/samcharles93/vllmc/pkg/vllm/transport"
	"github.com/samcharles93/vllmc/pkg/vocab"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		in        error
		wantKind  ErrorKind
		retryable bool
	}{
		{
			name:      "status unavailable",
			in:        &transport.StatusError{Code: transport.StatusUnavailable, Message: "starting"},
			wantKind:  KindConnection,
			retryable: true,
		},
		{
			name:      "status deadline",
			in:        &transport.StatusError{Code: transport.StatusDeadlineExceeded},
			wantKind:  KindTimeout,
			retryable: true,
		},
		{
			name:     "status invalid argument",
			in:       &transport.StatusError{Code: transport.StatusInvalidArgument, Message: "bad top_p"},
			wantKind: KindInvalidArgument,
		},
		{
			name:     "status unimplemented",
			in:       &transport.StatusError{Code: transport.StatusUnimplemented},
			wantKind: KindUnimplemented,
		},
		{
			name:     "status internal",
			in:       &transport.StatusError{Code: transport.StatusInternal},
			wantKind: KindInternal,
		},
		{
			name:     "status unrecognized",
			in:       &transport.StatusError{Code: "SOMETHING_NEW"},
			wantKind: KindUnknown,
		},
		{
			name:      "wrapped deadline",
			in:        fmt.Errorf("round trip: %w", context.DeadlineExceeded),
			wantKind:  KindTimeout,
			retryable: true,
		},
		{
			name:      "net op error",
			in:        &net.OpError{Op: "dial", Err: errors.New("connection refused")},
			wantKind:  KindConnection,
			retryable: true,
		},
		{
			name:     "missing vocabulary",
			in:       detok.ErrNoVocab,
			wantKind: KindDecoderUnavailable,
		},
		{
			name:     "missing tokenizer artifact",
			in:       fmt.Errorf("%w: /models/x", vocab.ErrUnavailable),
			wantKind: KindDecoderUnavailable,
		},
		{
			name:     "foreign error",
			in:       errors.New("mystery"),
			wantKind: KindUnknown,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := classify(tc.in)
			ve, ok := AsError(err)
			require.True(t, ok, "classify must produce a typed error")
			assert.Equal(t, tc.wantKind, ve.Kind)
			assert.Equal(t, tc.retryable, ve.Retryable())
			assert.ErrorIs(t, err, tc.in, "cause must remain unwrappable")
		})
	}
}

func TestClassifyPassesThroughCancellation(t *testing.T) {
	t.Parallel()

	err := classify(fmt.Errorf("read: %w", context.Canceled))
	assert.ErrorIs(t, err, context.Canceled)
	_, typed := AsError(err)
	assert.False(t, typed, "caller cancellation must not be reclassified")

	serr := classifyStream(context.Canceled)
	assert.ErrorIs(t, serr, context.Canceled)
}

func TestClassifyStream(t *testing.T) {
	t.Parallel()

	err := classifyStream(errors.New("unexpected EOF"))
	ve, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindStreamDisconnected, ve.Kind)
	assert.False(t, ve.Retryable())

	terr := classifyStream(fmt.Errorf("read: %w", context.DeadlineExceeded))
	tve, ok := AsError(terr)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, tve.Kind)
	assert.True(t, tve.Retryable())
}

func TestClassifyIdempotent(t *testing.T) {
	t.Parallel()

	orig := invalidArgument("top_p out of range")
	assert.Same(t, orig, classify(orig))
	assert.Same(t, orig, classifyStream(orig))
	assert.Nil(t, classify(nil))
	assert.Nil(t, classifyStream(nil))
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindInvalidArgument, KindOf(invalidArgument("x")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("foreign")))

	wrapped := fmt.Errorf("outer: %w", &Error{Kind: KindTimeout})
	assert.Equal(t, KindTimeout, KindOf(wrapped))

	assert.Equal(t, KindDecoderUnavailable, KindOf(Classify(detok.ErrNoVocab)))
}

func TestErrorString(t *testing.T) {
	t.Parallel()

	e := &Error{Kind: KindConnection, Message: "engine unreachable"}
	assert.Equal(t, "vllm: engine unreachable", e.Error())

	bare := &Error{Kind: KindTimeout}
	assert.Equal(t, "vllm: timeout", bare.Error())
}
