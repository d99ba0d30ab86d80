package vllm

import (
	"io"
	"time"

	"github.com/samcharles93/vllmc/pkg/vllm/transport"
)

// Stream is the blocking handle over one streamed generation. It is not
// restartable and yields each chunk at most once; Recv returns io.EOF after
// the terminal chunk and a classified error on failure. A Stream is owned
// by one consumer; aborting from elsewhere goes through the Coordinator.
type Stream struct {
	client *Client
	rs     transport.ResponseStream
	id     string
	model  string

	accumulated      []int
	promptTokens     int
	completionTokens int
	cachedTokens     int

	final *Completion
	done  bool
	err   error
}

func newStream(c *Client, rs transport.ResponseStream, id string) *Stream {
	return &Stream{
		client: c,
		rs:     rs,
		id:     id,
		model:  c.modelName(),
	}
}

// RequestID is the handle the Coordinator aborts by.
func (s *Stream) RequestID() string { return s.id }

// Recv returns the next chunk in arrival order. After the terminal chunk it
// returns io.EOF. A failure is returned at the iteration step where it
// occurred and is sticky; chunks already delivered remain valid.
func (s *Stream) Recv() (*Chunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.done {
		return nil, io.EOF
	}

	resp, err := s.rs.Recv()
	if err == io.EOF {
		// Server closed without a terminal frame.
		return nil, s.fail(&Error{
			Kind:    KindStreamDisconnected,
			Message: "stream closed before terminal chunk",
			Cause:   io.ErrUnexpectedEOF,
		})
	}
	if err != nil {
		err = classifyStream(err)
		if KindOf(err) == KindTimeout {
			s.client.abortAsync(s.id)
		}
		return nil, s.fail(err)
	}
	return s.apply(resp), nil
}

// Close abandons the stream. Safe after EOF or failure; the request is
// deregistered and transport resources released. It does not abort the
// server-side generation; use the Coordinator for that.
func (s *Stream) Close() error {
	if !s.done && s.err == nil {
		s.client.coord.Deregister(s.id)
	}
	return s.rs.Close()
}

// FinalCompletion returns the accumulated terminal result, or nil while the
// stream is still in flight or after a failure.
func (s *Stream) FinalCompletion() *Completion {
	return s.final
}

func (s *Stream) apply(resp *transport.GenerateResponse) *Chunk {
	switch {
	case resp.Chunk != nil:
		ch := resp.Chunk
		s.accumulated = append(s.accumulated, ch.TokenIDs...)
		s.promptTokens = ch.PromptTokens
		s.completionTokens += len(ch.TokenIDs)
		if ch.CachedTokens > 0 {
			s.cachedTokens = ch.CachedTokens
		}
		return &Chunk{
			ID:    s.id,
			Model: s.model,
			Choices: []ChunkChoice{{
				Index:         0,
				DeltaTokenIDs: ch.TokenIDs,
			}},
		}

	case resp.Complete != nil:
		return s.terminal(resp.Complete)

	default:
		// Unknown frame: an empty delta keeps ordering intact.
		return &Chunk{
			ID:      s.id,
			Model:   s.model,
			Choices: []ChunkChoice{{Index: 0}},
		}
	}
}

// terminal folds the complete frame into the final chunk and completion.
// Abort arrives here as finish_reason "abort": a normal terminal state on
// the same path as natural completion.
func (s *Stream) terminal(complete *transport.GenerateComplete) *Chunk {
	finish := FinishReason(complete.FinishReason)
	if finish == FinishNone {
		finish = FinishStop
	}

	prompt := complete.PromptTokens
	if prompt == 0 {
		prompt = s.promptTokens
	}
	cached := complete.CachedTokens
	if cached == 0 {
		cached = s.cachedTokens
	}
	completion := s.completionTokens + len(complete.OutputIDs)
	usage := &Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
		CachedTokens:     cached,
	}

	s.accumulated = append(s.accumulated, complete.OutputIDs...)
	s.final = &Completion{
		ID:      s.id,
		Model:   s.model,
		Created: time.Now().Unix(),
		Choices: []Choice{{
			Index:        0,
			TokenIDs:     s.accumulated,
			FinishReason: finish,
		}},
		Usage: usage,
	}

	s.done = true
	s.client.coord.Deregister(s.id)
	_ = s.rs.Close()

	return &Chunk{
		ID:    s.id,
		Model: s.model,
		Choices: []ChunkChoice{{
			Index:         0,
			DeltaTokenIDs: complete.OutputIDs,
			FinishReason:  finish,
		}},
		Usage: usage,
	}
}

func (s *Stream) fail(err error) error {
	s.err = err
	s.client.coord.Deregister(s.id)
	_ = s.rs.Close()
	return err
}
