package vllm

import (
	"context"
	"time"
)

// Complete issues a non-streaming generation and blocks until the terminal
// result or a transport failure. The result carries token ids only;
// decoding to text is the caller's explicit step.
func (c *Client) Complete(ctx context.Context, req *Request) (*Completion, error) {
	wreq, id, err := req.finalize(false)
	if err != nil {
		return nil, err
	}

	c.coord.Register(id)
	defer c.coord.Deregister(id)

	complete, err := c.session.Generate(ctx, wreq)
	if err != nil {
		err = classify(err)
		if KindOf(err) == KindTimeout {
			c.abortAsync(id)
		}
		return nil, err
	}

	finish := FinishReason(complete.FinishReason)
	if finish == FinishNone {
		finish = FinishStop
	}
	return &Completion{
		ID:      id,
		Model:   c.modelName(),
		Created: time.Now().Unix(),
		Choices: []Choice{{
			Index:        0,
			TokenIDs:     complete.OutputIDs,
			FinishReason: finish,
		}},
		Usage: &Usage{
			PromptTokens:     complete.PromptTokens,
			CompletionTokens: complete.CompletionTokens,
			TotalTokens:      complete.PromptTokens + complete.CompletionTokens,
			CachedTokens:     complete.CachedTokens,
		},
	}, nil
}

// Stream issues a streaming generation and returns the handle before any
// chunk has arrived. Chunks are received in server-emission order via
// Stream.Recv.
func (c *Client) Stream(ctx context.Context, req *Request) (*Stream, error) {
	wreq, id, err := req.finalize(true)
	if err != nil {
		return nil, err
	}

	c.coord.Register(id)
	rs, err := c.session.GenerateStream(ctx, wreq)
	if err != nil {
		c.coord.Deregister(id)
		err = classify(err)
		if KindOf(err) == KindTimeout {
			c.abortAsync(id)
		}
		return nil, err
	}
	return newStream(c, rs, id), nil
}
