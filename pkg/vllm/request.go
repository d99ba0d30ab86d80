package vllm

import (
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/samcharles93/vllmc/pkg/vllm/transport"
)

// NewRequestID returns a fresh client-assigned request id.
func NewRequestID() string {
	id := uuid.New()
	return "cmpl-" + hex.EncodeToString(id[:])[:24]
}

// finalize validates the request against the documented invariants, fills
// defaults, and produces the wire request. The caller's Request is not
// mutated; the assigned id is returned alongside.
func (r *Request) finalize(stream bool) (*transport.GenerateRequest, string, error) {
	hasPrompt := r.Prompt != ""
	hasIDs := len(r.InputIDs) > 0
	if hasPrompt == hasIDs {
		if hasPrompt {
			return nil, "", invalidArgument("exactly one of Prompt or InputIDs may be set")
		}
		return nil, "", invalidArgument("request requires a Prompt or InputIDs")
	}

	sp, err := r.Sampling.resolve()
	if err != nil {
		return nil, "", err
	}

	id := r.RequestID
	if id == "" {
		id = NewRequestID()
	}

	wreq := &transport.GenerateRequest{
		RequestID:      id,
		SamplingParams: sp,
		Stream:         stream,
	}
	if hasPrompt {
		wreq.Text = r.Prompt
	} else {
		wreq.Tokenized = &transport.TokenizedInput{
			OriginalText: r.OriginalText,
			InputIDs:     r.InputIDs,
		}
	}
	return wreq, id, nil
}

// resolve checks invariants and applies defaults, returning the wire form.
func (p SamplingParams) resolve() (transport.SamplingParams, error) {
	var zero transport.SamplingParams

	if p.MaxTokens != nil && *p.MaxTokens <= 0 {
		return zero, invalidArgument("max_tokens must be > 0, got %d", *p.MaxTokens)
	}
	if p.TopP < 0 || p.TopP > 1 {
		return zero, invalidArgument("top_p must be in [0, 1], got %g", p.TopP)
	}
	if p.TopK < 0 {
		return zero, invalidArgument("top_k must be >= 0, got %d", p.TopK)
	}
	if p.MinP < 0 || p.MinP > 1 {
		return zero, invalidArgument("min_p must be in [0, 1], got %g", p.MinP)
	}
	if p.FrequencyPenalty < -2 || p.FrequencyPenalty > 2 {
		return zero, invalidArgument("frequency_penalty must be in [-2, 2], got %g", p.FrequencyPenalty)
	}
	if p.PresencePenalty < -2 || p.PresencePenalty > 2 {
		return zero, invalidArgument("presence_penalty must be in [-2, 2], got %g", p.PresencePenalty)
	}
	if p.RepetitionPenalty < 0 {
		return zero, invalidArgument("repetition_penalty must be >= 0, got %g", p.RepetitionPenalty)
	}
	if p.MinTokens < 0 {
		return zero, invalidArgument("min_tokens must be >= 0, got %d", p.MinTokens)
	}
	if p.N < 0 {
		return zero, invalidArgument("n must be >= 0, got %d", p.N)
	}

	sp := transport.SamplingParams{
		Temperature:       p.Temperature,
		TopP:              p.TopP,
		TopK:              p.TopK,
		MinP:              p.MinP,
		FrequencyPenalty:  p.FrequencyPenalty,
		PresencePenalty:   p.PresencePenalty,
		RepetitionPenalty: p.RepetitionPenalty,
		MaxTokens:         p.MaxTokens,
		MinTokens:         p.MinTokens,
		Stop:              p.Stop,
		StopTokenIDs:      p.StopTokenIDs,
		SkipSpecialTokens: true,
		IgnoreEOS:         p.IgnoreEOS,
		N:                 p.N,
		Seed:              p.Seed,
		LogitBias:         p.LogitBias,
	}
	if p.SkipSpecialTokens != nil {
		sp.SkipSpecialTokens = *p.SkipSpecialTokens
	}
	if sp.TopP == 0 {
		sp.TopP = 1.0
	}
	if sp.RepetitionPenalty == 0 {
		sp.RepetitionPenalty = 1.0
	}
	if sp.N == 0 {
		sp.N = 1
	}

	if so := p.StructuredOutputs; so != nil {
		set := 0
		if so.JSONSchema != "" {
			sp.JSONSchema = so.JSONSchema
			set++
		}
		if so.Regex != "" {
			sp.Regex = so.Regex
			set++
		}
		if so.Grammar != "" {
			sp.Grammar = so.Grammar
			set++
		}
		if so.StructuralTag != "" {
			sp.StructuralTag = so.StructuralTag
			set++
		}
		if so.JSONObject {
			sp.JSONObject = true
			set++
		}
		if len(so.Choice) > 0 {
			sp.Choice = &transport.ChoiceConstraint{Choices: so.Choice}
			set++
		}
		if set > 1 {
			return zero, invalidArgument("structured_outputs: at most one constraint may be set")
		}
	}
	return sp, nil
}
