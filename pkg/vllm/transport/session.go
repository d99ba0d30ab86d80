// Package transport provides the low-level session to a vLLM engine
// endpoint: unary generation, server-streamed generation, and the
// out-of-band abort control call. Higher-level request shaping, error
// classification and decoding live in pkg/vllm.
package transport

import "context"

// Session is one logical connection to an engine endpoint. All methods are
// safe for concurrent use; streaming, unary and control calls may be issued
// at the same time without external locking.
type Session interface {
	// Generate issues a non-streaming generation and blocks until the
	// terminal result arrives.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateComplete, error)

	// GenerateStream issues a streaming generation and returns the
	// response stream before the first chunk has arrived.
	GenerateStream(ctx context.Context, req *GenerateRequest) (ResponseStream, error)

	// Abort cancels in-flight requests by id. Unknown or already-terminal
	// ids are a server-side no-op.
	Abort(ctx context.Context, requestIDs []string) error

	HealthCheck(ctx context.Context) (*HealthStatus, error)
	ServerInfo(ctx context.Context) (*ServerStatus, error)
	ModelInfo(ctx context.Context) (*ModelCard, error)

	Close() error
}

// ResponseStream yields GenerateResponse frames in server-emission order.
// Recv returns io.EOF once the server closes the stream.
type ResponseStream interface {
	Recv() (*GenerateResponse, error)
	Close() error
}

// TokenizedInput carries a pre-tokenized prompt.
type TokenizedInput struct {
	OriginalText string `json:"original_text,omitempty"`
	InputIDs     []int  `json:"input_ids"`
}

// SamplingParams is the wire form of the sampling configuration. Pointer
// fields distinguish "unset" (server default) from an explicit zero.
type SamplingParams struct {
	Temperature       *float64 `json:"temperature,omitempty"`
	TopP              float64  `json:"top_p,omitempty"`
	TopK              int      `json:"top_k,omitempty"`
	MinP              float64  `json:"min_p,omitempty"`
	FrequencyPenalty  float64  `json:"frequency_penalty,omitempty"`
	PresencePenalty   float64  `json:"presence_penalty,omitempty"`
	RepetitionPenalty float64  `json:"repetition_penalty,omitempty"`
	MaxTokens         *int     `json:"max_tokens,omitempty"`
	MinTokens         int      `json:"min_tokens,omitempty"`
	Stop              []string `json:"stop,omitempty"`
	StopTokenIDs      []int    `json:"stop_token_ids,omitempty"`
	SkipSpecialTokens bool     `json:"skip_special_tokens"`
	IgnoreEOS         bool     `json:"ignore_eos,omitempty"`
	N                 int      `json:"n,omitempty"`
	Seed              *int64   `json:"seed,omitempty"`

	LogitBias map[int]float32 `json:"logit_bias,omitempty"`

	// Structured output constraint. At most one is set.
	JSONSchema    string            `json:"json_schema,omitempty"`
	Regex         string            `json:"regex,omitempty"`
	Grammar       string            `json:"grammar,omitempty"`
	StructuralTag string            `json:"structural_tag,omitempty"`
	JSONObject    bool              `json:"json_object,omitempty"`
	Choice        *ChoiceConstraint `json:"choice,omitempty"`
}

// ChoiceConstraint restricts output to one of a fixed set of strings.
type ChoiceConstraint struct {
	Choices []string `json:"choices"`
}

// GenerateRequest is the wire request. Exactly one of Text or Tokenized is
// set.
type GenerateRequest struct {
	RequestID      string          `json:"request_id"`
	Text           string          `json:"text,omitempty"`
	Tokenized      *TokenizedInput `json:"tokenized,omitempty"`
	SamplingParams SamplingParams  `json:"sampling_params"`
	Stream         bool            `json:"stream,omitempty"`
}

// GenerateChunk is one streamed increment of output token ids.
type GenerateChunk struct {
	TokenIDs         []int `json:"token_ids"`
	PromptTokens     int   `json:"prompt_tokens"`
	CompletionTokens int   `json:"completion_tokens"`
	CachedTokens     int   `json:"cached_tokens,omitempty"`
}

// GenerateComplete is the terminal frame of a generation. For streaming
// requests OutputIDs holds only ids not yet delivered in a chunk.
type GenerateComplete struct {
	OutputIDs        []int  `json:"output_ids"`
	FinishReason     string `json:"finish_reason,omitempty"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	CachedTokens     int    `json:"cached_tokens,omitempty"`
}

// GenerateResponse is the streamed frame: exactly one of Chunk or Complete
// is set. The stream carries zero or more chunks followed by one complete.
type GenerateResponse struct {
	Chunk    *GenerateChunk    `json:"chunk,omitempty"`
	Complete *GenerateComplete `json:"complete,omitempty"`
}

// AbortRequest cancels the listed request ids.
type AbortRequest struct {
	RequestIDs []string `json:"request_ids"`
}

type HealthStatus struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

type ServerStatus struct {
	ActiveRequests       int     `json:"active_requests"`
	IsPaused             bool    `json:"is_paused"`
	LastReceiveTimestamp float64 `json:"last_receive_timestamp"`
	UptimeSeconds        float64 `json:"uptime_seconds"`
	ServerType           string  `json:"server_type"`
}

type ModelCard struct {
	ModelPath        string `json:"model_path"`
	IsGeneration     bool   `json:"is_generation"`
	MaxContextLength int    `json:"max_context_length"`
	VocabSize        int    `json:"vocab_size"`
	SupportsVision   bool   `json:"supports_vision"`
}
