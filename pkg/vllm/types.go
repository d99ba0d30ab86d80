// Package vllm is a client runtime for a vLLM-style token-generation
// engine. The engine streams integer token ids; decoding ids to text is an
// explicit caller step via pkg/detok and pkg/vocab.
package vllm

// FinishReason records why a choice stopped producing tokens. Abort is a
// normal terminal state, not a failure.
type FinishReason string

const (
	FinishNone   FinishReason = ""
	FinishStop   FinishReason = "stop"
	FinishLength FinishReason = "length"
	FinishAbort  FinishReason = "abort"
)

// StructuredOutputs constrains generation. Exactly one field may be set.
type StructuredOutputs struct {
	JSONSchema    string
	Regex         string
	Grammar       string
	StructuralTag string
	JSONObject    bool
	Choice        []string
}

// SamplingParams controls generation. Pointer fields distinguish "unset"
// (server default) from an explicit zero; unset numeric fields resolve to
// the documented defaults at request finalization.
type SamplingParams struct {
	Temperature *float64 // server default when nil
	TopP        float64  // nucleus sampling, (0,1]; 0 resolves to 1.0
	TopK        int      // 0 disables
	MinP        float64

	FrequencyPenalty  float64 // [-2, 2]
	PresencePenalty   float64 // [-2, 2]
	RepetitionPenalty float64 // 0 resolves to 1.0 (no penalty)

	MaxTokens *int // > 0 when set
	MinTokens int

	Stop         []string
	StopTokenIDs []int

	SkipSpecialTokens *bool // defaults to true
	IgnoreEOS         bool
	N                 int // parallel samples, 0 resolves to 1

	Seed      *int64
	LogitBias map[int]float32

	StructuredOutputs *StructuredOutputs
}

// Request describes one generation. Exactly one of Prompt or InputIDs is
// set. Immutable once issued; the client never mutates a caller's Request.
type Request struct {
	Prompt   string
	InputIDs []int
	// OriginalText optionally accompanies InputIDs for server-side
	// debugging. Ignored when Prompt is set.
	OriginalText string

	Sampling SamplingParams

	// RequestID is assigned by the client when empty ("cmpl-" prefix).
	// It is the handle the Coordinator aborts by.
	RequestID string
}

// Usage is token accounting for a finished generation.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CachedTokens     int
}

// Choice is one candidate output sequence of a completion.
type Choice struct {
	Index        int
	TokenIDs     []int
	FinishReason FinishReason
}

// Completion is the terminal result of a generation: token ids only.
type Completion struct {
	ID      string
	Model   string
	Created int64
	Choices []Choice
	Usage   *Usage
}

// ChunkChoice is one choice slot's increment within a streamed chunk.
// DeltaTokenIDs may be empty.
type ChunkChoice struct {
	Index         int
	DeltaTokenIDs []int
	FinishReason  FinishReason
}

// Chunk is one increment of a streamed generation. Usage is present only on
// the terminal chunk. Concatenating DeltaTokenIDs across chunks in arrival
// order reproduces the unary result for equivalent sampling.
type Chunk struct {
	ID      string
	Model   string
	Choices []ChunkChoice
	Usage   *Usage
}

// HealthStatus reports engine liveness.
type HealthStatus struct {
	Healthy bool
	Message string
}

// ServerInfo is read-only engine status.
type ServerInfo struct {
	ActiveRequests       int
	IsPaused             bool
	LastReceiveTimestamp float64
	UptimeSeconds        float64
	ServerType           string
}

// ModelInfo describes the model the engine serves.
type ModelInfo struct {
	ModelPath        string
	IsGeneration     bool
	MaxContextLength int
	VocabSize        int
	SupportsVision   bool
}
