package completion

// #region imports
import (
	"context"
	"errors"
)

// #endregion

// #region errors

// Error taxonomy for the completion capability. All three are fatal to the
// turn in progress; the engine never substitutes defaults for them.
var (
	// ErrMalformedOutput means a stage result failed schema validation.
	ErrMalformedOutput = errors.New("malformed completion output")
	// ErrUnavailable means the completion capability could not be reached.
	ErrUnavailable = errors.New("completion capability unavailable")
	// ErrTimeout means the completion call exceeded its deadline.
	ErrTimeout = errors.New("completion call timed out")
)

// #endregion

// #region kinds

// Kind identifies which pipeline stage a completion request serves.
type Kind string

const (
	KindRespond        Kind = "respond"
	KindQuestCheck     Kind = "quest_check"
	KindMilestoneCheck Kind = "milestone_check"
	KindProfile        Kind = "profile"
	KindMemory         Kind = "memory"
	KindWorldview      Kind = "worldview"
	KindDetails        Kind = "details"
)

// #endregion

// #region request-result

// Message is one prior utterance passed as chat history.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Request is a structured completion request from one pipeline stage.
type Request struct {
	Kind     Kind
	System   string
	History  []Message // prior turns, respond stage only
	User     string
	WantJSON bool
}

// Result is the raw completion output; stages own schema parsing.
type Result struct {
	Text string
}

// #endregion

// #region port

// Port is the external text-generation capability consumed by every stage.
// Implementations must honor ctx cancellation and deadlines.
type Port interface {
	Complete(ctx context.Context, req Request) (Result, error)
}

// Embedder produces vector embeddings for recall indexing.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// #endregion
