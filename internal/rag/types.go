package rag

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is returned for requests the engine cannot run.
var ErrInvalidRequest = errors.New("invalid ask request")

// Mode selects the answer instructions. Citation bookkeeping is identical in both.
type Mode string

const (
	// ModeGrounded restricts the answer to facts stated in the passages.
	ModeGrounded Mode = "grounded"
	// ModeExploratory allows labelled speculation beyond the passages.
	ModeExploratory Mode = "exploratory"
)

// ParseMode maps "" to ModeGrounded and rejects unknown modes.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeGrounded:
		return ModeGrounded, nil
	case ModeExploratory:
		return ModeExploratory, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, s)
	}
}

// Abstain reasons.
const (
	ReasonNoRelevantContext   = "no_relevant_context"
	ReasonUpstreamUnavailable = "upstream_unavailable"
)

// AskRequest represents a RAG query request.
type AskRequest struct {
	// Question is the user's question to answer.
	Question string `json:"question"`
	// Mode is "grounded" (default) or "exploratory".
	Mode string `json:"mode,omitempty"`
	// K is the number of passages to keep. Zero uses the configured default.
	K int `json:"k,omitempty"`
	// FetchK is the candidate pool size. It is raised to K when smaller.
	FetchK int `json:"fetch_k,omitempty"`
	// ScoreFloor overrides the configured relevance floor when set.
	ScoreFloor *float32 `json:"score_floor,omitempty"`
	// DocType restricts retrieval to one document type.
	DocType string `json:"doc_type,omitempty"`
	// MaxRecords caps the experiment records included in the prompt.
	MaxRecords int `json:"max_records,omitempty"`
	// Debug enables debug mode, returning detailed retrieval information.
	Debug bool `json:"debug,omitempty"`
}

// Passage is one retrieved chunk with its display metadata.
type Passage struct {
	ID            string  `json:"id"`
	TracingNumber int     `json:"tracing_number"`
	Title         string  `json:"title"`
	Filename      string  `json:"filename"`
	Page          string  `json:"page"`
	DocType       string  `json:"doc_type"`
	ChunkIndex    int     `json:"chunk_index"`
	Text          string  `json:"text"`
	Score         float32 `json:"score"`
}

// Citation maps a prompt label to a distinct (filename, page) source.
type Citation struct {
	Label         int    `json:"label"`
	Title         string `json:"title"`
	Source        string `json:"source"`
	Page          string `json:"page"`
	TracingNumber int    `json:"tracing_number"`
	Snippet       string `json:"snippet"`
	// Referenced reports whether the answer text cites this label.
	Referenced bool `json:"referenced"`
}

// Record is an experiment record offered to the prompt.
type Record struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// AskResponse represents the response from a RAG query.
type AskResponse struct {
	// Answer is the generated answer, or an explanation when Abstained.
	Answer string `json:"answer"`
	// Citations are listed in label order. Empty when Abstained.
	Citations []Citation `json:"citations"`
	// Records are the experiment record IDs included in the prompt.
	Records []string `json:"records,omitempty"`
	Mode    Mode     `json:"mode"`
	// Abstained is true when no answer was generated.
	Abstained     bool   `json:"abstained"`
	AbstainReason string `json:"abstain_reason,omitempty"`
	// Debug contains retrieval details when debug mode is enabled.
	Debug *DebugInfo `json:"debug,omitempty"`
}

// DebugInfo contains detailed retrieval information for debugging and evaluation.
type DebugInfo struct {
	RetrievedChunks []RetrievedChunk `json:"retrieved_chunks"`
	K               int              `json:"k"`
	FetchK          int              `json:"fetch_k"`
	ScoreFloor      float32          `json:"score_floor"`
}

// RetrievedChunk represents a retrieved chunk with scoring information.
type RetrievedChunk struct {
	ChunkID  string  `json:"chunk_id"`
	Filename string  `json:"filename"`
	Page     string  `json:"page"`
	Score    float32 `json:"score"`
	// Rank is the position after diversity selection (1-based).
	Rank int    `json:"rank"`
	Text string `json:"text"`
}
