package protocol

import "time"

// GenerateRequest asks the reply service to draft replies over the bus.
type GenerateRequest struct {
	RequestID  string `json:"request_id,omitempty"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	Tone       string `json:"tone,omitempty"`
	Language   string `json:"language,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Regenerate bool   `json:"regenerate,omitempty"`
	// TraceID is the caller's trace, recorded on the bridge span.
	TraceID    string `json:"trace_id,omitempty"`
}

// GenerateResponse answers a GenerateRequest. Error is set when the model
// call failed; the other fields are then empty. A successful single-mode
// answer always carries Reply, possibly empty.
type GenerateResponse struct {
	RequestID string   `json:"request_id"`
	Summary   string   `json:"summary,omitempty"`
	Reply     *string  `json:"reply,omitempty"`
	Replies   []string `json:"replies,omitempty"`
	Error     string   `json:"error,omitempty"`
	LatencyMS int64    `json:"latency_ms"`
}

// ReplyGenerated is broadcast after every successful generation.
type ReplyGenerated struct {
	RequestID string    `json:"request_id"`
	Mode      string    `json:"mode"`
	Language  string    `json:"language"`
	Variants  int       `json:"variants"`
	LatencyMS int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectGenerateRequest = "reply.generate.request"
	SubjectReplyGenerated  = "reply.generated"
)
