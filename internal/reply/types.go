package reply

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Mode selects between a single reply and three reply variants.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

// DefaultLanguage is used when a request carries no language.
const DefaultLanguage = "en"

const (
	// FillerReply pads a multi-reply result that came back short.
	FillerReply = "Thank you for your message. I will review and respond shortly."
	// FallbackSummary replaces an empty multi-reply summary.
	FallbackSummary = "Generated professional email responses based on the provided content and tone preferences."
	// MissingSummary replaces an empty single-reply summary.
	MissingSummary = "Summary not available"

	maxSummaryLen = 200
	ellipsis      = "..."

	replyCount = 3
)

// Request describes an inbound email to draft replies for.
type Request struct {
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	Tone       string `json:"tone,omitempty"`
	Language   string `json:"language,omitempty"`
	Mode       Mode   `json:"mode"`
	Regenerate bool   `json:"regenerate,omitempty"`
}

// ResolvedLanguage returns the request language, defaulting to "en".
func (r Request) ResolvedLanguage() string {
	if strings.TrimSpace(r.Language) == "" {
		return DefaultLanguage
	}
	return r.Language
}

// Result holds the decoded model output. Single mode fills Reply, multi
// mode fills Replies with exactly three entries.
type Result struct {
	Mode    Mode     `json:"-"`
	Summary string   `json:"summary"`
	Reply   string   `json:"reply"`
	Replies []string `json:"replies"`
}

// SingleReply is the wire shape of a single-mode result. Reply is always
// present, even when the model answered with nothing.
type SingleReply struct {
	Summary string `json:"summary"`
	Reply   string `json:"reply"`
}

// MultiReply is the wire shape of a multi-mode result.
type MultiReply struct {
	Summary string   `json:"summary"`
	Replies []string `json:"replies"`
}

// Body returns the wire shape matching the result's mode.
func (r Result) Body() any {
	if r.Mode == ModeSingle {
		return SingleReply{Summary: r.Summary, Reply: r.Reply}
	}
	return MultiReply{Summary: r.Summary, Replies: r.Replies}
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Body())
}

// ParseMode maps user input onto a Mode. Blank input means multi.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeMulti:
		return ModeMulti, nil
	case ModeSingle:
		return ModeSingle, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// ErrGeneration marks failures of the outbound LLM call.
var ErrGeneration = errors.New("reply generation failed")

// GenerationError carries the cause of a failed LLM call.
type GenerationError struct {
	Mode Mode
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s reply: %v", e.Mode, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }
