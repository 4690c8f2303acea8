package llm

import (
	"context"
	"encoding/json"
)

// GenerationConfig holds the sampling parameters sent with a prompt.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
}

// Request describes a single completion call.
type Request struct {
	Prompt  string
	Config  GenerationConfig
	TraceID string
}

// Generator defines a pluggable LLM backend. Generate returns the raw
// response body; callers are responsible for extracting text from it.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// EncodeRequest renders req as a generateContent request body.
func EncodeRequest(req Request) ([]byte, error) {
	return json.Marshal(generateContentRequest{
		Contents:         []content{{Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: req.Config,
	})
}

// EncodeResponse wraps text in a generateContent style response envelope.
func EncodeResponse(text string) ([]byte, error) {
	type candidate struct {
		Content content `json:"content"`
	}
	return json.Marshal(struct {
		Candidates []candidate `json:"candidates"`
	}{Candidates: []candidate{{Content: content{Parts: []part{{Text: text}}}}}})
}
