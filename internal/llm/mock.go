package llm

import (
	"context"
	"strings"
	"time"
)

type mockGenerator struct {
	delay time.Duration
}

// NewMockGenerator answers every prompt with a canned, well-formed
// response in the matching format without calling a model.
func NewMockGenerator() Generator { return &mockGenerator{delay: 20 * time.Millisecond} }

func (m *mockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(m.delay):
	}

	var text string
	if strings.Contains(req.Prompt, "REPLY 1:") {
		text = "SUMMARY: The sender is waiting on a response to their message.\n\n" +
			"REPLY 1: Thank you for reaching out. I have read your note and will follow up with details shortly.\n\n" +
			"REPLY 2: Thanks for the update. Let me check a few things and get back to you by tomorrow.\n\n" +
			"REPLY 3: I appreciate the message. Could we set up a quick call to go over this together?"
	} else {
		text = "Summary: The sender is waiting on a response to their message.\n" +
			"Reply: Thank you for reaching out. I have read your note and will follow up with details shortly."
	}
	body, err := EncodeResponse(text)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
