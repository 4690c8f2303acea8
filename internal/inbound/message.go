// Package inbound turns raw RFC 5322 messages into reply requests.
package inbound

import (
	"fmt"
	"io"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/loqalabs/loqa-reply/internal/reply"
)

// Message is the part of an email the drafting pipeline cares about.
type Message struct {
	From    string
	Subject string
	Body    string
}

// Parse reads a MIME message. HTML-only messages are down-converted to
// plain text by enmime.
func Parse(r io.Reader) (Message, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return Message{}, fmt.Errorf("read mime envelope: %w", err)
	}
	return Message{
		From:    env.GetHeader("From"),
		Subject: strings.TrimSpace(env.GetHeader("Subject")),
		Body:    strings.TrimSpace(env.Text),
	}, nil
}

// Request builds a reply request for the message.
func (m Message) Request(tone, language string, mode reply.Mode, regenerate bool) reply.Request {
	return reply.Request{
		Subject:    m.Subject,
		Body:       m.Body,
		Tone:       tone,
		Language:   language,
		Mode:       mode,
		Regenerate: regenerate,
	}
}
