package reply

import (
	"fmt"
	"strings"
	"time"
)

// Builder renders the instruction text sent to the model. The zero value
// is ready to use.
type Builder struct {
	// Now stamps regenerate prompts. Defaults to time.Now.
	Now func() time.Time
}

// BuildPrompt renders req with the default Builder.
func BuildPrompt(req Request) string {
	return Builder{}.Build(req)
}

// Build returns the prompt for req.Mode. It never fails.
func (b Builder) Build(req Request) string {
	if req.Mode == ModeSingle {
		return b.single(req)
	}
	return b.multi(req)
}

func (b Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b Builder) multi(req Request) string {
	var sb strings.Builder
	sb.WriteString("You are an expert email assistant. You must generate exactly 3 different professional email replies and 1 summary.\n")
	fmt.Fprintf(&sb, "IMPORTANT: Generate the reply in %s language.\n\n", req.ResolvedLanguage())

	if strings.TrimSpace(req.Tone) != "" {
		fmt.Fprintf(&sb, "Use a %s tone for all replies.\n\n", req.Tone)
	}
	if req.Regenerate {
		fmt.Fprintf(&sb, "IMPORTANT: Generate completely new variations different from previous ones. Timestamp: %s\n\n",
			b.now().UTC().Format(time.RFC3339Nano))
	}

	fmt.Fprintf(&sb, "Original Email Subject: %s\n", req.Subject)
	fmt.Fprintf(&sb, "Original Email Content:\n%s\n\n", req.Body)

	sb.WriteString("You MUST follow this EXACT format:\n\n")
	sb.WriteString("SUMMARY: [Write a brief 1-2 sentence summary of the key points from the original email and what the replies address]\n\n")
	sb.WriteString("REPLY 1: [First reply variation - 3-5 sentences, professional tone]\n\n")
	sb.WriteString("REPLY 2: [Second reply variation - 3-5 sentences, different approach]\n\n")
	sb.WriteString("REPLY 3: [Third reply variation - 3-5 sentences, alternative style]\n\n")

	sb.WriteString("CRITICAL RULES:\n")
	sb.WriteString("- Start each section with the exact labels: SUMMARY:, REPLY 1:, REPLY 2:, REPLY 3:\n")
	sb.WriteString("- Each reply should be 3-5 sentences long\n")
	sb.WriteString("- Make each reply distinctly different in approach or style\n")
	sb.WriteString("- The summary should explain what the original email is about and what issue needs addressing\n")
	sb.WriteString("- Do not include email signatures, greetings like 'Dear' or 'Sincerely' - just the body content\n")
	return sb.String()
}

// single shows "professional" for a missing tone; multi mode omits the
// tone line instead.
func (b Builder) single(req Request) string {
	tone := req.Tone
	if tone == "" {
		tone = "professional"
	}
	return fmt.Sprintf(
		"You are a professional email assistant. Provide a short Summary and a single Reply body in %s.\n"+
			"Summary: (1-2 sentences)\n"+
			"Reply: (3-5 sentences, body only, no salutation/signature)\n\n"+
			"EMAIL:\nSubject: %s\n"+
			"Content: %s\n"+
			"Tone: %s\n",
		req.ResolvedLanguage(), req.Subject, req.Body, tone)
}
