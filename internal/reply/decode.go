package reply

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

type section int

const (
	sectionNone section = iota
	sectionSummary
	sectionReply
)

// labels maps a line prefix onto the section it opens. Matching is
// case-insensitive and the matched prefix is stripped.
var labels = []struct {
	prefix *regexp.Regexp
	target section
}{
	{regexp.MustCompile(`(?i)^summary:\s*`), sectionSummary},
	{regexp.MustCompile(`(?i)^reply\s*[123]:\s*`), sectionReply},
}

var (
	replyMarker   = regexp.MustCompile(`(?i)reply:`)
	summaryPrefix = regexp.MustCompile(`(?i)^\s*summary:\s*`)
)

// scanLine feeds one line to the decoder. Tests swap it out.
var scanLine = (*multiDecoder).line

// multiDecoder accumulates sections for DecodeMulti. It lives for one call.
type multiDecoder struct {
	mode    section
	summary []string
	current []string
	replies []string
}

func (d *multiDecoder) flush() {
	if d.mode == sectionReply && len(d.current) > 0 {
		d.replies = append(d.replies, strings.Join(d.current, " "))
	}
	d.current = nil
}

func (d *multiDecoder) open(target section, rest string) {
	d.flush()
	d.mode = target
	switch target {
	case sectionSummary:
		// a repeated SUMMARY label replaces what came before
		d.summary = nil
		if rest != "" {
			d.summary = append(d.summary, rest)
		}
	case sectionReply:
		if rest != "" {
			d.current = append(d.current, rest)
		}
	}
}

func (d *multiDecoder) line(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return
	}
	for _, l := range labels {
		if loc := l.prefix.FindStringIndex(line); loc != nil {
			d.open(l.target, strings.TrimSpace(line[loc[1]:]))
			return
		}
	}
	switch d.mode {
	case sectionSummary:
		d.summary = append(d.summary, line)
	case sectionReply:
		d.current = append(d.current, line)
	}
}

// DecodeMulti decodes a SUMMARY / REPLY n response into a summary and
// exactly three replies.
func DecodeMulti(text string) Result {
	res, _ := decodeMulti(text)
	return res
}

// decodeMulti also reports whether the result is the fixed fallback.
func decodeMulti(text string) (res Result, fallback bool) {
	defer func() {
		if r := recover(); r != nil {
			res, fallback = fallbackResult(), true
		}
	}()

	var d multiDecoder
	for _, line := range strings.Split(text, "\n") {
		scanLine(&d, line)
	}
	d.flush()

	if len(d.summary) == 0 && len(d.replies) == 0 {
		return fallbackResult(), true
	}

	replies := d.replies
	if len(replies) > replyCount {
		replies = replies[:replyCount]
	}
	for len(replies) < replyCount {
		replies = append(replies, FillerReply)
	}

	summary := strings.TrimSpace(strings.Join(d.summary, " "))
	if summary == "" {
		summary = FallbackSummary
	}
	return Result{Mode: ModeMulti, Summary: capSummary(summary), Replies: replies}, false
}

func fallbackResult() Result {
	replies := make([]string, replyCount)
	for i := range replies {
		replies[i] = FillerReply
	}
	return Result{Mode: ModeMulti, Summary: FallbackSummary, Replies: replies}
}

func capSummary(s string) string {
	if utf8.RuneCountInString(s) <= maxSummaryLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxSummaryLen-len(ellipsis)]) + ellipsis
}

// DecodeSingle splits a "Summary: ... Reply: ..." response on the first
// Reply marker. Without a marker there is no summary and the whole text
// becomes the reply.
func DecodeSingle(text string) Result {
	var summary, reply string
	if loc := replyMarker.FindStringIndex(text); loc != nil {
		summary = strings.TrimSpace(summaryPrefix.ReplaceAllString(text[:loc[0]], ""))
		reply = strings.TrimSpace(text[loc[1]:])
	}

	if summary == "" {
		summary = MissingSummary
	}
	if reply == "" {
		reply = text
	}
	return Result{Mode: ModeSingle, Summary: summary, Reply: reply}
}
