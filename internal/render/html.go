// Package render formats drafted replies for people rather than programs.
package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"

	"github.com/loqalabs/loqa-reply/internal/reply"
)

// Reply bodies may carry markdown. The default renderer omits raw HTML.
var md = goldmark.New()

func mdToHTML(text string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// HTML renders a result as an HTML fragment: the summary followed by one
// <article> per reply.
func HTML(res reply.Result) (string, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<section class=\"summary\"><h2>Summary</h2><p>%s</p></section>\n", html.EscapeString(res.Summary))

	replies := res.Replies
	if res.Reply != "" {
		replies = []string{res.Reply}
	}
	for i, text := range replies {
		body, err := mdToHTML(text)
		if err != nil {
			return "", fmt.Errorf("render reply %d: %w", i+1, err)
		}
		fmt.Fprintf(&buf, "<article class=\"reply\" data-index=\"%d\">\n%s</article>\n", i+1, body)
	}
	return buf.String(), nil
}
