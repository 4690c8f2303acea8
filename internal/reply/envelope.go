package reply

import (
	"strings"

	"github.com/tidwall/gjson"
)

// textPaths are tried in order against the provider envelope.
var textPaths = []string{
	"candidates.0.content.parts.0.text",
	"output",
}

// ExtractText pulls the generated text out of a provider response. Input
// that is blank yields "", input that is not JSON or carries none of the
// known paths is returned unchanged.
func ExtractText(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	if !gjson.Valid(raw) {
		return raw
	}
	for _, path := range textPaths {
		if v := gjson.Get(raw, path); v.Exists() {
			return strings.TrimSpace(v.String())
		}
	}
	return raw
}
