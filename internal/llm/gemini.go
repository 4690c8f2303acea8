package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxErrorBody = 512

type geminiGenerator struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewGeminiGenerator posts generateContent requests to baseURL+endpoint.
// A nil client falls back to http.DefaultClient.
func NewGeminiGenerator(baseURL, endpoint, apiKey string, client *http.Client) Generator {
	if client == nil {
		client = http.DefaultClient
	}
	return &geminiGenerator{
		endpoint: strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(endpoint, "/"),
		apiKey:   apiKey,
		client:   client,
	}
}

func (g *geminiGenerator) Generate(ctx context.Context, req Request) (string, error) {
	body, err := EncodeRequest(req)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(g.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse gemini endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", g.apiKey)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode >= 300 {
		snippet := raw
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return "", fmt.Errorf("gemini returned status %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}
	return string(raw), nil
}
