package llm

import (
	"fmt"
	"net/http"
	"time"

	"github.com/loqalabs/loqa-reply/internal/config"
)

// New builds the Generator selected by cfg.Mode.
func New(cfg config.LLMConfig) (Generator, error) {
	switch cfg.Mode {
	case "gemini":
		client := &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond}
		return NewGeminiGenerator(cfg.BaseURL, cfg.Endpoint, cfg.APIKey, client), nil
	case "openai":
		return NewOpenAIGenerator(openAIBaseURL(cfg), cfg.APIKey, cfg.Model)
	case "exec":
		return NewExecGenerator(cfg.Command)
	case "mock", "":
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("llm mode %s not supported", cfg.Mode)
	}
}

// openAIBaseURL ignores the Gemini default so the SDK uses its own.
func openAIBaseURL(cfg config.LLMConfig) string {
	if cfg.BaseURL == config.Default().LLM.BaseURL {
		return ""
	}
	return cfg.BaseURL
}
