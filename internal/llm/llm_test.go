package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/loqalabs/loqa-reply/internal/config"
)

func TestEncodeRequestShape(t *testing.T) {
	body, err := EncodeRequest(Request{
		Prompt: "hello",
		Config: GenerationConfig{Temperature: 0.7, MaxOutputTokens: 1024, TopP: 0.8, TopK: 40},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"contents":[{"parts":[{"text":"hello"}]}],"generationConfig":{"temperature":0.7,"maxOutputTokens":1024,"topP":0.8,"topK":40}}`
	if string(body) != want {
		t.Fatalf("unexpected body:\n got %s\nwant %s", body, want)
	}
}

func TestGeminiGenerate(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateContentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hello"}]}}]}`))
	}))
	t.Cleanup(srv.Close)

	gen := NewGeminiGenerator(srv.URL+"/", "/v1beta/models/test:generateContent", "k123", srv.Client())
	raw, err := gen.Generate(context.Background(), Request{Prompt: "draft", Config: GenerationConfig{TopK: 40}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gotPath != "/v1beta/models/test:generateContent" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "k123" {
		t.Fatalf("expected api key in query, got %q", gotKey)
	}
	if len(gotBody.Contents) != 1 || gotBody.Contents[0].Parts[0].Text != "draft" {
		t.Fatalf("unexpected request body %+v", gotBody)
	}
	if !strings.Contains(raw, `"Hello"`) {
		t.Fatalf("expected raw envelope back, got %s", raw)
	}
}

func TestGeminiStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	gen := NewGeminiGenerator(srv.URL, "generate", "k", nil)
	_, err := gen.Generate(context.Background(), Request{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error for 429")
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "quota") {
		t.Fatalf("expected status and body in error, got %v", err)
	}
}

func TestExecGeneratorEchoesRequest(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	gen, err := NewExecGenerator("cat")
	if err != nil {
		t.Fatalf("new exec generator: %v", err)
	}
	raw, err := gen.Generate(context.Background(), Request{Prompt: "ping"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var got generateContentRequest
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("decode echoed body: %v", err)
	}
	if got.Contents[0].Parts[0].Text != "ping" {
		t.Fatalf("unexpected echoed prompt %+v", got)
	}
}

func TestExecGeneratorFailure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	gen, err := NewExecGenerator(`sh -c "echo boom >&2; exit 3"`)
	if err != nil {
		t.Fatalf("new exec generator: %v", err)
	}
	_, err = gen.Generate(context.Background(), Request{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestExecGeneratorRunsCallsConcurrently(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	marks := filepath.Join(dir, "marks")
	if err := os.Mkdir(marks, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// Each process waits until all three have started before answering.
	script := filepath.Join(dir, "wait.sh")
	body := "mktemp \"$1/XXXXXX\" >/dev/null\n" +
		"while [ \"$(ls \"$1\" | wc -l)\" -lt 3 ]; do sleep 0.05; done\n" +
		"cat\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	gen, err := NewExecGenerator("sh " + script + " " + marks)
	if err != nil {
		t.Fatalf("new exec generator: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := gen.Generate(ctx, Request{Prompt: "x"}); err != nil {
				t.Errorf("generate: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestExecGeneratorEmptyCommand(t *testing.T) {
	if _, err := NewExecGenerator("   "); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestMockGeneratorFormats(t *testing.T) {
	gen := NewMockGenerator()
	raw, err := gen.Generate(context.Background(), Request{Prompt: "format: REPLY 1: ..."})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(raw, "REPLY 3:") {
		t.Fatalf("expected multi format, got %s", raw)
	}
	raw, err = gen.Generate(context.Background(), Request{Prompt: "Summary: / Reply:"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if strings.Contains(raw, "REPLY 1:") || !strings.Contains(raw, "Reply:") {
		t.Fatalf("expected single format, got %s", raw)
	}
}

func TestMockGeneratorHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMockGenerator().Generate(ctx, Request{}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default().LLM
	gen, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := gen.(*mockGenerator); !ok {
		t.Fatalf("expected mock generator, got %T", gen)
	}

	cfg.Mode = "gemini"
	cfg.APIKey = "k"
	gen, err = New(cfg)
	if err != nil {
		t.Fatalf("new gemini: %v", err)
	}
	g, ok := gen.(*geminiGenerator)
	if !ok {
		t.Fatalf("expected gemini generator, got %T", gen)
	}
	if g.endpoint != "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent" {
		t.Fatalf("unexpected endpoint %q", g.endpoint)
	}

	cfg.Mode = "openai"
	cfg.Model = ""
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for openai without model")
	}

	cfg.Mode = "telepathy"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"test-model",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Summary: s\nReply: r"}}]}`))
	}))
	t.Cleanup(srv.Close)

	gen, err := NewOpenAIGenerator(srv.URL+"/v1/", "sk-test", "test-model")
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	text, err := gen.Generate(context.Background(), Request{
		Prompt: "draft",
		Config: GenerationConfig{Temperature: 0.7, MaxOutputTokens: 1024, TopP: 0.8, TopK: 40},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "Summary: s\nReply: r" {
		t.Fatalf("unexpected text %q", text)
	}
	if gotPath != "/v1/chat/completions" || gotAuth != "Bearer sk-test" {
		t.Fatalf("unexpected request path %q auth %q", gotPath, gotAuth)
	}
	if gotBody["model"] != "test-model" || gotBody["temperature"] != 0.7 {
		t.Fatalf("unexpected request body %v", gotBody)
	}
}
