package runtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/loqalabs/loqa-reply/internal/config"
	"github.com/loqalabs/loqa-reply/internal/protocol"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.HTTP.Bind = "127.0.0.1"
	cfg.HTTP.Port = 0
	cfg.LLM.Mode = "mock"
	cfg.Store.Path = filepath.Join(dir, "replies.db")
	cfg.Telemetry.Metrics = true
	cfg.Bus.Embedded = true
	cfg.Bus.Port = -1
	cfg.Bus.StoreDir = filepath.Join(dir, "nats")
	cfg.Bridge.Enabled = true
	return cfg
}

func TestRuntimeWiring(t *testing.T) {
	r := New(testConfig(t), newLogger())
	if err := r.setup(context.Background()); err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() { r.teardown(context.Background()) })

	srv := httptest.NewServer(r.handler)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected not ready before start, got %d", resp.StatusCode)
	}
	r.ready.Store(true)
	resp, err = http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected ready, got %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/email/generate", "application/json",
		strings.NewReader(`{"subject":"Hi","emailContent":"Are you around?"}`))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	defer resp.Body.Close()
	var res struct {
		Summary string   `json:"summary"`
		Replies []string `json:"replies"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Replies) != 3 || res.Summary == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	data, _ := json.Marshal(protocol.GenerateRequest{Subject: "Hi", Body: "b", Mode: "single"})
	msg, err := r.bus.Conn().Request(protocol.SubjectGenerateRequest, data, 5*time.Second)
	if err != nil {
		t.Fatalf("bus request: %v", err)
	}
	var busResp protocol.GenerateResponse
	if err := json.Unmarshal(msg.Data, &busResp); err != nil || busResp.Reply == nil || *busResp.Reply == "" {
		t.Fatalf("unexpected bus response %s (%v)", msg.Data, err)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "reply_generations") {
		t.Fatalf("expected reply metrics to be exported")
	}
}

func TestRuntimeStartStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Bridge.Enabled = false
	cfg.Telemetry.Metrics = false
	r := New(cfg, newLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !r.ready.Load() {
		if time.Now().After(deadline) {
			t.Fatal("runtime did not become ready")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("runtime did not stop")
	}
}

func TestRuntimeBadLLMConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Bridge.Enabled = false
	cfg.LLM.Mode = "carrier-pigeon"
	if err := New(cfg, newLogger()).Start(context.Background()); err == nil {
		t.Fatal("expected start to fail for unknown llm mode")
	}
}
