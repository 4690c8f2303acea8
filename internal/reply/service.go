package reply

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/loqalabs/loqa-reply/internal/llm"
)

const instrumentationName = "github.com/loqalabs/loqa-reply/reply"

// maxLoggedResponse bounds the raw response written to debug logs.
const maxLoggedResponse = 1000

// ConfigFor returns the sampling parameters for a mode.
func ConfigFor(mode Mode, regenerate bool) llm.GenerationConfig {
	if mode == ModeSingle {
		return llm.GenerationConfig{Temperature: 0.7, MaxOutputTokens: 1024, TopP: 0.8, TopK: 40}
	}
	cfg := llm.GenerationConfig{Temperature: 0.75, MaxOutputTokens: 2048, TopP: 0.95, TopK: 40}
	if regenerate {
		cfg.Temperature = 0.9
	}
	return cfg
}

// Service drafts replies: it builds the prompt, makes one model call and
// decodes the answer. It is safe for concurrent use.
type Service struct {
	generator llm.Generator
	builder   Builder
	timeout   time.Duration
	logger    *slog.Logger
	tracer    trace.Tracer

	generations metric.Int64Counter
	fallbacks   metric.Int64Counter
	latency     metric.Float64Histogram
}

// NewService wires a Service. A zero timeout leaves deadlines to ctx.
func NewService(generator llm.Generator, timeout time.Duration, logger *slog.Logger) *Service {
	s := &Service{
		generator: generator,
		timeout:   timeout,
		logger:    logger.With(slog.String("component", "reply-service")),
		tracer:    otel.Tracer(instrumentationName),
	}
	if err := s.initMetrics(otel.Meter(instrumentationName)); err != nil {
		s.logger.Warn("failed to initialize metrics", slogError(err))
	}
	return s
}

func (s *Service) initMetrics(meter metric.Meter) error {
	var err error
	if s.generations, err = meter.Int64Counter("reply.generations",
		metric.WithDescription("Reply generation attempts by mode and outcome")); err != nil {
		return err
	}
	if s.fallbacks, err = meter.Int64Counter("reply.fallbacks",
		metric.WithDescription("Generations answered with the fixed fallback result")); err != nil {
		return err
	}
	s.latency, err = meter.Float64Histogram("reply.generation.latency",
		metric.WithDescription("Model round trip latency"), metric.WithUnit("ms"))
	return err
}

// GenerateMulti drafts three reply variants.
func (s *Service) GenerateMulti(ctx context.Context, req Request, regenerate bool) (Result, error) {
	req.Mode = ModeMulti
	req.Regenerate = regenerate
	return s.Generate(ctx, req)
}

// GenerateSingle drafts one reply.
func (s *Service) GenerateSingle(ctx context.Context, req Request) (Result, error) {
	req.Mode = ModeSingle
	req.Regenerate = false
	return s.Generate(ctx, req)
}

// Generate dispatches on req.Mode. The only error it returns is a
// *GenerationError for a failed model call.
func (s *Service) Generate(ctx context.Context, req Request) (Result, error) {
	if req.Mode != ModeSingle {
		req.Mode = ModeMulti
	}
	ctx, span := s.tracer.Start(ctx, "reply.generate", trace.WithAttributes(
		attribute.String("reply.mode", string(req.Mode)),
		attribute.Bool("reply.regenerate", req.Regenerate),
		attribute.String("reply.language", req.ResolvedLanguage()),
	))
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	prompt := s.builder.Build(req)
	s.logger.Debug("built prompt", slog.String("mode", string(req.Mode)), slog.String("prompt", prompt))

	start := time.Now()
	raw, err := s.generator.Generate(ctx, llm.Request{
		Prompt:  prompt,
		Config:  ConfigFor(req.Mode, req.Regenerate),
		TraceID: span.SpanContext().TraceID().String(),
	})
	elapsed := time.Since(start)
	modeAttr := attribute.String("mode", string(req.Mode))
	s.record(ctx, s.latency, float64(elapsed.Milliseconds()), modeAttr)

	if err != nil {
		s.logger.Error("llm call failed", slog.String("mode", string(req.Mode)), slogError(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "llm call failed")
		s.count(ctx, s.generations, modeAttr, attribute.String("outcome", "error"))
		return Result{}, &GenerationError{Mode: req.Mode, Err: err}
	}
	s.logger.Debug("raw llm response", slog.String("body", truncate(raw, maxLoggedResponse)))

	text := ExtractText(raw)
	var res Result
	if req.Mode == ModeSingle {
		res = DecodeSingle(text)
	} else {
		var fallback bool
		res, fallback = decodeMulti(text)
		if fallback {
			s.logger.Warn("model output had no usable sections, using fallback result")
			s.count(ctx, s.fallbacks, modeAttr)
		}
		s.logger.Debug("parsed replies", slog.String("summary", res.Summary), slog.Int("replies", len(res.Replies)))
	}

	s.count(ctx, s.generations, modeAttr, attribute.String("outcome", "ok"))
	s.logger.Info("reply generated", slog.String("mode", string(req.Mode)), slog.Duration("latency", elapsed))
	return res, nil
}

func (s *Service) count(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (s *Service) record(ctx context.Context, h metric.Float64Histogram, v float64, attrs ...attribute.KeyValue) {
	if h == nil {
		return
	}
	h.Record(ctx, v, metric.WithAttributes(attrs...))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
