package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/loqalabs/loqa-reply/internal/bus"
	"github.com/loqalabs/loqa-reply/internal/config"
	"github.com/loqalabs/loqa-reply/internal/protocol"
	"github.com/loqalabs/loqa-reply/internal/reply"
)

// Drafter produces replies for a request.
type Drafter interface {
	Generate(ctx context.Context, req reply.Request) (reply.Result, error)
}

// Service answers reply.generate.request messages on the bus.
type Service struct {
	cfg     config.BridgeConfig
	bus     *bus.Client
	drafter Drafter
	sub     *nats.Subscription
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	ready   bool
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewService(parent context.Context, cfg config.BridgeConfig, busClient *bus.Client, drafter Drafter, logger *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	return &Service{
		cfg:     cfg,
		bus:     busClient,
		drafter: drafter,
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.With(slog.String("component", "reply-bridge")),
		tracer:  otel.Tracer("github.com/loqalabs/loqa-reply/bridge"),
	}
}

func (s *Service) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	sub, err := s.bus.Conn().QueueSubscribe(protocol.SubjectGenerateRequest, s.cfg.QueueGroup, s.handleRequest)
	if err != nil {
		return fmt.Errorf("subscribe reply requests: %w", err)
	}
	s.sub = sub
	s.ready = true
	s.logger.Info("listening for reply requests",
		slog.String("subject", protocol.SubjectGenerateRequest),
		slog.String("queue", s.cfg.QueueGroup))
	return nil
}

func (s *Service) Close() {
	s.cancel()
	if s.sub != nil {
		_ = s.sub.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool {
	return !s.cfg.Enabled || s.ready
}

func (s *Service) handleRequest(msg *nats.Msg) {
	var req protocol.GenerateRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode reply request", slogError(err))
		s.respond(msg, protocol.GenerateResponse{Error: "invalid request: " + err.Error()})
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.respond(msg, s.generate(req))
	}()
}

func (s *Service) generate(req protocol.GenerateRequest) protocol.GenerateResponse {
	resp := protocol.GenerateResponse{RequestID: req.RequestID}

	attrs := []attribute.KeyValue{attribute.String("reply.request_id", req.RequestID)}
	if req.TraceID != "" {
		attrs = append(attrs, attribute.String("reply.upstream_trace_id", req.TraceID))
	}
	ctx, span := s.tracer.Start(s.ctx, "reply.bridge.request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...))
	defer span.End()

	mode, err := reply.ParseMode(req.Mode)
	if err != nil {
		span.SetStatus(codes.Error, "unknown mode")
		resp.Error = err.Error()
		return resp
	}

	start := time.Now()
	res, err := s.drafter.Generate(ctx, reply.Request{
		Subject:    req.Subject,
		Body:       req.Body,
		Tone:       req.Tone,
		Language:   req.Language,
		Mode:       mode,
		Regenerate: req.Regenerate && mode == reply.ModeMulti,
	})
	resp.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Debug("reply request cancelled", slog.String("request_id", req.RequestID))
		} else {
			s.logger.Warn("reply generation failed",
				slog.String("request_id", req.RequestID),
				slog.String("trace_id", req.TraceID),
				slogError(err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		resp.Error = err.Error()
		return resp
	}

	resp.Summary = res.Summary
	if mode == reply.ModeSingle {
		text := res.Reply
		resp.Reply = &text
	} else {
		resp.Replies = res.Replies
	}
	s.logger.Info("reply request complete",
		slog.String("request_id", req.RequestID),
		slog.String("mode", string(mode)),
		slog.Int64("latency_ms", resp.LatencyMS))

	if s.cfg.PublishEvents {
		s.publishGenerated(req, mode, res, resp.LatencyMS)
	}
	return resp
}

func (s *Service) publishGenerated(req protocol.GenerateRequest, mode reply.Mode, res reply.Result, latency int64) {
	variants := len(res.Replies)
	if mode == reply.ModeSingle {
		variants = 1
	}
	event := protocol.ReplyGenerated{
		RequestID: req.RequestID,
		Mode:      string(mode),
		Language:  reply.Request{Language: req.Language}.ResolvedLanguage(),
		Variants:  variants,
		LatencyMS: latency,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to encode reply event", slogError(err))
		return
	}
	if err := s.bus.Conn().Publish(protocol.SubjectReplyGenerated, data); err != nil {
		s.logger.Warn("failed to publish reply event", slogError(err))
	}
}

func (s *Service) respond(msg *nats.Msg, resp protocol.GenerateResponse) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn("failed to encode reply response", slogError(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("failed to respond to reply request", slogError(err))
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
