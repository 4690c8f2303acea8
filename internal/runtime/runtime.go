package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-reply/internal/api"
	"github.com/loqalabs/loqa-reply/internal/bridge"
	"github.com/loqalabs/loqa-reply/internal/bus"
	"github.com/loqalabs/loqa-reply/internal/config"
	"github.com/loqalabs/loqa-reply/internal/llm"
	"github.com/loqalabs/loqa-reply/internal/natsserver"
	"github.com/loqalabs/loqa-reply/internal/reply"
	"github.com/loqalabs/loqa-reply/internal/store"
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	handler     http.Handler
	telemetry   *telemetry
	store       *store.Store
	nats        *natsserver.EmbeddedServer
	bus         *bus.Client
	bridge      *bridge.Service
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start wires every component, serves HTTP and blocks until ctx is done.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := r.setup(ctx); err != nil {
		r.teardown(context.Background())
		return err
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		r.teardown(context.Background())
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	r.httpServer = &http.Server{
		Handler:           r.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
			cancel()
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", ln.Addr().String()))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	r.ready.Store(false)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	r.teardown(shutdownCtx)
	return nil
}

func (r *Runtime) setup(ctx context.Context) error {
	var err error
	r.telemetry, err = setupTelemetry(ctx, r.cfg, os.Stderr, r.logger)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}

	r.store, err = store.Open(ctx, r.cfg.Store, r.logger)
	if err != nil {
		return fmt.Errorf("open reply store: %w", err)
	}

	generator, err := llm.New(r.cfg.LLM)
	if err != nil {
		return fmt.Errorf("create llm generator: %w", err)
	}
	r.logger.Info("llm backend configured", slog.String("mode", r.cfg.LLM.Mode))
	service := reply.NewService(generator, time.Duration(r.cfg.LLM.TimeoutMS)*time.Millisecond, r.logger)

	if r.cfg.Bridge.Enabled {
		if err := r.startBridge(ctx, service); err != nil {
			return err
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if r.cfg.Telemetry.Metrics && r.telemetry.metrics != nil {
		mux.Handle("/metrics", r.telemetry.metrics)
	}
	mux.Handle("/api/", api.NewServer(service, r.store, r.logger).Handler())
	r.handler = mux
	return nil
}

func (r *Runtime) startBridge(ctx context.Context, service *reply.Service) error {
	busCfg := r.cfg.Bus
	srv, err := natsserver.Start(busCfg, r.logger)
	if err != nil {
		return err
	}
	r.nats = srv
	if srv != nil {
		busCfg.Servers = []string{srv.URL()}
	}

	r.bus, err = bus.Connect(ctx, busCfg, r.logger)
	if err != nil {
		return err
	}

	r.bridge = bridge.NewService(ctx, r.cfg.Bridge, r.bus, service, r.logger)
	return r.bridge.Start()
}

// teardown releases components in reverse start order.
func (r *Runtime) teardown(ctx context.Context) {
	if r.bridge != nil {
		r.bridge.Close()
	}
	if r.bus != nil {
		r.bus.Close()
	}
	r.nats.Shutdown()
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Error("store close error", slog.String("error", err.Error()))
		}
	}
	if r.telemetry != nil {
		if err := r.telemetry.Shutdown(ctx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}
}

func (r *Runtime) healthy(ctx context.Context) bool {
	if r.store == nil || r.store.Ping(ctx) != nil {
		return false
	}
	if r.cfg.Bridge.Enabled {
		return r.bus.Healthy() && r.bridge.Healthy()
	}
	return true
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, req *http.Request) {
	if r.ready.Load() && r.healthy(req.Context()) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
