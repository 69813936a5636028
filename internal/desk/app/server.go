package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/desk/config"
	"github.com/dmitrijs2005/visitdesk/internal/desk/httpapi"
	"github.com/dmitrijs2005/visitdesk/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

// Server runs the desk service behind its HTTP API.
type Server struct {
	config  *config.Config
	logger  logging.Logger
	runtime *Runtime
	handler http.Handler
}

func NewServer(ctx context.Context, c *config.Config) (*Server, error) {
	logger := logging.NewJSON(os.Stdout, slog.LevelInfo)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rt, err := Build(ctx, c, logger, reg)
	if err != nil {
		return nil, fmt.Errorf("desk init error: %w", err)
	}

	h := httpapi.NewHandler(rt.Desk, logger.With("module", "http"))
	router := httpapi.NewRouter(h, httpapi.RouterConfig{
		Logger:  logger.With("module", "http"),
		Latency: rt.Metrics,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Timeout: c.RequestTimeout * 3,
	})

	return &Server{config: c, logger: logger, runtime: rt, handler: router}, nil
}

func (s *Server) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (s *Server) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.logger.Error(sctx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.config.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until SIGINT/SIGTERM or a server failure.
func (s *Server) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	s.logger.Info(ctx, "Starting desk...", "backend", s.config.APIBaseURL)
	s.initSignalHandler(cancelFunc)

	s.runtime.Desk.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.startHTTPServer(ctx, cancelFunc)
	}()
	wg.Wait()

	s.runtime.Desk.Stop()
	if err := s.runtime.Close(); err != nil {
		s.logger.Error(context.Background(), "close databases", "error", err)
	}
	s.logger.Info(context.Background(), "Desk stopped")
}
