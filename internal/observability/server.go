package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Server exposes /metrics and owns the process tracer provider.
type Server struct {
	addr    string
	metrics *Metrics

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	tp       *sdktrace.TracerProvider
	wg       sync.WaitGroup
}

// NewServer builds the component; an empty addr keeps the metrics endpoint off.
func NewServer(addr string, metrics *Metrics) *Server {
	return &Server{addr: addr, metrics: metrics}
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tp != nil {
		return nil
	}

	s.tp = sdktrace.NewTracerProvider()
	otel.SetTracerProvider(s.tp)

	if s.addr == "" {
		s.getLogEntry().Info("metrics endpoint disabled")
		return nil
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return errors.Join(err, s.tp.Shutdown(ctx))
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.getLogEntry().WithError(err).Error("metrics server failed")
		}
	}()
	s.getLogEntry().WithField("addr", listener.Addr().String()).Info("metrics endpoint started")
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.srv != nil {
		err = s.srv.Shutdown(ctx)
		s.wg.Wait()
		s.srv = nil
		s.listener = nil
	}
	if s.tp != nil {
		err = errors.Join(err, s.tp.Shutdown(ctx))
		s.tp = nil
	}
	return err
}

// Addr reports the bound address, empty while stopped or disabled.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) getLogEntry() *log.Entry {
	return log.WithField("object", "MetricsServer")
}
