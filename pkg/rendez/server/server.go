package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/yago-123/punch-rendez/pkg/rendez/store"
	"github.com/yago-123/punch-rendez/pkg/rendez/types"

	"github.com/gin-gonic/gin"
)

const (
	ServerReadTimeout  = 5 * time.Second
	ServerWriteTimeout = 5 * time.Second
	ServerIdleTimeout  = 10 * time.Second
	MaxHeaderBytes     = 1 << 20

	MetricsPath = "/metrics"
)

type RendezvousServer struct {
	handlers   *Handler
	store      store.Store
	cfg        *config
	httpServer *http.Server
	listener   net.Listener
}

func NewRendezvous(s store.Store, opts ...Option) *RendezvousServer {
	cfg := newDefaultConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.metrics.WatchHosts(s); err != nil {
		cfg.logger.Info("host gauges not exported", "error", err.Error())
	}

	return &RendezvousServer{
		handlers: NewHandler(s, cfg),
		store:    s,
		cfg:      cfg,
	}
}

// Router builds the HTTP routes of the server
func (s *RendezvousServer) Router() *gin.Engine {
	r := gin.Default()

	r.GET(types.IndexPath, s.handlers.IndexHandler)
	r.POST(types.JoinPath, s.handlers.JoinHandler)
	r.GET(types.HostPath, s.handlers.HostHandler)

	if s.cfg.exposeMetrics {
		r.GET(MetricsPath, gin.WrapH(s.cfg.metrics.Handler()))
	}

	return r
}

func (s *RendezvousServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:        s.Router(),
		ReadTimeout:    ServerReadTimeout,
		WriteTimeout:   ServerWriteTimeout,
		IdleTimeout:    ServerIdleTimeout,
		MaxHeaderBytes: MaxHeaderBytes,
	}

	// Shutdown does not touch hijacked connections, host websockets must be closed by hand
	s.httpServer.RegisterOnShutdown(s.closeHosts)

	go func() {
		if errServe := s.httpServer.Serve(ln); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			s.cfg.logger.Error(errServe, "rendezvous server stopped serving", "address", ln.Addr().String())
		}
	}()

	s.cfg.logger.Info("rendezvous server listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the address the server is listening on, nil before Start
func (s *RendezvousServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *RendezvousServer) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *RendezvousServer) closeHosts() {
	for _, h := range s.store.Hosts() {
		if err := h.Close(); err != nil {
			s.cfg.logger.V(1).Info("failed to close host", "seq", h.Seq(), "error", err.Error())
		}
	}
}
