package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yago-123/punch-rendez/cmd/common"
	"github.com/yago-123/punch-rendez/pkg/config"
	"github.com/yago-123/punch-rendez/pkg/metrics"
	"github.com/yago-123/punch-rendez/pkg/rendez/server"
	"github.com/yago-123/punch-rendez/pkg/rendez/store"
)

const (
	ShutdownTimeout = 5 * time.Second
)

func main() {
	envFile := flag.String("env", ".env", "env file loaded before reading the environment")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := common.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	if cfg.LogLevel != logrus.DebugLevel.String() && cfg.LogLevel != logrus.TraceLevel.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithTrustProxy(cfg.TrustProxy),
		server.WithExternalIP(cfg.ExternalIP),
	}
	if cfg.Metrics {
		opts = append(opts, server.WithMetrics(metrics.New()))
	}

	srv := server.NewRendezvous(store.NewMemoryStore(), opts...)
	if errStart := srv.Start(cfg.Addr()); errStart != nil {
		logger.Error(errStart, "failed to start server")
		os.Exit(1)
	}
	logger.Info("listening", "port", cfg.Port, "trustProxy", cfg.TrustProxy, "externalIP", cfg.ExternalIP)

	// Graceful shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if errStop := srv.Stop(ctx); errStop != nil {
		logger.Error(errStop, "server shutdown failed")
		return
	}

	logger.Info("server gracefully stopped")
}
