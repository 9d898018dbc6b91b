package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/yago-123/punch-rendez/cmd/common"
	"github.com/yago-123/punch-rendez/pkg/rendez/client"
	"github.com/yago-123/punch-rendez/pkg/rendez/types"
	"github.com/yago-123/punch-rendez/pkg/wg"

	rerrors "github.com/yago-123/punch-rendez/pkg/error"
)

const (
	DefaultServer = "http://127.0.0.1:3000"
	DefaultPort   = 7777
)

func main() {
	serverURL := flag.String("server", DefaultServer, "rendezvous server URL")
	port := flag.Int("port", DefaultPort, "port the host listens on")
	wgIface := flag.String("wg-iface", "", "declare the listen port of this WireGuard interface instead of -port")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger, err := common.NewLogger(*logLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	if *wgIface != "" {
		wgPort, errPort := wg.NewPortReader().ListenPort(*wgIface)
		if errPort != nil {
			logger.Error(errPort, "failed to read wireguard port", "iface", *wgIface)
			os.Exit(1)
		}
		*port = wgPort
	}

	// The server only accepts ports written with 2 to 5 digits
	if *port < 10 || *port > 65535 {
		logger.Info("invalid port", "port", *port)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rendez := client.NewRendezvous(*serverURL, client.WithLogger(logger))

	host, err := rendez.DialHost(ctx, *port)
	if err != nil {
		if errors.Is(err, rerrors.ErrDuplicateHost) {
			logger.Error(err, "another host is already registered with this address and port")
		} else {
			logger.Error(err, "failed to register host", "server", *serverURL)
		}
		os.Exit(1)
	}
	defer host.Close()

	logger.Info("waiting for punch instructions", "port", *port)

	err = host.Instructions(ctx, func(in types.Instruction) {
		logger.Info("punch instruction", "remote", in.Addr(), "localPort", *port)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(err, "control channel failed")
		os.Exit(1)
	}

	logger.Info("disconnected")
}
