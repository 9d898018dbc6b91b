package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/yago-123/punch-rendez/cmd/common"
	"github.com/yago-123/punch-rendez/pkg/rendez/client"
	"github.com/yago-123/punch-rendez/pkg/util"
)

const (
	DefaultServer = "http://127.0.0.1:3000"
	DefaultWait   = 10 * time.Second
)

func main() {
	serverURL := flag.String("server", DefaultServer, "rendezvous server URL")
	target := flag.String("target", "", "host address as ip:port")
	token := flag.String("token", "", "host identity token, used instead of -target")
	localPort := flag.Int("port", 0, "local UDP port the host should punch towards, 0 picks one")
	useSTUN := flag.Bool("stun", false, "request the NAT mapped port of the local socket through STUN")
	stunServers := flag.String("stun-servers", strings.Join(util.DefaultSTUNServers, ","), "comma separated STUN servers")
	wait := flag.Duration("wait", DefaultWait, "how long to listen for packets from the host after joining")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger, err := common.NewLogger(*logLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	if *token == "" {
		if *target == "" {
			logger.Info("either -target or -token is required")
			os.Exit(1)
		}
		*token = client.Target(*target)
	}

	conn, err := util.BindUDP(*localPort)
	if err != nil {
		logger.Error(err, "failed to open local socket", "port", *localPort)
		os.Exit(1)
	}
	defer conn.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	port := conn.LocalAddr().(*net.UDPAddr).Port
	if *useSTUN {
		publicAddr, errSTUN := util.GetPublicEndpoint(ctx, conn, strings.Split(*stunServers, ","))
		if errSTUN != nil {
			logger.Error(errSTUN, "STUN lookup failed", "servers", *stunServers)
			os.Exit(1)
		}
		logger.Info("public endpoint discovered", "endpoint", publicAddr.String())
		port = publicAddr.Port
	}

	rendez := client.NewRendezvous(*serverURL, client.WithLogger(logger))
	if errJoin := rendez.Join(ctx, *token, port); errJoin != nil {
		logger.Error(errJoin, "failed to join", "server", *serverURL)
		os.Exit(1)
	}
	logger.Info("join request sent", "token", *token, "port", port)

	listenCtx, stopListening := context.WithTimeout(ctx, *wait)
	defer stopListening()

	// The first datagram from the host proves the path is open
	errListen := common.NewUDPListener(conn, logger).Listen(listenCtx, func(d common.Datagram) {
		logger.Info("host reached us", "from", d.From.String())
		stopListening()
	})
	if errListen != nil && listenCtx.Err() == nil {
		logger.Error(errListen, "failed to listen")
		os.Exit(1)
	}
}
