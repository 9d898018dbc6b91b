package server

import (
	"net"

	"github.com/go-logr/logr"

	"github.com/yago-123/punch-rendez/pkg/identity"
	"github.com/yago-123/punch-rendez/pkg/metrics"
	"github.com/yago-123/punch-rendez/pkg/peer"
	"github.com/yago-123/punch-rendez/pkg/rendez/store"
	"github.com/yago-123/punch-rendez/pkg/rendez/types"
)

type sessionState int

const (
	stateConnected sessionState = iota
	stateDeclared
	stateClosed
)

// hostSession drives a single host control connection from the moment it opens until it closes. Messages are
// handled sequentially by the goroutine reading the connection
type hostSession struct {
	host    *peer.Host
	state   sessionState
	store   store.Store
	metrics *metrics.Metrics
	logger  logr.Logger
}

func newHostSession(host *peer.Host, s store.Store, m *metrics.Metrics, logger logr.Logger) *hostSession {
	s.Track(host)

	logger = logger.WithValues("seq", host.Seq(), "ip", host.IP())
	logger.V(1).Info("host connected")

	return &hostSession{
		host:    host,
		state:   stateConnected,
		store:   s,
		metrics: m,
		logger:  logger,
	}
}

func (s *hostSession) handle(msg string) {
	if s.state != stateConnected {
		s.metrics.ObserveDeclaration(metrics.DeclarationIgnored)
		return
	}

	port, ok := types.ParseDeclaration(msg)
	if !ok {
		s.metrics.ObserveDeclaration(metrics.DeclarationMalformed)
		return
	}

	endpoint := net.JoinHostPort(s.host.IP(), port)
	token := identity.Token(endpoint)

	registered, err := s.host.Declare(endpoint, token, func(h *peer.Host) bool {
		return s.store.TryRegister(token, h)
	}, types.AckMessage)
	if !registered {
		s.logger.Info("host endpoint already registered, closing", "endpoint", endpoint, "token", token)
		s.metrics.ObserveDeclaration(metrics.DeclarationDuplicate)
		if errClose := s.host.Close(); errClose != nil {
			s.logger.V(1).Info("failed to close duplicate host", "error", errClose.Error())
		}
		return
	}

	s.state = stateDeclared
	s.metrics.ObserveDeclaration(metrics.DeclarationAccepted)
	s.logger.Info("host declared", "endpoint", endpoint, "token", token)

	if err != nil {
		s.logger.V(1).Info("failed to acknowledge declaration", "error", err.Error())
	}
}

// skip accounts for a message too large to be a declaration, it leaves the state untouched
func (s *hostSession) skip() {
	if s.state != stateConnected {
		s.metrics.ObserveDeclaration(metrics.DeclarationIgnored)
		return
	}
	s.metrics.ObserveDeclaration(metrics.DeclarationMalformed)
}

func (s *hostSession) close() {
	if s.state == stateClosed {
		return
	}

	s.state = stateClosed
	s.store.Remove(s.host)
	s.logger.Info("host left", "endpoint", s.host.Endpoint())
}
