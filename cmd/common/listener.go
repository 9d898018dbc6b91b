package common

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/go-logr/logr"
)

const (
	UDPMaxBuffer = 1500

	pollInterval = 500 * time.Millisecond
)

// Datagram is a packet received on a UDPListener
type Datagram struct {
	From    *net.UDPAddr
	Payload []byte
}

// UDPListener reports the datagrams arriving on a socket, typically the first packets of a punched path
type UDPListener struct {
	conn   *net.UDPConn
	logger logr.Logger
}

func NewUDPListener(conn *net.UDPConn, logger logr.Logger) *UDPListener {
	return &UDPListener{
		conn:   conn,
		logger: logger,
	}
}

// Listen reads datagrams until ctx is done, calling fn for each of them. The socket is left open
func (l *UDPListener) Listen(ctx context.Context, fn func(Datagram)) error {
	l.logger.Info("UDP listening", "address", l.conn.LocalAddr().String())
	defer l.conn.SetReadDeadline(time.Time{}) //nolint:errcheck // best effort reset

	buf := make([]byte, UDPMaxBuffer)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := l.conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			return err
		}

		n, from, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return err
		}

		payload := append([]byte(nil), buf[:n]...)
		l.logger.Info("UDP received datagram", "remoteAddr", from.String(), "bytes", n)
		fn(Datagram{From: from, Payload: payload})
	}
}
