package util

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/pion/stun"

	rerrors "github.com/yago-123/punch-rendez/pkg/error"
)

const (
	UDPProtocol = "udp"

	STUNTimeout   = 3 * time.Second
	maxSTUNPacket = 1500
)

var DefaultSTUNServers = []string{
	"stun.l.google.com:19302",
	"stun1.l.google.com:19302",
}

// BindUDP opens a UDP socket on every interface at port, 0 picks a free one
func BindUDP(port int) (*net.UDPConn, error) {
	conn, err := net.ListenUDP(UDPProtocol, &net.UDPAddr{IP: net.IPv4zero, Port: port})
	if err != nil {
		return nil, rerrors.Wrap(rerrors.ErrBindingUDP, err)
	}
	return conn, nil
}

// GetPublicEndpoint tries the provided STUN servers through conn to discover the public address the NAT maps conn
// to. The request goes out of conn itself, so the port returned is the one peers must target
func GetPublicEndpoint(ctx context.Context, conn *net.UDPConn, servers []string) (*net.UDPAddr, error) {
	if len(servers) == 0 {
		return nil, rerrors.Wrap(rerrors.ErrPubAddrRetrieve, errors.New("no STUN servers provided"))
	}

	var lastErr error

	for _, server := range servers {
		endpoint, err := trySTUNServer(ctx, conn, server)
		if err == nil {
			return endpoint, nil
		}

		lastErr = err
	}

	return nil, rerrors.Wrap(rerrors.ErrPubAddrRetrieve, fmt.Errorf("all STUN servers failed: %w", lastErr))
}

func trySTUNServer(ctx context.Context, conn *net.UDPConn, server string) (*net.UDPAddr, error) {
	serverAddr, err := net.ResolveUDPAddr(UDPProtocol, server)
	if err != nil {
		return nil, fmt.Errorf("error resolving STUN server %s: %w", server, err)
	}

	req, err := stun.Build(stun.TransactionID, stun.BindingRequest)
	if err != nil {
		return nil, fmt.Errorf("error building STUN request: %w", err)
	}

	deadline := time.Now().Add(STUNTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if errDeadline := conn.SetReadDeadline(deadline); errDeadline != nil {
		return nil, fmt.Errorf("error setting read deadline: %w", errDeadline)
	}
	defer conn.SetReadDeadline(time.Time{}) //nolint:errcheck // best effort reset

	if _, errWrite := conn.WriteToUDP(req.Raw, serverAddr); errWrite != nil {
		return nil, fmt.Errorf("STUN request to %s failed: %w", server, errWrite)
	}

	buf := make([]byte, maxSTUNPacket)
	for {
		n, _, errRead := conn.ReadFromUDP(buf)
		if errRead != nil {
			return nil, fmt.Errorf("STUN response from %s failed: %w", server, errRead)
		}

		// Anything else arriving on the socket is not for us
		if !stun.IsMessage(buf[:n]) {
			continue
		}

		res := &stun.Message{Raw: append([]byte(nil), buf[:n]...)}
		if errDecode := res.Decode(); errDecode != nil || res.TransactionID != req.TransactionID {
			continue
		}

		var xorAddr stun.XORMappedAddress
		if errAddr := xorAddr.GetFrom(res); errAddr != nil {
			return nil, fmt.Errorf("failed to get XOR-MAPPED-ADDRESS: %w", errAddr)
		}

		return &net.UDPAddr{IP: xorAddr.IP, Port: xorAddr.Port}, nil
	}
}
