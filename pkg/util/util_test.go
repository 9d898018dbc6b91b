package util

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/pion/stun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/yago-123/punch-rendez/pkg/error"
)

// startSTUNServer answers binding requests with the source address of the request
func startSTUNServer(t *testing.T, mapped func(*net.UDPAddr) *net.UDPAddr) string {
	t.Helper()

	conn, err := net.ListenUDP(UDPProtocol, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	go func() {
		buf := make([]byte, maxSTUNPacket)
		for {
			n, from, errRead := conn.ReadFromUDP(buf)
			if errRead != nil {
				return
			}

			req := &stun.Message{Raw: append([]byte(nil), buf[:n]...)}
			if req.Decode() != nil {
				continue
			}

			addr := mapped(from)
			res, errBuild := stun.Build(
				stun.NewTransactionIDSetter(req.TransactionID),
				stun.BindingSuccess,
				&stun.XORMappedAddress{IP: addr.IP, Port: addr.Port},
			)
			if errBuild != nil {
				continue
			}
			_, _ = conn.WriteToUDP(res.Raw, from)
		}
	}()

	return conn.LocalAddr().String()
}

func listenLocal(t *testing.T) *net.UDPConn {
	t.Helper()

	conn, err := net.ListenUDP(UDPProtocol, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestGetPublicEndpoint(t *testing.T) {
	server := startSTUNServer(t, func(from *net.UDPAddr) *net.UDPAddr {
		return &net.UDPAddr{IP: net.ParseIP("203.0.113.9"), Port: from.Port + 1}
	})
	conn := listenLocal(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	addr, err := GetPublicEndpoint(ctx, conn, []string{server})
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.9", addr.IP.String())
	assert.Equal(t, conn.LocalAddr().(*net.UDPAddr).Port+1, addr.Port)
}

func TestGetPublicEndpointFallback(t *testing.T) {
	// Nothing answers on the first server
	silent := listenLocal(t)
	server := startSTUNServer(t, func(from *net.UDPAddr) *net.UDPAddr { return from })
	conn := listenLocal(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	addr, err := GetPublicEndpoint(ctx, conn, []string{silent.LocalAddr().String(), server})
	require.NoError(t, err)
	assert.Equal(t, conn.LocalAddr().(*net.UDPAddr).Port, addr.Port)
}

func TestGetPublicEndpointAllFail(t *testing.T) {
	silent := listenLocal(t)
	conn := listenLocal(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := GetPublicEndpoint(ctx, conn, []string{silent.LocalAddr().String()})
	require.ErrorIs(t, err, rerrors.ErrPubAddrRetrieve)

	_, err = GetPublicEndpoint(ctx, conn, nil)
	require.ErrorIs(t, err, rerrors.ErrPubAddrRetrieve)
}

func TestBindUDP(t *testing.T) {
	conn, err := BindUDP(0)
	require.NoError(t, err)
	defer conn.Close()
	assert.NotZero(t, conn.LocalAddr().(*net.UDPAddr).Port)

	_, err = BindUDP(conn.LocalAddr().(*net.UDPAddr).Port)
	require.ErrorIs(t, err, rerrors.ErrBindingUDP)
}
