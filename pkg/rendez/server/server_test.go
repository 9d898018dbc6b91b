package server

import (
	"context"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yago-123/punch-rendez/pkg/metrics"
	"github.com/yago-123/punch-rendez/pkg/rendez/store"
	"github.com/yago-123/punch-rendez/pkg/rendez/types"
)

func counterValue(m *metrics.Metrics, result string) float64 {
	return testutil.ToFloat64(m.Joins.WithLabelValues(result))
}

func declarationValue(m *metrics.Metrics, result string) float64 {
	return testutil.ToFloat64(m.Declarations.WithLabelValues(result))
}

func TestRendezvousServer_StartStop(t *testing.T) {
	st := store.NewMemoryStore()
	srv := NewRendezvous(st)
	assert.Nil(t, srv.Addr())

	require.NoError(t, srv.Start("127.0.0.1:0"))
	require.NotNil(t, srv.Addr())

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr().String()+types.HostPath, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("server_port: 25565")))
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(readTimeout)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, types.AckMessage, string(data))

	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	// Hosts are disconnected on shutdown and leave the registry
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(readTimeout)))
	_, _, err = ws.ReadMessage()
	require.Error(t, err)
	require.Eventually(t, func() bool { return st.Connected() == 0 && st.Len() == 0 }, readTimeout, 10*time.Millisecond)
}

func TestRendezvousServer_StartInvalidAddr(t *testing.T) {
	srv := NewRendezvous(store.NewMemoryStore())
	require.Error(t, srv.Start("127.0.0.1:99999"))
}

func TestRendezvousServer_StopBeforeStart(t *testing.T) {
	srv := NewRendezvous(store.NewMemoryStore())
	require.NoError(t, srv.Stop(context.Background()))
}
