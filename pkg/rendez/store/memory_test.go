package store

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yago-123/punch-rendez/pkg/peer"
)

func TestMemoryStore_RegisterLookupRemove(t *testing.T) {
	s := NewMemoryStore()
	h := peer.NewHost(1, "203.0.113.9", nil)

	s.Track(h)
	assert.Equal(t, 1, s.Connected())
	assert.Equal(t, 0, s.Len())

	_, ok := s.Lookup("token-a")
	assert.False(t, ok, "tracked hosts must not be visible before registering")

	require.True(t, s.TryRegister("token-a", h))
	got, ok := s.Lookup("token-a")
	require.True(t, ok)
	assert.Same(t, h, got)
	assert.Equal(t, 1, s.Len())

	s.Remove(h)
	_, ok = s.Lookup("token-a")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Connected())

	// Removing again is a no-op
	s.Remove(h)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_DuplicateToken(t *testing.T) {
	s := NewMemoryStore()
	first := peer.NewHost(1, "203.0.113.9", nil)
	second := peer.NewHost(2, "203.0.113.9", nil)
	s.Track(first)
	s.Track(second)

	require.True(t, s.TryRegister("token-a", first))
	assert.False(t, s.TryRegister("token-a", second))

	// The loser leaving must not evict the winner
	s.Remove(second)
	got, ok := s.Lookup("token-a")
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Equal(t, 1, s.Connected())
	assert.Equal(t, []*peer.Host{first}, s.Hosts())
}

func TestMemoryStore_TokenReusableAfterRemove(t *testing.T) {
	s := NewMemoryStore()
	first := peer.NewHost(1, "203.0.113.9", nil)
	second := peer.NewHost(2, "203.0.113.9", nil)

	require.True(t, s.TryRegister("token-a", first))
	s.Remove(first)
	require.True(t, s.TryRegister("token-a", second))

	// A stale remove of the first host keeps the new owner
	s.Remove(first)
	got, ok := s.Lookup("token-a")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestMemoryStore_RemoveUntracked(t *testing.T) {
	s := NewMemoryStore()
	s.Remove(peer.NewHost(1, "203.0.113.9", nil))
	assert.Equal(t, 0, s.Connected())
}

func TestMemoryStore_ConcurrentRegister(t *testing.T) {
	const racers = 64

	s := NewMemoryStore()
	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := range racers {
		wg.Add(1)
		go func(seq uint64) {
			defer wg.Done()
			h := peer.NewHost(seq, "203.0.113.9", nil)
			s.Track(h)
			if s.TryRegister("token-a", h) {
				wins.Add(1)
			}
		}(uint64(i))
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, racers, s.Connected())
	assert.Len(t, s.Hosts(), racers)
}

func TestMemoryStore_ConcurrentMixed(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup

	for i := range 32 {
		wg.Add(1)
		go func(seq int) {
			defer wg.Done()
			h := peer.NewHost(uint64(seq), "203.0.113.9", nil)
			token := fmt.Sprintf("token-%d", seq)
			s.Track(h)
			s.TryRegister(token, h)
			s.Lookup(token)
			s.Remove(h)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Connected())
}
