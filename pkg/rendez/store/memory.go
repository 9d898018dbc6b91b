package store

import (
	"sync"

	"github.com/yago-123/punch-rendez/pkg/peer"
)

type MemoryStore struct {
	mu sync.RWMutex
	// hosts indexes declared hosts by identity token
	hosts map[string]*peer.Host
	// conns holds every open host connection and the token it registered, empty if undeclared
	conns map[*peer.Host]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hosts: make(map[string]*peer.Host),
		conns: make(map[*peer.Host]string),
	}
}

func (s *MemoryStore) Track(h *peer.Host) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[h]; !ok {
		s.conns[h] = ""
	}
}

// TryRegister inserts h under token unless another host already holds it. The check and the insert happen under
// the same lock, so two hosts racing for the same token never both win
func (s *MemoryStore) TryRegister(token string, h *peer.Host) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.hosts[token]; taken {
		return false
	}

	s.hosts[token] = h
	s.conns[h] = token
	return true
}

func (s *MemoryStore) Lookup(token string) (*peer.Host, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hosts[token]
	return h, ok
}

// Remove forgets h. Removing a host twice, or one that never registered, is a no-op
func (s *MemoryStore) Remove(h *peer.Host) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.conns[h]
	if !ok {
		return
	}
	delete(s.conns, h)

	// Only drop the token if it still belongs to this host
	if token != "" && s.hosts[token] == h {
		delete(s.hosts, token)
	}
}

// Hosts returns every open host connection, declared or not, in no particular order
func (s *MemoryStore) Hosts() []*peer.Host {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hosts := make([]*peer.Host, 0, len(s.conns))
	for h := range s.conns {
		hosts = append(hosts, h)
	}
	return hosts
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hosts)
}

func (s *MemoryStore) Connected() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}
