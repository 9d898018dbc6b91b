package store

import "github.com/yago-123/punch-rendez/pkg/peer"

// Store keeps track of the hosts connected to the rendezvous server. Only hosts that declared themselves can be
// looked up by token; the rest are tracked until their connection goes away
type Store interface {
	Track(h *peer.Host)
	TryRegister(token string, h *peer.Host) bool
	Lookup(token string) (*peer.Host, bool)
	Remove(h *peer.Host)
	Hosts() []*peer.Host
	Len() int
	Connected() int
}
