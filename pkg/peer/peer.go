package peer

import "sync"

// Conn is the control channel a host keeps open with the rendezvous server
type Conn interface {
	Send(msg string) error
	Close() error
}

// Host is a connected host waiting for punch instructions. The address it connected from is fixed at connection
// time, while the endpoint and token are only known once the host declares its listening port
type Host struct {
	conn Conn
	seq  uint64
	ip   string

	// sendMu serializes everything written to conn
	sendMu sync.Mutex

	mu       sync.RWMutex
	endpoint string
	token    string
}

func NewHost(seq uint64, ip string, conn Conn) *Host {
	return &Host{
		conn: conn,
		seq:  seq,
		ip:   ip,
	}
}

// Seq is the connection sequence number, only meaningful for correlating logs
func (h *Host) Seq() uint64 {
	return h.seq
}

func (h *Host) IP() string {
	return h.ip
}

func (h *Host) Endpoint() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.endpoint
}

func (h *Host) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *Host) Declared() bool {
	return h.Token() != ""
}

// Declare makes the host known under endpoint and token if register accepts it, then sends ack. No other message
// can reach the host between the registration and the ack. A host declares itself at most once; later calls
// return false without invoking register
func (h *Host) Declare(endpoint, token string, register func(*Host) bool, ack string) (bool, error) {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	if h.Declared() || !register(h) {
		return false, nil
	}

	h.mu.Lock()
	h.endpoint = endpoint
	h.token = token
	h.mu.Unlock()

	return true, h.conn.Send(ack)
}

// Send pushes a message down the control channel. Delivery is not acknowledged by the host
func (h *Host) Send(msg string) error {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()
	return h.conn.Send(msg)
}

func (h *Host) Close() error {
	return h.conn.Close()
}
