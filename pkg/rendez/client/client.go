package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"

	"github.com/yago-123/punch-rendez/pkg/identity"
	"github.com/yago-123/punch-rendez/pkg/rendez/types"

	rerrors "github.com/yago-123/punch-rendez/pkg/error"
)

type Client struct {
	baseURL string
	client  *http.Client
	dialer  *websocket.Dialer
	timeout time.Duration
	logger  logr.Logger
}

func NewRendezvous(baseURL string, opts ...Option) *Client {
	cfg := newDefaultConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: cfg.timeout},
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.timeout, Proxy: http.ProxyFromEnvironment},
		timeout: cfg.timeout,
		logger:  cfg.logger,
	}
}

// Target returns the token a host reachable at endpoint ("ip:port") is registered under
func Target(endpoint string) string {
	return identity.Token(endpoint)
}

// Join asks the server to make the host registered under target punch towards this machine on port. The server
// answers the same way whether the host exists or not, so a nil error only means the request was delivered
func (c *Client) Join(ctx context.Context, target string, port int) error {
	query := url.Values{}
	query.Set(types.TargetParam, target)
	query.Set(types.PortParam, strconv.Itoa(port))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+types.JoinPath+"?"+query.Encode(), nil)
	if err != nil {
		return rerrors.Wrap(rerrors.ErrJoin, fmt.Errorf("create http request: %w", err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return rerrors.Wrap(rerrors.ErrJoin, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return rerrors.Wrap(rerrors.ErrJoin, fmt.Errorf("unexpected status: %s", resp.Status))
	}

	c.logger.V(1).Info("join request sent", "target", target, "port", port)
	return nil
}

// DialHost opens the host control channel and declares port. It returns once the server acknowledged the
// declaration. If another host already holds the same endpoint the server drops the connection and
// ErrDuplicateHost is returned
func (c *Client) DialHost(ctx context.Context, port int) (*HostConn, error) {
	wsURL, err := c.hostURL()
	if err != nil {
		return nil, rerrors.Wrap(rerrors.ErrDialHost, err)
	}

	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.ErrDialHost, err)
	}

	if errWrite := conn.WriteMessage(websocket.TextMessage, []byte(types.FormatDeclaration(port))); errWrite != nil {
		_ = conn.Close()
		return nil, rerrors.Wrap(rerrors.ErrDeclare, errWrite)
	}

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if errDeadline := conn.SetReadDeadline(deadline); errDeadline != nil {
		_ = conn.Close()
		return nil, rerrors.Wrap(rerrors.ErrDeclare, errDeadline)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		// The only reason for the server to hang up here is a duplicate declaration
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			return nil, rerrors.Wrap(rerrors.ErrDuplicateHost, err)
		}
		return nil, rerrors.Wrap(rerrors.ErrDeclare, err)
	}

	if string(data) != types.AckMessage {
		_ = conn.Close()
		return nil, rerrors.Wrap(rerrors.ErrDeclare, fmt.Errorf("unexpected reply %q", string(data)))
	}

	// Instructions may take arbitrarily long to arrive
	if errDeadline := conn.SetReadDeadline(time.Time{}); errDeadline != nil {
		_ = conn.Close()
		return nil, rerrors.Wrap(rerrors.ErrDeclare, errDeadline)
	}

	c.logger.Info("host declared", "port", port)
	return &HostConn{conn: conn, logger: c.logger}, nil
}

func (c *Client) hostURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + types.HostPath
	return u.String(), nil
}

// HostConn is a declared host control channel
type HostConn struct {
	conn   *websocket.Conn
	logger logr.Logger
}

// Instructions calls fn for every punch instruction received until ctx is done or the server closes the channel.
// Messages that are not instructions are skipped. A clean closure returns nil
func (h *HostConn) Instructions(ctx context.Context, fn func(types.Instruction)) error {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			_ = h.conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := h.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return rerrors.Wrap(rerrors.ErrInstruction, err)
		}

		instruction, ok := types.ParseInstruction(string(data))
		if !ok {
			h.logger.V(1).Info("ignoring message", "message", string(data))
			continue
		}

		fn(instruction)
	}
}

func (h *HostConn) Close() error {
	frame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = h.conn.WriteControl(websocket.CloseMessage, frame, time.Now().Add(time.Second))
	return h.conn.Close()
}
