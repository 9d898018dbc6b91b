package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yago-123/punch-rendez/pkg/metrics"
	"github.com/yago-123/punch-rendez/pkg/peer"
	"github.com/yago-123/punch-rendez/pkg/rendez/store"
	"github.com/yago-123/punch-rendez/pkg/rendez/types"
	"github.com/yago-123/punch-rendez/pkg/resolve"
)

const (
	// MaxHostMessageBytes is the largest host message that is parsed, longer ones are drained and counted as malformed
	MaxHostMessageBytes = 1024

	minJoinPort = 1000
	maxJoinPort = 65535
)

type Handler struct {
	store    store.Store
	cfg      *config
	upgrader websocket.Upgrader
	seq      atomic.Uint64
}

func NewHandler(s store.Store, cfg *config) *Handler {
	return &Handler{
		store: s,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  MaxHostMessageBytes,
			WriteBufferSize: MaxHostMessageBytes,
			// Hosts are native programs, not browsers
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// IndexHandler godoc
// @Summary      Service banner
// @Produce      plain
// @Success      200  {string}  string "this website helps you nat punch"
// @Router       / [get]
func (h *Handler) IndexHandler(c *gin.Context) {
	c.String(http.StatusOK, types.Banner)
}

// JoinHandler godoc
// @Summary      Ask a host to punch towards the caller
// @Description  Sends "open <caller ip> <port>" to the host registered under target. The response is the same
// @Description  whether or not a host was found
// @Tags         rendezvous
// @Produce      plain
// @Param        target query string true  "Host identity token"
// @Param        port   query int    false "Port the host should punch towards"
// @Success      200  {string}  string "ok"
// @Router       /api/join [post]
func (h *Handler) JoinHandler(c *gin.Context) {
	ip := h.clientIP(c)
	target := c.Query(types.TargetParam)
	rawPort := c.DefaultQuery(types.PortParam, "0")
	port := parseJoinPort(rawPort)
	logger := h.cfg.logger.WithValues("ip", ip, "target", target, "port", rawPort)

	if !validJoinPort(port) {
		logger.Info("failed to join", "reason", "port out of range")
		h.cfg.metrics.ObserveJoin(metrics.JoinBadPort)
		c.String(http.StatusOK, types.JoinResponse)
		return
	}

	host, ok := h.store.Lookup(target)
	if !ok {
		logger.Info("failed to join", "reason", "unknown target")
		h.cfg.metrics.ObserveJoin(metrics.JoinUnknownTarget)
		c.String(http.StatusOK, types.JoinResponse)
		return
	}

	// Fire and forget, a dead host is cleaned up by its own session
	instruction := types.Instruction{IP: ip, Port: port}
	if err := host.Send(instruction.String()); err != nil {
		logger.Info("failed to deliver punch instruction", "seq", host.Seq(), "error", err.Error())
		h.cfg.metrics.ObserveJoin(metrics.JoinSendFailed)
		c.String(http.StatusOK, types.JoinResponse)
		return
	}

	logger.Info("wants to join", "seq", host.Seq(), "host", host.Endpoint())
	h.cfg.metrics.ObserveJoin(metrics.JoinForwarded)
	c.String(http.StatusOK, types.JoinResponse)
}

// HostHandler godoc
// @Summary      Host control channel
// @Description  Websocket. The host sends "server_port: <port>" once and then receives "open <ip> <port>"
// @Description  instructions until it disconnects
// @Tags         rendezvous
// @Success      101
// @Router       /api/host [get]
func (h *Handler) HostHandler(c *gin.Context) {
	ip := resolve.HostIP(h.clientIP(c), h.cfg.externalIP)

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader already answered the request
		h.cfg.logger.V(1).Info("websocket upgrade failed", "ip", ip, "error", err.Error())
		return
	}

	conn := newWSConn(ws, h.cfg.writeTimeout)
	defer conn.Close()

	session := newHostSession(peer.NewHost(h.seq.Add(1)-1, ip, conn), h.store, h.cfg.metrics, h.cfg.logger)
	defer session.close()

	for {
		_, r, errRead := ws.NextReader()
		if errRead != nil {
			logReadError(session, errRead)
			return
		}

		data, fits, errRead := readHostMessage(r)
		if errRead != nil {
			logReadError(session, errRead)
			return
		}

		if !fits {
			session.skip()
			continue
		}
		session.handle(string(data))
	}
}

func logReadError(session *hostSession, err error) {
	if !isExpectedClose(err) {
		session.logger.V(1).Info("host read error", "error", err.Error())
	}
}

// readHostMessage reads a frame of at most MaxHostMessageBytes. A longer frame is drained and reported as not fitting
func readHostMessage(r io.Reader) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxHostMessageBytes+1))
	if err != nil {
		return nil, false, err
	}
	if len(data) <= MaxHostMessageBytes {
		return data, true, nil
	}

	if _, err = io.Copy(io.Discard, r); err != nil {
		return nil, false, err
	}
	return nil, false, nil
}

func (h *Handler) clientIP(c *gin.Context) string {
	return resolve.IP(c.Request.RemoteAddr, c.GetHeader(resolve.ForwardedHeader), h.cfg.trustProxy)
}

// parseJoinPort returns 0 for anything that is not a number, which the range check then rejects
func parseJoinPort(raw string) int {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return port
}

func validJoinPort(port int) bool {
	return port > minJoinPort && port < maxJoinPort
}

func isExpectedClose(err error) bool {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway
	}
	return false
}
