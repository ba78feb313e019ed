package runtime

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ekuiter/variED-NG/errors"
	"github.com/ekuiter/variED-NG/protocol"
)

// SocketServer bridges websocket connections to the hub. Each
// connection is owned by one read loop, so handling of messages
// belonging to the same connection is naturally serialized; the hub's
// lock serializes across connections.
type SocketServer struct {
	log          *slog.Logger
	hub          *Hub
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
}

func NewSocketServer(log *slog.Logger, hub *Hub, writeTimeout time.Duration) *SocketServer {
	return &SocketServer{
		log: log,
		hub: hub,
		upgrader: websocket.Upgrader{
			// Identity is the only credential; origins are not checked
			// beyond what the deployment places in front of the server.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		writeTimeout: writeTimeout,
	}
}

// Handle upgrades one request at /socket/<identity> (or bare /socket/
// to mint an identity) and runs its read loop until the peer goes away.
func (s *SocketServer) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	transport := &socketTransport{conn: conn, writeTimeout: s.writeTimeout}

	identity, err := parseIdentity(r.URL.Path)
	if err != nil {
		// A malformed token is fatal for this connection only.
		s.refuse(transport, err)
		return
	}
	id, err := s.hub.Connect(transport, identity)
	if err != nil {
		s.refuse(transport, err)
		return
	}
	s.log.Debug("websocket opened", "participant", id, "remote", r.RemoteAddr)

	s.readLoop(conn, id)

	s.log.Debug("websocket closed", "participant", id)
	s.hub.Disconnect(id, transport)
	_ = transport.Close()
}

func (s *SocketServer) readLoop(conn *websocket.Conn, id uuid.UUID) {
	for {
		kind, frame, err := conn.ReadMessage()
		if err != nil {
			if isExpectedClose(err) {
				return
			}
			// Unexpected I/O fault: force-close; nothing can be sent on
			// an unusable transport.
			s.log.Warn("websocket error, force-closing", "participant", id, "err", err)
			return
		}
		if kind != websocket.TextMessage {
			s.log.Debug("ignoring non-text frame", "participant", id)
			continue
		}
		s.hub.Route(id, frame)
	}
}

func (s *SocketServer) refuse(transport *socketTransport, reason error) {
	s.log.Warn("refusing connection", "err", reason)
	if frame, err := protocol.Encode(protocol.NewError(reason)); err == nil {
		_ = transport.Send(frame)
	}
	_ = transport.Close()
}

// parseIdentity extracts the optional identity token from the request
// path. An empty segment asks the server to mint one; anything else
// must be a well-formed identity.
func parseIdentity(path string) (*uuid.UUID, error) {
	raw := strings.Trim(strings.TrimPrefix(path, "/socket"), "/")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errors.Decode(err)
	}
	return &id, nil
}

// isExpectedClose reports whether the read failed because the peer went
// away normally, as opposed to an unexpected I/O fault.
func isExpectedClose(err error) bool {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived) {
		return true
	}
	var netErr *net.OpError
	return errors.As(err, &netErr)
}

// socketTransport adapts one websocket connection to contract.Transport.
// Sends carry a deadline so a stalled peer fails fast and leaves the
// remaining queue for a later flush.
type socketTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (t *socketTransport) Send(frame []byte) error {
	_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	return t.conn.WriteMessage(websocket.TextMessage, frame)
}

func (t *socketTransport) Close() error {
	return t.conn.Close()
}
