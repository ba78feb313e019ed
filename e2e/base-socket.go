package e2e

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/ekuiter/variED-NG/protocol"
	"github.com/ekuiter/variED-NG/runtime"
)

const readTimeout = 5 * time.Second

// wireFrame is the loose decoded form of any server frame; only the
// fields of the frame's actual kind are populated.
type wireFrame struct {
	Type        protocol.Kind   `json:"type"`
	Path        *protocol.Path  `json:"artifactPath"`
	Paths       []protocol.Path `json:"artifactPaths"`
	Error       string          `json:"error"`
	Participant struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"participant"`
	Document json.RawMessage `json:"document"`
	Format   string          `json:"format"`
	Data     string          `json:"data"`
}

type BaseSocketSuite struct {
	suite.Suite
	Config Config

	server *httptest.Server
	wsBase string
}

// SetupSuite loads the environment configuration and, unless an
// external server is configured, starts the full server stack in
// process.
func (s *BaseSocketSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerAddr != "" {
		s.wsBase = "ws://" + s.Config.ServerAddr + "/socket/"
		return
	}

	log := slog.Default()
	directory, err := runtime.NewDirectory(log, nil)
	s.Require().NoError(err)
	hub := runtime.NewHub(log, runtime.NewRegistry(log, 0), directory, runtime.PolicyOpen{})
	socket := runtime.NewSocketServer(log, hub, 5*time.Second)
	s.server = httptest.NewServer(runtime.NewMux(log, socket, hub.Stats, func() {}))
	s.wsBase = "ws" + strings.TrimPrefix(s.server.URL, "http") + "/socket/"
}

func (s *BaseSocketSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
}

// Dial opens one websocket connection with a colorized header in the
// logs. An empty identity asks the server to mint one.
func (s *BaseSocketSuite) Dial(name string, identity string) *socketClient {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	conn, _, err := websocket.DefaultDialer.Dial(s.wsBase+identity, nil)
	s.Require().NoError(err, "Failed to connect to websocket server at "+s.wsBase)
	return &socketClient{suite: s, conn: conn}
}

// Handshake dials and consumes the resync pair every fresh connection
// receives, returning the connected client and its identity.
func (s *BaseSocketSuite) Handshake(name string, identity string) (*socketClient, string) {
	client := s.Dial(name, identity)
	joined := client.Expect(protocol.KindParticipantJoined)
	s.Require().NotEmpty(joined.Participant.ID)
	client.Expect(protocol.KindAddArtifact)
	if identity != "" {
		s.Require().Equal(identity, joined.Participant.ID)
	}
	return client, joined.Participant.ID
}

type socketClient struct {
	suite *BaseSocketSuite
	conn  *websocket.Conn
}

// Send writes one raw JSON frame.
func (c *socketClient) Send(frame string) {
	if c.suite.Config.DebugFrames {
		c.suite.T().Logf("SEND %s", frame)
	}
	c.suite.Require().NoError(c.conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

// Next reads the next frame, failing the test when none arrives in
// time.
func (c *socketClient) Next() wireFrame {
	c.suite.Require().NoError(c.conn.SetReadDeadline(time.Now().Add(readTimeout)))
	_, raw, err := c.conn.ReadMessage()
	c.suite.Require().NoError(err, "expected a frame before the read deadline")
	if c.suite.Config.DebugFrames {
		c.suite.T().Logf("RECV %s", raw)
	}
	var frame wireFrame
	c.suite.Require().NoError(json.Unmarshal(raw, &frame))
	return frame
}

// Expect reads the next frame and asserts its kind.
func (c *socketClient) Expect(kind protocol.Kind) wireFrame {
	frame := c.Next()
	c.suite.Require().Equal(kind, frame.Type, "unexpected frame kind")
	return frame
}

func (c *socketClient) Close() {
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	_ = c.conn.Close()
}
