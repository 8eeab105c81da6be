package ws

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/hvzgame/internal/api/response"
	"github.com/mcoot/hvzgame/internal/events"
	"github.com/mcoot/hvzgame/internal/model"
)

type WSSuite struct {
	suite.Suite
	bus    *events.Bus
	server *httptest.Server
}

func TestWSSuite(t *testing.T) {
	suite.Run(t, new(WSSuite))
}

func (s *WSSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.bus = events.NewBus(8, logger)
	handler := NewHandler(s.bus, logger)
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.Serve(w, r, model.GameID(r.URL.Query().Get("game")), "u1")
	}))
}

func (s *WSSuite) TearDownTest() {
	s.bus.Close()
	s.server.Close()
}

func (s *WSSuite) dial(gameID string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/?game=" + gameID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })

	var hello Hello
	s.Require().NoError(conn.ReadJSON(&hello))
	s.Equal("connected", hello.Type)
	s.Equal(gameID, hello.GameID)
	return conn
}

func (s *WSSuite) waitForSubscribers(n int) {
	s.Eventually(func() bool { return s.bus.SubscriberCount() == n }, time.Second, time.Millisecond)
}

func (s *WSSuite) TestReceivesNotificationsForItsGame() {
	conn := s.dial("g1")
	s.waitForSubscribers(1)

	s.bus.Publish(model.Notification{Type: model.NotifyPlayerJoinedGame, GameID: "g2", UserID: "other"})
	s.bus.Publish(model.Notification{
		Type:   model.NotifyPlayerJoinedGame,
		GameID: "g1",
		UserID: "u7",
		Game:   &model.Game{ID: "g1", OzPasscodeHash: "$2a$10$secrethash"},
	})

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := conn.ReadMessage()
	s.Require().NoError(err)
	s.NotContains(string(raw), "secrethash")
	s.NotContains(string(raw), "oz_passcode_hash")

	var n response.Notification
	s.Require().NoError(json.Unmarshal(raw, &n))
	s.Equal("player_joined_game", n.Type)
	s.Equal("g1", n.GameID)
	s.Equal("u7", n.UserID)
	s.Require().NotNil(n.Game)
	s.True(n.Game.OzPasscodeSet)
}

func (s *WSSuite) TestClientDisconnectReleasesSubscription() {
	conn := s.dial("g1")
	s.waitForSubscribers(1)

	s.Require().NoError(conn.Close())
	s.waitForSubscribers(0)
}

func (s *WSSuite) TestBusCloseSendsCloseFrame() {
	conn := s.dial("g1")
	s.waitForSubscribers(1)

	s.bus.Close()

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	s.True(websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestServeRejectsPlainHTTP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := events.NewBus(1, logger)
	handler := NewHandler(bus, logger)

	rec := httptest.NewRecorder()
	handler.Serve(rec, httptest.NewRequest(http.MethodGet, "/", nil), "g1", "u1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 0, bus.SubscriberCount())
}
