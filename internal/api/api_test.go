package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/hvzgame/internal/api"
	"github.com/mcoot/hvzgame/internal/api/apierr"
	"github.com/mcoot/hvzgame/internal/api/response"
	"github.com/mcoot/hvzgame/internal/factory"
	"github.com/mcoot/hvzgame/internal/model"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// API tests are integration tests - use production factory with real random/clock
	app, err := factory.New(t.Context(), factory.Config{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	app.Start(ctx)

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		UserService: app.UserService,
		Games:       app.Games,
		Orgs:        app.Orgs,
		HubManager:  app.HubManager,
		WSHandler:   app.WSHandler,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[apierr.ErrorResponse](t, rr).Error.Code
}

// registerUser registers a user and returns its id and bearer token
func registerUser(t *testing.T, ts *testServer, name string) (string, string) {
	t.Helper()
	body := map[string]string{"full_name": name, "email": strings.ToLower(name) + "@example.com"}
	rr := ts.request(http.MethodPost, "/api/v1/users", body, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	resp := decodeBody[response.AuthResponse](t, rr)
	return resp.User.ID, resp.Token
}

func createGame(t *testing.T, ts *testServer, token, name string) response.Game {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/games", map[string]any{"name": name}, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody[response.Game](t, rr)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	_, token := registerUser(t, ts, "Alice")
	createGame(t, ts, token, "Metrics")

	rr := ts.request(http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "hvz_operations_total")
}

func TestRegisterAndToken(t *testing.T) {
	ts := newTestServer(t)

	id, token := registerUser(t, ts, "Alice")
	assert.NotEmpty(t, token)

	// Duplicate email
	rr := ts.request(http.MethodPost, "/api/v1/users",
		map[string]string{"full_name": "Other", "email": "ALICE@example.com"}, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeEmailTaken, errorCode(t, rr))

	// Token for an existing user
	rr = ts.request(http.MethodPost, "/api/v1/users/token", map[string]string{"email": "alice@example.com"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	tokenResp := decodeBody[response.AuthResponse](t, rr)
	assert.Equal(t, id, tokenResp.User.ID)

	rr = ts.request(http.MethodGet, "/api/v1/users/me", nil, tokenResp.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Alice", decodeBody[response.User](t, rr).FullName)
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/users", map[string]string{"full_name": "NoEmail"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, rr))
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/users/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/games", map[string]string{"name": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/users/me", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeInvalidCredentials, errorCode(t, rr))
}

func TestGameLifecycleAndTagging(t *testing.T) {
	ts := newTestServer(t)

	modID, modToken := registerUser(t, ts, "Moderator")
	zombieID, zombieToken := registerUser(t, ts, "Zed")
	humanID, humanToken := registerUser(t, ts, "Hannah")

	g := createGame(t, ts, modToken, "Campus")
	assert.Equal(t, "new", g.Status)
	assert.Equal(t, modID, g.CreatorID)
	base := "/api/v1/games/" + g.ID

	rr := ts.request(http.MethodPost, "/api/v1/games", map[string]any{"name": "Campus"}, modToken)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeGameNameTaken, errorCode(t, rr))

	// Both players join
	rr = ts.request(http.MethodPost, base+"/players", nil, zombieToken)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = ts.request(http.MethodPost, base+"/players", nil, humanToken)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = ts.request(http.MethodPost, base+"/players", nil, humanToken)
	assert.Equal(t, apierr.CodeAlreadyPlayer, errorCode(t, rr))

	rr = ts.request(http.MethodGet, base+"/players/"+humanID, nil, modToken)
	require.Equal(t, http.StatusOK, rr.Code)
	human := decodeBody[response.Player](t, rr)
	assert.Equal(t, "human", human.Role)
	assert.Len(t, human.PlayerGameID, 4)

	rr = ts.request(http.MethodGet, base+"/players/by-game-id/"+human.PlayerGameID, nil, modToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, humanID, decodeBody[response.Player](t, rr).UserID)

	rr = ts.request(http.MethodGet, base+"/players/by-game-id/0000", nil, modToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// Moderator makes Zed a zombie
	rr = ts.request(http.MethodPut, base+"/players/"+zombieID+"/role", map[string]string{"role": "zombie"}, modToken)
	require.Equal(t, http.StatusOK, rr.Code)

	// Tagging before start is rejected
	tag := map[string]string{"receiver_player_game_id": human.PlayerGameID}
	rr = ts.request(http.MethodPost, base+"/tags", tag, zombieToken)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeGameNotActive, errorCode(t, rr))

	rr = ts.request(http.MethodPost, base+"/start", nil, modToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decodeBody[response.Game](t, rr).Active)

	rr = ts.request(http.MethodPost, base+"/start", nil, modToken)
	assert.Equal(t, apierr.CodeInvalidTransition, errorCode(t, rr))

	// Humans cannot tag
	rr = ts.request(http.MethodPost, base+"/tags", map[string]string{"receiver_player_game_id": human.PlayerGameID}, humanToken)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.request(http.MethodPost, base+"/tags", tag, zombieToken)
	require.Equal(t, http.StatusCreated, rr.Code)
	after := decodeBody[response.Game](t, rr)
	assert.Equal(t, 2, after.ZombieCount)
	assert.Equal(t, 0, after.HumanCount)

	rr = ts.request(http.MethodGet, base+"/log", nil, modToken)
	require.Equal(t, http.StatusOK, rr.Code)
	log := decodeBody[response.EventLog](t, rr)
	last := log.Entries[len(log.Entries)-1]
	assert.Equal(t, "tag", last.Kind)
	assert.Contains(t, last.Text, "User "+zombieID+" tagged user "+humanID)

	// Status endpoints
	rr = ts.request(http.MethodPut, base+"/active", map[string]bool{"active": false}, modToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "paused", decodeBody[response.Game](t, rr).Status)

	rr = ts.request(http.MethodPut, base+"/status", map[string]string{"status": "ended"}, modToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ended", decodeBody[response.Game](t, rr).Status)

	rr = ts.request(http.MethodPost, base+"/resume", nil, modToken)
	assert.Equal(t, http.StatusConflict, rr.Code)

	// The user's games
	rr = ts.request(http.MethodGet, "/api/v1/users/me/games", nil, humanToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[response.GameList](t, rr).Games, 1)

	rr = ts.request(http.MethodGet, "/api/v1/users/me/games?active=true", nil, humanToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeBody[response.GameList](t, rr).Games)

	rr = ts.request(http.MethodGet, "/api/v1/users/me/games?limit=-1", nil, humanToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOzPoolAndSettings(t *testing.T) {
	ts := newTestServer(t)

	_, modToken := registerUser(t, ts, "Moderator")
	aliceID, aliceToken := registerUser(t, ts, "Alice")
	g := createGame(t, ts, modToken, "Oz")
	base := "/api/v1/games/" + g.ID

	rr := ts.request(http.MethodPost, base+"/players", nil, aliceToken)
	require.Equal(t, http.StatusCreated, rr.Code)

	// Without a passcode set, volunteers join with an empty body
	rr = ts.request(http.MethodPost, base+"/oz-pool", nil, aliceToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{aliceID}, decodeBody[response.Game](t, rr).OzPool)
	rr = ts.request(http.MethodDelete, base+"/oz-pool/"+aliceID, nil, aliceToken)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPut, base+"/settings/oz-passcode", map[string]string{"passcode": "brains"}, modToken)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.NotContains(t, body, "oz_passcode_hash")
	assert.True(t, decodeBody[response.Game](t, rr).OzPasscodeSet)

	rr = ts.request(http.MethodPost, base+"/oz-pool", map[string]string{"passcode": "wrong"}, aliceToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeInvalidPasscode, errorCode(t, rr))

	rr = ts.request(http.MethodPost, base+"/oz-pool", map[string]string{"passcode": "brains"}, aliceToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{aliceID}, decodeBody[response.Game](t, rr).OzPool)

	rr = ts.request(http.MethodPost, base+"/oz-pool/draw", map[string]int{"count": 2}, modToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, base+"/oz-pool/draw", map[string]int{"count": 1}, modToken)
	require.Equal(t, http.StatusOK, rr.Code)
	drawn := decodeBody[response.Game](t, rr)
	assert.Equal(t, 1, drawn.OzCount)
	assert.Empty(t, drawn.OzPool)

	rr = ts.request(http.MethodDelete, base+"/oz-pool/"+aliceID, nil, modToken)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = ts.request(http.MethodPut, base+"/oz-pool/"+aliceID, nil, modToken)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.request(http.MethodDelete, base+"/oz-pool/"+aliceID, nil, modToken)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPut, base+"/settings/oz-max-tags", map[string]int{"oz_max_tags": 5}, modToken)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.request(http.MethodGet, base+"/settings/oz-max-tags", nil, modToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, decodeBody[response.OzTagCount](t, rr).OzMaxTags)

	rr = ts.request(http.MethodPut, base+"/settings/default-role", map[string]string{"role": "zombie"}, modToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "zombie", decodeBody[response.Game](t, rr).DefaultRole)

	rr = ts.request(http.MethodDelete, base+"/settings/oz-passcode", nil, modToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decodeBody[response.Game](t, rr).OzPasscodeSet)

	rr = ts.request(http.MethodDelete, base+"/players/"+aliceID, nil, modToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeBody[response.Game](t, rr).Players)
}

func TestModeratorOnlyRoutes(t *testing.T) {
	ts := newTestServer(t)

	modID, modToken := registerUser(t, ts, "Moderator")
	aliceID, aliceToken := registerUser(t, ts, "Alice")
	bobID, bobToken := registerUser(t, ts, "Bob")
	g := createGame(t, ts, modToken, "Guarded")
	base := "/api/v1/games/" + g.ID

	for _, token := range []string{aliceToken, bobToken} {
		rr := ts.request(http.MethodPost, base+"/players", nil, token)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	denied := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPut, base + "/players/" + aliceID + "/role", map[string]string{"role": "oz"}},
		{http.MethodDelete, base + "/players/" + bobID, nil},
		{http.MethodPost, base + "/start", nil},
		{http.MethodPost, base + "/pause", nil},
		{http.MethodPost, base + "/resume", nil},
		{http.MethodPost, base + "/end", nil},
		{http.MethodPut, base + "/status", map[string]string{"status": "active"}},
		{http.MethodPut, base + "/active", map[string]bool{"active": false}},
		{http.MethodPost, base + "/oz-pool/draw", map[string]int{"count": 1}},
		{http.MethodPut, base + "/oz-pool/" + aliceID, nil},
		{http.MethodDelete, base + "/oz-pool/" + bobID, nil},
		{http.MethodPut, base + "/settings/oz-max-tags", map[string]int{"oz_max_tags": 9}},
		{http.MethodPut, base + "/settings/default-role", map[string]string{"role": "zombie"}},
		{http.MethodPut, base + "/settings/oz-passcode", map[string]string{"passcode": "mine"}},
		{http.MethodDelete, base + "/settings/oz-passcode", nil},
	}
	for _, tt := range denied {
		t.Run(tt.method+" "+strings.TrimPrefix(tt.path, base), func(t *testing.T) {
			rr := ts.request(tt.method, tt.path, tt.body, aliceToken)
			assert.Equal(t, http.StatusForbidden, rr.Code, rr.Body.String())
			assert.Equal(t, apierr.CodeNotModerator, errorCode(t, rr))
		})
	}

	// Nothing changed
	rr := ts.request(http.MethodGet, base+"/players/"+aliceID, nil, aliceToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "human", decodeBody[response.Player](t, rr).Role)
	rr = ts.request(http.MethodGet, base, nil, aliceToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "new", decodeBody[response.Game](t, rr).Status)

	// Unknown games still report not found rather than forbidden
	rr = ts.request(http.MethodPost, "/api/v1/games/missing/start", nil, aliceToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// Players may remove themselves
	rr = ts.request(http.MethodDelete, base+"/players/"+bobID, nil, bobToken)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPut, base+"/players/"+aliceID+"/role", map[string]string{"role": "oz"}, modToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, modID, decodeBody[response.Game](t, rr).CreatorID)
}

func TestOrganizationRoutes(t *testing.T) {
	ts := newTestServer(t)

	_, adminToken := registerUser(t, ts, "Admin")
	otherID, otherToken := registerUser(t, ts, "Other")

	rr := ts.request(http.MethodPost, "/api/v1/orgs", map[string]string{"name": "Campus"}, adminToken)
	require.Equal(t, http.StatusCreated, rr.Code)
	o := decodeBody[response.Organization](t, rr)
	base := "/api/v1/orgs/" + o.ID

	rr = ts.request(http.MethodPost, base+"/game", map[string]string{"name": "Spring"}, otherToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeNotOrgAdmin, errorCode(t, rr))

	rr = ts.request(http.MethodGet, base+"/game", nil, adminToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.request(http.MethodPost, base+"/game", map[string]string{"name": "Spring"}, adminToken)
	require.Equal(t, http.StatusCreated, rr.Code)
	spring := decodeBody[response.Game](t, rr)
	assert.Equal(t, o.ID, spring.OrgID)

	rr = ts.request(http.MethodPost, base+"/game", map[string]string{"name": "Second"}, adminToken)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = ts.request(http.MethodPost, base+"/admins", map[string]string{"user_id": otherID}, adminToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, decodeBody[response.Organization](t, rr).Admins, otherID)

	// A game that never started cannot be ended and stays current
	rr = ts.request(http.MethodDelete, base+"/game", nil, otherToken)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeInvalidTransition, errorCode(t, rr))
	rr = ts.request(http.MethodGet, base+"/game", nil, adminToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, spring.ID, decodeBody[response.Game](t, rr).ID)

	// Organization admins moderate games they did not create
	rr = ts.request(http.MethodPost, "/api/v1/games/"+spring.ID+"/start", nil, otherToken)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodDelete, base+"/game", nil, otherToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ended", decodeBody[response.Game](t, rr).Status)

	rr = ts.request(http.MethodGet, base, nil, adminToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeBody[response.Organization](t, rr).ActiveGameID)
}

func TestStreams(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	_, modToken := registerUser(t, ts, "Moderator")
	_, playerToken := registerUser(t, ts, "Player")
	g := createGame(t, ts, modToken, "Streamed")

	// Unknown games are rejected before streaming starts
	resp, err := http.Get(srv.URL + "/api/v1/games/missing/events?access_token=" + modToken)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// SSE
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/games/"+g.ID+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+modToken)
	sseResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer sseResp.Body.Close()
	require.Equal(t, http.StatusOK, sseResp.StatusCode)
	events := bufio.NewReader(sseResp.Body)
	line, err := events.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	// WebSocket
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/games/" + g.ID + "/ws?access_token=" + modToken
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	var hello map[string]string
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, g.ID, hello["game_id"])

	// Hub registration and the broadcaster's bus subscription are asynchronous
	require.Eventually(t, func() bool {
		hub := ts.app.HubManager.Lookup(model.GameID(g.ID))
		return hub != nil && hub.ClientCount() == 1 && ts.app.Bus.SubscriberCount() == 2
	}, time.Second, time.Millisecond)

	rr := ts.request(http.MethodPost, "/api/v1/games/"+g.ID+"/players", nil, playerToken)
	require.Equal(t, http.StatusCreated, rr.Code)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var n response.Notification
	require.NoError(t, conn.ReadJSON(&n))
	assert.Equal(t, "player_joined_game", n.Type)

	for {
		line, err = events.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: ") {
			break
		}
	}
	assert.Equal(t, "event: player_joined_game\n", line)
}
