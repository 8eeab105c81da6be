package cli

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEvents(t *testing.T) {
	stream := strings.Join([]string{
		"event: connected",
		"data: {}",
		"",
		": keepalive",
		"",
		"id: 7",
		"event: tag_logged",
		"data: {\"type\":\"tag_logged\",",
		"data: \"game_id\":\"g1\"}",
		"",
		"data: orphan",
		"",
	}, "\n")

	var got []SSEEvent
	err := readEvents(strings.NewReader(stream), func(evt SSEEvent) {
		got = append(got, evt)
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "connected", got[0].Event)
	assert.Empty(t, got[0].ID)
	assert.Equal(t, "tag_logged", got[1].Event)
	assert.Equal(t, "7", got[1].ID)
	assert.Equal(t, "{\"type\":\"tag_logged\",\n\"game_id\":\"g1\"}", got[1].Data)
}

func TestConfigTokenRoundTrip(t *testing.T) {
	c := &Config{TokenFile: filepath.Join(t.TempDir(), "nested", "token")}

	// A missing token file is not an error
	require.NoError(t, c.LoadToken())
	assert.Empty(t, c.Token)

	require.NoError(t, c.SaveToken("abc.def.ghi"))

	info, err := os.Stat(c.TokenFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := &Config{TokenFile: c.TokenFile}
	require.NoError(t, loaded.LoadToken())
	assert.Equal(t, "abc.def.ghi", loaded.Token)

	// An explicit token wins over the file
	explicit := &Config{Token: "flag", TokenFile: c.TokenFile}
	require.NoError(t, explicit.LoadToken())
	assert.Equal(t, "flag", explicit.Token)
}

func TestGamePathEscapes(t *testing.T) {
	assert.Equal(t, "/games/g1/players/u%2F2/role", gamePath("g1", "players", "u/2", "role"))
	assert.Equal(t, "/orgs/o1/game", orgPath("o1", "game"))
}

func TestConfigValidate(t *testing.T) {
	c := DefaultConfig()
	c.ServerURL = "http://localhost:8080"
	require.NoError(t, c.Validate())

	c.Output = "yaml"
	assert.ErrorContains(t, c.Validate(), "invalid output format")

	c.Output = "json"
	c.ServerURL = "localhost"
	assert.ErrorContains(t, c.Validate(), "invalid server URL")
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{Status: 404, Code: "GAME_NOT_FOUND", Message: "Game not found"}
	assert.Equal(t, "Game not found (GAME_NOT_FOUND)", err.Error())

	plain := &APIError{Status: 502, Message: "bad gateway"}
	assert.Equal(t, "HTTP 502: bad gateway", plain.Error())
}

func TestClientDo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/api/v1/games/g1":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "g1", "status": "active"})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"GAME_NOT_FOUND","message":"Game not found"}}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "tok")

	var g Game
	require.NoError(t, c.Get(gamePath("g1"), &g))
	assert.Equal(t, "active", g.Status)

	err := c.Get(gamePath("missing"), &g)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "GAME_NOT_FOUND", apiErr.Code)
}
