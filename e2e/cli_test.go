package e2e_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/hvzgame/internal/api"
	"github.com/mcoot/hvzgame/internal/factory"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
	tokenFile  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	projectRoot := findProjectRoot(t)

	binaryPath := filepath.Join(t.TempDir(), "hvzctl-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/hvzctl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
		tokenFile:  filepath.Join(t.TempDir(), "token"),
	}
}

// withTokenFile returns a runner sharing the binary but keeping its own token
func (r *cliRunner) withTokenFile(t *testing.T) *cliRunner {
	return &cliRunner{
		binaryPath: r.binaryPath,
		serverURL:  r.serverURL,
		tokenFile:  filepath.Join(t.TempDir(), "token"),
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	cmd.Env = append(os.Environ(), "HVZ_TOKEN=")
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func (r *cliRunner) mustRun(t *testing.T, out any, args ...string) {
	t.Helper()

	output, err := r.run(args...)
	require.NoError(t, err, "hvzctl %s: %s", strings.Join(args, " "), output)
	if out != nil {
		require.NoError(t, json.Unmarshal([]byte(output), out), "output: %s", output)
	}
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// startTestServer runs the full application on a free local port
func startTestServer(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	app, err := factory.New(ctx, factory.Config{Logger: logger})
	require.NoError(t, err)
	app.Start(ctx)

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		UserService: app.UserService,
		Games:       app.Games,
		Orgs:        app.Orgs,
		HubManager:  app.HubManager,
		WSHandler:   app.WSHandler,
	})
	server := api.NewServer(router, api.DefaultServerConfig(), logger)

	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	t.Cleanup(func() {
		cancel()
		_ = app.Close()
		_ = server.Shutdown(context.Background())
	})

	serverURL := "http://" + listener.Addr().String()
	waitForServer(t, serverURL+"/api/v1/health")
	return serverURL
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type authResponse struct {
	User struct {
		ID       string `json:"id"`
		FullName string `json:"full_name"`
		Email    string `json:"email"`
	} `json:"user"`
	Token string `json:"token"`
}

type playerResponse struct {
	UserID       string `json:"user_id"`
	PlayerGameID string `json:"player_game_id"`
	Role         string `json:"role"`
	TagCount     int    `json:"tag_count"`
}

type gameResponse struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Status        string           `json:"status"`
	Active        bool             `json:"active"`
	OzMaxTags     int              `json:"oz_max_tags"`
	OzPool        []string         `json:"oz_pool"`
	OzPasscodeSet bool             `json:"oz_passcode_set"`
	Players       []playerResponse `json:"players"`
	HumanCount    int              `json:"human_count"`
	ZombieCount   int              `json:"zombie_count"`
	OzCount       int              `json:"oz_count"`
}

type eventLogResponse struct {
	Entries []struct {
		Kind string `json:"kind"`
		Text string `json:"text"`
	} `json:"entries"`
}

type orgResponse struct {
	ID           string   `json:"id"`
	Admins       []string `json:"admins"`
	ActiveGameID string   `json:"active_game_id"`
}

func TestCLI_HealthCheck(t *testing.T) {
	cli := newCLIRunner(t, startTestServer(t))

	var resp struct {
		Status string `json:"status"`
	}
	cli.mustRun(t, &resp, "health")
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_UserCommands(t *testing.T) {
	cli := newCLIRunner(t, startTestServer(t))

	var auth authResponse
	cli.mustRun(t, &auth, "user", "register", "--name", "Alice Smith", "--email", "alice@example.com")
	assert.Equal(t, "Alice Smith", auth.User.FullName)
	assert.NotEmpty(t, auth.Token)

	// The token is saved to the token file
	var me struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	cli.mustRun(t, &me, "user", "me")
	assert.Equal(t, auth.User.ID, me.ID)

	// A second login issues a token for the same user
	other := cli.withTokenFile(t)
	var again authResponse
	other.mustRun(t, &again, "user", "token", "--email", "alice@example.com")
	assert.Equal(t, auth.User.ID, again.User.ID)

	var games struct {
		Games []gameResponse `json:"games"`
	}
	cli.mustRun(t, &games, "user", "games")
	assert.Empty(t, games.Games)
}

func TestCLI_FullGameFlow(t *testing.T) {
	serverURL := startTestServer(t)
	mod := newCLIRunner(t, serverURL)
	oz := mod.withTokenFile(t)
	human := mod.withTokenFile(t)

	var modAuth, ozAuth, humanAuth authResponse
	mod.mustRun(t, &modAuth, "user", "register", "--name", "Mod", "--email", "mod@example.com")
	oz.mustRun(t, &ozAuth, "user", "register", "--name", "Olive", "--email", "olive@example.com")
	human.mustRun(t, &humanAuth, "user", "register", "--name", "Hugo", "--email", "hugo@example.com")

	var g gameResponse
	mod.mustRun(t, &g, "game", "create", "--name", "Quad Week", "--oz-max-tags", "1")
	assert.Equal(t, "new", g.Status)
	assert.Equal(t, 1, g.OzMaxTags)

	var byName gameResponse
	mod.mustRun(t, &byName, "game", "get", "--name", "Quad Week")
	assert.Equal(t, g.ID, byName.ID)

	oz.mustRun(t, nil, "game", "join", g.ID)
	human.mustRun(t, nil, "game", "join", g.ID)

	// Olive volunteers as an OZ and is drawn
	mod.mustRun(t, &g, "game", "oz", "passcode", g.ID, "brains")
	assert.True(t, g.OzPasscodeSet)

	output, err := oz.run("game", "oz", "join", g.ID, "--passcode", "wrong")
	assert.Error(t, err)
	assert.Contains(t, output, "INVALID_OZ_PASSCODE")

	oz.mustRun(t, &g, "game", "oz", "join", g.ID, "--passcode", "brains")
	assert.Equal(t, []string{ozAuth.User.ID}, g.OzPool)

	mod.mustRun(t, &g, "game", "oz", "draw", g.ID, "1")
	assert.Equal(t, 1, g.OzCount)

	mod.mustRun(t, &g, "game", "start", g.ID)
	assert.Equal(t, "active", g.Status)

	var target playerResponse
	mod.mustRun(t, &target, "game", "player", g.ID, humanAuth.User.ID)
	assert.Equal(t, "human", target.Role)

	// The OZ reaches the max tag count and reverts to human
	oz.mustRun(t, &g, "game", "tag", g.ID, target.PlayerGameID)
	assert.Equal(t, 1, g.ZombieCount)
	assert.Equal(t, 0, g.OzCount)

	var log eventLogResponse
	mod.mustRun(t, &log, "game", "log", g.ID)
	require.NotEmpty(t, log.Entries)
	var tagged bool
	for _, e := range log.Entries {
		if e.Kind == "tag" {
			tagged = true
			assert.Contains(t, e.Text, "User "+ozAuth.User.ID+" tagged user "+humanAuth.User.ID)
		}
	}
	assert.True(t, tagged, "log should contain the tag")

	mod.mustRun(t, &g, "game", "pause", g.ID)
	assert.Equal(t, "paused", g.Status)
	mod.mustRun(t, &g, "game", "active", g.ID, "true")
	assert.Equal(t, "active", g.Status)

	human.mustRun(t, &g, "game", "leave", g.ID)
	assert.Len(t, g.Players, 1)

	mod.mustRun(t, &g, "game", "end", g.ID)
	assert.Equal(t, "ended", g.Status)
}

func TestCLI_OrganizationFlow(t *testing.T) {
	serverURL := startTestServer(t)
	admin := newCLIRunner(t, serverURL)
	other := admin.withTokenFile(t)

	var adminAuth, otherAuth authResponse
	admin.mustRun(t, &adminAuth, "user", "register", "--name", "Admin", "--email", "admin@example.com")
	other.mustRun(t, &otherAuth, "user", "register", "--name", "Other", "--email", "other@example.com")

	var org orgResponse
	admin.mustRun(t, &org, "org", "create", "--name", "State University")
	assert.Equal(t, []string{adminAuth.User.ID}, org.Admins)

	output, err := other.run("org", "game", "create", org.ID, "--name", "Spring")
	assert.Error(t, err)
	assert.Contains(t, output, "NOT_ORG_ADMIN")

	admin.mustRun(t, &org, "org", "add-admin", org.ID, otherAuth.User.ID)
	assert.Len(t, org.Admins, 2)

	var g gameResponse
	other.mustRun(t, &g, "org", "game", "create", org.ID, "--name", "Spring")

	admin.mustRun(t, &org, "org", "get", org.ID)
	assert.Equal(t, g.ID, org.ActiveGameID)

	var active gameResponse
	admin.mustRun(t, &active, "org", "game", "get", org.ID)
	assert.Equal(t, g.ID, active.ID)

	// A new game must be started before it can be ended
	output, err = admin.run("org", "game", "end", org.ID)
	assert.Error(t, err)
	assert.Contains(t, output, "INVALID_TRANSITION")

	admin.mustRun(t, nil, "game", "start", g.ID)
	admin.mustRun(t, &active, "org", "game", "end", org.ID)
	assert.Equal(t, "ended", active.Status)
}

func TestCLI_ErrorHandling(t *testing.T) {
	cli := newCLIRunner(t, startTestServer(t))

	output, err := cli.run("user", "me")
	assert.Error(t, err)
	assert.Contains(t, output, "UNAUTHORIZED")

	cli.mustRun(t, nil, "user", "register", "--name", "Alice", "--email", "alice@example.com")

	output, err = cli.run("game", "get", "no-such-game")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "not found")

	output, err = cli.run("user", "register", "--name", "Alice", "--email", "alice@example.com")
	assert.Error(t, err)
	assert.Contains(t, output, "EMAIL_TAKEN")
}
