package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logTime = time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

func TestEventLogString(t *testing.T) {
	receiver := &Player{UserID: "u2", PlayerGameID: "1042", Role: RoleHuman}

	tests := []struct {
		name  string
		entry GameEventLog
		want  string
	}{
		{"created", NewGameCreatedEntry(logTime, "mod", "Quad"), "2024-03-05 09:30:00 User mod created game Quad"},
		{"joined", NewPlayerJoinedEntry(logTime, "u1", "1001", RoleHuman), "2024-03-05 09:30:00 User u1 joined the game"},
		{"left", NewPlayerLeftEntry(logTime, "u1", "u1"), "2024-03-05 09:30:00 User u1 left the game"},
		{"removed", NewPlayerLeftEntry(logTime, "u1", "mod"), "2024-03-05 09:30:00 User u1 was removed from the game by user mod"},
		{"started", NewGameStartedEntry(logTime, "mod"), "2024-03-05 09:30:00 User mod started the game"},
		{"tag", NewTagEntry(logTime, "u1", receiver, 1, false), "2024-03-05 09:30:00 User u1 tagged user u2"},
		{"role", NewRoleChangedEntry(logTime, "u1", RoleZombie, "mod"), "2024-03-05 09:30:00 User u1 was changed to zombie by user mod"},
		{"demoted", NewRoleChangedEntry(logTime, "u1", RoleHuman, SystemMaxTagsInstigator), "2024-03-05 09:30:00 User u1 was changed to human after reaching the OZ tag limit"},
		{"status", NewStatusChangedEntry(logTime, "mod", GameStatusPaused), "2024-03-05 09:30:00 User mod set the game status to paused"},
		{"max tags", NewSettingsChangedEntry(logTime, "mod", SettingsChangedPayload{Setting: SettingOzMaxTags, OzMaxTags: 5}), "2024-03-05 09:30:00 User mod set the OZ max tags to 5"},
		{"passcode cleared", NewSettingsChangedEntry(logTime, "mod", SettingsChangedPayload{Setting: SettingOzPasscode}), "2024-03-05 09:30:00 User mod cleared the OZ pool passcode"},
		{"random ozs", NewRandomOzsEntry(logTime, "mod", []UserID{"u3", "u1"}), "2024-03-05 09:30:00 User mod selected random OZs: u3, u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.String())
			assert.NoError(t, tt.entry.Validate())
		})
	}
}

func TestEventLogStringUsesUTC(t *testing.T) {
	local := logTime.In(time.FixedZone("EST", -5*3600))
	assert.Equal(t, "2024-03-05 09:30:00 User mod started the game", NewGameStartedEntry(local, "mod").String())
}

func TestEventLogValidate(t *testing.T) {
	bad := GameEventLog{Kind: EventTag, Timestamp: logTime, ActorID: "u1"}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidLogEntry)

	mismatched := NewGameStartedEntry(logTime, "mod")
	mismatched.GameCreated = &GameCreatedPayload{GameName: "x"}
	assert.ErrorIs(t, mismatched.Validate(), ErrInvalidLogEntry)

	wrongPayload := GameEventLog{Kind: EventTag, Timestamp: logTime, ActorID: "u1", RoleChanged: &RoleChangedPayload{NewRole: RoleHuman}}
	assert.ErrorIs(t, wrongPayload.Validate(), ErrInvalidLogEntry)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{ErrGameNotFound, KindNotFound},
		{fmt.Errorf("%w: game g1", ErrDuplicateGameName), KindConflict},
		{fmt.Errorf("outer: %w", fmt.Errorf("%w: v3", ErrConcurrentModification)), KindConflict},
		{ErrGameNotActive, KindInvalidState},
		{ErrInvalidOzPasscode, KindAuthorization},
		{fmt.Errorf("%w: user u1", ErrNotModerator), KindAuthorization},
		{ErrSelfTag, KindValidation},
		{ErrPlayerIDSpaceExhausted, KindExhausted},
		{errors.New("disk on fire"), KindInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), tt.err.Error())
	}
	assert.Equal(t, "invalid_state", KindInvalidState.String())
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("oz")
	require.NoError(t, err)
	assert.Equal(t, RoleOZ, r)
	assert.True(t, r.CanTag())
	assert.False(t, RoleHuman.CanTag())

	_, err = ParseRole("Zombie")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestGameCloneIsDeep(t *testing.T) {
	g := &Game{
		ID:       "g1",
		Players:  []Player{{UserID: "u1", Role: RoleHuman}},
		OzPool:   []UserID{"u1"},
		EventLog: []GameEventLog{NewRandomOzsEntry(logTime, "mod", []UserID{"u1"})},
	}

	c := g.Clone()
	c.Players[0].Role = RoleZombie
	c.OzPool[0] = "u9"
	c.EventLog[0].RandomOzs.Chosen[0] = "u9"

	assert.Equal(t, RoleHuman, g.Players[0].Role)
	assert.Equal(t, UserID("u1"), g.OzPool[0])
	assert.Equal(t, UserID("u1"), g.EventLog[0].RandomOzs.Chosen[0])
}

func TestReplay(t *testing.T) {
	h2 := &Player{UserID: "u2", PlayerGameID: "1002", Role: RoleHuman}
	entries := []GameEventLog{
		NewGameCreatedEntry(logTime, "mod", "Quad"),
		NewPlayerJoinedEntry(logTime, "u1", "1001", RoleHuman),
		NewPlayerJoinedEntry(logTime, "u2", "1002", RoleHuman),
		NewPlayerJoinedEntry(logTime, "u3", "1003", RoleHuman),
		NewSettingsChangedEntry(logTime, "mod", SettingsChangedPayload{Setting: SettingOzMaxTags, OzMaxTags: 1}),
		NewRandomOzsEntry(logTime, "mod", []UserID{"u1"}),
		NewGameStartedEntry(logTime, "mod"),
		NewStatusChangedEntry(logTime, "mod", GameStatusActive),
		NewTagEntry(logTime, "u1", h2, 1, true),
		NewRoleChangedEntry(logTime, "u1", RoleHuman, SystemMaxTagsInstigator),
		NewPlayerLeftEntry(logTime, "u3", "u3"),
	}

	st := Replay(entries)
	assert.Equal(t, "Quad", st.Name)
	assert.Equal(t, GameStatusActive, st.Status)
	assert.Equal(t, 1, st.OzMaxTags)
	assert.Equal(t, map[UserID]Role{"u1": RoleHuman, "u2": RoleZombie}, st.Roles)
	assert.Equal(t, map[UserID]int{"u1": 1, "u2": 0}, st.TagCounts)
}
