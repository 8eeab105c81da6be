package response

import (
	"time"

	"github.com/mcoot/hvzgame/internal/model"
	"github.com/mcoot/hvzgame/internal/services/user"
)

// User represents a user in API responses
type User struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	return User{
		ID:        string(u.ID),
		FullName:  u.FullName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// AuthResponse is the response for registration and token endpoints
type AuthResponse struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResponseFromToken creates an AuthResponse
func AuthResponseFromToken(u *model.User, t *user.Token) AuthResponse {
	return AuthResponse{
		User:      UserFromModel(u),
		Token:     t.Value,
		ExpiresAt: t.ExpiresAt,
	}
}

// Player represents a player within a game
type Player struct {
	UserID       string    `json:"user_id"`
	PlayerGameID string    `json:"player_game_id"`
	Role         string    `json:"role"`
	TagCount     int       `json:"tag_count"`
	JoinedAt     time.Time `json:"joined_at"`
}

// PlayerFromModel converts a model.Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		UserID:       string(p.UserID),
		PlayerGameID: string(p.PlayerGameID),
		Role:         string(p.Role),
		TagCount:     p.TagCount,
		JoinedAt:     p.JoinedAt,
	}
}

// Game represents a game in API responses. The OZ passcode hash is never exposed.
type Game struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CreatorID     string    `json:"creator_id"`
	OrgID         string    `json:"org_id,omitempty"`
	Status        string    `json:"status"`
	Active        bool      `json:"active"`
	DefaultRole   string    `json:"default_role"`
	OzMaxTags     int       `json:"oz_max_tags"`
	OzPool        []string  `json:"oz_pool"`
	OzPasscodeSet bool      `json:"oz_passcode_set"`
	Players       []Player  `json:"players"`
	HumanCount    int       `json:"human_count"`
	ZombieCount   int       `json:"zombie_count"`
	OzCount       int       `json:"oz_count"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GameFromModel converts a model.Game
func GameFromModel(g *model.Game) Game {
	players := make([]Player, len(g.Players))
	for i := range g.Players {
		players[i] = PlayerFromModel(&g.Players[i])
	}
	return Game{
		ID:            string(g.ID),
		Name:          g.Name,
		CreatorID:     string(g.CreatorID),
		OrgID:         string(g.OrgID),
		Status:        string(g.Status),
		Active:        g.IsActive(),
		DefaultRole:   string(g.DefaultRole),
		OzMaxTags:     g.OzMaxTags,
		OzPool:        userIDs(g.OzPool),
		OzPasscodeSet: g.HasOzPasscode(),
		Players:       players,
		HumanCount:    len(g.Humans()),
		ZombieCount:   len(g.Zombies()),
		OzCount:       len(g.Ozs()),
		Version:       g.Version,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
}

// GameList is a list of games
type GameList struct {
	Games []Game `json:"games"`
}

// GameListFromModels converts a slice of games
func GameListFromModels(games []*model.Game) GameList {
	out := GameList{Games: make([]Game, len(games))}
	for i, g := range games {
		out.Games[i] = GameFromModel(g)
	}
	return out
}

// LogEntry is one rendered event log entry
type LogEntry struct {
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actor_id"`
	Text      string    `json:"text"`
	Payload   any       `json:"payload,omitempty"`
}

// EventLog is a game's event log
type EventLog struct {
	GameID  string     `json:"game_id"`
	Entries []LogEntry `json:"entries"`
}

// EventLogFromModel converts a game's log entries
func EventLogFromModel(gameID model.GameID, entries []model.GameEventLog) EventLog {
	out := EventLog{GameID: string(gameID), Entries: make([]LogEntry, len(entries))}
	for i, e := range entries {
		out.Entries[i] = LogEntry{
			Kind:      string(e.Kind),
			Timestamp: e.Timestamp,
			ActorID:   string(e.ActorID),
			Text:      e.String(),
			Payload:   e.Payload(),
		}
	}
	return out
}

// OzTagCount is the OZ max tags setting of a game
type OzTagCount struct {
	GameID    string `json:"game_id"`
	OzMaxTags int    `json:"oz_max_tags"`
}

// Organization represents an organization
type Organization struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatorID    string    `json:"creator_id"`
	Admins       []string  `json:"admins"`
	ActiveGameID string    `json:"active_game_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// OrganizationFromModel converts a model.Organization
func OrganizationFromModel(o *model.Organization) Organization {
	return Organization{
		ID:           string(o.ID),
		Name:         o.Name,
		CreatorID:    string(o.CreatorID),
		Admins:       userIDs(o.Admins),
		ActiveGameID: string(o.ActiveGameID),
		CreatedAt:    o.CreatedAt,
	}
}

// Notification is the payload pushed to streaming clients
type Notification struct {
	Type         string    `json:"type"`
	GameID       string    `json:"game_id"`
	Timestamp    time.Time `json:"timestamp"`
	InstigatorID string    `json:"instigator_id,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	ReceiverID   string    `json:"receiver_id,omitempty"`
	Role         string    `json:"role,omitempty"`
	TagCount     int       `json:"tag_count,omitempty"`
	OzIDs        []string  `json:"oz_ids,omitempty"`
	Status       string    `json:"status,omitempty"`
	Game         *Game     `json:"game,omitempty"`
}

// NotificationFromModel converts a model.Notification
func NotificationFromModel(n model.Notification) Notification {
	out := Notification{
		Type:         string(n.Type),
		GameID:       string(n.GameID),
		Timestamp:    n.Timestamp,
		InstigatorID: string(n.InstigatorID),
		UserID:       string(n.UserID),
		ReceiverID:   string(n.ReceiverID),
		Role:         string(n.Role),
		TagCount:     n.TagCount,
		Status:       string(n.Status),
	}
	if len(n.OzIDs) > 0 {
		out.OzIDs = userIDs(n.OzIDs)
	}
	if n.Game != nil {
		g := GameFromModel(n.Game)
		out.Game = &g
	}
	return out
}

// HealthResponse is the health check response
type HealthResponse struct {
	Status string `json:"status"`
}

func userIDs(ids []model.UserID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
