package model

import (
	"slices"
	"time"
)

// GameID uniquely identifies a game
type GameID string

// GameStatus is the lifecycle state of a game
type GameStatus string

const (
	GameStatusNew    GameStatus = "new"
	GameStatusActive GameStatus = "active"
	GameStatusPaused GameStatus = "paused"
	GameStatusEnded  GameStatus = "ended" // terminal
)

// AllGameStatuses lists every status in lifecycle order
func AllGameStatuses() []GameStatus {
	return []GameStatus{GameStatusNew, GameStatusActive, GameStatusPaused, GameStatusEnded}
}

// DefaultOzMaxTags is the tag count at which an OZ reverts to human
const DefaultOzMaxTags = 3

// Game is the aggregate root for one game instance. It owns its players,
// OZ pool and event log. Services treat a loaded Game as a value: mutations
// are applied to a Clone and written back whole.
type Game struct {
	ID          GameID     `json:"id" bson:"_id"`
	Name        string     `json:"name" bson:"name"`
	CreatorID   UserID     `json:"creator_id" bson:"creator_id"`
	OrgID       OrgID      `json:"org_id" bson:"org_id"`
	Status      GameStatus `json:"status" bson:"status"`
	DefaultRole Role       `json:"default_role" bson:"default_role"`

	Players []Player `json:"players" bson:"players"`
	OzPool  []UserID `json:"oz_pool" bson:"oz_pool"` // users volunteering to be OZ

	OzPasscodeHash string `json:"oz_passcode_hash,omitempty" bson:"oz_passcode_hash,omitempty"`
	OzMaxTags      int    `json:"oz_max_tags" bson:"oz_max_tags"`

	// EventLog is append-only
	EventLog []GameEventLog `json:"event_log" bson:"event_log"`

	// Version increments on every successful write
	Version int64 `json:"version" bson:"version"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// IsActive returns true while tags may be logged
func (g *Game) IsActive() bool {
	return g.Status == GameStatusActive
}

// IsCurrent returns true until the game has ended
func (g *Game) IsCurrent() bool {
	return g.Status != GameStatusEnded
}

// Humans returns all players with the human role
func (g *Game) Humans() []Player {
	return g.playersWithRole(RoleHuman)
}

// Zombies returns all players with the zombie role
func (g *Game) Zombies() []Player {
	return g.playersWithRole(RoleZombie)
}

// Ozs returns all players currently holding the OZ role
func (g *Game) Ozs() []Player {
	return g.playersWithRole(RoleOZ)
}

func (g *Game) playersWithRole(role Role) []Player {
	var players []Player
	for _, p := range g.Players {
		if p.Role == role {
			players = append(players, p)
		}
	}
	return players
}

// PlayerByUserID returns the player for a user, or nil if not in this game.
// The returned pointer aliases the game's player slice.
func (g *Game) PlayerByUserID(userID UserID) *Player {
	for i := range g.Players {
		if g.Players[i].UserID == userID {
			return &g.Players[i]
		}
	}
	return nil
}

// PlayerByGameID returns the player with the given per-game id, or nil
func (g *Game) PlayerByGameID(id PlayerGameID) *Player {
	for i := range g.Players {
		if g.Players[i].PlayerGameID == id {
			return &g.Players[i]
		}
	}
	return nil
}

// InOzPool reports whether the user has volunteered to be an OZ
func (g *Game) InOzPool(userID UserID) bool {
	return slices.Contains(g.OzPool, userID)
}

// HasOzPasscode reports whether joining the OZ pool requires a passcode
func (g *Game) HasOzPasscode() bool {
	return g.OzPasscodeHash != ""
}

// HasPlayer reports whether the user has a player in this game
func (g *Game) HasPlayer(userID UserID) bool {
	return g.PlayerByUserID(userID) != nil
}

// Clone returns a deep copy that shares no slices with g
func (g *Game) Clone() *Game {
	c := *g
	c.Players = slices.Clone(g.Players)
	c.OzPool = slices.Clone(g.OzPool)
	c.EventLog = make([]GameEventLog, len(g.EventLog))
	for i, e := range g.EventLog {
		c.EventLog[i] = e.clone()
	}
	return &c
}
