package model

import (
	"slices"
	"time"
)

// OrgID uniquely identifies an organization
type OrgID string

// Organization groups moderators that run games. It only holds a weak
// reference to its current game.
type Organization struct {
	ID           OrgID     `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	CreatorID    UserID    `json:"creator_id" bson:"creator_id"`
	Admins       []UserID  `json:"admins" bson:"admins"`
	ActiveGameID GameID    `json:"active_game_id,omitempty" bson:"active_game_id,omitempty"`
	Version      int64     `json:"version" bson:"version"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// IsAdmin reports whether the user administers this organization
func (o *Organization) IsAdmin(userID UserID) bool {
	return slices.Contains(o.Admins, userID)
}

// Clone returns a deep copy of the organization
func (o *Organization) Clone() *Organization {
	c := *o
	c.Admins = slices.Clone(o.Admins)
	return &c
}
