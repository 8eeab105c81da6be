package model

import "time"

// UserID uniquely identifies a user across the system
type UserID string

// SystemMaxTagsInstigator is logged as the instigator when an OZ is demoted
// automatically after reaching the game's OZ max tag count
const SystemMaxTagsInstigator UserID = "system:max-tags"

// PlayerGameID is the short code identifying a player within one game.
// Tag receivers are addressed by this code, not by user id.
type PlayerGameID string

// Role is a player's side in the game
type Role string

const (
	RoleHuman  Role = "human"
	RoleZombie Role = "zombie"
	RoleOZ     Role = "oz"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleHuman, RoleZombie, RoleOZ:
		return true
	}
	return false
}

// CanTag reports whether a player with this role may tag humans
func (r Role) CanTag() bool {
	return r == RoleZombie || r == RoleOZ
}

// ParseRole converts a case-sensitive role name into a Role
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// Player is a user's participation record within exactly one game.
// Players are identified by (UserID, owning game).
type Player struct {
	UserID       UserID       `json:"user_id" bson:"user_id"`
	PlayerGameID PlayerGameID `json:"player_game_id" bson:"player_game_id"`
	Role         Role         `json:"role" bson:"role"`
	TagCount     int          `json:"tag_count" bson:"tag_count"` // tags made while zombie or OZ
	JoinedAt     time.Time    `json:"joined_at" bson:"joined_at"`
}

// User is the global identity referenced by players
type User struct {
	ID        UserID    `json:"id" bson:"_id"`
	FullName  string    `json:"full_name" bson:"full_name"`
	Email     string    `json:"email" bson:"email"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
