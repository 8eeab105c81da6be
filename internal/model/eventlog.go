package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// EventKind identifies the kind of a game event log entry
type EventKind string

const (
	EventGameCreated            EventKind = "game_created"
	EventPlayerJoined           EventKind = "player_joined"
	EventPlayerLeft             EventKind = "player_left"
	EventGameStarted            EventKind = "game_started"
	EventTag                    EventKind = "tag"
	EventPlayerRoleChangedByMod EventKind = "player_role_changed_by_mod"
	EventActiveStatusChanged    EventKind = "active_status_changed"
	EventGameSettingsChanged    EventKind = "game_settings_changed"
	EventRandomOzsSelected      EventKind = "random_ozs_selected"
)

// LogTimeLayout is used when rendering log entries
const LogTimeLayout = "2006-01-02 15:04:05"

// GameCreatedPayload is carried by EventGameCreated
type GameCreatedPayload struct {
	GameName string `json:"game_name" bson:"game_name"`
}

// PlayerJoinedPayload is carried by EventPlayerJoined
type PlayerJoinedPayload struct {
	PlayerGameID PlayerGameID `json:"player_game_id" bson:"player_game_id"`
	Role         Role         `json:"role" bson:"role"`
}

// PlayerLeftPayload is carried by EventPlayerLeft
type PlayerLeftPayload struct {
	InstigatorID UserID `json:"instigator_id" bson:"instigator_id"`
}

// TagPayload is carried by EventTag. The entry's actor is the tagger.
type TagPayload struct {
	ReceiverID     UserID       `json:"receiver_id" bson:"receiver_id"`
	ReceiverGameID PlayerGameID `json:"receiver_game_id" bson:"receiver_game_id"`
	TaggerTagCount int          `json:"tagger_tag_count" bson:"tagger_tag_count"`
	TaggerWasOz    bool         `json:"tagger_was_oz" bson:"tagger_was_oz"`
}

// RoleChangedPayload is carried by EventPlayerRoleChangedByMod.
// The entry's actor is the player whose role changed.
type RoleChangedPayload struct {
	NewRole      Role   `json:"new_role" bson:"new_role"`
	InstigatorID UserID `json:"instigator_id" bson:"instigator_id"`
}

// StatusChangedPayload is carried by EventActiveStatusChanged.
// The entry's actor is the instigator.
type StatusChangedPayload struct {
	Active bool       `json:"active" bson:"active"`
	Status GameStatus `json:"status" bson:"status"`
}

// GameSetting names a configurable game setting
type GameSetting string

const (
	SettingOzMaxTags   GameSetting = "oz_max_tags"
	SettingDefaultRole GameSetting = "default_role"
	SettingOzPasscode  GameSetting = "oz_passcode"
)

// SettingsChangedPayload is carried by EventGameSettingsChanged.
// Only the field matching Setting is meaningful.
type SettingsChangedPayload struct {
	Setting       GameSetting `json:"setting" bson:"setting"`
	OzMaxTags     int         `json:"oz_max_tags,omitempty" bson:"oz_max_tags,omitempty"`
	DefaultRole   Role        `json:"default_role,omitempty" bson:"default_role,omitempty"`
	PasscodeIsSet bool        `json:"passcode_is_set,omitempty" bson:"passcode_is_set,omitempty"`
}

// RandomOzsPayload is carried by EventRandomOzsSelected
type RandomOzsPayload struct {
	Chosen []UserID `json:"chosen" bson:"chosen"`
}

// GameEventLog is one immutable entry of a game's audit trail. Exactly one
// payload field is set, matching Kind (GameStarted carries none).
type GameEventLog struct {
	Kind      EventKind `json:"kind" bson:"kind"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	ActorID   UserID    `json:"actor_id" bson:"actor_id"`

	GameCreated     *GameCreatedPayload     `json:"game_created,omitempty" bson:"game_created,omitempty"`
	PlayerJoined    *PlayerJoinedPayload    `json:"player_joined,omitempty" bson:"player_joined,omitempty"`
	PlayerLeft      *PlayerLeftPayload      `json:"player_left,omitempty" bson:"player_left,omitempty"`
	Tag             *TagPayload             `json:"tag,omitempty" bson:"tag,omitempty"`
	RoleChanged     *RoleChangedPayload     `json:"role_changed,omitempty" bson:"role_changed,omitempty"`
	StatusChanged   *StatusChangedPayload   `json:"status_changed,omitempty" bson:"status_changed,omitempty"`
	SettingsChanged *SettingsChangedPayload `json:"settings_changed,omitempty" bson:"settings_changed,omitempty"`
	RandomOzs       *RandomOzsPayload       `json:"random_ozs,omitempty" bson:"random_ozs,omitempty"`
}

// NewGameCreatedEntry records the creation of a game by its creator
func NewGameCreatedEntry(ts time.Time, creator UserID, name string) GameEventLog {
	return GameEventLog{Kind: EventGameCreated, Timestamp: ts, ActorID: creator,
		GameCreated: &GameCreatedPayload{GameName: name}}
}

// NewPlayerJoinedEntry records a user joining with their initial role
func NewPlayerJoinedEntry(ts time.Time, userID UserID, playerGameID PlayerGameID, role Role) GameEventLog {
	return GameEventLog{Kind: EventPlayerJoined, Timestamp: ts, ActorID: userID,
		PlayerJoined: &PlayerJoinedPayload{PlayerGameID: playerGameID, Role: role}}
}

// NewPlayerLeftEntry records a player being removed from the game
func NewPlayerLeftEntry(ts time.Time, userID, instigator UserID) GameEventLog {
	return GameEventLog{Kind: EventPlayerLeft, Timestamp: ts, ActorID: userID,
		PlayerLeft: &PlayerLeftPayload{InstigatorID: instigator}}
}

// NewGameStartedEntry records the first transition into the active status
func NewGameStartedEntry(ts time.Time, instigator UserID) GameEventLog {
	return GameEventLog{Kind: EventGameStarted, Timestamp: ts, ActorID: instigator}
}

// NewTagEntry records a successful tag by tagger
func NewTagEntry(ts time.Time, tagger UserID, receiver *Player, taggerTagCount int, taggerWasOz bool) GameEventLog {
	return GameEventLog{Kind: EventTag, Timestamp: ts, ActorID: tagger,
		Tag: &TagPayload{
			ReceiverID:     receiver.UserID,
			ReceiverGameID: receiver.PlayerGameID,
			TaggerTagCount: taggerTagCount,
			TaggerWasOz:    taggerWasOz,
		}}
}

// NewRoleChangedEntry records a role change for userID
func NewRoleChangedEntry(ts time.Time, userID UserID, role Role, instigator UserID) GameEventLog {
	return GameEventLog{Kind: EventPlayerRoleChangedByMod, Timestamp: ts, ActorID: userID,
		RoleChanged: &RoleChangedPayload{NewRole: role, InstigatorID: instigator}}
}

// NewStatusChangedEntry records a status change made by instigator
func NewStatusChangedEntry(ts time.Time, instigator UserID, status GameStatus) GameEventLog {
	return GameEventLog{Kind: EventActiveStatusChanged, Timestamp: ts, ActorID: instigator,
		StatusChanged: &StatusChangedPayload{Active: status == GameStatusActive, Status: status}}
}

// NewSettingsChangedEntry records a settings change made by instigator
func NewSettingsChangedEntry(ts time.Time, instigator UserID, payload SettingsChangedPayload) GameEventLog {
	return GameEventLog{Kind: EventGameSettingsChanged, Timestamp: ts, ActorID: instigator,
		SettingsChanged: &payload}
}

// NewRandomOzsEntry records the users chosen by the OZ lottery
func NewRandomOzsEntry(ts time.Time, instigator UserID, chosen []UserID) GameEventLog {
	return GameEventLog{Kind: EventRandomOzsSelected, Timestamp: ts, ActorID: instigator,
		RandomOzs: &RandomOzsPayload{Chosen: slices.Clone(chosen)}}
}

// Payload returns the kind-specific payload, or nil for kinds without one
func (e GameEventLog) Payload() any {
	switch e.Kind {
	case EventGameCreated:
		return e.GameCreated
	case EventPlayerJoined:
		return e.PlayerJoined
	case EventPlayerLeft:
		return e.PlayerLeft
	case EventTag:
		return e.Tag
	case EventPlayerRoleChangedByMod:
		return e.RoleChanged
	case EventActiveStatusChanged:
		return e.StatusChanged
	case EventGameSettingsChanged:
		return e.SettingsChanged
	case EventRandomOzsSelected:
		return e.RandomOzs
	}
	return nil
}

// Validate checks that the entry carries exactly the payload its kind requires
func (e GameEventLog) Validate() error {
	set := 0
	for _, present := range []bool{
		e.GameCreated != nil, e.PlayerJoined != nil, e.PlayerLeft != nil, e.Tag != nil,
		e.RoleChanged != nil, e.StatusChanged != nil, e.SettingsChanged != nil, e.RandomOzs != nil,
	} {
		if present {
			set++
		}
	}

	want := 1
	if e.Kind == EventGameStarted {
		want = 0
	}
	if set != want || !e.hasOwnPayload() {
		return fmt.Errorf("%w: %s entry has the wrong payload", ErrInvalidLogEntry, e.Kind)
	}
	return nil
}

func (e GameEventLog) hasOwnPayload() bool {
	switch e.Kind {
	case EventGameCreated:
		return e.GameCreated != nil
	case EventPlayerJoined:
		return e.PlayerJoined != nil
	case EventPlayerLeft:
		return e.PlayerLeft != nil
	case EventGameStarted:
		return true
	case EventTag:
		return e.Tag != nil
	case EventPlayerRoleChangedByMod:
		return e.RoleChanged != nil
	case EventActiveStatusChanged:
		return e.StatusChanged != nil
	case EventGameSettingsChanged:
		return e.SettingsChanged != nil
	case EventRandomOzsSelected:
		return e.RandomOzs != nil
	}
	return false
}

// String renders the entry for activity feeds, e.g.
// "2024-01-01 12:00:00 User 1 tagged user 2"
func (e GameEventLog) String() string {
	ts := e.Timestamp.UTC().Format(LogTimeLayout)
	return ts + " User " + string(e.ActorID) + " " + e.describe()
}

func (e GameEventLog) describe() string {
	switch e.Kind {
	case EventGameCreated:
		if e.GameCreated != nil {
			return "created game " + e.GameCreated.GameName
		}
		return "created the game"
	case EventPlayerJoined:
		return "joined the game"
	case EventPlayerLeft:
		if e.PlayerLeft != nil && e.PlayerLeft.InstigatorID != e.ActorID {
			return "was removed from the game by user " + string(e.PlayerLeft.InstigatorID)
		}
		return "left the game"
	case EventGameStarted:
		return "started the game"
	case EventTag:
		if e.Tag != nil {
			return "tagged user " + string(e.Tag.ReceiverID)
		}
	case EventPlayerRoleChangedByMod:
		if e.RoleChanged != nil {
			if e.RoleChanged.InstigatorID == SystemMaxTagsInstigator {
				return "was changed to " + string(e.RoleChanged.NewRole) + " after reaching the OZ tag limit"
			}
			return "was changed to " + string(e.RoleChanged.NewRole) + " by user " + string(e.RoleChanged.InstigatorID)
		}
	case EventActiveStatusChanged:
		if e.StatusChanged != nil {
			return "set the game status to " + string(e.StatusChanged.Status)
		}
	case EventGameSettingsChanged:
		if s := e.SettingsChanged; s != nil {
			switch s.Setting {
			case SettingOzMaxTags:
				return fmt.Sprintf("set the OZ max tags to %d", s.OzMaxTags)
			case SettingDefaultRole:
				return "set the default role to " + string(s.DefaultRole)
			case SettingOzPasscode:
				if s.PasscodeIsSet {
					return "set the OZ pool passcode"
				}
				return "cleared the OZ pool passcode"
			}
		}
	case EventRandomOzsSelected:
		if e.RandomOzs != nil {
			ids := make([]string, len(e.RandomOzs.Chosen))
			for i, id := range e.RandomOzs.Chosen {
				ids[i] = string(id)
			}
			return "selected random OZs: " + strings.Join(ids, ", ")
		}
	}
	return string(e.Kind)
}

func (e GameEventLog) clone() GameEventLog {
	if e.RandomOzs != nil {
		p := *e.RandomOzs
		p.Chosen = slices.Clone(p.Chosen)
		e.RandomOzs = &p
	}
	// remaining payloads are never mutated after construction
	return e
}
