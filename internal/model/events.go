package model

import "time"

// NotificationType identifies a change notification raised after a
// successful mutation
type NotificationType string

const (
	NotifyGameCreated             NotificationType = "game_created"
	NotifyGameUpdated             NotificationType = "game_updated"
	NotifyPlayerJoinedGame        NotificationType = "player_joined_game"
	NotifyPlayerLeftGame          NotificationType = "player_left_game"
	NotifyPlayerRoleChanged       NotificationType = "player_role_changed"
	NotifyTagLogged               NotificationType = "tag_logged"
	NotifyGameActiveStatusChanged NotificationType = "game_active_status_changed"
	NotifyGameSettingsChanged     NotificationType = "game_settings_changed"
	NotifyPlayerJoinedOzPool      NotificationType = "player_joined_oz_pool"
	NotifyPlayerLeftOzPool        NotificationType = "player_left_oz_pool"
	NotifyRandomOzsSet            NotificationType = "random_ozs_set"
)

// Notification carries the updated game plus the operation-specific data
// subscribers need. Fields that do not apply to Type are left zero.
type Notification struct {
	Type      NotificationType
	Timestamp time.Time
	GameID    GameID
	Game      *Game // snapshot after the mutation; subscribers must not modify it

	InstigatorID UserID
	UserID       UserID // affected player
	ReceiverID   UserID // tag receiver
	Role         Role
	TagCount     int
	OzIDs        []UserID
	Status       GameStatus
}
