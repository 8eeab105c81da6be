package redis

import (
	"fmt"

	"github.com/mcoot/hvzgame/internal/model"
)

type keys struct {
	prefix string
}

func (k keys) user(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", k.prefix, id)
}

// emailIndex maps an email to the owning user id
func (k keys) emailIndex(email string) string {
	return fmt.Sprintf("%s:idx:email:%s", k.prefix, email)
}

func (k keys) game(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s", k.prefix, id)
}

// gameNameIndex maps a game name to its id; names are case-sensitive
func (k keys) gameNameIndex(name string) string {
	return fmt.Sprintf("%s:idx:game_name:%s", k.prefix, name)
}

// allGames is the SET of every game id
func (k keys) allGames() string {
	return fmt.Sprintf("%s:idx:games", k.prefix)
}

func (k keys) org(id model.OrgID) string {
	return fmt.Sprintf("%s:org:%s", k.prefix, id)
}
