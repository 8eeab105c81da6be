package game

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/hvzgame/internal/dependencies/random"
	"github.com/mcoot/hvzgame/internal/model"
)

// Every function here is pure with respect to its *model.Game argument: it
// validates against g, applies the change to a clone and returns the clone
// with any log entries appended. g itself is never modified.

const (
	playerGameIDMin = 1000
	playerGameIDMax = 9999

	// random draws before falling back to a sequential probe
	maxPlayerGameIDDraws = 32
)

func newGame(id model.GameID, name string, creator model.UserID, org model.OrgID, ozMaxTags int, now time.Time) *model.Game {
	return &model.Game{
		ID:          id,
		Name:        name,
		CreatorID:   creator,
		OrgID:       org,
		Status:      model.GameStatusNew,
		DefaultRole: model.RoleHuman,
		Players:     []model.Player{},
		OzPool:      []model.UserID{},
		OzMaxTags:   ozMaxTags,
		EventLog:    []model.GameEventLog{model.NewGameCreatedEntry(now, creator, name)},
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// nextPlayerGameID draws 4-digit codes until one is unused in g. After a
// bounded number of collisions it probes upwards from the last draw so the
// only failure is a full id space.
func nextPlayerGameID(g *model.Game, rnd random.Random) (model.PlayerGameID, error) {
	const span = playerGameIDMax - playerGameIDMin + 1

	used := make(map[model.PlayerGameID]struct{}, len(g.Players))
	for _, p := range g.Players {
		used[p.PlayerGameID] = struct{}{}
	}
	if len(used) >= span {
		return "", model.ErrPlayerIDSpaceExhausted
	}

	candidate := 0
	for range maxPlayerGameIDDraws {
		candidate = rnd.Intn(span)
		id := model.PlayerGameID(strconv.Itoa(playerGameIDMin + candidate))
		if _, taken := used[id]; !taken {
			return id, nil
		}
	}

	for i := 1; i < span; i++ {
		id := model.PlayerGameID(strconv.Itoa(playerGameIDMin + (candidate+i)%span))
		if _, taken := used[id]; !taken {
			return id, nil
		}
	}
	return "", model.ErrPlayerIDSpaceExhausted
}

func addPlayer(g *model.Game, userID model.UserID, rnd random.Random, now time.Time) (*model.Game, *model.Player, error) {
	if userID == "" {
		return nil, nil, fmt.Errorf("%w: user id is required", model.ErrInvalidArgument)
	}
	if g.HasPlayer(userID) {
		return nil, nil, fmt.Errorf("%w: user %s in game %s", model.ErrDuplicatePlayer, userID, g.ID)
	}

	pgid, err := nextPlayerGameID(g, rnd)
	if err != nil {
		return nil, nil, err
	}

	next := g.Clone()
	player := model.Player{
		UserID:       userID,
		PlayerGameID: pgid,
		Role:         g.DefaultRole,
		JoinedAt:     now,
	}
	next.Players = append(next.Players, player)
	next.EventLog = append(next.EventLog, model.NewPlayerJoinedEntry(now, userID, pgid, player.Role))
	return next, &player, nil
}

func removePlayer(g *model.Game, userID, instigator model.UserID, now time.Time) (*model.Game, error) {
	if !g.HasPlayer(userID) {
		return nil, fmt.Errorf("%w: user %s in game %s", model.ErrPlayerNotFound, userID, g.ID)
	}

	next := g.Clone()
	next.Players = slices.DeleteFunc(next.Players, func(p model.Player) bool { return p.UserID == userID })
	next.OzPool = slices.DeleteFunc(next.OzPool, func(id model.UserID) bool { return id == userID })
	next.EventLog = append(next.EventLog, model.NewPlayerLeftEntry(now, userID, instigator))
	return next, nil
}

// applyAction moves g through the lifecycle table. Starting a game records
// both the start and the resulting status change.
func applyAction(g *model.Game, action Action, instigator model.UserID, now time.Time) (*model.Game, error) {
	to, err := Transition(g.Status, action)
	if err != nil {
		return nil, err
	}

	next := g.Clone()
	next.Status = to
	if action == ActionStart {
		next.EventLog = append(next.EventLog, model.NewGameStartedEntry(now, instigator))
	}
	next.EventLog = append(next.EventLog, model.NewStatusChangedEntry(now, instigator, to))
	return next, nil
}

func setPlayerRole(g *model.Game, userID model.UserID, role model.Role, instigator model.UserID, now time.Time) (*model.Game, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidRole, role)
	}
	if !g.HasPlayer(userID) {
		return nil, fmt.Errorf("%w: user %s in game %s", model.ErrPlayerNotFound, userID, g.ID)
	}

	next := g.Clone()
	next.PlayerByUserID(userID).Role = role
	next.EventLog = append(next.EventLog, model.NewRoleChangedEntry(now, userID, role, instigator))
	return next, nil
}

// tagResult describes the outcome of a successful tag
type tagResult struct {
	tagger      model.Player
	receiver    model.Player
	taggerWasOz bool
	ozDemoted   bool
}

// logTag applies the tag rules after the game has been found. Checks run in
// order and the first violation is returned.
func logTag(g *model.Game, taggerID model.UserID, receiverGameID model.PlayerGameID, now time.Time) (*model.Game, *tagResult, error) {
	if !g.IsActive() {
		return nil, nil, fmt.Errorf("%w: game %s is %s", model.ErrGameNotActive, g.ID, g.Status)
	}
	tagger := g.PlayerByUserID(taggerID)
	if tagger == nil {
		return nil, nil, fmt.Errorf("%w: tagger %s is not in game %s", model.ErrPlayerNotFound, taggerID, g.ID)
	}
	receiver := g.PlayerByGameID(receiverGameID)
	if receiver == nil {
		return nil, nil, fmt.Errorf("%w: no player with game id %s in game %s", model.ErrPlayerNotFound, receiverGameID, g.ID)
	}
	if !tagger.Role.CanTag() {
		return nil, nil, fmt.Errorf("%w: tagger %s is %s", model.ErrTaggerCannotTag, taggerID, tagger.Role)
	}
	if receiver.Role != model.RoleHuman {
		return nil, nil, fmt.Errorf("%w: receiver %s is %s", model.ErrReceiverNotHuman, receiver.UserID, receiver.Role)
	}

	next := g.Clone()
	nt := next.PlayerByUserID(taggerID)
	nr := next.PlayerByGameID(receiverGameID)

	wasOz := nt.Role == model.RoleOZ
	nt.TagCount++
	nr.Role = model.RoleZombie
	next.EventLog = append(next.EventLog, model.NewTagEntry(now, taggerID, nr, nt.TagCount, wasOz))

	demoted := wasOz && next.OzMaxTags > 0 && nt.TagCount >= next.OzMaxTags
	if demoted {
		nt.Role = model.RoleHuman
		next.EventLog = append(next.EventLog,
			model.NewRoleChangedEntry(now, taggerID, model.RoleHuman, model.SystemMaxTagsInstigator))
	}

	return next, &tagResult{
		tagger:      *nt,
		receiver:    *nr,
		taggerWasOz: wasOz,
		ozDemoted:   demoted,
	}, nil
}

func addToOzPool(g *model.Game, userID model.UserID) (*model.Game, error) {
	if !g.HasPlayer(userID) {
		return nil, fmt.Errorf("%w: user %s in game %s", model.ErrPlayerNotFound, userID, g.ID)
	}
	if g.InOzPool(userID) {
		return nil, fmt.Errorf("%w: user %s", model.ErrAlreadyInOzPool, userID)
	}

	next := g.Clone()
	next.OzPool = append(next.OzPool, userID)
	return next, nil
}

func removeFromOzPool(g *model.Game, userID model.UserID) (*model.Game, error) {
	if !g.InOzPool(userID) {
		return nil, fmt.Errorf("%w: user %s", model.ErrNotInOzPool, userID)
	}

	next := g.Clone()
	next.OzPool = slices.DeleteFunc(next.OzPool, func(id model.UserID) bool { return id == userID })
	return next, nil
}

// joinOzPool is the self-service pool join, gated on the game's passcode
func joinOzPool(g *model.Game, userID model.UserID, passcode string) (*model.Game, error) {
	if g.HasOzPasscode() {
		if err := bcrypt.CompareHashAndPassword([]byte(g.OzPasscodeHash), []byte(passcode)); err != nil {
			return nil, model.ErrInvalidOzPasscode
		}
	}
	return addToOzPool(g, userID)
}

// hashPasscode hashes an OZ pool passcode; the empty passcode hashes to ""
func hashPasscode(passcode string) (string, error) {
	if passcode == "" {
		return "", nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash oz passcode: %w", err)
	}
	return string(h), nil
}

// setOzPasscodeHash stores an already hashed passcode; an empty hash clears it
func setOzPasscodeHash(g *model.Game, hash string, instigator model.UserID, now time.Time) *model.Game {
	next := g.Clone()
	next.OzPasscodeHash = hash
	next.EventLog = append(next.EventLog, model.NewSettingsChangedEntry(now, instigator, model.SettingsChangedPayload{
		Setting:       model.SettingOzPasscode,
		PasscodeIsSet: hash != "",
	}))
	return next
}

// randomOzs draws count distinct members from the OZ pool with a partial
// Fisher-Yates shuffle, makes them OZs and removes them from the pool.
func randomOzs(g *model.Game, count int, instigator model.UserID, rnd random.Random, now time.Time) (*model.Game, []model.UserID, error) {
	if count <= 0 || count > len(g.OzPool) {
		return nil, nil, fmt.Errorf("%w: requested %d from a pool of %d", model.ErrInvalidOzCount, count, len(g.OzPool))
	}

	pool := slices.Clone(g.OzPool)
	for i := range count {
		j := i + rnd.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	chosen := pool[:count]

	next := g.Clone()
	for _, id := range chosen {
		p := next.PlayerByUserID(id)
		if p == nil {
			return nil, nil, fmt.Errorf("%w: OZ pool member %s is not in game %s", model.ErrPlayerNotFound, id, g.ID)
		}
		p.Role = model.RoleOZ
	}
	next.OzPool = slices.DeleteFunc(next.OzPool, func(id model.UserID) bool { return slices.Contains(chosen, id) })
	next.EventLog = append(next.EventLog, model.NewRandomOzsEntry(now, instigator, chosen))
	return next, slices.Clone(chosen), nil
}

func setOzMaxTags(g *model.Game, count int, instigator model.UserID, now time.Time) (*model.Game, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: %d", model.ErrInvalidTagCount, count)
	}

	next := g.Clone()
	next.OzMaxTags = count
	next.EventLog = append(next.EventLog, model.NewSettingsChangedEntry(now, instigator, model.SettingsChangedPayload{
		Setting:   model.SettingOzMaxTags,
		OzMaxTags: count,
	}))
	return next, nil
}

func setDefaultRole(g *model.Game, role model.Role, instigator model.UserID, now time.Time) (*model.Game, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidRole, role)
	}

	next := g.Clone()
	next.DefaultRole = role
	next.EventLog = append(next.EventLog, model.NewSettingsChangedEntry(now, instigator, model.SettingsChangedPayload{
		Setting:     model.SettingDefaultRole,
		DefaultRole: role,
	}))
	return next, nil
}
