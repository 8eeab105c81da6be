package model

import "errors"

// Common errors used across the application
var (
	// Not found
	ErrGameNotFound         = errors.New("game not found")
	ErrPlayerNotFound       = errors.New("player not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrOrganizationNotFound = errors.New("organization not found")

	// Conflicts
	ErrDuplicateGameName      = errors.New("game name already in use")
	ErrDuplicatePlayer        = errors.New("user is already a player in this game")
	ErrDuplicateEmail         = errors.New("email already registered")
	ErrAlreadyInOzPool        = errors.New("user is already in the OZ pool")
	ErrNotInOzPool            = errors.New("user is not in the OZ pool")
	ErrOrgHasActiveGame       = errors.New("organization already has a current game")
	ErrConcurrentModification = errors.New("game was modified concurrently")

	// Invalid state
	ErrInvalidStateTransition = errors.New("invalid game status transition")
	ErrGameNotActive          = errors.New("game is not active")

	// Authorization
	ErrNotOrgAdmin        = errors.New("user is not an organization admin")
	ErrNotModerator       = errors.New("user does not moderate this game")
	ErrInvalidOzPasscode  = errors.New("invalid OZ pool passcode")
	ErrInvalidCredentials = errors.New("invalid or expired token")

	// Validation
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrSelfTag          = errors.New("player cannot tag themselves")
	ErrTaggerCannotTag  = errors.New("tagger must be a zombie or OZ")
	ErrReceiverNotHuman = errors.New("tag receiver must be human")
	ErrInvalidOzCount   = errors.New("invalid OZ count")
	ErrInvalidTagCount  = errors.New("invalid OZ max tag count")
	ErrInvalidRole      = errors.New("invalid role")
	ErrInvalidLogEntry  = errors.New("invalid event log entry")

	// Resource exhaustion
	ErrPlayerIDSpaceExhausted = errors.New("no free player game ids left in this game")
)

// Kind classifies errors for callers that translate them into responses
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInvalidState
	KindAuthorization
	KindValidation
	KindExhausted
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindExhausted:
		return "exhausted"
	default:
		return "internal"
	}
}

var errorKinds = []struct {
	err  error
	kind Kind
}{
	{ErrGameNotFound, KindNotFound},
	{ErrPlayerNotFound, KindNotFound},
	{ErrUserNotFound, KindNotFound},
	{ErrOrganizationNotFound, KindNotFound},

	{ErrDuplicateGameName, KindConflict},
	{ErrDuplicatePlayer, KindConflict},
	{ErrDuplicateEmail, KindConflict},
	{ErrAlreadyInOzPool, KindConflict},
	{ErrNotInOzPool, KindConflict},
	{ErrOrgHasActiveGame, KindConflict},
	{ErrConcurrentModification, KindConflict},

	{ErrInvalidStateTransition, KindInvalidState},
	{ErrGameNotActive, KindInvalidState},

	{ErrNotOrgAdmin, KindAuthorization},
	{ErrNotModerator, KindAuthorization},
	{ErrInvalidOzPasscode, KindAuthorization},
	{ErrInvalidCredentials, KindAuthorization},

	{ErrInvalidArgument, KindValidation},
	{ErrSelfTag, KindValidation},
	{ErrTaggerCannotTag, KindValidation},
	{ErrReceiverNotHuman, KindValidation},
	{ErrInvalidOzCount, KindValidation},
	{ErrInvalidTagCount, KindValidation},
	{ErrInvalidRole, KindValidation},
	{ErrInvalidLogEntry, KindValidation},

	{ErrPlayerIDSpaceExhausted, KindExhausted},
}

// KindOf returns the kind of the first known sentinel wrapped by err
func KindOf(err error) Kind {
	for _, ek := range errorKinds {
		if errors.Is(err, ek.err) {
			return ek.kind
		}
	}
	return KindInternal
}
