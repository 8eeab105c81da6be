package request

// RegisterRequest is the request body for registering a user
type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
}

// TokenRequest is the request body for issuing a token to an existing user
type TokenRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CreateGameRequest is the request body for creating a game
type CreateGameRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	OzMaxTags int    `json:"oz_max_tags" validate:"gte=0"`
}

// CreateOrganizationRequest is the request body for creating an organization
type CreateOrganizationRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// AddAdminRequest is the request body for adding an organization admin
type AddAdminRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// SetStatusRequest is the request body for changing a game's status
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new active paused ended"`
}

// SetActiveRequest is the request body for toggling a game's active flag
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// SetRoleRequest is the request body for setting a player's role
type SetRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=human zombie oz"`
}

// LogTagRequest is the request body for logging a tag
type LogTagRequest struct {
	ReceiverPlayerGameID string `json:"receiver_player_game_id" validate:"required"`
}

// PasscodeRequest sets a game's OZ pool passcode
type PasscodeRequest struct {
	Passcode string `json:"passcode" validate:"required"`
}

// JoinOzPoolRequest is the request body for volunteering as an OZ. The
// passcode may be empty when the game has none set.
type JoinOzPoolRequest struct {
	Passcode string `json:"passcode"`
}

// RandomOzsRequest is the request body for drawing OZs from the pool
type RandomOzsRequest struct {
	Count int `json:"count" validate:"gt=0"`
}

// OzTagCountRequest is the request body for setting the OZ max tags
type OzTagCountRequest struct {
	OzMaxTags int `json:"oz_max_tags" validate:"gt=0"`
}

// DefaultRoleRequest is the request body for setting the default role
type DefaultRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=human zombie oz"`
}
