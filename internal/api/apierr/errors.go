package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/hvzgame/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest         = "INVALID_REQUEST"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeNotFound               = "NOT_FOUND"
	CodeGameNotFound           = "GAME_NOT_FOUND"
	CodePlayerNotFound         = "PLAYER_NOT_FOUND"
	CodeUserNotFound           = "USER_NOT_FOUND"
	CodeOrgNotFound            = "ORGANIZATION_NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeGameNameTaken          = "GAME_NAME_TAKEN"
	CodeAlreadyPlayer          = "ALREADY_PLAYER"
	CodeEmailTaken             = "EMAIL_TAKEN"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeGameNotActive          = "GAME_NOT_ACTIVE"
	CodeNotOrgAdmin            = "NOT_ORG_ADMIN"
	CodeNotModerator           = "NOT_GAME_MODERATOR"
	CodeInvalidPasscode        = "INVALID_OZ_PASSCODE"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeInvalidTag             = "INVALID_TAG"
	CodeIDSpaceExhausted       = "PLAYER_ID_SPACE_EXHAUSTED"
	CodeInternalError          = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// StatusOf returns the HTTP status an error maps to
func StatusOf(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Specific sentinels first, then fall back to the error kind
	switch {
	case errors.Is(err, model.ErrGameNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeGameNotFound, "Game not found"}}
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrUserNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeUserNotFound, "User not found"}}
	case errors.Is(err, model.ErrOrganizationNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeOrgNotFound, "Organization not found"}}
	case errors.Is(err, model.ErrDuplicateGameName):
		return &httpError{http.StatusConflict, APIError{CodeGameNameTaken, "Game name already in use"}}
	case errors.Is(err, model.ErrDuplicatePlayer):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyPlayer, "User is already a player in this game"}}
	case errors.Is(err, model.ErrDuplicateEmail):
		return &httpError{http.StatusConflict, APIError{CodeEmailTaken, "Email already registered"}}
	case errors.Is(err, model.ErrConcurrentModification):
		return &httpError{http.StatusConflict, APIError{CodeConcurrentModification, "Game was modified concurrently, retry"}}
	case errors.Is(err, model.ErrInvalidStateTransition):
		return &httpError{http.StatusConflict, APIError{CodeInvalidTransition, err.Error()}}
	case errors.Is(err, model.ErrGameNotActive):
		return &httpError{http.StatusConflict, APIError{CodeGameNotActive, "Game is not active"}}
	case errors.Is(err, model.ErrNotOrgAdmin):
		return &httpError{http.StatusForbidden, APIError{CodeNotOrgAdmin, "Only organization admins can perform this action"}}
	case errors.Is(err, model.ErrNotModerator):
		return &httpError{http.StatusForbidden, APIError{CodeNotModerator, "Only the game's moderators can perform this action"}}
	case errors.Is(err, model.ErrInvalidOzPasscode):
		return &httpError{http.StatusForbidden, APIError{CodeInvalidPasscode, "Invalid OZ pool passcode"}}
	case errors.Is(err, model.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid or expired token"}}
	case errors.Is(err, model.ErrSelfTag),
		errors.Is(err, model.ErrTaggerCannotTag),
		errors.Is(err, model.ErrReceiverNotHuman):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeInvalidTag, err.Error()}}
	case errors.Is(err, model.ErrPlayerIDSpaceExhausted):
		return &httpError{http.StatusConflict, APIError{CodeIDSpaceExhausted, "No free player ids left in this game"}}
	}

	switch model.KindOf(err) {
	case model.KindNotFound:
		return &httpError{http.StatusNotFound, APIError{CodeNotFound, err.Error()}}
	case model.KindConflict, model.KindInvalidState, model.KindExhausted:
		return &httpError{http.StatusConflict, APIError{CodeConflict, err.Error()}}
	case model.KindAuthorization:
		return &httpError{http.StatusForbidden, APIError{CodeForbidden, err.Error()}}
	case model.KindValidation:
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) error {
	return &httpError{http.StatusForbidden, APIError{CodeForbidden, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
