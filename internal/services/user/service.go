package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"github.com/mcoot/hvzgame/internal/dependencies/clock"
	"github.com/mcoot/hvzgame/internal/dependencies/random"
	"github.com/mcoot/hvzgame/internal/model"
	"github.com/mcoot/hvzgame/internal/storage"
)

// Service is the user registry. It also issues the bearer tokens that name
// the acting user on API requests.
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
	valid   *validator.Validate

	secret   []byte
	tokenTTL time.Duration
}

// Config holds configuration for the user service
type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// DefaultConfig returns default user service configuration
func DefaultConfig() Config {
	return Config{
		JWTSecret: "dev-secret",
		TokenTTL:  24 * time.Hour,
	}
}

// New creates a new user Service
func New(storage storage.Storage, clock clock.Clock, random random.Random, logger *slog.Logger, cfg Config) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultConfig().TokenTTL
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = DefaultConfig().JWTSecret
	}
	return &Service{
		storage:  storage,
		clock:    clock,
		random:   random,
		logger:   logger.With(slog.String("component", "user")),
		valid:    validator.New(),
		secret:   []byte(cfg.JWTSecret),
		tokenTTL: cfg.TokenTTL,
	}
}

// Register creates a user. Emails are unique, compared case-insensitively.
func (s *Service) Register(ctx context.Context, fullName, email string) (*model.User, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, fmt.Errorf("%w: full name is required", model.ErrInvalidArgument)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.valid.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("%w: invalid email %q", model.ErrInvalidArgument, email)
	}

	_, err := s.storage.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, model.ErrDuplicateEmail
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	user := &model.User{
		ID:        model.UserID(s.random.ID()),
		FullName:  fullName,
		Email:     email,
		CreatedAt: s.clock.Now(),
	}
	if err := s.storage.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", string(user.ID)))
	return user, nil
}

// GetUser returns a user by id
func (s *Service) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.storage.GetUser(ctx, id)
}

// GetUserByEmail returns a user by email
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.storage.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// Token is a signed bearer token for one user
type Token struct {
	Value     string       `json:"token"`
	UserID    model.UserID `json:"user_id"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// IssueToken signs an HS256 token whose subject is the user's id
func (s *Service) IssueToken(ctx context.Context, id model.UserID) (*Token, error) {
	if _, err := s.storage.GetUser(ctx, id); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	expires := now.Add(s.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   string(id),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &Token{Value: signed, UserID: id, ExpiresAt: expires}, nil
}

// ParseToken validates a token and returns the user id it names
func (s *Service) ParseToken(token string) (model.UserID, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", model.ErrInvalidCredentials
	}
	return model.UserID(claims.Subject), nil
}
