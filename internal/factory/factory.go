package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/hvzgame/internal/dependencies/clock"
	"github.com/mcoot/hvzgame/internal/dependencies/random"
	"github.com/mcoot/hvzgame/internal/events"
	"github.com/mcoot/hvzgame/internal/services/game"
	"github.com/mcoot/hvzgame/internal/services/org"
	"github.com/mcoot/hvzgame/internal/services/user"
	"github.com/mcoot/hvzgame/internal/storage"
	"github.com/mcoot/hvzgame/internal/storage/memory"
	mongostorage "github.com/mcoot/hvzgame/internal/storage/mongo"
	redisstorage "github.com/mcoot/hvzgame/internal/storage/redis"
	"github.com/mcoot/hvzgame/internal/web/sse"
	"github.com/mcoot/hvzgame/internal/web/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeMongo  = "mongo"
)

// hubCleanupInterval is how often SSE hubs without clients are removed
const hubCleanupInterval = time.Minute

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Bus         *events.Bus
	Games       *game.Repository
	Orgs        *org.Repository
	UserService *user.Service

	// Real-time transports
	HubManager  *sse.HubManager
	Broadcaster *sse.Broadcaster
	WSHandler   *ws.Handler

	closeStorage func() error
}

// Config holds configuration for the application factory
type Config struct {
	// UserConfig holds token settings (optional)
	// If zero value, defaults to user.DefaultConfig()
	UserConfig user.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "mongo")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// MongoConfig holds MongoDB connection settings (required if StorageType is "mongo")
	MongoConfig *mongostorage.Config
	// DefaultOzMaxTags is used for games created without an explicit value (optional)
	DefaultOzMaxTags int
	// NotifyBuffer is the per-subscriber notification queue length (optional)
	NotifyBuffer int
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, closeStorage, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := newWithDependencies(store, clock.New(), random.New(), cfg, logger)
	app.closeStorage = closeStorage
	return app, nil
}

func newStorage(ctx context.Context, cfg Config) (storage.Storage, func() error, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil, nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, nil, errors.New("RedisConfig required when StorageType is redis")
		}
		s, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case StorageTypeMongo:
		if cfg.MongoConfig == nil {
			return nil, nil, errors.New("MongoConfig required when StorageType is mongo")
		}
		s, err := mongostorage.New(ctx, *cfg.MongoConfig)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'mongo'", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger) *App {
	userCfg := cfg.UserConfig
	if userCfg.JWTSecret == "" {
		userCfg = user.DefaultConfig()
	}
	bufferSize := cfg.NotifyBuffer
	if bufferSize <= 0 {
		bufferSize = events.DefaultBufferSize
	}

	bus := events.NewBus(bufferSize, logger)
	games := game.NewRepository(store, bus, clk, rnd, logger, game.WithDefaultOzMaxTags(cfg.DefaultOzMaxTags))
	orgs := org.NewRepository(store, games, clk, rnd, logger)
	userService := user.New(store, clk, rnd, logger, userCfg)
	hubManager := sse.NewHubManager(logger)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Bus:         bus,
		Games:       games,
		Orgs:        orgs,
		UserService: userService,
		HubManager:  hubManager,
		Broadcaster: sse.NewBroadcaster(hubManager, bus, logger),
		WSHandler:   ws.NewHandler(games, logger),
	}
}

// Start runs the background workers until ctx is cancelled: the SSE
// broadcaster and periodic cleanup of unwatched hubs
func (a *App) Start(ctx context.Context) {
	go a.Broadcaster.Run(ctx)
	go func() {
		ticker := time.NewTicker(hubCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.HubManager.Prune()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close disconnects streaming clients and releases the storage backend
func (a *App) Close() error {
	a.Bus.Close()
	a.HubManager.Close()
	if a.closeStorage != nil {
		return a.closeStorage()
	}
	return nil
}
