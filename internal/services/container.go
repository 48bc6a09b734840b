package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/aigrader"
	"github.com/codeduel/match-core/internal/auth"
	"github.com/codeduel/match-core/internal/centrifugo"
	"github.com/codeduel/match-core/internal/config"
	"github.com/codeduel/match-core/internal/metrics"
	"github.com/codeduel/match-core/internal/modules/gateway/rpc"
	"github.com/codeduel/match-core/internal/modules/ghostrace"
	"github.com/codeduel/match-core/internal/modules/hint"
	"github.com/codeduel/match-core/internal/modules/identity"
	"github.com/codeduel/match-core/internal/modules/judging"
	"github.com/codeduel/match-core/internal/modules/matchfsm"
	"github.com/codeduel/match-core/internal/modules/matchmaker"
	"github.com/codeduel/match-core/internal/modules/matchstate"
	"github.com/codeduel/match-core/internal/modules/powerup"
	"github.com/codeduel/match-core/internal/modules/replay"
	"github.com/codeduel/match-core/internal/modules/roomfabric"
	"github.com/codeduel/match-core/internal/modules/session"
	"github.com/codeduel/match-core/internal/sandbox"
	"github.com/codeduel/match-core/internal/storage/postgres"
	"github.com/codeduel/match-core/internal/storage/postgres/repository"
	"github.com/codeduel/match-core/internal/storage/redis"
)

// Container holds all application services and dependencies
type Container struct {
	// Configuration
	Config *config.Config

	// Storage
	DB          *postgres.DB
	RedisClient *redis.Client

	// Repositories
	Players         repository.PlayerRepository
	Matches         repository.MatchRepository
	Challenges      repository.ChallengeRepository
	ReplayEvents    repository.ReplayEventRepository
	GhostRecordings repository.GhostRecordingRepository

	// Utilities
	JWTManager       *auth.JWTManager
	CentrifugoClient *centrifugo.Client
	Metrics          *metrics.Metrics

	// Domain modules
	Sessions   session.Directory
	Rooms      roomfabric.Fabric
	MatchState matchstate.Store
	QueueOps   matchmaker.QueueOperations
	Matchmaker matchmaker.MatchmakerService
	Lobby      *matchfsm.Lobby
	FSM        matchfsm.FSM
	PowerUp    powerup.Engine
	ReplayLog  replay.Log
	Sandbox    sandbox.Executor
	AIGrader   aigrader.Client
	Hint       hint.Coach
	Judging    *judging.Pipeline
	GhostRace  ghostrace.Race

	// Identity / gateway
	Identity   identity.Service
	Dispatcher *rpc.Dispatcher

	// Logger
	Logger *logrus.Logger
}

// NewContainer creates and initializes a new service container
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	container := &Container{
		Config: cfg,
		Logger: logger,
	}

	// Initialize in dependency order
	if err := container.initializeStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := container.initializeRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := container.initializeUtilities(); err != nil {
		return nil, fmt.Errorf("failed to initialize utilities: %w", err)
	}

	if err := container.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info("Service container initialized successfully")
	return container, nil
}

// initializeStorage sets up database and Redis connections
func (c *Container) initializeStorage() error {
	// Initialize PostgreSQL
	dbConfig := postgres.Config{
		URL:               c.Config.DatabaseURL,
		MaxOpenConns:      25,
		MaxIdleConns:      5,
		ConnMaxLifetime:   5 * time.Minute,
		ConnMaxIdleTime:   1 * time.Minute,
		ConnectionTimeout: 10 * time.Second,
	}

	db, err := postgres.NewDB(dbConfig, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.DB = db

	// Run database migrations
	if err := c.runMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Initialize Redis
	redisConfig, err := parseRedisURL(c.Config.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisClient, err := redis.NewClient(*redisConfig, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	c.RedisClient = redisClient

	return nil
}

// initializeRepositories creates all repository instances
func (c *Container) initializeRepositories() error {
	c.Players = repository.NewPlayerRepository(c.DB.DB)
	c.Matches = repository.NewMatchRepository(c.DB.DB)
	c.Challenges = repository.NewChallengeRepository(c.DB.DB)
	c.ReplayEvents = repository.NewReplayEventRepository(c.DB.DB)
	c.GhostRecordings = repository.NewGhostRecordingRepository(c.DB.DB)

	c.Logger.Info("Repositories initialized")
	return nil
}

// initializeUtilities creates utility instances
func (c *Container) initializeUtilities() error {
	// Initialize JWT Manager
	c.JWTManager = auth.NewJWTManager(c.Config.JWTSecret, "match-core")
	c.Metrics = metrics.New()

	// Initialize Centrifugo Client
	centrifugoClient, err := centrifugo.NewClient(centrifugo.Config{
		GRPCAddr: c.Config.CentrifugoGRPCAddr,
		APIKey:   c.Config.CentrifugoAPIKey,
	}, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Centrifugo client: %w", err)
	}
	c.CentrifugoClient = centrifugoClient

	c.Logger.Info("Utilities initialized")
	return nil
}

// initializeServices wires the domain modules and the gateway's RPC surface together
func (c *Container) initializeServices() error {
	c.Sessions = session.NewDirectory(c.RedisClient.GetClient(), c.Logger, c.Config.DisconnectGraceWindow)
	c.Rooms = roomfabric.NewFabric(c.RedisClient.GetClient(), c.CentrifugoClient, c.Logger)
	c.MatchState = matchstate.NewStore(c.RedisClient.GetClient())

	c.QueueOps = matchmaker.NewQueueOperations(c.RedisClient.GetClient())

	// PowerUp is built before Lobby/FSM: both allocate/surface power-up
	// state and depend on the engine being constructed first.
	c.PowerUp = powerup.NewEngine(c.RedisClient.GetClient(), c.MatchState, c.Rooms, c.Sessions, c.CentrifugoClient, c.Logger, c.Metrics)

	c.Lobby = matchfsm.NewLobby(
		c.MatchState,
		c.Matches,
		c.Challenges,
		c.Players,
		c.Sessions,
		c.CentrifugoClient,
		c.PowerUp,
		c.DB,
		c.Config,
		c.Logger,
	)
	c.Matchmaker = matchmaker.NewMatchmakerService(c.QueueOps, c.Lobby, c.Config, c.Logger, c.Metrics)

	c.Sandbox = sandbox.NewExecutor(c.Config.SandboxWorkDir, c.Logger)
	c.AIGrader = aigrader.NewClient(c.Config.AIGraderBaseURL, c.Config.AIGraderAPIKey, c.Config.AIGraderTimeout, c.Logger)
	c.Hint = hint.NewCoach(c.RedisClient.GetClient(), c.AIGrader, c.Config, c.Logger, c.Metrics)

	// The judging pipeline satisfies matchfsm.Judger, so it is built
	// before the FSM that resolves a completed match through it.
	c.Judging = judging.New(c.MatchState, c.Challenges, c.Players, c.Sandbox, c.AIGrader, c.Hint, c.DB, c.Logger, c.Metrics)
	c.FSM = matchfsm.New(c.MatchState, c.Rooms, c.Matches, c.DB, c.Judging, c.PowerUp, c.Sessions, c.CentrifugoClient, c.Config, c.Logger, c.Metrics)

	c.ReplayLog = replay.NewLog(c.ReplayEvents, c.Config, c.Logger, c.Metrics)
	c.GhostRace = ghostrace.New(c.RedisClient.GetClient(), c.Rooms, c.Challenges, c.GhostRecordings, c.Sandbox, c.Logger, c.Metrics)

	c.Identity = identity.NewService(c.Players, c.JWTManager, c.Logger)

	c.Dispatcher = rpc.NewDispatcher(
		rpc.NewMatchmakingHandler(c.Matchmaker, c.Logger),
		rpc.NewMatchHandler(c.FSM, c.MatchState, c.Rooms, c.Challenges, c.Sandbox, c.PowerUp, c.ReplayLog, c.Logger),
		rpc.NewPowerUpHandler(c.PowerUp, c.Logger),
		rpc.NewHintHandler(c.Hint, c.MatchState, c.Challenges, c.Logger),
		rpc.NewSpectateHandler(c.Rooms, c.Logger),
		rpc.NewGhostRaceHandler(c.GhostRace, c.Logger),
		c.Logger,
	)

	c.Logger.Info("Services initialized")
	return nil
}

// Close gracefully shuts down all connections and services
func (c *Container) Close() error {
	var errs []error

	// Close Centrifugo client
	if c.CentrifugoClient != nil {
		if err := c.CentrifugoClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Centrifugo client: %w", err))
		}
	}

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis client: %w", err))
		}
	}

	// Close database connection
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if len(errs) > 0 {
		c.Logger.WithField("errors", errs).Error("Errors occurred during container shutdown")
		return fmt.Errorf("container shutdown errors: %v", errs)
	}

	c.Logger.Info("Service container closed successfully")
	return nil
}

// HealthCheck performs health checks on all critical services
func (c *Container) HealthCheck(ctx context.Context) error {
	// Check database
	if err := c.DB.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	// Check Redis
	if err := c.RedisClient.GetClient().Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	return nil
}

// parseRedisURL parses a Redis URL into a Redis config
func parseRedisURL(redisURL string) (*redis.Config, error) {
	u, err := url.Parse(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	cfg := &redis.Config{
		Addr: u.Host,
		DB:   0, // Default database
	}

	// Extract password if present
	if u.User != nil {
		if password, ok := u.User.Password(); ok {
			cfg.Password = password
		}
	}

	// Extract database number from path
	if u.Path != "" && u.Path != "/" {
		// Remove leading slash and parse as integer
		dbStr := u.Path[1:]
		if db, err := strconv.Atoi(dbStr); err == nil {
			cfg.DB = db
		}
	}

	return cfg, nil
}

// runMigrations executes database migrations
func (c *Container) runMigrations() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	migrationRunner := postgres.NewMigrationRunner(c.DB, c.Logger)

	// Determine migrations directory path
	// This assumes the migrations are in the standard location relative to the binary
	migrationsDir := "internal/storage/postgres/migrations"

	return migrationRunner.RunMigrations(ctx, migrationsDir)
}
