package container

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/destiin/travel-booking/internal/application/dispatcher"
	"github.com/destiin/travel-booking/internal/application/port"
	"github.com/destiin/travel-booking/internal/application/service"
	"github.com/destiin/travel-booking/internal/config"
	"github.com/destiin/travel-booking/internal/infrastructure/agent"
	"github.com/destiin/travel-booking/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/destiin/travel-booking/internal/interfaces/http"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and are torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure - Data
	sqlDB        *sql.DB
	db           *sqlite.DB
	repositories *RepositoryBundle
	assigner     *agent.RoundRobinAssigner

	// Infrastructure - External
	gateways  *GatewayBundle
	messenger port.ChatMessenger

	// Application
	dispatcher dispatcher.Dispatcher
	services   httpserver.Services

	// Lifecycle
	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components:
// 1. Database, repositories and the agent rotation
// 2. Outbound gateways and the chat messenger
// 3. Event dispatcher, application services and background handlers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	c.gateways = ProvideGateways(c.config, c.logger)
	c.messenger = ProvideMessenger(c.config, c.logger)
	c.logger.Info("External clients initialized")

	if err := c.initServices(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close shuts down components in reverse order. The dispatcher drains
// in-flight background handlers before the database closes under them.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if err := c.closeDatabase(); err != nil {
		errs = append(errs, err)
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) closeDatabase() error {
	if c.sqlDB == nil {
		return nil
	}
	err := c.sqlDB.Close()
	c.sqlDB = nil
	if err != nil {
		c.logger.Error("Failed to close database", zap.Error(err))
		return fmt.Errorf("close database: %w", err)
	}
	c.logger.Info("Database closed")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, healthy bool, msg string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: msg}
		if !healthy {
			status.Overall = false
		}
	}

	switch {
	case c.sqlDB == nil:
		set("database", false, "not initialized")
	default:
		if err := c.sqlDB.PingContext(ctx); err != nil {
			set("database", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			set("database", true, "")
		}
	}

	if c.dispatcher == nil {
		set("dispatcher", false, "not initialized")
	} else {
		set("dispatcher", true, "")
	}

	if c.repositories == nil {
		set("repositories", false, "not initialized")
	} else {
		set("repositories", true, "")
	}

	return status
}

func (c *Container) initDatabase(ctx context.Context) error {
	dbBundle, err := ProvideDatabase(c.config, c.logger)
	if err != nil {
		return err
	}
	c.sqlDB = dbBundle.SqlDB
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.sqlDB, c.logger)
	if err != nil {
		c.closeDatabase()
		return err
	}
	c.repositories = repos

	assigner, err := ProvideAssigner(ctx, c.config, repos.Agent, c.logger)
	if err != nil {
		c.closeDatabase()
		return err
	}
	c.assigner = assigner
	return nil
}

func (c *Container) initServices() error {
	c.dispatcher = ProvideDispatcher(c.logger)

	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Assigner:   c.assigner,
		Gateways:   c.gateways,
		Messenger:  c.messenger,
		Dispatcher: c.dispatcher,
		Background: service.BackgroundConfig{
			PriceComparisonTimeout: c.config.Gateway.PriceComparisonTimeout,
			NotificationTimeout:    c.config.Notification.Timeout,
		},
		Logger: c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

// Getters for accessing container components

// Services returns the application services exposed over HTTP.
func (c *Container) Services() httpserver.Services {
	return c.services
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}
