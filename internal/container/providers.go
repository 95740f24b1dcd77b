package container

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/destiin/travel-booking/internal/application/dispatcher"
	"github.com/destiin/travel-booking/internal/application/port"
	"github.com/destiin/travel-booking/internal/application/service"
	"github.com/destiin/travel-booking/internal/config"
	"github.com/destiin/travel-booking/internal/infrastructure/agent"
	"github.com/destiin/travel-booking/internal/infrastructure/external/gateway"
	"github.com/destiin/travel-booking/internal/infrastructure/external/lark"
	"github.com/destiin/travel-booking/internal/infrastructure/persistence/repository"
	"github.com/destiin/travel-booking/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/destiin/travel-booking/internal/interfaces/http"
	"github.com/destiin/travel-booking/pkg/database"
	"github.com/destiin/travel-booking/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Request port.RequestRepository
	Booking port.BookingRepository
	Payment port.PaymentRepository
	Agent   port.AgentRepository
}

// GatewayBundle holds the outbound HTTP clients.
type GatewayBundle struct {
	Payments   port.PaymentGateway
	Comparator port.PriceComparator
	Email      port.EmailSender
}

// ProvideDatabase opens the database and applies pending migrations.
// An empty migrations dir applies the migrations compiled into the binary.
func ProvideDatabase(cfg *config.Config, logger *zap.Logger) (*DatabaseBundle, error) {
	db, err := database.New(databaseConfig(cfg), logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrations(cfg.Database.MigrationsDir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &RepositoryBundle{
		Request: repository.NewRequestRepository(sqlDB, logger),
		Booking: repository.NewBookingRepository(sqlDB, logger),
		Payment: repository.NewPaymentRepository(sqlDB, logger),
		Agent:   repository.NewAgentRepository(sqlDB, logger),
	}, nil
}

// ProvideAssigner seeds the configured agents and returns the rotation
// over the active ones.
func ProvideAssigner(ctx context.Context, cfg *config.Config, repo port.AgentRepository, logger *zap.Logger) (*agent.RoundRobinAssigner, error) {
	assigner := agent.NewRoundRobinAssigner(repo, logger)

	agents := seedAgents(cfg)
	if len(agents) == 0 {
		logger.Warn("No travel agents configured; requests will be stored unassigned")
		return assigner, nil
	}
	if err := assigner.Seed(ctx, agents); err != nil {
		return nil, fmt.Errorf("failed to seed agents: %w", err)
	}
	logger.Info("Travel agents seeded", zap.Int("count", len(agents)))
	return assigner, nil
}

// ProvideGateways creates the payments, price comparison and email clients.
func ProvideGateways(cfg *config.Config, logger *zap.Logger) *GatewayBundle {
	gw := gatewayConfig(cfg)
	return &GatewayBundle{
		Payments:   gateway.NewPaymentClient(gw, logger),
		Comparator: gateway.NewPriceComparisonClient(gw, logger),
		Email:      gateway.NewEmailClient(gw, logger),
	}
}

// ProvideMessenger returns the Lark messenger, or a messenger that drops
// everything when no Lark app is configured.
func ProvideMessenger(cfg *config.Config, logger *zap.Logger) port.ChatMessenger {
	lc := larkConfig(cfg)
	if !lc.Enabled() {
		logger.Info("Lark not configured; agent chat notifications disabled")
		return lark.NopMessenger{}
	}
	return lark.NewMessenger(lark.NewSDKClient(lc, logger), logger)
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKVLogger(logger.Named("dispatcher"))),
	)
}

// ServiceDeps holds dependencies for creating application services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Assigner   port.AgentAssigner
	Gateways   *GatewayBundle
	Messenger  port.ChatMessenger
	Dispatcher dispatcher.Dispatcher
	Background service.BackgroundConfig
	Logger     *zap.Logger
}

// ProvideServices creates the application services and registers the
// background handlers on the dispatcher.
func ProvideServices(deps *ServiceDeps) (httpserver.Services, error) {
	if deps == nil || deps.Repos == nil || deps.Gateways == nil {
		return httpserver.Services{}, fmt.Errorf("service dependencies are required")
	}

	log := utils.NewKVLogger(deps.Logger.Named("service"))
	repos := deps.Repos

	background := service.NewBackgroundHandlers(
		repos.Request,
		repos.Booking,
		repos.Agent,
		deps.Gateways.Comparator,
		deps.Gateways.Email,
		deps.Messenger,
		deps.Background,
		log,
	)
	background.Register(deps.Dispatcher)

	return httpserver.Services{
		Requests:      service.NewRequestService(repos.Request, deps.Assigner, deps.TxManager, log),
		Approvals:     service.NewApprovalService(repos.Request, deps.TxManager, deps.Gateways.Email, deps.Dispatcher, log),
		Confirmations: service.NewConfirmationService(repos.Request, repos.Booking, repos.Payment, deps.TxManager, deps.Dispatcher, log),
		Cancellations: service.NewCancellationService(repos.Booking, repos.Payment, deps.Gateways.Payments, deps.TxManager, deps.Dispatcher, log),
		Payments:      service.NewPaymentService(repos.Payment, repos.Booking, repos.Request, deps.Gateways.Payments, deps.TxManager, log),
	}, nil
}
