// Package container provides dependency injection and lifecycle management
// for the travel booking service.
package container

import (
	"github.com/destiin/travel-booking/internal/config"
	"github.com/destiin/travel-booking/internal/domain/entity"
	"github.com/destiin/travel-booking/internal/infrastructure/external/gateway"
	"github.com/destiin/travel-booking/internal/infrastructure/external/lark"
	httpserver "github.com/destiin/travel-booking/internal/interfaces/http"
	"github.com/destiin/travel-booking/pkg/database"
)

// The application configuration is loaded once by internal/config. The helpers
// below project its sections onto the settings each subsystem constructor
// takes.

func databaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
}

func gatewayConfig(cfg *config.Config) gateway.Config {
	return gateway.Config{
		PaymentsBaseURL:        cfg.Gateway.PaymentsBaseURL,
		OpsBaseURL:             cfg.Gateway.OpsBaseURL,
		MainBaseURL:            cfg.Gateway.MainBaseURL,
		Timeout:                cfg.Gateway.Timeout,
		PriceComparisonTimeout: cfg.Gateway.PriceComparisonTimeout,
		PriceComparisonSites:   cfg.Gateway.PriceComparisonSites,
	}
}

func larkConfig(cfg *config.Config) lark.Config {
	return lark.Config{
		AppID:     cfg.Lark.AppID,
		AppSecret: cfg.Lark.AppSecret,
		BaseURL:   cfg.Lark.BaseURL,
	}
}

// ServerConfig returns the HTTP settings, falling back to the server defaults
// for zero values.
func ServerConfig(cfg *config.Config) httpserver.ServerConfig {
	out := httpserver.DefaultServerConfig()
	if cfg.Server.Host != "" {
		out.Host = cfg.Server.Host
	}
	if cfg.Server.Port != 0 {
		out.Port = cfg.Server.Port
	}
	if cfg.Server.ReadTimeout > 0 {
		out.ReadTimeout = cfg.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout > 0 {
		out.WriteTimeout = cfg.Server.WriteTimeout
	}
	if cfg.Server.ShutdownTimeout > 0 {
		out.ShutdownTimeout = cfg.Server.ShutdownTimeout
	}
	out.WebhookSecret = cfg.Server.WebhookSecret
	return out
}

func seedAgents(cfg *config.Config) []entity.Agent {
	agents := make([]entity.Agent, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		agents = append(agents, entity.Agent{
			ID:         a.ID,
			Name:       a.Name,
			Email:      a.Email,
			LarkOpenID: a.LarkOpenID,
			Active:     a.IsActive(),
		})
	}
	return agents
}
