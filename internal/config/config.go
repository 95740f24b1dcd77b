package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/destiin/travel-booking/pkg/utils"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Gateway      GatewayConfig      `mapstructure:"gateway"`
	Notification NotificationConfig `mapstructure:"notification"`
	Lark         LarkConfig         `mapstructure:"lark"`
	Logger       LoggerConfig       `mapstructure:"logger"`
	Agents       []AgentConfig      `mapstructure:"agents"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	WebhookSecret   string        `mapstructure:"webhook_secret"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"` // empty uses the embedded migrations
}

// GatewayConfig holds the outbound service endpoints
type GatewayConfig struct {
	PaymentsBaseURL        string        `mapstructure:"payments_base_url"`
	OpsBaseURL             string        `mapstructure:"ops_base_url"`
	MainBaseURL            string        `mapstructure:"main_base_url"`
	Timeout                time.Duration `mapstructure:"timeout"`
	PriceComparisonTimeout time.Duration `mapstructure:"price_comparison_timeout"`
	PriceComparisonSites   []string      `mapstructure:"price_comparison_sites"`
}

// NotificationConfig bounds the background notification handlers
type NotificationConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LarkConfig holds Lark app credentials. Chat notifications are off when
// app_id is empty.
type LarkConfig struct {
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
	BaseURL   string `mapstructure:"base_url"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// AgentConfig is one travel agent seeded into the rotation at startup
type AgentConfig struct {
	ID         string `mapstructure:"id"`
	Name       string `mapstructure:"name"`
	Email      string `mapstructure:"email"`
	LarkOpenID string `mapstructure:"lark_open_id"`
	Active     *bool  `mapstructure:"active"`
}

// IsActive defaults to true when the flag is omitted
func (a AgentConfig) IsActive() bool {
	return a.Active == nil || *a.Active
}

// Load loads configuration from file and environment variables. A .env file
// next to the working directory, when present, is loaded into the
// environment first.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv keeps variables already set in the environment
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/travel.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrations_dir", "")

	// Gateway defaults
	v.SetDefault("gateway.timeout", 30*time.Second)
	v.SetDefault("gateway.price_comparison_timeout", 900*time.Second)
	v.SetDefault("gateway.price_comparison_sites", []string{"agoda", "booking", "expedia"})

	v.SetDefault("notification.timeout", 30*time.Second)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Credentials and endpoints usually come from the environment
	_ = v.BindEnv("lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("gateway.payments_base_url", "PAYMENTS_BASE_URL")
	_ = v.BindEnv("gateway.ops_base_url", "OPS_BASE_URL")
	_ = v.BindEnv("gateway.main_base_url", "MAIN_BASE_URL")
	_ = v.BindEnv("database.path", "DATABASE_PATH")
	_ = v.BindEnv("server.webhook_secret", "WEBHOOK_SECRET")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Gateway.PaymentsBaseURL == "" {
		return fmt.Errorf("gateway.payments_base_url is required")
	}
	if c.Gateway.OpsBaseURL == "" {
		return fmt.Errorf("gateway.ops_base_url is required")
	}
	if c.Gateway.MainBaseURL == "" {
		return fmt.Errorf("gateway.main_base_url is required")
	}

	if c.Lark.AppID != "" && c.Lark.AppSecret == "" {
		return fmt.Errorf("lark.app_secret is required when lark.app_id is set")
	}

	seen := make(map[string]bool, len(c.Agents))
	for i, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("agents[%d].id is required", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("agents[%d].id %s is listed more than once", i, a.ID)
		}
		seen[a.ID] = true
		if err := utils.ValidateEmail(a.Email); err != nil {
			return fmt.Errorf("agents[%d].email: %w", i, err)
		}
	}

	return nil
}
