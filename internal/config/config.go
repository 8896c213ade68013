// Package config provides configuration management for the trading agent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"

	apperrors "polymarket-trader/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	PaperTrading bool             `mapstructure:"paper_trading"`
	ScanInterval time.Duration    `mapstructure:"scan_interval"`
	Trading      TradingConfig    `mapstructure:"trading"`
	API          APIConfig        `mapstructure:"api"`
	Monitoring   MonitoringConfig `mapstructure:"monitoring"`

	// Loaded from the environment, never from config files.
	PrivateKey string `mapstructure:"-"`
}

// TradingConfig holds strategy and risk configuration.
type TradingConfig struct {
	MinLiquidity             float64       `mapstructure:"min_liquidity"`
	MaxPositionSize          float64       `mapstructure:"max_position_size"`
	MinPositionSize          float64       `mapstructure:"min_position_size"`
	ConfidenceThreshold      float64       `mapstructure:"confidence_threshold"`
	MaxDailyLoss             float64       `mapstructure:"max_daily_loss"`
	MaxWeeklyLoss            float64       `mapstructure:"max_weekly_loss"`
	MaxDrawdownPercent       float64       `mapstructure:"max_drawdown_percent"`
	MaxPositionsPerMarket    int           `mapstructure:"max_positions_per_market"`
	MaxTotalPositions        int           `mapstructure:"max_total_positions"`
	MaxPositionConcentration float64       `mapstructure:"max_position_concentration"`
	TopOpportunities         int           `mapstructure:"top_opportunities"`
	RateLimitDelay           time.Duration `mapstructure:"rate_limit_delay"`
	UseKellyCriterion        bool          `mapstructure:"use_kelly_criterion"`
	KellyFraction            float64       `mapstructure:"kelly_fraction"`
	InitialBalance           float64       `mapstructure:"initial_balance"`
}

// APIConfig holds network and endpoint configuration.
type APIConfig struct {
	CLOBHost          string        `mapstructure:"clob_host"`
	GammaHost         string        `mapstructure:"gamma_host"`
	ChainID           int           `mapstructure:"chain_id"`
	MarketsFetchLimit int           `mapstructure:"markets_fetch_limit"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	BreakerThreshold  int           `mapstructure:"breaker_threshold"`
	BreakerCooldown   time.Duration `mapstructure:"breaker_cooldown"`
}

// MonitoringConfig holds logging and metrics configuration.
type MonitoringConfig struct {
	LogLevel      string `mapstructure:"log_level"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
	DBPath        string `mapstructure:"db_path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/polymarket-trader"
	}
	return filepath.Join(home, ".config", "polymarket-trader")
}

// Default returns the built-in configuration, matching paper-trading defaults.
func Default() *Config {
	return &Config{
		PaperTrading: true,
		ScanInterval: 5 * time.Minute,
		Trading: TradingConfig{
			MinLiquidity:             10000,
			MaxPositionSize:          100,
			MinPositionSize:          10,
			ConfidenceThreshold:      0.10,
			MaxDailyLoss:             500,
			MaxWeeklyLoss:            2000,
			MaxDrawdownPercent:       0.20,
			MaxPositionsPerMarket:    1,
			MaxTotalPositions:        10,
			MaxPositionConcentration: 0.30,
			TopOpportunities:         5,
			RateLimitDelay:           2 * time.Second,
			UseKellyCriterion:        true,
			KellyFraction:            0.25,
			InitialBalance:           10000,
		},
		API: APIConfig{
			CLOBHost:          "https://clob.polymarket.com",
			GammaHost:         "https://gamma-api.polymarket.com",
			ChainID:           137, // Polygon mainnet
			MarketsFetchLimit: 100,
			RequestTimeout:    30 * time.Second,
			MaxRetries:        3,
			RetryDelay:        time.Second,
			BreakerThreshold:  5,
			BreakerCooldown:   5 * time.Minute,
		},
		Monitoring: MonitoringConfig{
			LogLevel:      "info",
			LogFile:       filepath.Join(DefaultConfigDir(), "logs", "agent.log"),
			LogMaxSizeMB:  10,
			LogMaxBackups: 5,
			DBPath:        filepath.Join(DefaultConfigDir(), "trader.db"),
		},
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
		// No config file: defaults plus env overrides.
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.PrivateKey = os.Getenv("POLYGON_PRIVATE_KEY")

	if v := os.Getenv("PM_PAPER_TRADING"); v != "" {
		cfg.PaperTrading = v == "true" || v == "1"
	}
	if v := os.Getenv("PM_SCAN_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ScanInterval = d
		}
	}
	overrideFloat := func(key string, target *float64) {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*target = f
			}
		}
	}
	overrideFloat("PM_MIN_LIQUIDITY", &cfg.Trading.MinLiquidity)
	overrideFloat("PM_MAX_POSITION_SIZE", &cfg.Trading.MaxPositionSize)
	overrideFloat("PM_CONFIDENCE_THRESHOLD", &cfg.Trading.ConfidenceThreshold)
	overrideFloat("PM_MAX_DAILY_LOSS", &cfg.Trading.MaxDailyLoss)
}

// Validate checks all configuration invariants. It is called once at load
// time; the engine treats a validated config as read-only.
func (c *Config) Validate() error {
	t := c.Trading

	if t.MinLiquidity <= 0 {
		return apperrors.NewValidationError("trading.min_liquidity", t.MinLiquidity, "must be positive")
	}
	if t.MinPositionSize <= 0 {
		return apperrors.NewValidationError("trading.min_position_size", t.MinPositionSize, "must be positive")
	}
	if t.MaxPositionSize <= t.MinPositionSize {
		return apperrors.NewValidationError("trading.max_position_size", t.MaxPositionSize, "must be greater than min_position_size")
	}
	if t.ConfidenceThreshold <= 0 || t.ConfidenceThreshold >= 1 {
		return apperrors.NewValidationError("trading.confidence_threshold", t.ConfidenceThreshold, "must be between 0 and 1")
	}
	if t.MaxDailyLoss <= 0 {
		return apperrors.NewValidationError("trading.max_daily_loss", t.MaxDailyLoss, "must be positive")
	}
	if t.MaxWeeklyLoss < t.MaxDailyLoss {
		return apperrors.NewValidationError("trading.max_weekly_loss", t.MaxWeeklyLoss, "must be >= max_daily_loss")
	}
	if t.MaxDrawdownPercent <= 0 || t.MaxDrawdownPercent >= 1 {
		return apperrors.NewValidationError("trading.max_drawdown_percent", t.MaxDrawdownPercent, "must be between 0 and 1")
	}
	if t.MaxPositionsPerMarket <= 0 {
		return apperrors.NewValidationError("trading.max_positions_per_market", t.MaxPositionsPerMarket, "must be positive")
	}
	if t.MaxTotalPositions <= 0 {
		return apperrors.NewValidationError("trading.max_total_positions", t.MaxTotalPositions, "must be positive")
	}
	if t.MaxPositionConcentration <= 0 || t.MaxPositionConcentration >= 1 {
		return apperrors.NewValidationError("trading.max_position_concentration", t.MaxPositionConcentration, "must be between 0 and 1")
	}
	if t.KellyFraction <= 0 || t.KellyFraction > 1 {
		return apperrors.NewValidationError("trading.kelly_fraction", t.KellyFraction, "must be between 0 and 1")
	}
	if t.InitialBalance <= 0 {
		return apperrors.NewValidationError("trading.initial_balance", t.InitialBalance, "must be positive")
	}

	a := c.API
	if a.ChainID <= 0 {
		return apperrors.NewValidationError("api.chain_id", a.ChainID, "must be positive")
	}
	if a.MarketsFetchLimit <= 0 {
		return apperrors.NewValidationError("api.markets_fetch_limit", a.MarketsFetchLimit, "must be positive")
	}
	if a.RequestTimeout <= 0 {
		return apperrors.NewValidationError("api.request_timeout", a.RequestTimeout, "must be positive")
	}
	if a.MaxRetries < 0 {
		return apperrors.NewValidationError("api.max_retries", a.MaxRetries, "must be non-negative")
	}
	if a.BreakerThreshold <= 0 {
		return apperrors.NewValidationError("api.breaker_threshold", a.BreakerThreshold, "must be positive")
	}
	if a.BreakerCooldown <= 0 {
		return apperrors.NewValidationError("api.breaker_cooldown", a.BreakerCooldown, "must be positive")
	}

	if c.ScanInterval <= 0 {
		return apperrors.NewValidationError("scan_interval", c.ScanInterval, "must be positive")
	}
	if !c.PaperTrading && c.PrivateKey == "" {
		return apperrors.ErrLiveKeyMissing
	}

	return nil
}
