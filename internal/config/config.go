package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the trading pipeline.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Trading   TradingConfig
	Risk      RiskConfig
	Execution ExecutionConfig
	Database  DatabaseConfig
	Telegram  TelegramConfig
	Profiling ProfilingConfig
}

// TradingConfig drives the market feed and the aggregation cycle.
type TradingConfig struct {
	Mode                string        `mapstructure:"mode"` // "sim" or "live"
	Symbols             []string      `mapstructure:"symbols"`
	AggregationInterval time.Duration `mapstructure:"aggregation_interval"`
	FeedInterval        time.Duration `mapstructure:"feed_interval"`
	InitialBalance      float64       `mapstructure:"initial_balance"`
}

// RiskConfig seeds the risk engine limits.
type RiskConfig struct {
	SnapshotInterval      time.Duration `mapstructure:"snapshot_interval"`
	DefaultLeverage       float64       `mapstructure:"default_leverage"`
	MaxDailyLossPct       float64       `mapstructure:"max_daily_loss_pct"`
	MaxLeverage           float64       `mapstructure:"max_leverage"`
	MaxPositionSizePct    float64       `mapstructure:"max_position_size_pct"`
	MaxDrawdownPct        float64       `mapstructure:"max_drawdown_pct"`
	MaxOpenPositions      int           `mapstructure:"max_open_positions"`
	ConcentrationLimitPct float64       `mapstructure:"concentration_limit_pct"`
	LiquidationBufferPct  float64       `mapstructure:"liquidation_buffer_pct"`
}

// ExecutionConfig tunes the order monitor.
type ExecutionConfig struct {
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
	SizingTimeout   time.Duration `mapstructure:"sizing_timeout"`
	OrderTimeout    time.Duration `mapstructure:"order_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
}

// DatabaseConfig defines the durable-history connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// TelegramConfig defines the alert channel. Empty token disables it.
type TelegramConfig struct {
	Token  string
	ChatID string `mapstructure:"chat_id"`
}

// ProfilingConfig enables continuous profiling. Empty address disables it.
type ProfilingConfig struct {
	ServerAddress string `mapstructure:"server_address"`
}

// Load reads configuration from file or environment variables.
func Load(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("trading.mode", "sim")
	viper.SetDefault("trading.symbols", []string{"BTCUSDT"})
	viper.SetDefault("trading.initial_balance", 10_000)
	viper.SetDefault("risk.default_leverage", 5)
	viper.SetDefault("risk.max_daily_loss_pct", 5)
	viper.SetDefault("risk.max_leverage", 10)
	viper.SetDefault("risk.max_position_size_pct", 30)
	viper.SetDefault("risk.max_drawdown_pct", 20)

	if err = viper.ReadInConfig(); err != nil {
		// Defaults and environment variables are enough to run in sim mode.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return
		}
	}

	err = viper.Unmarshal(&config)
	return
}
