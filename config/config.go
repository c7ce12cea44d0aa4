package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Alert    AlertConfig    `mapstructure:"alert"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	HTTP     HTTPConfig     `mapstructure:"http"`
}

type AppConfig struct {
	Env string `mapstructure:"env"` // "dev" or "prod"
}

type TelegramConfig struct {
	Token       string `mapstructure:"token"`
	TokenParam  string `mapstructure:"token_param"` // SSM parameter holding the token in prod
	AdminID     int64  `mapstructure:"admin_id"`
	PollTimeout int    `mapstructure:"poll_timeout"` // long-polling timeout in seconds

	RequestTimeout time.Duration `mapstructure:"request_timeout"` // every Bot API call except the long poll
}

type ExchangeConfig struct {
	Name           string        `mapstructure:"name"` // "binance" or "bybit"
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Binance        BinanceConfig `mapstructure:"binance"`
	Bybit          BybitConfig   `mapstructure:"bybit"`
}

type BinanceConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

type BybitConfig struct {
	REST RESTConfig `mapstructure:"rest"`
	WS   WSConfig   `mapstructure:"ws"`
}

type RESTConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Category string `mapstructure:"category"` // "spot" or "linear"
}

type WSConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	MaxAge  time.Duration `mapstructure:"max_age"` // streamed prices older than this fall back to REST
}

type ScheduleConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	DetectInterval  time.Duration `mapstructure:"detect_interval"`
	HealthInterval  time.Duration `mapstructure:"health_interval"`
}

type AlertConfig struct {
	CoinsFile        string   `mapstructure:"coins_file"`
	DefaultCoins     []string `mapstructure:"default_coins"`
	DefaultThreshold float64  `mapstructure:"default_threshold"` // percent
}

// AdminConfig limits how often error reports reach the admin chat.
type AdminConfig struct {
	ReportInterval time.Duration `mapstructure:"report_interval"`
	ReportBurst    int           `mapstructure:"report_burst"`
}

type StorageConfig struct {
	Driver   string         `mapstructure:"driver"` // "sqlite" or "postgres"
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")

	v.SetDefault("telegram.token_param", "VOLUMEBOT_TELEGRAM_TOKEN")
	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("telegram.request_timeout", 10*time.Second)

	v.SetDefault("exchange.name", "binance")
	v.SetDefault("exchange.request_timeout", 10*time.Second)
	v.SetDefault("exchange.bybit.rest.base_url", "https://api.bybit.com")
	v.SetDefault("exchange.bybit.rest.category", "spot")
	v.SetDefault("exchange.bybit.ws.url", "wss://stream.bybit.com/v5/public/spot")
	v.SetDefault("exchange.bybit.ws.max_age", time.Minute)

	v.SetDefault("schedule.refresh_interval", 180*time.Second)
	v.SetDefault("schedule.detect_interval", 60*time.Second)
	v.SetDefault("schedule.health_interval", 300*time.Second)

	v.SetDefault("alert.coins_file", "coins.txt")
	v.SetDefault("alert.default_coins", []string{"BTC/USDT", "ETH/USDT", "DOGE/USDT"})
	v.SetDefault("alert.default_threshold", 10.0)

	v.SetDefault("admin.report_interval", 10*time.Second)
	v.SetDefault("admin.report_burst", 5)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite.path", "user_data.db")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.postgres.host_param", "VOLUMEBOT_DB_HOST")
	v.SetDefault("storage.postgres.user_param", "VOLUMEBOT_DB_USER")
	v.SetDefault("storage.postgres.password_param", "VOLUMEBOT_DB_PASSWORD")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_file", "logs/main.log")

	v.SetDefault("http.enabled", false)
	v.SetDefault("http.addr", ":8080")
}

// Read loads configuration from the given yaml file, a .env file in the
// working directory and the process environment, in increasing priority.
func Read(path string) (*Config, error) {
	// .env is optional; variables it defines become regular env vars
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	}

	// Support environment variables with dot notation (e.g., TELEGRAM_ADMIN_ID)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows about
	for _, key := range []string{"telegram.token", "telegram.admin_id", "exchange.binance.api_key",
		"exchange.binance.api_secret", "storage.postgres.password"} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Log.Environment == "" {
		cfg.Log.Environment = cfg.App.Env
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Load is Read for process startup: any error is fatal.
func Load(path string) *Config {
	cfg, err := Read(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) Validate() error {
	switch c.Exchange.Name {
	case "binance", "bybit":
	default:
		return fmt.Errorf("unsupported exchange %q", c.Exchange.Name)
	}
	if c.Exchange.RequestTimeout <= 0 {
		return fmt.Errorf("exchange request timeout must be greater than 0")
	}

	if c.Telegram.RequestTimeout <= 0 {
		return fmt.Errorf("telegram request timeout must be greater than 0")
	}

	if c.Schedule.RefreshInterval <= 0 || c.Schedule.DetectInterval <= 0 || c.Schedule.HealthInterval <= 0 {
		return fmt.Errorf("schedule intervals must be greater than 0")
	}

	if c.Alert.DefaultThreshold < 0 || c.Alert.DefaultThreshold > 100 {
		return fmt.Errorf("default threshold %v out of range [0, 100]", c.Alert.DefaultThreshold)
	}
	if c.Alert.CoinsFile == "" {
		return fmt.Errorf("coins file cannot be empty")
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("sqlite path cannot be empty")
		}
	case "postgres":
		if c.Storage.Postgres.DBName == "" {
			return fmt.Errorf("postgres dbname cannot be empty")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}

	// dev runs may leave admin_id unset; admin reports are then only logged
	if c.App.Env == "prod" && c.Telegram.AdminID == 0 {
		return fmt.Errorf("telegram admin id is required in prod")
	}
	return nil
}
