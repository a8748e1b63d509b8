package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Tables   TablesConfig
	Session  SessionConfig
	DB       DBConfig
	Redis    RedisConfig
	Tolling  TollingConfig
	Corridor CorridorConfig
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level      string
	Format     string // "console" or "json"
	File       string // optional, rotated with lumberjack
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// TablesConfig describes where the delimited resources live.
// Source is "dir" (local directory, writable) or "http" (read-only).
type TablesConfig struct {
	Source       string
	Dir          string
	BaseURL      string        `mapstructure:"base_url"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	Users        string
	UsersHeader  bool `mapstructure:"users_header"`
	Admins       string
	AdminsHeader bool `mapstructure:"admins_header"`
}

type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

type DBConfig struct {
	User           string
	Password       string
	DBName         string
	SSLMode        string
	Host           string
	Port           string
	MigrationsPath string `mapstructure:"migrations_path"`
}

// Enabled reports whether a Postgres ledger is configured.
func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

// DSN returns the URL form used by both lib/pq and golang-migrate.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether Redis backs sessions, caching and GPS tracking.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type TollingConfig struct {
	QueueSize        int                `mapstructure:"queue_size"`
	SpeedLimit       float64            `mapstructure:"speed_limit"`
	PricePerKm       float64            `mapstructure:"price_per_km"`
	OverspeedPerKmh  float64            `mapstructure:"overspeed_per_kmh"`
	PeakPrice        float64            `mapstructure:"peak_price"`
	TaxPrice         float64            `mapstructure:"tax_price"`
	RoadPrice        float64            `mapstructure:"road_price"`
	VehicleTypePrice map[string]float64 `mapstructure:"vehicle_type_price"`
	DefaultTypePrice float64            `mapstructure:"default_type_price"`
}

// CorridorConfig is the toll highway polyline as [lat, lon] waypoints.
type CorridorConfig struct {
	Technique string
	RadiusKm  float64 `mapstructure:"radius_km"`
	Points    [][]float64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)

	v.SetDefault("tables.source", "dir")
	v.SetDefault("tables.dir", "./data")
	v.SetDefault("tables.fetch_timeout", 10*time.Second)
	v.SetDefault("tables.cache_ttl", 30*time.Second)
	v.SetDefault("tables.users", "users.csv")
	v.SetDefault("tables.users_header", true)
	v.SetDefault("tables.admins", "admin.csv")
	v.SetDefault("tables.admins_header", false)

	v.SetDefault("log.file", "")
	v.SetDefault("tables.base_url", "")

	// Keys without a meaningful default are still registered so that
	// AutomaticEnv can override them during Unmarshal.
	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", 12*time.Hour)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("db.host", "")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.dbname", "tolls")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.migrations_path", "database/migrations")

	v.SetDefault("tolling.queue_size", 1024)
	v.SetDefault("tolling.speed_limit", 100.0)
	v.SetDefault("tolling.price_per_km", 0.1)
	v.SetDefault("tolling.overspeed_per_kmh", 0.2)
	v.SetDefault("tolling.peak_price", 10.0)
	v.SetDefault("tolling.tax_price", 5.0)
	v.SetDefault("tolling.road_price", 10.0)
	v.SetDefault("tolling.vehicle_type_price", map[string]float64{
		"car":   20,
		"bus":   30,
		"truck": 40,
		"other": 10,
	})
	v.SetDefault("tolling.default_type_price", 10.0)

	v.SetDefault("corridor.technique", "geohashing")
	v.SetDefault("corridor.radius_km", 0.05)
}

// Load reads .env, then config.yaml from the given directory, then
// environment overrides such as TABLES_DIR or SESSION_SECRET.
// A missing config file is not an error; defaults apply.
func Load(dir string) (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Tables.Source {
	case "dir":
		if c.Tables.Dir == "" {
			return errors.New("tables.dir is required for the dir source")
		}
	case "http":
		if c.Tables.BaseURL == "" {
			return errors.New("tables.base_url is required for the http source")
		}
	default:
		return fmt.Errorf("unknown tables.source %q", c.Tables.Source)
	}
	if c.Session.Secret == "" {
		return errors.New("session.secret is required")
	}
	if c.Tolling.QueueSize <= 0 {
		return errors.New("tolling.queue_size must be positive")
	}
	for i, p := range c.Corridor.Points {
		if len(p) != 2 {
			return fmt.Errorf("corridor.points[%d]: want [lat, lon], got %d values", i, len(p))
		}
	}
	return nil
}
