package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config aggregates application configuration values.
type Config struct {
	Env       string
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Ledger    LedgerConfig
	Risk      RiskConfig
	Graph     GraphConfig
	Neo4j     Neo4jConfig
	Logging   LoggingConfig
	Telemetry TelemetryConfig
}

// ServerConfig governs the HTTP server.
type ServerConfig struct {
	Port            string
	AllowedOrigins  string
	ShutdownTimeout time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// DatabaseConfig describes the postgres connection. Driver "memory" selects
// the in-process store.
type DatabaseConfig struct {
	Driver          string // postgres|memory
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig describes the redis connection used for the TTL store and
// distributed locks. An empty Host disables redis.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

// LedgerConfig holds the balance policy.
type LedgerConfig struct {
	MinBalance decimal.Decimal
	Currency   string
	LockExpiry time.Duration
}

// RiskConfig holds the disposition thresholds and the external scorer location.
type RiskConfig struct {
	BlockThreshold  float64
	ReviewThreshold float64
	ScorerURL       string
	ScorerTimeout   time.Duration
	StaticScore     float64
}

// GraphConfig bounds the counterparty graph build.
type GraphConfig struct {
	MaxTransactions int
	BuildTimeout    time.Duration
	CacheTTL        time.Duration
	DefaultWindow   time.Duration
}

// Neo4jConfig describes the optional graph export target.
type Neo4jConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level  string
	Format string // console|json
}

// Telemetry exporters.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// TelemetryConfig selects where traces and metrics go. ExporterNone keeps
// the SDK providers in process without exporting.
type TelemetryConfig struct {
	Exporter       string
	Endpoint       string // OTLP gRPC collector host:port
	ServiceName    string
	ServiceVersion string
	MetricInterval time.Duration
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from the environment, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Env: GetEnv("ENV", "development"),
		Server: ServerConfig{
			Port:           GetEnv("PORT", "3000"),
			AllowedOrigins: GetEnv("ALLOWED_ORIGINS", "http://localhost:5173"),
			RateLimitMax:   GetIntEnv("RATE_LIMIT_MAX", 30),
		},
		Database: DatabaseConfig{
			Driver:       GetEnv("DB_DRIVER", "postgres"),
			Host:         GetEnv("DB_HOST", "localhost"),
			Port:         GetEnv("DB_PORT", "5432"),
			User:         GetEnv("DB_USER", "postgres"),
			Password:     GetEnv("DB_PASSWORD", "postgres"),
			Name:         GetEnv("DB_NAME", "fraudguard"),
			SSLMode:      GetEnv("DB_SSLMODE", "disable"),
			MaxIdleConns: GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns: GetIntEnv("DB_MAX_OPEN_CONNS", 100),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", ""),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret: GetEnv("JWT_SECRET", ""),
		},
		Ledger: LedgerConfig{
			Currency: GetEnv("LEDGER_CURRENCY", "IDR"),
		},
		Risk: RiskConfig{
			ScorerURL: GetEnv("RISK_SCORER_URL", ""),
		},
		Graph: GraphConfig{
			MaxTransactions: GetIntEnv("GRAPH_MAX_TRANSACTIONS", 50000),
		},
		Neo4j: Neo4jConfig{
			URI:            GetEnv("NEO4J_URI", ""),
			Database:       GetEnv("NEO4J_DATABASE", ""),
			Username:       GetEnv("NEO4J_USERNAME", ""),
			Password:       GetEnv("NEO4J_PASSWORD", ""),
			MaxConnections: GetIntEnv("NEO4J_MAX_CONNECTIONS", 10),
		},
		Logging: LoggingConfig{
			Level:  GetEnv("LOG_LEVEL", "info"),
			Format: GetEnv("LOG_FORMAT", "console"),
		},
		Telemetry: TelemetryConfig{
			Exporter:       GetEnv("OTEL_EXPORTER", ExporterNone),
			Endpoint:       GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:    GetEnv("OTEL_SERVICE_NAME", "fraudguard"),
			ServiceVersion: GetEnv("SERVICE_VERSION", "dev"),
		},
	}

	durations := []struct {
		key      string
		fallback string
		dest     *time.Duration
	}{
		{"SERVER_SHUTDOWN_TIMEOUT", "10s", &cfg.Server.ShutdownTimeout},
		{"RATE_LIMIT_WINDOW", "1m", &cfg.Server.RateLimitWindow},
		{"DB_CONN_MAX_LIFETIME", "1h", &cfg.Database.ConnMaxLifetime},
		{"DB_CONN_MAX_IDLE_TIME", "30m", &cfg.Database.ConnMaxIdleTime},
		{"REDIS_CACHE_TTL", "5m", &cfg.Redis.CacheTTL},
		{"LEDGER_LOCK_EXPIRY", "10s", &cfg.Ledger.LockExpiry},
		{"RISK_SCORER_TIMEOUT", "2s", &cfg.Risk.ScorerTimeout},
		{"GRAPH_BUILD_TIMEOUT", "30s", &cfg.Graph.BuildTimeout},
		{"GRAPH_CACHE_TTL", "2m", &cfg.Graph.CacheTTL},
		{"GRAPH_DEFAULT_WINDOW", "720h", &cfg.Graph.DefaultWindow},
		{"OTEL_METRIC_INTERVAL", "30s", &cfg.Telemetry.MetricInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(GetEnv(d.key, d.fallback))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dest = v
	}

	floats := []struct {
		key      string
		fallback string
		dest     *float64
	}{
		{"RISK_BLOCK_THRESHOLD", "70", &cfg.Risk.BlockThreshold},
		{"RISK_REVIEW_THRESHOLD", "30", &cfg.Risk.ReviewThreshold},
		{"RISK_STATIC_SCORE", "0", &cfg.Risk.StaticScore},
	}
	for _, f := range floats {
		v, err := strconv.ParseFloat(GetEnv(f.key, f.fallback), 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", f.key, err)
		}
		*f.dest = v
	}

	minBalance, err := decimal.NewFromString(GetEnv("LEDGER_MIN_BALANCE", "200000"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid LEDGER_MIN_BALANCE: %w", err)
	}
	cfg.Ledger.MinBalance = minBalance

	if cfg.Risk.ReviewThreshold > cfg.Risk.BlockThreshold {
		return Config{}, fmt.Errorf("RISK_REVIEW_THRESHOLD (%v) must not exceed RISK_BLOCK_THRESHOLD (%v)",
			cfg.Risk.ReviewThreshold, cfg.Risk.BlockThreshold)
	}

	switch cfg.Telemetry.Exporter {
	case ExporterNone, ExporterStdout, ExporterOTLP:
	default:
		return Config{}, fmt.Errorf("invalid OTEL_EXPORTER %q: want none, stdout or otlp", cfg.Telemetry.Exporter)
	}

	if cfg.IsProduction() && cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required in production")
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "fraudguard-dev-secret"
	}

	return cfg, nil
}

// DSN builds the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

// Addr returns the redis host:port pair.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Enabled reports whether a redis host is configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}
