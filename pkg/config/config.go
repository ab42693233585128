package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Incident sources.
const (
	IncidentSourcePostgres = "postgres"
	IncidentSourceSheets   = "sheets"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Sheets   SheetsConfig
	Rules    RulesConfig
	CORS     CORSConfig
	Log      LogConfig
	Metrics  MetricsConfig
	Docs     DocsConfig

	IncidentSource string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig controls the read-through cache in front of the external stores.
type CacheConfig struct {
	Backend      string
	Prefix       string
	DefaultTTL   time.Duration
	RosterTTL    time.Duration
	IncidentsTTL time.Duration
	CICOTTL      time.Duration
	HolidaysTTL  time.Duration
	WarmWorkers  int
}

// SheetsConfig points the incident source at a Google spreadsheet.
type SheetsConfig struct {
	SpreadsheetID   string
	IncidentRange   string
	CredentialsFile string
	Endpoint        string
}

// RulesConfig optionally overrides the embedded tier thresholds.
type RulesConfig struct {
	File string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// DocsConfig toggles the swagger UI.
type DocsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.IncidentSource = strings.ToLower(v.GetString("INCIDENT_SOURCE"))

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	defaultTTL := parseDuration(v.GetString("CACHE_TTL"), 10*time.Second)
	cfg.Cache = CacheConfig{
		Backend:      strings.ToLower(v.GetString("CACHE_BACKEND")),
		Prefix:       v.GetString("CACHE_PREFIX"),
		DefaultTTL:   defaultTTL,
		RosterTTL:    parseDuration(v.GetString("CACHE_TTL_ROSTER"), defaultTTL),
		IncidentsTTL: parseDuration(v.GetString("CACHE_TTL_INCIDENTS"), defaultTTL),
		CICOTTL:      parseDuration(v.GetString("CACHE_TTL_CICO"), defaultTTL),
		HolidaysTTL:  parseDuration(v.GetString("CACHE_TTL_HOLIDAYS"), defaultTTL),
		WarmWorkers:  v.GetInt("CACHE_WARM_WORKERS"),
	}

	cfg.Sheets = SheetsConfig{
		SpreadsheetID:   v.GetString("SHEETS_SPREADSHEET_ID"),
		IncidentRange:   v.GetString("SHEETS_INCIDENT_RANGE"),
		CredentialsFile: v.GetString("SHEETS_CREDENTIALS_FILE"),
		Endpoint:        v.GetString("SHEETS_ENDPOINT"),
	}

	cfg.Rules = RulesConfig{File: v.GetString("TIER_RULES_FILE")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}
	cfg.Docs = DocsConfig{Enabled: v.GetBool("ENABLE_DOCS")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("INCIDENT_SOURCE", IncidentSourcePostgres)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "pbis")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("CACHE_BACKEND", CacheBackendMemory)
	v.SetDefault("CACHE_PREFIX", "pbis")
	v.SetDefault("CACHE_TTL", "10s")
	v.SetDefault("CACHE_TTL_ROSTER", "")
	v.SetDefault("CACHE_TTL_INCIDENTS", "")
	v.SetDefault("CACHE_TTL_CICO", "")
	v.SetDefault("CACHE_TTL_HOLIDAYS", "")
	v.SetDefault("CACHE_WARM_WORKERS", 1)

	v.SetDefault("SHEETS_SPREADSHEET_ID", "")
	v.SetDefault("SHEETS_INCIDENT_RANGE", "BehaviorLogs")
	v.SetDefault("SHEETS_CREDENTIALS_FILE", "service_account.json")
	v.SetDefault("SHEETS_ENDPOINT", "")

	v.SetDefault("TIER_RULES_FILE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_METRICS", true)
	v.SetDefault("ENABLE_DOCS", false)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
