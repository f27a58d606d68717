package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Metrics  MetricsConfig
	Agenda   AgendaConfig
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

// JWTConfig holds the shared secret of the identity provider that issues access tokens.
type JWTConfig struct {
	Secret string
	Issuer string
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

// AgendaConfig tunes the agenda engine.
type AgendaConfig struct {
	DefaultTimezone  string
	HorizonDays      int
	MaxWindowDays    int
	WeekStart        time.Weekday
	TemplateCacheTTL time.Duration
	StatsCacheTTL    time.Duration
	CacheWarmCron    string
	WarmWorkers      int
	LabelsFile       string
	FeedSecret       string
	FeedTTL          time.Duration
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

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

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

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	weekStart, err := parseWeekday(v.GetString("AGENDA_WEEK_START"))
	if err != nil {
		return nil, err
	}
	cfg.Agenda = AgendaConfig{
		DefaultTimezone:  v.GetString("AGENDA_DEFAULT_TIMEZONE"),
		HorizonDays:      positiveOr(v.GetInt("AGENDA_HORIZON_DAYS"), 366),
		MaxWindowDays:    positiveOr(v.GetInt("AGENDA_MAX_WINDOW_DAYS"), 93),
		WeekStart:        weekStart,
		TemplateCacheTTL: parseDuration(v.GetString("AGENDA_TEMPLATE_CACHE_TTL"), 2*time.Minute),
		StatsCacheTTL:    parseDuration(v.GetString("AGENDA_STATS_CACHE_TTL"), 30*time.Second),
		CacheWarmCron:    v.GetString("AGENDA_CACHE_WARM_CRON"),
		WarmWorkers:      positiveOr(v.GetInt("AGENDA_WARM_WORKERS"), 2),
		LabelsFile:       v.GetString("AGENDA_LABELS_FILE"),
		FeedSecret:       v.GetString("AGENDA_FEED_SECRET"),
		FeedTTL:          parseDuration(v.GetString("AGENDA_FEED_TTL"), 90*24*time.Hour),
	}
	if _, err := time.LoadLocation(cfg.Agenda.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("invalid AGENDA_DEFAULT_TIMEZONE %q: %w", cfg.Agenda.DefaultTimezone, err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "gym_backoffice")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ENABLE_METRICS", true)

	v.SetDefault("AGENDA_DEFAULT_TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("AGENDA_HORIZON_DAYS", 366)
	v.SetDefault("AGENDA_MAX_WINDOW_DAYS", 93)
	v.SetDefault("AGENDA_WEEK_START", "monday")
	v.SetDefault("AGENDA_TEMPLATE_CACHE_TTL", "2m")
	v.SetDefault("AGENDA_STATS_CACHE_TTL", "30s")
	v.SetDefault("AGENDA_CACHE_WARM_CRON", "@every 1m")
	v.SetDefault("AGENDA_WARM_WORKERS", 2)
	v.SetDefault("AGENDA_LABELS_FILE", "")
	v.SetDefault("AGENDA_FEED_SECRET", "dev_feed_secret")
	v.SetDefault("AGENDA_FEED_TTL", "2160h")
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

func parseWeekday(raw string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "monday":
		return time.Monday, nil
	case "sunday":
		return time.Sunday, nil
	default:
		return time.Monday, fmt.Errorf("invalid AGENDA_WEEK_START %q: want monday or sunday", raw)
	}
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
