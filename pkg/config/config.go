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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Validation ValidationConfig
	Audio      AudioConfig
	Stats      StatsConfig
	Exports    ExportsConfig
	Reconcile  ReconcileConfig
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
	Enabled  bool
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ValidationConfig holds the peer-review policy constants. They are policy,
// not magic numbers: a contribution needs MinValidations peer reviews before
// its status moves, then the positive ratio decides validated vs rejected.
type ValidationConfig struct {
	MinValidations    int
	ValidateThreshold float64
	RejectThreshold   float64
}

// AudioConfig controls audio blob storage and signed download URLs.
type AudioConfig struct {
	StorageDir       string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// StatsConfig tunes caching of language statistics.
type StatsConfig struct {
	CacheTTL time.Duration
}

// ExportsConfig toggles the admin export endpoints.
type ExportsConfig struct {
	Enabled bool
}

// ReconcileConfig sizes the counter reconciliation worker pool.
type ReconcileConfig struct {
	Workers    int
	BufferSize int
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
		if !errors.As(err, &notFound) {
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
		Enabled:  v.GetBool("REDIS_ENABLED"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Validation = ValidationConfig{
		MinValidations:    v.GetInt("VALIDATION_MIN_COUNT"),
		ValidateThreshold: v.GetFloat64("VALIDATION_VALIDATE_THRESHOLD"),
		RejectThreshold:   v.GetFloat64("VALIDATION_REJECT_THRESHOLD"),
	}

	maxAudioSize := v.GetInt64("AUDIO_MAX_FILE_SIZE")
	if maxAudioSize <= 0 {
		maxAudioSize = 20 * 1024 * 1024
	}
	cfg.Audio = AudioConfig{
		StorageDir:       v.GetString("AUDIO_STORAGE_DIR"),
		SignedURLSecret:  v.GetString("AUDIO_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("AUDIO_SIGNED_URL_TTL"), time.Hour),
		MaxFileSizeBytes: maxAudioSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("AUDIO_ALLOWED_MIME_TYPES")),
	}

	cfg.Stats = StatsConfig{
		CacheTTL: parseDuration(v.GetString("STATS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
	}

	cfg.Reconcile = ReconcileConfig{
		Workers:    v.GetInt("RECONCILE_WORKERS"),
		BufferSize: v.GetInt("RECONCILE_BUFFER_SIZE"),
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
	v.SetDefault("DB_NAME", "mylugha")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_ENABLED", false)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "mylugha-api")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("VALIDATION_MIN_COUNT", 3)
	v.SetDefault("VALIDATION_VALIDATE_THRESHOLD", 0.7)
	v.SetDefault("VALIDATION_REJECT_THRESHOLD", 0.3)

	v.SetDefault("AUDIO_STORAGE_DIR", "./audio")
	v.SetDefault("AUDIO_SIGNED_URL_SECRET", "dev_audio_secret")
	v.SetDefault("AUDIO_SIGNED_URL_TTL", "1h")
	v.SetDefault("AUDIO_MAX_FILE_SIZE", 20*1024*1024)
	v.SetDefault("AUDIO_ALLOWED_MIME_TYPES", "audio/mpeg,audio/wav,audio/ogg,audio/webm,audio/mp4")

	v.SetDefault("STATS_CACHE_TTL", "5m")
	v.SetDefault("ENABLE_EXPORTS", false)

	v.SetDefault("RECONCILE_WORKERS", 1)
	v.SetDefault("RECONCILE_BUFFER_SIZE", 8)
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
