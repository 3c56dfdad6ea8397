package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageDriverLocal  = "local"
	StorageDriverRemote = "remote"
)

// Authorization policies accepted by AUTH_POLICY.
const (
	AuthPolicyAny        = "any"
	AuthPolicyDesignated = "designated"
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
	Auth     AuthConfig
	Storage  StorageConfig
	Images   ImageConfig
	Drafts   DraftConfig
	Feed     FeedConfig
	Download DownloadConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AuthConfig selects who may act as a teacher.
type AuthConfig struct {
	GoogleClientID string
	TeacherEmail   string
	Policy         string
}

// StorageConfig points uploads at either the local media directory or a remote endpoint.
type StorageConfig struct {
	Driver         string
	MediaDir       string
	MediaBaseURL   string
	UploadEndpoint string
	UploadPreset   string
	UploadTimeout  time.Duration
}

// ImageConfig constrains what the storage layer accepts.
type ImageConfig struct {
	MaxFileSizeBytes int64
	MaxDimension     int
	AllowedMIMEs     []string
}

// DraftConfig controls in-memory edit sessions.
type DraftConfig struct {
	TTL              time.Duration
	PreviewURLSecret string
	PreviewURLTTL    time.Duration
}

// FeedConfig tunes the public homework feed.
type FeedConfig struct {
	CacheTTL      time.Duration
	ChangeChannel string
}

// DownloadConfig tunes the sequential image downloader.
type DownloadConfig struct {
	ItemDelay time.Duration
	Timeout   time.Duration
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
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
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Auth = AuthConfig{
		GoogleClientID: v.GetString("GOOGLE_CLIENT_ID"),
		TeacherEmail:   strings.TrimSpace(v.GetString("TEACHER_EMAIL")),
		Policy:         strings.ToLower(v.GetString("AUTH_POLICY")),
	}

	cfg.Storage = StorageConfig{
		Driver:         strings.ToLower(v.GetString("STORAGE_DRIVER")),
		MediaDir:       v.GetString("MEDIA_DIR"),
		MediaBaseURL:   strings.TrimRight(v.GetString("MEDIA_BASE_URL"), "/"),
		UploadEndpoint: v.GetString("UPLOAD_ENDPOINT"),
		UploadPreset:   v.GetString("UPLOAD_PRESET"),
		UploadTimeout:  parseDuration(v.GetString("UPLOAD_TIMEOUT"), 30*time.Second),
	}

	maxImageSize := v.GetInt64("IMAGE_MAX_FILE_SIZE")
	if maxImageSize <= 0 {
		maxImageSize = 10 * 1024 * 1024
	}
	cfg.Images = ImageConfig{
		MaxFileSizeBytes: maxImageSize,
		MaxDimension:     v.GetInt("IMAGE_MAX_DIMENSION"),
		AllowedMIMEs:     splitAndTrim(v.GetString("IMAGE_ALLOWED_MIME_TYPES")),
	}

	cfg.Drafts = DraftConfig{
		TTL:              parseDuration(v.GetString("DRAFT_TTL"), 2*time.Hour),
		PreviewURLSecret: v.GetString("PREVIEW_URL_SECRET"),
		PreviewURLTTL:    parseDuration(v.GetString("PREVIEW_URL_TTL"), 30*time.Minute),
	}

	cfg.Feed = FeedConfig{
		CacheTTL:      parseDuration(v.GetString("FEED_CACHE_TTL"), time.Minute),
		ChangeChannel: v.GetString("FEED_CHANGE_CHANNEL"),
	}

	cfg.Download = DownloadConfig{
		ItemDelay: parseDuration(v.GetString("DOWNLOAD_ITEM_DELAY"), 400*time.Millisecond),
		Timeout:   parseDuration(v.GetString("DOWNLOAD_TIMEOUT"), 20*time.Second),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "homework_board")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "homework-board")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("TEACHER_EMAIL", "")
	v.SetDefault("AUTH_POLICY", AuthPolicyAny)

	v.SetDefault("STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("MEDIA_DIR", "./media")
	v.SetDefault("MEDIA_BASE_URL", "http://localhost:8080/media")
	v.SetDefault("UPLOAD_ENDPOINT", "")
	v.SetDefault("UPLOAD_PRESET", "")
	v.SetDefault("UPLOAD_TIMEOUT", "30s")

	v.SetDefault("IMAGE_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("IMAGE_MAX_DIMENSION", 2048)
	v.SetDefault("IMAGE_ALLOWED_MIME_TYPES", "image/jpeg,image/png,image/gif,image/webp")

	v.SetDefault("DRAFT_TTL", "2h")
	v.SetDefault("PREVIEW_URL_SECRET", "dev_preview_secret")
	v.SetDefault("PREVIEW_URL_TTL", "30m")

	v.SetDefault("FEED_CACHE_TTL", "1m")
	v.SetDefault("FEED_CHANGE_CHANNEL", "homeworks:changed")

	v.SetDefault("DOWNLOAD_ITEM_DELAY", "400ms")
	v.SetDefault("DOWNLOAD_TIMEOUT", "20s")
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
