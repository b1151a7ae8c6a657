package config

import (
	"log"
	"os"

	"dreamshare/pkg/logger"
	"dreamshare/pkg/util"
)

// Config is the process-wide configuration, loaded from the environment.
// Provider settings are copied out of it into explicit constructor
// arguments; nothing below the handler layer reads GlobalConfig.
type Config struct {
	Addr          string `env:"ADDR"`
	Mode          string `env:"MODE"`
	APIPrefix     string `env:"API_PREFIX"`
	AuthPrefix    string `env:"AUTH_PREFIX"`
	SessionSecret string `env:"SESSION_SECRET"`

	DBDriver string `env:"DB_DRIVER"`
	DSN      string `env:"DSN"`

	Log logger.LogConfig

	// Speech-to-text / text-generation capability (OpenAI-compatible API).
	AIApiKey     string `env:"AI_API_KEY"`
	AIBaseURL    string `env:"AI_BASE_URL"`
	WhisperModel string `env:"AI_WHISPER_MODEL"`
	ChatModel    string `env:"AI_CHAT_MODEL"`

	// Optional paid image provider; the free endpoint and the SVG
	// placeholder need no configuration.
	ImageAPIKey string `env:"IMAGE_API_KEY"`

	// Optional sentiment-classification capability.
	SentimentAPIKey string `env:"SENTIMENT_API_KEY"`
	SentimentURL    string `env:"SENTIMENT_URL"`

	AudioMaxMB int64 `env:"AUDIO_MAX_MB"`

	CacheType     string `env:"CACHE_TYPE"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	RateLimit string `env:"RATE_LIMIT"`

	SearchEnabled bool   `env:"SEARCH_ENABLED"`
	SearchPath    string `env:"SEARCH_PATH"`

	StorageType    string `env:"STORAGE_TYPE"`
	StoragePath    string `env:"STORAGE_PATH"`
	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL"`

	BackupEnabled  bool   `env:"BACKUP_ENABLED"`
	BackupPath     string `env:"BACKUP_PATH"`
	BackupSchedule string `env:"BACKUP_SCHEDULE"`

	DefaultLanguage string `env:"DEFAULT_LANGUAGE"`
}

var GlobalConfig *Config

func Load() error {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := util.LoadEnv(env); err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	GlobalConfig = &Config{
		Addr:          util.GetEnvDefault("ADDR", ":8080"),
		Mode:          util.GetEnvDefault("MODE", "debug"),
		APIPrefix:     util.GetEnvDefault("API_PREFIX", "/api"),
		AuthPrefix:    util.GetEnvDefault("AUTH_PREFIX", "account"),
		SessionSecret: util.GetEnv("SESSION_SECRET"),
		DBDriver:      util.GetEnvDefault("DB_DRIVER", "sqlite"),
		DSN:           util.GetEnv("DSN"),
		Log: logger.LogConfig{
			Level:      util.GetEnv("LOG_LEVEL"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
		AIApiKey:        util.GetEnv("AI_API_KEY"),
		AIBaseURL:       util.GetEnv("AI_BASE_URL"),
		WhisperModel:    util.GetEnvDefault("AI_WHISPER_MODEL", "whisper-large-v3"),
		ChatModel:       util.GetEnvDefault("AI_CHAT_MODEL", "llama-3.1-8b-instant"),
		ImageAPIKey:     util.GetEnv("IMAGE_API_KEY"),
		SentimentAPIKey: util.GetEnv("SENTIMENT_API_KEY"),
		SentimentURL:    util.GetEnv("SENTIMENT_URL"),
		AudioMaxMB:      util.GetIntEnv("AUDIO_MAX_MB"),
		CacheType:       util.GetEnvDefault("CACHE_TYPE", "gocache"),
		RedisAddr:       util.GetEnv("REDIS_ADDR"),
		RedisPassword:   util.GetEnv("REDIS_PASSWORD"),
		RateLimit:       util.GetEnvDefault("RATE_LIMIT", "300-M"),
		SearchEnabled:   util.GetBoolEnv("SEARCH_ENABLED"),
		SearchPath:      util.GetEnvDefault("SEARCH_PATH", "dreams.bleve"),
		StorageType:     util.GetEnvDefault("STORAGE_TYPE", "local"),
		StoragePath:     util.GetEnvDefault("STORAGE_PATH", "audio"),
		MinioEndpoint:   util.GetEnv("MINIO_ENDPOINT"),
		MinioAccessKey:  util.GetEnv("MINIO_ACCESS_KEY"),
		MinioSecretKey:  util.GetEnv("MINIO_SECRET_KEY"),
		MinioBucket:     util.GetEnv("MINIO_BUCKET"),
		MinioUseSSL:     util.GetBoolEnv("MINIO_USE_SSL"),
		BackupEnabled:   util.GetBoolEnv("BACKUP_ENABLED"),
		BackupPath:      util.GetEnvDefault("BACKUP_PATH", "backups"),
		BackupSchedule:  util.GetEnvDefault("BACKUP_SCHEDULE", "0 3 * * *"),
		DefaultLanguage: util.GetEnvDefault("DEFAULT_LANGUAGE", "fr"),
	}
	return nil
}
