package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	// Telegram
	BotToken            string
	TelegramAPIEndpoint string  // empty uses the public Bot API, set for a local bot-api server
	AllowedUsers        []int64 // empty allows everyone

	// Platform
	DomainMarker   string // substring a /dl URL must contain
	ContentAPIURL  string
	PlaybackAPIURL string
	AuthAPIURL     string
	HTTPTimeout    time.Duration
	TokenFile      string // dotenv file the guest token is persisted to
	AuthToken      string // initial token, overridden by TokenFile

	// Pipeline
	YtdlpPath        string
	FFmpegPath       string
	DownloadDir      string
	MaxUploadSize    int64
	PipelineTimeout  time.Duration
	ProgressInterval time.Duration

	// Sessions
	SessionBackend string // memory / redis
	SessionTTL     time.Duration

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MySQL (download history)
	DBEnabled  bool
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// MinIO (archive for artifacts too large to upload)
	MinioEnabled   bool
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
	MinioLinkTTL   time.Duration

	// Status server, empty disables it
	StatusAddr string

	// Logging
	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// parseUserIDs parses a comma separated list of telegram user ids, skipping garbage.
func parseUserIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("ignoring invalid ALLOWED_USERS entry %q", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	dataDir := getEnv("DATA_DIR", "data")

	return &Config{
		BotToken:            os.Getenv("BOT_TOKEN"),
		TelegramAPIEndpoint: getEnv("TELEGRAM_API_ENDPOINT", ""),
		AllowedUsers:        parseUserIDs(getEnv("ALLOWED_USERS", "")),

		DomainMarker:   getEnv("DOMAIN_MARKER", "jiocinema.com"),
		ContentAPIURL:  getEnv("CONTENT_API_URL", "https://content-jiovoot.voot.com/psapi/voot/v1/voot-web"),
		PlaybackAPIURL: getEnv("PLAYBACK_API_URL", "https://apis-jiovoot.voot.com/playbackjv/v4"),
		AuthAPIURL:     getEnv("AUTH_API_URL", "https://auth-jiocinema.voot.com/tokenservice/apis/v4"),
		HTTPTimeout:    getEnvDuration("HTTP_TIMEOUT", 15*time.Second),
		TokenFile:      getEnv("TOKEN_FILE", filepath.Join(dataDir, "token.env")),
		AuthToken:      getEnv("AUTH_TOKEN", ""),

		YtdlpPath:        getEnv("YTDLP_PATH", "yt-dlp"),
		FFmpegPath:       getEnv("FFMPEG_PATH", "ffmpeg"),
		DownloadDir:      getEnv("DOWNLOAD_DIR", filepath.Join(dataDir, "downloads")),
		MaxUploadSize:    int64(getEnvInt("MAX_UPLOAD_MB", 2000)) * 1024 * 1024,
		PipelineTimeout:  getEnvDuration("PIPELINE_TIMEOUT", 3*time.Hour),
		ProgressInterval: getEnvDuration("PROGRESS_INTERVAL", 3*time.Second),

		SessionBackend: getEnv("SESSION_BACKEND", "memory"),
		SessionTTL:     getEnvDuration("SESSION_TTL", time.Hour),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		DBEnabled:  getEnvBool("DB_ENABLED", false),
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "cinebot"),

		MinioEnabled:   getEnvBool("MINIO_ENABLED", false),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "cinebot"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioLinkTTL:   getEnvDuration("MINIO_LINK_TTL", 72*time.Hour),

		StatusAddr: getEnv("STATUS_ADDR", ""),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAge:     getEnvInt("LOG_MAX_AGE", 30),
	}
}

// Missing returns the names of required settings that are empty.
func (c *Config) Missing() []string {
	var missing []string
	if c.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if c.DomainMarker == "" {
		missing = append(missing, "DOMAIN_MARKER")
	}
	if c.MinioEnabled && (c.MinioAccessKey == "" || c.MinioSecretKey == "") {
		missing = append(missing, "MINIO_ACCESS_KEY/MINIO_SECRET_KEY")
	}
	return missing
}

// IsAllowed reports whether a telegram user may use the bot.
func (c *Config) IsAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
