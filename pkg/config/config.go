package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	JWT      JWTConfig
	LLM      LLMConfig
	TTS      TTSConfig
	Audio    AudioConfig
	HLS      HLSConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// StorageConfig holds object storage configuration for archived audio
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	PublicURL       string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// LLMConfig holds the default voice-script LLM configuration.
// Novels may carry their own key/base URL/model overriding these.
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
}

// TTSConfig selects and configures the synthesis backend
type TTSConfig struct {
	Backend          string // "easyvoice" or "deepgram"
	EasyVoiceBaseURL string
	DeepgramAPIKey   string
	DeepgramModel    string
}

// AudioConfig holds generation pipeline tuning
type AudioConfig struct {
	Folder           string // root for audio files and script cache
	SegmentLength    int    // default target segment length in chars
	QueueSize        int    // script queue capacity per task
	WriteBufferSize  int    // bytes buffered before flushing to the output file
	DequeueTimeout   time.Duration
	ReaderPoll       time.Duration
	ReaderStallLimit int // consecutive no-growth polls before a reader gives up
	VerifyCheckpoint bool
	NarratorVoice    string
	NarratorMinRate  string
	VoiceTablePath   string
}

// HLSConfig holds segment transcoder configuration
type HLSConfig struct {
	CacheDir      string
	FFmpegPath    string
	StartupWait   time.Duration
	MinStartBytes int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  []string{getEnv("ALLOWED_ORIGINS", "http://localhost:3000")},
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			Name:        getEnv("DB_NAME", "novelvoice"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:    getEnvAsInt("DB_MIN_CONNS", 5),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Enabled:         getEnvAsBool("STORAGE_ENABLED", false),
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "novelvoice-audio"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
			PublicURL:       getEnv("STORAGE_PUBLIC_URL", ""),
		},
		JWT: JWTConfig{
			AccessSecret:  getEnv("JWT_ACCESS_SECRET", "your-access-secret-change-in-production"),
			RefreshSecret: getEnv("JWT_REFRESH_SECRET", "your-refresh-secret-change-in-production"),
			AccessExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRY", "15m"),
			RefreshExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRY", "168h"),
		},
		LLM: LLMConfig{
			APIKey:      getEnv("LLM_API_KEY", ""),
			BaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", "5m"),
			MaxAttempts: getEnvAsInt("LLM_MAX_ATTEMPTS", 3),
		},
		TTS: TTSConfig{
			Backend:          getEnv("TTS_BACKEND", "easyvoice"),
			EasyVoiceBaseURL: getEnv("EASYVOICE_BASE_URL", "http://localhost:3000"),
			DeepgramAPIKey:   getEnv("DEEPGRAM_API_KEY", ""),
			DeepgramModel:    getEnv("DEEPGRAM_TTS_MODEL", "aura-asteria-en"),
		},
		Audio: AudioConfig{
			Folder:           getEnv("AUDIO_FOLDER", "audio"),
			SegmentLength:    getEnvAsInt("AUDIO_SEGMENT_LENGTH", 1500),
			QueueSize:        getEnvAsInt("AUDIO_QUEUE_SIZE", 10),
			WriteBufferSize:  getEnvAsInt("AUDIO_WRITE_BUFFER", 100*1024),
			DequeueTimeout:   getEnvAsDuration("AUDIO_DEQUEUE_TIMEOUT", "180s"),
			ReaderPoll:       getEnvAsDuration("AUDIO_READER_POLL", "1s"),
			ReaderStallLimit: getEnvAsInt("AUDIO_READER_STALL_LIMIT", 60),
			VerifyCheckpoint: getEnvAsBool("AUDIO_VERIFY_CHECKPOINT", false),
			NarratorVoice:    getEnv("NARRATOR_VOICE", "zh-CN-YunjianNeural"),
			NarratorMinRate:  getEnv("NARRATOR_MIN_RATE", "+10%"),
			VoiceTablePath:   getEnv("VOICE_TABLE_PATH", "voice.json"),
		},
		HLS: HLSConfig{
			CacheDir:      getEnv("HLS_CACHE_DIR", "hls_cache"),
			FFmpegPath:    getEnv("FFMPEG_PATH", "ffmpeg"),
			StartupWait:   getEnvAsDuration("HLS_STARTUP_WAIT", "30s"),
			MinStartBytes: int64(getEnvAsInt("HLS_MIN_START_BYTES", 50*1024)),
		},
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Audio.Folder == "" {
		return fmt.Errorf("AUDIO_FOLDER is required")
	}
	switch c.TTS.Backend {
	case "easyvoice", "deepgram":
	default:
		return fmt.Errorf("TTS_BACKEND must be easyvoice or deepgram, got %q", c.TTS.Backend)
	}
	if c.TTS.Backend == "deepgram" && c.TTS.DeepgramAPIKey == "" {
		return fmt.Errorf("DEEPGRAM_API_KEY is required when TTS_BACKEND=deepgram")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// ScriptCacheDir returns the script cache directory for a novel
func (c *Config) ScriptCacheDir(novelID string) string {
	return filepath.Join(c.Audio.Folder, "script", "novel-"+novelID)
}

// ChapterAudioPath returns the output audio file path for a chapter
func (c *Config) ChapterAudioPath(chapterID string) string {
	return filepath.Join(c.Audio.Folder, fmt.Sprintf("chapter_%s.mp3", chapterID))
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
