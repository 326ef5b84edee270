package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port            string   `mapstructure:"port"`
	Env             string   `mapstructure:"env"`
	CORSAllowOrigin []string `mapstructure:"-"`
	CORSRaw         string   `mapstructure:"cors_allow_origins"`
	DatabaseURL     string   `mapstructure:"database_url"`
	UploadMaxBytes  int64    `mapstructure:"upload_max_bytes"`

	ObjectStoreType string `mapstructure:"object_store"`
	LocalStoreDir   string `mapstructure:"local_store_dir"`
	AWSRegion       string `mapstructure:"aws_region"`
	S3Bucket        string `mapstructure:"s3_bucket"`
	S3Prefix        string `mapstructure:"s3_prefix"`
	SSEKMSKeyID     string `mapstructure:"sse_kms_key_id"`
	MinIOEndpoint   string `mapstructure:"minio_endpoint"`
	MinIOAccessKey  string `mapstructure:"minio_access_key"`
	MinIOSecretKey  string `mapstructure:"minio_secret_key"`
	MinIOBucket     string `mapstructure:"minio_bucket"`
	MinIOUseSSL     bool   `mapstructure:"minio_use_ssl"`

	LLMProvider      string        `mapstructure:"llm_provider"`
	LLMModel         string        `mapstructure:"llm_model"`
	GeminiAPIKey     string        `mapstructure:"gemini_api_key"`
	GeminiMaxRetries int           `mapstructure:"gemini_max_retries"`
	OpenAIAPIKey     string        `mapstructure:"openai_api_key"`
	AITimeout        time.Duration `mapstructure:"ai_timeout"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	RabbitMQURL    string `mapstructure:"rabbitmq_url"`
	EventsExchange string `mapstructure:"events_exchange"`

	InterviewEnforceDeadline bool          `mapstructure:"interview_enforce_deadline"`
	InterviewSweepInterval   time.Duration `mapstructure:"interview_sweep_interval"`

	LogJSON  bool `mapstructure:"log_json"`
	LogDebug bool `mapstructure:"log_debug"`
}

var defaults = map[string]any{
	"port":                       "8080",
	"env":                        "dev",
	"cors_allow_origins":         "http://localhost:5173",
	"database_url":               "",
	"upload_max_bytes":           int64(5 << 20),
	"object_store":               "local",
	"local_store_dir":            "./data",
	"aws_region":                 "",
	"s3_bucket":                  "",
	"s3_prefix":                  "",
	"sse_kms_key_id":             "",
	"minio_endpoint":             "",
	"minio_access_key":           "",
	"minio_secret_key":           "",
	"minio_bucket":               "",
	"minio_use_ssl":              false,
	"llm_provider":               "gemini",
	"llm_model":                  "",
	"gemini_api_key":             "",
	"gemini_max_retries":         2,
	"openai_api_key":             "",
	"ai_timeout":                 45 * time.Second,
	"redis_addr":                 "",
	"redis_password":             "",
	"redis_db":                   0,
	"rabbitmq_url":               "",
	"events_exchange":            "jobprep.events",
	"interview_enforce_deadline": false,
	"interview_sweep_interval":   10 * time.Minute,
	"log_json":                   true,
	"log_debug":                  false,
}

// Load reads configuration from .env files, the optional config file at path
// and the environment, in increasing order of precedence.
func Load(path string) (Config, error) {
	loadEnvFiles(".env", "cmd/.env")

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	cfg.LLMProvider = normalizeProvider(cfg.LLMProvider)
	cfg.CORSAllowOrigin = splitAndTrim(cfg.CORSRaw)
	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = 5 << 20
	}

	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required in production")
	}
	return cfg, nil
}

// loadEnvFiles loads the given dotenv files if they exist. Variables already
// present in the environment win.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		_ = godotenv.Load(path)
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "none", "disabled", "off":
		return "none"
	default:
		return "gemini"
	}
}
