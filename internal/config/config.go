package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	AIRequestTimeout        time.Duration
	UpstreamTimeout         time.Duration
	APIBaseURL              string
	CDNBaseURL              string
	PublicURL               string
	StaticDir               string
	MaxUploadSize           int64
	CORSOrigins             []string
	RateLimitRPM            int
	AuthRateLimitRPM        int
	AuthCookieName          string
	AuthCookieSecure        bool
	AuthCookieMaxAge        time.Duration
	JWTSecret               string
	TTSMaxChunkLength       int
	DatabaseURL             string
	DBMaxConns              int32
	DBMinConns              int32
	PipelineTimeout         time.Duration
	PipelineCompensate      bool
	GeminiAPIKey            string
	GeminiModel             string
	S3Bucket                string
	S3Region                string
	S3Endpoint              string
	S3AccessKey             string
	S3SecretKey             string
	S3PublicBaseURL         string
	LogLevel                string
	LogFormat               string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 10*time.Minute),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		AIRequestTimeout:        getDuration("AI_REQUEST_TIMEOUT", 5*time.Minute),
		UpstreamTimeout:         getDuration("UPSTREAM_TIMEOUT", 2*time.Minute),
		APIBaseURL:              trimBase(getEnvAny([]string{"API_BASE_URL", "NEXT_PUBLIC_API_BASE_URL"}, "")),
		CDNBaseURL:              trimBase(getEnvAny([]string{"CDN_API_BASE_URL", "NEXT_PUBLIC_CDN_API_BASE_URL"}, "")),
		PublicURL:               trimBase(getEnvAny([]string{"PUBLIC_URL", "NEXT_PUBLIC_URL"}, "http://localhost:8080")),
		StaticDir:               getEnv("STATIC_DIR", ""),
		MaxUploadSize:           getInt64("MAX_UPLOAD_SIZE", 50<<20),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 300),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 20),
		AuthCookieName:          getEnv("AUTH_COOKIE_NAME", "authToken"),
		AuthCookieSecure:        getBool("AUTH_COOKIE_SECURE", false),
		AuthCookieMaxAge:        getDuration("AUTH_COOKIE_MAX_AGE", 24*time.Hour),
		JWTSecret:               strings.TrimSpace(os.Getenv("JWT_SECRET")),
		TTSMaxChunkLength:       getInt("TTS_MAX_CHUNK_LENGTH", 300),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 1)),
		PipelineTimeout:         getDuration("PIPELINE_TIMEOUT", 5*time.Minute),
		PipelineCompensate:      getBool("PIPELINE_COMPENSATE", false),
		GeminiAPIKey:            strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:             getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		S3Bucket:                getEnv("S3_BUCKET", ""),
		S3Region:                getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:              getEnv("S3_ENDPOINT", ""),
		S3AccessKey:             getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:             getEnv("S3_SECRET_KEY", ""),
		S3PublicBaseURL:         trimBase(getEnv("S3_PUBLIC_BASE_URL", "")),
		LogLevel:                strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:               strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if err := validateBaseURL("API_BASE_URL", c.APIBaseURL, true); err != nil {
		return err
	}

	if c.S3Bucket == "" {
		if err := validateBaseURL("CDN_API_BASE_URL", c.CDNBaseURL, true); err != nil {
			return err
		}
	} else if c.S3PublicBaseURL == "" {
		return fmt.Errorf("S3_PUBLIC_BASE_URL is required when S3_BUCKET is set")
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}

	if c.RequestTimeout <= 0 || c.AIRequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT and AI_REQUEST_TIMEOUT must be positive")
	}

	if c.TTSMaxChunkLength < 20 {
		return fmt.Errorf("TTS_MAX_CHUNK_LENGTH must be at least 20")
	}

	if strings.TrimSpace(c.AuthCookieName) == "" {
		return fmt.Errorf("AUTH_COOKIE_NAME cannot be empty")
	}

	if c.PipelineTimeout <= 0 {
		return fmt.Errorf("PIPELINE_TIMEOUT must be positive")
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be one of: text|json")
	}

	return nil
}

func validateBaseURL(key string, raw string, required bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("%s is required", key)
		}
		return nil
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", key)
	}

	return nil
}

func trimBase(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

// getEnvAny returns the first non-empty value among keys.
func getEnvAny(keys []string, fallback string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}

	return fallback
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
