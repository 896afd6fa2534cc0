package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv  string
	Port    string
	BaseURL string

	// Vendor API. The bearer credential is process-wide and read-only;
	// missing credential is a fatal startup condition.
	SunoAPIKey         string
	SunoBaseURL        string
	VendorTimeout      time.Duration
	VendorMaxRetries   int
	VendorRetryBackoff time.Duration

	// DATABASE_URL is optional: without it the track history endpoints are
	// disabled and the service runs fully stateless.
	DatabaseURL string

	GeoIPDBPath string

	DefaultLocale string

	CORSAllowedOrigins []string

	RateLimitMax    int
	RateLimitWindow time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. The write timeout defaults well above the ~120s
// worst-case polling bound so the synchronous generate endpoint is not cut
// off mid-loop.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
		SunoAPIKey:         os.Getenv("SUNO_API_KEY"),
		SunoBaseURL:        getEnv("SUNO_BASE_URL", ""),
		VendorTimeout:      time.Second * time.Duration(getEnvInt("VENDOR_TIMEOUT_SECONDS", 30)),
		VendorMaxRetries:   getEnvInt("VENDOR_MAX_RETRIES", 3),
		VendorRetryBackoff: time.Millisecond * time.Duration(getEnvInt("VENDOR_RETRY_BACKOFF_MS", 500)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:      getEnv("DEFAULT_LOCALE", "en"),
		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		RateLimitMax:       getEnvInt("RATE_LIMIT_MAX_REQUESTS", 5),
		RateLimitWindow:    time.Second * time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 150)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.SunoAPIKey == "" {
		return nil, fmt.Errorf("SUNO_API_KEY is required")
	}
	if cfg.RateLimitMax <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
