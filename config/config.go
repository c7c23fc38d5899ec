package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	ResetOnStart     bool

	MinioEndpoint  string
	MinioUser      string
	MinioPassword  string
	MinioRegion    string
	MinioUseSSL    bool
	CustomerBucket string
	ExportBucket   string

	ListingsURL    string
	ListingsRefine string
	PageSize       int
	MaxListings    int

	PostalURL          string
	GeocoderURL        string
	GeocoderUserAgent  string
	GeocodeConcurrency int
	RateLimitMs        int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	MaxRetries  int
	HTTPTimeout time.Duration

	ExportDir string
	LogLevel  string
	LogColor  bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "concierge"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "concierge"),
		PostgresDB:       getEnv("POSTGRES_DB", "concierge"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		ResetOnStart:     getEnvBool("RESET_ON_START", true),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioUser:      getEnv("MINIO_ROOT_USER", "minioadmin"),
		MinioPassword:  getEnv("MINIO_ROOT_PASSWORD", "minioadmin"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		CustomerBucket: getEnv("CUSTOMER_BUCKET", "companies"),
		ExportBucket:   getEnv("EXPORT_BUCKET", "companies"),

		ListingsURL:    getEnv("LISTINGS_URL", "https://public.opendatasoft.com/api/explore/v2.1/catalog/datasets/air-bnb-listings/records"),
		ListingsRefine: getEnv("LISTINGS_REFINE", "column_19:France"),
		PageSize:       getEnvInt("LISTINGS_PAGE_SIZE", 100),
		MaxListings:    getEnvInt("LISTINGS_MAX", 2000),

		PostalURL:          getEnv("POSTAL_URL", "https://datanova.laposte.fr/data-fair/api/v1/datasets/laposte-hexasmal/lines"),
		GeocoderURL:        getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org/reverse"),
		GeocoderUserAgent:  getEnv("GEOCODER_USER_AGENT", "concierge-pipeline/1.0"),
		GeocodeConcurrency: getEnvInt("GEOCODE_CONCURRENCY", 1),
		RateLimitMs:        getEnvInt("RATE_LIMIT_MS", 1000),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("POSTAL_CACHE_TTL", 24*time.Hour),

		MaxRetries:  getEnvInt("MAX_RETRIES", 3),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		ExportDir: getEnv("EXPORT_DIR", ""),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogColor:  getEnvBool("LOG_COLOR", true),
	}
}

// Validate reports every setting that cannot work, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	required := map[string]string{
		"POSTGRES_HOST":   c.PostgresHost,
		"POSTGRES_DB":     c.PostgresDB,
		"MINIO_ENDPOINT":  c.MinioEndpoint,
		"CUSTOMER_BUCKET": c.CustomerBucket,
		"EXPORT_BUCKET":   c.ExportBucket,
		"LISTINGS_URL":    c.ListingsURL,
		"POSTAL_URL":      c.PostalURL,
		"GEOCODER_URL":    c.GeocoderURL,
	}
	for _, key := range sortedKeys(required) {
		if strings.TrimSpace(required[key]) == "" {
			errs = append(errs, fmt.Errorf("%s must be set", key))
		}
	}

	if port, err := strconv.Atoi(c.PostgresPort); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("POSTGRES_PORT %q is not a valid port", c.PostgresPort))
	}
	if c.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("LISTINGS_PAGE_SIZE must be positive, got %d", c.PageSize))
	}
	if c.MaxListings < 0 {
		errs = append(errs, fmt.Errorf("LISTINGS_MAX must not be negative, got %d", c.MaxListings))
	}
	if c.GeocodeConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("GEOCODE_CONCURRENCY must be positive, got %d", c.GeocodeConcurrency))
	}
	if c.RateLimitMs < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_MS must not be negative, got %d", c.RateLimitMs))
	}
	if c.MaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("MAX_RETRIES must be positive, got %d", c.MaxRetries))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.HTTPTimeout))
	}
	if strings.TrimSpace(c.GeocoderUserAgent) == "" {
		errs = append(errs, errors.New("GEOCODER_USER_AGENT must be set"))
	}

	return errors.Join(errs...)
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// RateLimit returns the minimum spacing between geocoding requests.
func (c *Config) RateLimit() time.Duration {
	return time.Duration(c.RateLimitMs) * time.Millisecond
}

// MinioURL returns the MinIO endpoint with its scheme.
func (c *Config) MinioURL() string {
	if strings.HasPrefix(c.MinioEndpoint, "http://") || strings.HasPrefix(c.MinioEndpoint, "https://") {
		return c.MinioEndpoint
	}
	if c.MinioUseSSL {
		return "https://" + c.MinioEndpoint
	}
	return "http://" + c.MinioEndpoint
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("30s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
