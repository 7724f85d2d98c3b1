package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	Environment string
	Host        string
	Port        int
	Version     string

	// CORSOrigins is nil unless CORS_ORIGINS was set explicitly.
	CORSOrigins []string
	APIURL      string

	// TrustedProxies may set X-Forwarded-For; empty means the peer address
	// is the client identity.
	TrustedProxies []string

	MongoURI string
	DBName   string

	// Rate limiting
	RateLimitStore  string
	RateLimitReqs   int
	RateLimitWindow time.Duration

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	HealthTimeout   time.Duration
	ShutdownTimeout time.Duration

	// Alert scheduler
	AlertsEnabled bool
	AlertCron     string

	// Telemetry
	OTLPEndpoint   string
	OTelSampleRate float64
}

// LoadConfig reads the process environment (and .env when present) into an
// immutable Config. Any malformed value is returned as an error.
func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	p := &parser{}
	cfg := &Config{
		Environment: strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		Host:        getEnv("HOST", "0.0.0.0"),
		Port:        p.int("PORT", 3000),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		CORSOrigins: p.origins("CORS_ORIGINS"),
		APIURL:      strings.TrimRight(getEnv("API_URL", ""), "/"),

		TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/gestion_optica"),
		DBName:   getEnv("DB_NAME", "gestion_optica"),

		RateLimitStore:  strings.ToLower(getEnv("RATE_LIMIT_STORE", StoreMemory)),
		RateLimitReqs:   p.int("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: p.seconds("RATE_LIMIT_WINDOW", 60),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       p.int("REDIS_DB", 0),

		HealthTimeout:   p.seconds("HEALTH_TIMEOUT", 5),
		ShutdownTimeout: p.seconds("SHUTDOWN_TIMEOUT", 30),

		AlertsEnabled: p.bool("ALERTS_ENABLED", true),
		AlertCron:     getEnv("ALERT_CRON", "0 8 * * *"),

		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelSampleRate: p.float("OTEL_SAMPLE_RATIO", 0.1),
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("APP_ENV must not be empty")
	}
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("HOST must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("API_URL must be an absolute http(s) URL, got %q", c.APIURL)
		}
	}
	switch c.RateLimitStore {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when RATE_LIMIT_STORE=redis")
		}
	default:
		return fmt.Errorf("RATE_LIMIT_STORE must be %q or %q, got %q", StoreMemory, StoreRedis, c.RateLimitStore)
	}
	if c.RateLimitReqs <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if c.HealthTimeout <= 0 {
		return fmt.Errorf("HEALTH_TIMEOUT must be positive")
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATIO must be within [0, 1]")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func (c *Config) HasExplicitOrigins() bool {
	return len(c.CORSOrigins) > 0
}

// Addr is the host:port the server binds to.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parser keeps the first malformed value it sees so LoadConfig can report it.
type parser struct {
	err error
}

func (p *parser) fail(key, value, want string) {
	if p.err == nil {
		p.err = fmt.Errorf("%s: invalid value %q, expected %s", key, value, want)
	}
}

func (p *parser) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		p.fail(key, value, "an integer")
		return defaultValue
	}
	return intValue
}

func (p *parser) seconds(key string, defaultValue int) time.Duration {
	return time.Duration(p.int(key, defaultValue)) * time.Second
}

func (p *parser) bool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		p.fail(key, value, "a boolean")
		return defaultValue
	}
	return boolValue
}

func (p *parser) float(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		p.fail(key, value, "a number")
		return defaultValue
	}
	return floatValue
}

// origins parses a comma-separated allow-list. Entries must be bare origins
// (scheme://host[:port]); they are stored lowercased.
func (p *parser) origins(key string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, raw := range strings.Split(value, ",") {
		origin := strings.ToLower(strings.TrimSpace(raw))
		if origin == "" {
			continue
		}
		origin = strings.TrimSuffix(origin, "/")
		if !isBareOrigin(origin) {
			p.fail(key, raw, "scheme://host[:port] without path")
			return nil
		}
		out = append(out, origin)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isBareOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != "" && u.Path == "" && u.RawQuery == "" && u.Fragment == "" && u.User == nil
}
