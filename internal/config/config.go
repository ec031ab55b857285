package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	AdminAPIKey  string
	TrustfuseEnv string

	// Fusion thresholds. The defaults are the calibrated production
	// values; overriding them is for offline experiments only.
	RiskMediumScore   float64
	RiskHighScore     float64
	OverrideZScore    float64
	VerdictCacheTTL   int
	PolicyBundlePath  string
	ReviewQueueName   string
	PriorityQueueName string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:               addr,
		PostgresDSN:            os.Getenv("POSTGRES_DSN"),
		LogLevel:               envDefault("LOG_LEVEL", "info"),
		AdminAPIKey:            os.Getenv("ADMIN_API_KEY"),
		TrustfuseEnv:           os.Getenv("TRUSTFUSE_ENV"),
		RiskMediumScore:        envFloatDefault("RISK_MEDIUM_SCORE", 0.4),
		RiskHighScore:          envFloatDefault("RISK_HIGH_SCORE", 0.7),
		OverrideZScore:         envFloatDefault("OVERRIDE_Z_SCORE", 2.5),
		VerdictCacheTTL:        envIntDefault("VERDICT_CACHE_TTL_SECONDS", 300),
		PolicyBundlePath:       os.Getenv("POLICY_BUNDLE_PATH"),
		ReviewQueueName:        envDefault("REVIEW_QUEUE_NAME", "manual_review"),
		PriorityQueueName:      envDefault("PRIORITY_QUEUE_NAME", "fraud_review"),
		RateLimitRequests:      envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:    envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envIntDefault("REDIS_DB", 0),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envFloatDefault(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

func (c Config) CacheTTL() time.Duration {
	if c.VerdictCacheTTL <= 0 {
		return 0
	}
	return time.Duration(c.VerdictCacheTTL) * time.Second
}
