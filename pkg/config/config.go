package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL      string
	GoogleMapsAPIKey string
	OpenAIAPIKey     string
	Port             string

	// Database performance settings
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime int // minutes
	DBConnMaxIdleTime int // minutes
	DBReadTimeout     time.Duration
	DBWriteTimeout    time.Duration

	// OpenAI client settings (OCR address extraction)
	OpenAIModel                 string
	OpenAITemperature           float64
	OpenAIMaxTokens             int
	OpenAIRequestTimeoutSeconds int

	// Monitoring and logging settings
	LogLevel          string
	LogFormat         string // "json" or "text"
	LogFile           string
	EnableFileLogging bool

	// Environment & metrics
	Env              string // development, staging, production
	AdminPort        string
	MetricsEnabled   bool
	MetricsPath      string
	ProfilingEnabled bool

	// Location acquisition
	LocationTimeout    time.Duration
	LocationConsiderIP bool

	// Matching rules; MatchRulesPath (YAML) overrides the env values when set
	MatchRulesPath        string
	CorroborateWithinFeet int
	NearMatchSimilarity   float64
	ReconcileConcurrency  int

	ConfigReloadIntervalSeconds int
}

func Load() *Config {
	// Database performance settings with defaults
	dbMaxOpenConns, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	dbMaxIdleConns, _ := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "10"))
	dbConnMaxLifetime, _ := strconv.Atoi(getEnv("DB_CONN_MAX_LIFETIME_MINUTES", "10"))
	dbConnMaxIdleTime, _ := strconv.Atoi(getEnv("DB_CONN_MAX_IDLE_TIME_MINUTES", "5"))
	dbReadTO := getDuration("DB_READ_TIMEOUT", 5*time.Second)
	dbWriteTO := getDuration("DB_WRITE_TIMEOUT", 5*time.Second)

	enableFileLogging, _ := strconv.ParseBool(getEnv("ENABLE_FILE_LOGGING", "false"))

	env := strings.ToLower(getEnv("ENV", "development"))
	metricsDefault := env == "development" || env == "staging"
	metricsEnabled, _ := strconv.ParseBool(getEnv("METRICS_ENABLED", strconv.FormatBool(metricsDefault)))

	profilingEnabled, _ := strconv.ParseBool(getEnv("PROFILING_ENABLED", "false"))

	openAITemp, _ := strconv.ParseFloat(getEnv("OPENAI_TEMPERATURE", "0"), 64)
	openAIMaxTokens, _ := strconv.Atoi(getEnv("OPENAI_MAX_TOKENS", "200"))
	openAIReqTimeoutSec, _ := strconv.Atoi(getEnv("OPENAI_REQUEST_TIMEOUT_SECONDS", "30"))

	considerIP, _ := strconv.ParseBool(getEnv("LOCATION_CONSIDER_IP", "true"))

	corroborate, _ := strconv.Atoi(getEnv("CORROBORATE_WITHIN_FEET", "500"))
	similarity, _ := strconv.ParseFloat(getEnv("NEAR_MATCH_SIMILARITY", "0.85"), 64)
	concurrency, _ := strconv.Atoi(getEnv("RECONCILE_CONCURRENCY", "8"))

	reloadIntSec, _ := strconv.Atoi(getEnv("CONFIG_RELOAD_INTERVAL_SECONDS", "5"))

	return &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		GoogleMapsAPIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		Port:             getEnv("PORT", "8080"),

		DBMaxOpenConns:    dbMaxOpenConns,
		DBMaxIdleConns:    dbMaxIdleConns,
		DBConnMaxLifetime: dbConnMaxLifetime,
		DBConnMaxIdleTime: dbConnMaxIdleTime,
		DBReadTimeout:     dbReadTO,
		DBWriteTimeout:    dbWriteTO,

		OpenAIModel:                 getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITemperature:           openAITemp,
		OpenAIMaxTokens:             openAIMaxTokens,
		OpenAIRequestTimeoutSeconds: openAIReqTimeoutSec,

		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		LogFile:           getEnv("LOG_FILE", "/var/log/address-reconciliation/app.log"),
		EnableFileLogging: enableFileLogging,

		Env:              env,
		AdminPort:        getEnv("ADMIN_PORT", "6060"),
		MetricsEnabled:   metricsEnabled,
		MetricsPath:      getEnv("METRICS_PATH", "/metrics"),
		ProfilingEnabled: profilingEnabled,

		LocationTimeout:    getDuration("LOCATION_TIMEOUT", 10*time.Second),
		LocationConsiderIP: considerIP,

		MatchRulesPath:        getEnv("MATCH_RULES_PATH", ""),
		CorroborateWithinFeet: corroborate,
		NearMatchSimilarity:   similarity,
		ReconcileConcurrency:  concurrency,

		ConfigReloadIntervalSeconds: reloadIntSec,
	}
}

// OpenAITimeout is the per-request deadline for chat completions.
func (c *Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAIRequestTimeoutSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts Go durations ("8s") and bare seconds ("8").
func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
