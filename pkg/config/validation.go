package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	errs "address-reconciliation/pkg/errors"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error for field '%s' with value '%s': %s", e.Field, e.Value, e.Message)
}

// ConfigValidator collects every problem so one run reports them all.
type ConfigValidator struct {
	errors []ValidationError
}

func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

func (cv *ConfigValidator) AddError(field, value, message string) {
	cv.errors = append(cv.errors, ValidationError{Field: field, Value: value, Message: message})
}

func (cv *ConfigValidator) HasErrors() bool {
	return len(cv.errors) > 0
}

func (cv *ConfigValidator) GetErrors() []ValidationError {
	return cv.errors
}

func (cv *ConfigValidator) GetErrorsAsString() string {
	lines := make([]string, 0, len(cv.errors))
	for _, err := range cv.errors {
		lines = append(lines, err.Error())
	}
	return strings.Join(lines, "\n")
}

// Validate validates the entire configuration. API keys are optional: without
// them the scan and location endpoints report themselves unavailable.
func (c *Config) Validate() error {
	validator := NewConfigValidator()

	c.validateRequired(validator)
	c.validateFormats(validator)
	c.validateRanges(validator)
	c.validateEnvironment(validator)

	if validator.HasErrors() {
		return errs.NewValidation("config.Validate", fmt.Sprintf("configuration validation failed:\n%s", validator.GetErrorsAsString()), nil)
	}
	return nil
}

func (c *Config) validateRequired(validator *ConfigValidator) {
	if c.DatabaseURL == "" {
		validator.AddError("DATABASE_URL", c.DatabaseURL, "database URL is required")
	}
	if c.Port == "" {
		validator.AddError("PORT", c.Port, "port is required")
	}
}

func (c *Config) validateFormats(validator *ConfigValidator) {
	// go-sql-driver DSN: user:pass@tcp(host:port)/dbname
	if c.DatabaseURL != "" {
		if !strings.Contains(c.DatabaseURL, "@") || !strings.Contains(c.DatabaseURL, "/") {
			validator.AddError("DATABASE_URL", maskString(c.DatabaseURL, 8), "invalid database URL format")
		}
	}

	for name, port := range map[string]string{"PORT": c.Port, "ADMIN_PORT": c.AdminPort} {
		if port == "" {
			continue
		}
		if p, err := strconv.Atoi(port); err != nil || p < 1 || p > 65535 {
			validator.AddError(name, port, "invalid port number (must be 1-65535)")
		}
	}

	validLogLevels := []string{"trace", "debug", "info", "warn", "error", "fatal"}
	if c.LogLevel != "" && !contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		validator.AddError("LOG_LEVEL", c.LogLevel, "invalid log level (must be one of: trace, debug, info, warn, error, fatal)")
	}
	if c.LogFormat != "" && c.LogFormat != "json" && c.LogFormat != "text" {
		validator.AddError("LOG_FORMAT", c.LogFormat, "invalid log format (must be 'json' or 'text')")
	}
	if c.MetricsPath != "" && !strings.HasPrefix(c.MetricsPath, "/") {
		validator.AddError("METRICS_PATH", c.MetricsPath, "metrics path must start with '/'")
	}
	if c.MatchRulesPath != "" {
		if ext := strings.ToLower(filepath.Ext(c.MatchRulesPath)); ext != ".yaml" && ext != ".yml" {
			validator.AddError("MATCH_RULES_PATH", c.MatchRulesPath, "match rules file must be .yaml or .yml")
		}
	}
}

func (c *Config) validateRanges(validator *ConfigValidator) {
	if c.DBMaxOpenConns < 1 || c.DBMaxOpenConns > 1000 {
		validator.AddError("DB_MAX_OPEN_CONNS", strconv.Itoa(c.DBMaxOpenConns), "max open connections must be between 1 and 1000")
	}
	if c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
		validator.AddError("DB_MAX_IDLE_CONNS", strconv.Itoa(c.DBMaxIdleConns), "max idle connections must be between 0 and max open connections")
	}
	if c.DBConnMaxLifetime < 1 || c.DBConnMaxLifetime > 60 {
		validator.AddError("DB_CONN_MAX_LIFETIME_MINUTES", strconv.Itoa(c.DBConnMaxLifetime), "connection max lifetime must be between 1 and 60 minutes")
	}
	if c.DBConnMaxIdleTime < 1 || c.DBConnMaxIdleTime > 30 {
		validator.AddError("DB_CONN_MAX_IDLE_TIME_MINUTES", strconv.Itoa(c.DBConnMaxIdleTime), "connection max idle time must be between 1 and 30 minutes")
	}
	if c.DBReadTimeout <= 0 || c.DBWriteTimeout <= 0 {
		validator.AddError("DB_READ_TIMEOUT", c.DBReadTimeout.String(), "database timeouts must be positive")
	}
	if c.LocationTimeout <= 0 {
		validator.AddError("LOCATION_TIMEOUT", c.LocationTimeout.String(), "location timeout must be positive")
	}
	if c.OpenAIRequestTimeoutSeconds < 1 {
		validator.AddError("OPENAI_REQUEST_TIMEOUT_SECONDS", strconv.Itoa(c.OpenAIRequestTimeoutSeconds), "request timeout must be at least 1 second")
	}
	if c.CorroborateWithinFeet < 0 {
		validator.AddError("CORROBORATE_WITHIN_FEET", strconv.Itoa(c.CorroborateWithinFeet), "corroboration distance cannot be negative")
	}
	if c.NearMatchSimilarity <= 0 || c.NearMatchSimilarity > 1 {
		validator.AddError("NEAR_MATCH_SIMILARITY", strconv.FormatFloat(c.NearMatchSimilarity, 'f', -1, 64), "near match similarity must be in (0, 1]")
	}
	if c.ReconcileConcurrency < 1 || c.ReconcileConcurrency > 256 {
		validator.AddError("RECONCILE_CONCURRENCY", strconv.Itoa(c.ReconcileConcurrency), "reconcile concurrency must be between 1 and 256")
	}
	if c.ConfigReloadIntervalSeconds < 0 {
		validator.AddError("CONFIG_RELOAD_INTERVAL_SECONDS", strconv.Itoa(c.ConfigReloadIntervalSeconds), "reload interval cannot be negative")
	}
}

func (c *Config) validateEnvironment(validator *ConfigValidator) {
	if c.EnableFileLogging && c.LogFile != "" {
		if err := checkDirectoryWritable(c.LogFile); err != nil {
			validator.AddError("LOG_FILE", c.LogFile, fmt.Sprintf("log directory is not writable: %v", err))
		}
	}

	if c.Port != "" && c.Port == c.AdminPort {
		validator.AddError("ADMIN_PORT", c.AdminPort, "port conflict with PORT")
	}
}

func checkDirectoryWritable(filePath string) error {
	dir := filepath.Dir(filePath)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errs.NewValidation("config.checkDirectoryWritable", "cannot create directory", err)
		}
	}

	f, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		return errs.NewValidation("config.checkDirectoryWritable", "directory is not writable", err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// GetConfigSummary returns a summary of the configuration (excluding sensitive data)
func (c *Config) GetConfigSummary() map[string]any {
	return map[string]any{
		"database_url":            maskString(c.DatabaseURL, 8),
		"google_maps_api_key":     maskString(c.GoogleMapsAPIKey, 4),
		"openai_api_key":          maskString(c.OpenAIAPIKey, 4),
		"port":                    c.Port,
		"admin_port":              c.AdminPort,
		"env":                     c.Env,
		"log_level":               c.LogLevel,
		"log_format":              c.LogFormat,
		"metrics_enabled":         c.MetricsEnabled,
		"location_timeout":        c.LocationTimeout.String(),
		"match_rules_path":        c.MatchRulesPath,
		"corroborate_within_feet": c.CorroborateWithinFeet,
		"near_match_similarity":   c.NearMatchSimilarity,
		"reconcile_concurrency":   c.ReconcileConcurrency,
	}
}

// maskString masks sensitive strings for logging/display
func maskString(s string, keepFirst int) string {
	if s == "" {
		return ""
	}
	if len(s) <= keepFirst {
		return strings.Repeat("*", len(s))
	}
	return s[:keepFirst] + strings.Repeat("*", len(s)-keepFirst)
}
