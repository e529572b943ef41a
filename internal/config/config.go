// Package config contains everything related to configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/j-veylop/newapi-usage-tui/internal/apperr"
)

// Fallback backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config holds the application configuration. It is built once by Load and
// passed to every component.
type Config struct {
	// Upstream
	BaseDomain     string
	Authorization  string
	NewAPIUser     string
	UsernameFilter string
	RequestTimeout time.Duration

	// Reports
	WindowMinutes   int
	WindowLead      time.Duration
	AnchorToLatest  bool
	TopN            int
	LogPageSize     int
	SlowThresholdMs int64
	LatencyUnit     time.Duration
	AnomalySamples  int
	QuotaPerUnit    float64
	DisplayLocation *time.Location

	// Delivery
	UseForward     bool
	LogUseForward  bool
	UserUseForward bool
	PageChars      int

	// Advisory
	LLMEnabled            bool
	LLMUseCurrentProvider bool
	LLMProviderID         string
	LLMKind               string
	LLMBaseURL            string
	LLMAPIKey             string
	LLMModel              string
	LLMTimeout            time.Duration

	// Storage
	FallbackBackend string
	FallbackPath    string
	DatabasePath    string

	// Dashboard
	RefreshInterval time.Duration
	NotifyAnomalies bool

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	// File holds the optional YAML overrides.
	ConfigFile string
	File       *File
}

// Default values
const (
	defaultBaseDomain      = "https://new.xigua.wiki"
	defaultRequestTimeout  = 15 * time.Second
	defaultWindowHours     = 24
	defaultWindowLead      = time.Hour
	defaultTopN            = 3
	defaultLogPageSize     = 20
	defaultSlowThresholdMs = 10000
	defaultAnomalySamples  = 3
	defaultQuotaPerUnit    = 500
	defaultUTCOffsetHours  = 8
	defaultPageChars       = 900
	defaultLLMTimeout      = 60 * time.Second
	defaultRefreshInterval = 5 * time.Minute
)

// Load reads configuration from .env files, environment variables and the
// optional YAML file, then validates it.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	envPaths := getEnvPaths()
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := FromEnv()

	file, err := LoadFile(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}
	cfg.File = file

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure storage directories exist
	for _, p := range []string{cfg.FallbackPath, cfg.DatabasePath, cfg.LogFile} {
		if err := ensureDir(filepath.Dir(p)); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// FromEnv builds a Config from the environment without touching the filesystem.
func FromEnv() *Config {
	dir := getConfigDir()

	windowMinutes := getEnvInt("WINDOW_MINUTES", 0)
	if windowMinutes <= 0 {
		windowMinutes = getEnvInt("WINDOW_HOURS", defaultWindowHours) * 60
	}

	latencyUnit := time.Millisecond
	if strings.EqualFold(getEnvString("LOG_LATENCY_UNIT", "ms"), "s") {
		latencyUnit = time.Second
	}

	useForward := getEnvBool("USE_FORWARD", true)

	return &Config{
		BaseDomain:     strings.TrimRight(getEnvString("BASE_DOMAIN", defaultBaseDomain), "/"),
		Authorization:  getEnvString("AUTHORIZATION", ""),
		NewAPIUser:     getEnvString("NEW_API_USER", ""),
		UsernameFilter: getEnvString("USERNAME_FILTER", ""),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", defaultRequestTimeout),

		WindowMinutes:   windowMinutes,
		WindowLead:      getEnvDuration("WINDOW_LEAD", defaultWindowLead),
		AnchorToLatest:  getEnvBool("ANCHOR_TO_LATEST", false),
		TopN:            getEnvInt("TOP_N_MODELS", defaultTopN),
		LogPageSize:     getEnvInt("LOG_PAGE_SIZE", defaultLogPageSize),
		SlowThresholdMs: int64(getEnvInt("SLOW_THRESHOLD_MS", defaultSlowThresholdMs)),
		LatencyUnit:     latencyUnit,
		AnomalySamples:  getEnvInt("ANOMALY_SAMPLES", defaultAnomalySamples),
		QuotaPerUnit:    getEnvFloat("QUOTA_PER_UNIT", defaultQuotaPerUnit),
		DisplayLocation: displayLocation(getEnvInt("DISPLAY_UTC_OFFSET", defaultUTCOffsetHours)),

		UseForward:     useForward,
		LogUseForward:  getEnvBool("LOG_USE_FORWARD", useForward),
		UserUseForward: getEnvBool("USER_USE_FORWARD", useForward),
		PageChars:      getEnvInt("PAGE_CHARS", defaultPageChars),

		LLMEnabled:            getEnvBool("LLM_ENABLED", false),
		LLMUseCurrentProvider: getEnvBool("LLM_USE_CURRENT_PROVIDER", false),
		LLMProviderID:         getEnvString("LLM_PROVIDER_ID", ""),
		LLMKind:               strings.ToLower(getEnvString("LLM_KIND", ProviderKindOpenAI)),
		LLMBaseURL:            strings.TrimRight(getEnvString("LLM_BASE_URL", ""), "/"),
		LLMAPIKey:             getEnvString("LLM_API_KEY", ""),
		LLMModel:              getEnvString("LLM_MODEL", ""),
		LLMTimeout:            getEnvDuration("LLM_TIMEOUT", defaultLLMTimeout),

		FallbackBackend: strings.ToLower(getEnvString("FALLBACK_BACKEND", BackendJSON)),
		FallbackPath:    getEnvString("FALLBACK_PATH", filepath.Join(dir, "data.json")),
		DatabasePath:    getEnvString("DATABASE_PATH", filepath.Join(dir, "nau.db")),

		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", defaultRefreshInterval),
		NotifyAnomalies: getEnvBool("NOTIFY_ANOMALIES", true),

		LogLevel:  getEnvString("LOG_LEVEL", "info"),
		LogFormat: getEnvString("LOG_FORMAT", "text"),
		LogFile:   getEnvString("LOG_FILE", filepath.Join(dir, "nau.log")),

		ConfigFile: getEnvString("CONFIG_FILE", filepath.Join(dir, "nau.yaml")),
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime behavior.
func (c *Config) Validate() error {
	var errs []error

	if c.BaseDomain == "" {
		errs = append(errs, errors.New("BASE_DOMAIN is required"))
	}
	if c.WindowMinutes <= 0 {
		errs = append(errs, fmt.Errorf("window must be positive, got %d minutes", c.WindowMinutes))
	}
	if c.TopN < 0 {
		errs = append(errs, fmt.Errorf("TOP_N_MODELS must be >= 0, got %d", c.TopN))
	}
	if c.LogPageSize < 0 {
		errs = append(errs, fmt.Errorf("LOG_PAGE_SIZE must be >= 0, got %d", c.LogPageSize))
	}
	if c.SlowThresholdMs < 0 {
		errs = append(errs, fmt.Errorf("SLOW_THRESHOLD_MS must be >= 0, got %d", c.SlowThresholdMs))
	}
	if c.AnomalySamples < 0 {
		errs = append(errs, fmt.Errorf("ANOMALY_SAMPLES must be >= 0, got %d", c.AnomalySamples))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.FallbackBackend != BackendJSON && c.FallbackBackend != BackendSQLite {
		errs = append(errs, fmt.Errorf("FALLBACK_BACKEND must be %q or %q, got %q",
			BackendJSON, BackendSQLite, c.FallbackBackend))
	}
	if c.LLMKind != ProviderKindOpenAI && c.LLMKind != ProviderKindLangChain {
		errs = append(errs, fmt.Errorf("LLM_KIND must be %q or %q, got %q",
			ProviderKindOpenAI, ProviderKindLangChain, c.LLMKind))
	}
	if c.PageChars <= 0 {
		errs = append(errs, errors.New("PAGE_CHARS must be positive"))
	}

	if len(errs) > 0 {
		return apperr.Wrap(errors.Join(errs...), apperr.CodeInvalidConfig, "invalid configuration")
	}
	return nil
}

// Window returns the configured window length.
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// WindowFromHours converts a command override to a window length.
// Non-positive values fall back to the configured window.
func (c *Config) WindowFromHours(hours int) time.Duration {
	if hours <= 0 {
		return c.Window()
	}
	return time.Duration(hours) * time.Hour
}

// RecordPaths returns the configured probe paths for usage records.
func (c *Config) RecordPaths() []string {
	if c.File == nil {
		return nil
	}
	return c.File.ProbePaths.Records
}

// LogPaths returns the configured probe paths for log entries.
func (c *Config) LogPaths() []string {
	if c.File == nil {
		return nil
	}
	return c.File.ProbePaths.Logs
}

func displayLocation(offsetHours int) *time.Location {
	if offsetHours == 0 {
		return time.UTC
	}
	return time.FixedZone(fmt.Sprintf("UTC%+d", offsetHours), offsetHours*3600)
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "nau", ".env"),
			filepath.Join(home, ".nau", ".env"),
		)
	}

	// Parent directory (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(cwd), ".env"))
	}

	return paths
}

// getConfigDir returns the directory holding snapshots, the database and logs.
func getConfigDir() string {
	if dir := os.Getenv("NAU_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "nau")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool accepts the strconv.ParseBool forms plus yes/no and on/off.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "":
		return defaultValue
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
