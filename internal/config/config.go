// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, rate limiting, the build
// pipeline, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-build-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// PipelineConfig holds the intake pipeline settings: who is exempt from the
// daily ceiling, how many builds a user gets per day, and the data-plane
// origin the deployed artifacts are allowed to reach.
type PipelineConfig struct {
	OwnerUsername  string // handle exempt from the daily build ceiling
	DailyBuildCap  int    // builds per user per calendar day
	MaxRequestLen  int    // max raw request length accepted by the sanitizer
	DataAPIBaseURL string // data-plane base URL injected into artifacts
	TriggerKeyword string // keyword that marks a social post as a build request
	WebBuildToken  string // optional anti-bot token for POST /build ("" disables the check)

	SocialBearerToken string // social API bearer token ("" disables the social channel)
}

// GenerationConfig selects and bounds the code-generation model call.
type GenerationConfig struct {
	Model     string        // adapter name: claude|grok|gpt
	APIKey    string        // provider API key (also used by the content-policy classifier)
	MaxTokens int           // completion budget for one artifact
	Timeout   time.Duration // hard bound on a single generation call
}

// DeployConfig configures the pages publisher.
type DeployConfig struct {
	GitHubToken  string // token with contents:write on the builds repo
	GitHubRepo   string // "owner/repo" receiving generated apps
	PagesBaseURL string // public base URL the apps are served from
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// App
	DBPath        string // SQLite path
	MaxValueBytes int    // serialized value cap for store writes

	// Rate limiting (HTTP edge)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Build pipeline
	Pipeline   PipelineConfig
	Generation GenerationConfig
	Deploy     DeployConfig

	// Polling
	PollInterval time.Duration // cadence of the social channel poller

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// App
		DBPath:        getenv("DB_PATH", "forge.db"),
		MaxValueBytes: getint("MAX_VALUE_BYTES", 100<<10),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Build pipeline
		Pipeline: PipelineConfig{
			OwnerUsername:  getenv("OWNER_USERNAME", "forgebay"),
			DailyBuildCap:  getint("DAILY_BUILD_CAP", 10),
			MaxRequestLen:  getint("MAX_REQUEST_LEN", 500),
			DataAPIBaseURL: getenv("DATA_API_BASE_URL", "http://localhost:8080/api/data"),
			TriggerKeyword: getenv("TRIGGER_KEYWORD", "forgebay"),
			WebBuildToken:  getenv("WEB_BUILD_TOKEN", ""),

			SocialBearerToken: getenv("SOCIAL_BEARER_TOKEN", ""),
		},
		Generation: GenerationConfig{
			Model:     strings.ToLower(getenv("GENERATION_MODEL", "claude")),
			APIKey:    getenv("GENERATION_API_KEY", ""),
			MaxTokens: getint("GENERATION_MAX_TOKENS", 16000),
			Timeout:   getdur("GENERATION_TIMEOUT", 2*time.Minute),
		},
		Deploy: DeployConfig{
			GitHubToken:  getenv("GITHUB_TOKEN", ""),
			GitHubRepo:   getenv("GITHUB_REPO", "forgebay/builds"),
			PagesBaseURL: getenv("PAGES_BASE_URL", "https://forgebay.github.io/builds"),
		},

		// Polling
		PollInterval: getdur("POLL_INTERVAL", 2*time.Minute),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-build-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	cfg.Pipeline.DataAPIBaseURL = strings.TrimRight(cfg.Pipeline.DataAPIBaseURL, "/")
	cfg.Deploy.PagesBaseURL = strings.TrimRight(cfg.Deploy.PagesBaseURL, "/")

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.MaxValueBytes <= 0 {
		return cfg, errors.New("MAX_VALUE_BYTES must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.Pipeline.DailyBuildCap < 1 {
		return cfg, errors.New("DAILY_BUILD_CAP must be >= 1")
	}
	if cfg.Pipeline.MaxRequestLen < 1 {
		return cfg, errors.New("MAX_REQUEST_LEN must be >= 1")
	}
	if strings.TrimSpace(cfg.Pipeline.DataAPIBaseURL) == "" {
		return cfg, errors.New("DATA_API_BASE_URL must not be empty")
	}
	if cfg.Generation.MaxTokens < 1 {
		return cfg, errors.New("GENERATION_MAX_TOKENS must be >= 1")
	}
	if cfg.Generation.Timeout <= 0 {
		return cfg, errors.New("GENERATION_TIMEOUT must be > 0")
	}
	if cfg.PollInterval <= 0 {
		return cfg, errors.New("POLL_INTERVAL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
