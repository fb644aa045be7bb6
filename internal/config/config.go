package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default provider endpoints
const (
	DefaultGitHubGraphQLURL = "https://api.github.com/graphql"
	DefaultUmamiAPIURL      = "https://api.umami.is/v1"
	DefaultWakaTimeAPIURL   = "https://wakatime.com/api/v1"
	DefaultMonkeytypeAPIURL = "https://api.monkeytype.com"
)

// GitHubConfig holds credentials for the contribution calendar provider
type GitHubConfig struct {
	Token      string
	Username   string
	GraphQLURL string
}

// UmamiConfig holds credentials for the analytics provider
type UmamiConfig struct {
	APIKey    string
	WebsiteID string
	BaseURL   string
}

// WakaTimeConfig holds credentials for the time-tracking provider
type WakaTimeConfig struct {
	APIKey   string
	Username string
	BaseURL  string
}

// MonkeytypeConfig holds credentials for the typing-test provider.
// Upstream statuses within [DegradeStatusMin, DegradeStatusMax] produce a
// zero-valued summary instead of an error.
type MonkeytypeConfig struct {
	APIKey           string
	BaseURL          string
	DegradeStatusMin int
	DegradeStatusMax int
}

// UpstreamConfig controls the shared outbound-call primitive. Retries and
// circuit breakers are both off by default.
type UpstreamConfig struct {
	Timeout        time.Duration
	MaxAttempts    int
	CircuitBreaker bool
}

// AdminConfig protects the catalog write endpoints
type AdminConfig struct {
	PasswordHash string
	JWTSecret    string
	TokenTTL     time.Duration
}

// RedisConfig enables distributed rate limiting when Addr is set
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

// Config is built once at startup and injected into every component
type Config struct {
	Port             string
	DataDir          string
	LogLevel         slog.Level
	AllowedOrigins   []string
	EnableHSTS       bool
	RateLimitPerMin  int
	WriteLimitPerMin int
	ProjectsCacheTTL time.Duration
	MessageRetention time.Duration

	GitHub     GitHubConfig
	Umami      UmamiConfig
	WakaTime   WakaTimeConfig
	Monkeytype MonkeytypeConfig

	Upstream UpstreamConfig
	Admin    AdminConfig
	Redis    RedisConfig
}

// Load reads an optional .env file and then the process environment
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	return FromEnv()
}

// FromEnv builds a Config from the process environment only
func FromEnv() *Config {
	return &Config{
		Port:             getEnv("PORT", "8080"),
		DataDir:          getEnv("DATA_DIR", "./data"),
		LogLevel:         parseLevel(getEnv("LOG_LEVEL", "info")),
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		EnableHSTS:       getEnvBool("ENABLE_HSTS", false),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MIN", 60),
		WriteLimitPerMin: getEnvInt("RATE_LIMIT_WRITES_PER_MIN", 5),
		ProjectsCacheTTL: getEnvDuration("PROJECTS_CACHE_TTL", 5*time.Minute),
		MessageRetention: getEnvDuration("MESSAGE_RETENTION", 30*24*time.Hour),

		GitHub: GitHubConfig{
			Token:      os.Getenv("GITHUB_TOKEN"),
			Username:   getEnv("GITHUB_USERNAME", "radhiyyaalea"),
			GraphQLURL: getEnv("GITHUB_GRAPHQL_URL", DefaultGitHubGraphQLURL),
		},
		Umami: UmamiConfig{
			APIKey:    os.Getenv("UMAMI_API_KEY"),
			WebsiteID: os.Getenv("UMAMI_WEBSITE_ID"),
			BaseURL:   getEnv("UMAMI_API_URL", DefaultUmamiAPIURL),
		},
		WakaTime: WakaTimeConfig{
			APIKey:   os.Getenv("WAKATIME_API_KEY"),
			Username: getEnv("WAKATIME_USERNAME", "current"),
			BaseURL:  getEnv("WAKATIME_API_URL", DefaultWakaTimeAPIURL),
		},
		Monkeytype: MonkeytypeConfig{
			APIKey:           os.Getenv("MONKEYTYPE_API_KEY"),
			BaseURL:          getEnv("MONKEYTYPE_API_URL", DefaultMonkeytypeAPIURL),
			DegradeStatusMin: getEnvInt("TYPING_DEGRADE_STATUS_MIN", 400),
			DegradeStatusMax: getEnvInt("TYPING_DEGRADE_STATUS_MAX", 499),
		},

		Upstream: UpstreamConfig{
			Timeout:        getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second),
			MaxAttempts:    getEnvInt("UPSTREAM_MAX_ATTEMPTS", 1),
			CircuitBreaker: getEnvBool("UPSTREAM_CIRCUIT_BREAKER", false),
		},
		Admin: AdminConfig{
			PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
			JWTSecret:    os.Getenv("JWT_SECRET"),
			TokenTTL:     getEnvDuration("ADMIN_TOKEN_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:        os.Getenv("REDIS_ADDR"),
			Password:    os.Getenv("REDIS_PASSWORD"),
			DB:          getEnvInt("REDIS_DB", 0),
			PoolSize:    getEnvInt("REDIS_POOL_SIZE", 10),
			DialTimeout: getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		},
	}
}

// LogValue implements slog.LogValuer. Secrets are reported only as present or absent.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("port", c.Port),
		slog.String("data_dir", c.DataDir),
		slog.String("log_level", c.LogLevel.String()),
		slog.Bool("hsts", c.EnableHSTS),
		slog.Int("rate_limit_per_min", c.RateLimitPerMin),
		slog.Int("upstream_max_attempts", c.Upstream.MaxAttempts),
		slog.Bool("upstream_circuit_breaker", c.Upstream.CircuitBreaker),
		slog.Bool("github_token", c.GitHub.Token != ""),
		slog.String("github_username", c.GitHub.Username),
		slog.Bool("umami_api_key", c.Umami.APIKey != ""),
		slog.Bool("umami_website_id", c.Umami.WebsiteID != ""),
		slog.Bool("wakatime_api_key", c.WakaTime.APIKey != ""),
		slog.String("wakatime_username", c.WakaTime.Username),
		slog.Bool("monkeytype_api_key", c.Monkeytype.APIKey != ""),
		slog.Bool("admin_enabled", c.Admin.PasswordHash != "" && c.Admin.JWTSecret != ""),
		slog.Bool("redis_enabled", c.Redis.Addr != ""),
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default", "key", key, "default", defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("Invalid boolean in environment, using default", "key", key, "default", defaultValue)
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Invalid duration in environment, using default", "key", key, "default", defaultValue.String())
		return defaultValue
	}
	return d
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
