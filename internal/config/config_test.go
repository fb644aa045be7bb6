package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "GITHUB_USERNAME", "WAKATIME_USERNAME", "UPSTREAM_MAX_ATTEMPTS",
		"TYPING_DEGRADE_STATUS_MIN", "TYPING_DEGRADE_STATUS_MAX", "LOG_LEVEL",
		"ENABLE_HSTS", "RATE_LIMIT_PER_MIN", "RATE_LIMIT_WRITES_PER_MIN", "PROJECTS_CACHE_TTL",
		"MESSAGE_RETENTION", "ADMIN_TOKEN_TTL", "REDIS_ADDR", "UPSTREAM_CIRCUIT_BREAKER",
		"REDIS_POOL_SIZE", "REDIS_DIAL_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "radhiyyaalea", cfg.GitHub.Username)
	assert.Equal(t, "current", cfg.WakaTime.Username)
	assert.Equal(t, DefaultGitHubGraphQLURL, cfg.GitHub.GraphQLURL)
	assert.Equal(t, 1, cfg.Upstream.MaxAttempts)
	assert.False(t, cfg.Upstream.CircuitBreaker)
	assert.Equal(t, 400, cfg.Monkeytype.DegradeStatusMin)
	assert.Equal(t, 499, cfg.Monkeytype.DegradeStatusMax)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.EnableHSTS)
	assert.Equal(t, 60, cfg.RateLimitPerMin)
	assert.Equal(t, 5, cfg.WriteLimitPerMin)
	assert.Equal(t, 5*time.Minute, cfg.ProjectsCacheTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.MessageRetention)
	assert.Equal(t, 24*time.Hour, cfg.Admin.TokenTTL)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Equal(t, 5*time.Second, cfg.Redis.DialTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("GITHUB_TOKEN", "ghp_secret")
	t.Setenv("UMAMI_WEBSITE_ID", "site-1")
	t.Setenv("UPSTREAM_MAX_ATTEMPTS", "3")
	t.Setenv("UPSTREAM_TIMEOUT", "2s")
	t.Setenv("UPSTREAM_CIRCUIT_BREAKER", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("ENABLE_HSTS", "true")
	t.Setenv("RATE_LIMIT_WRITES_PER_MIN", "2")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_POOL_SIZE", "25")

	cfg := FromEnv()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "ghp_secret", cfg.GitHub.Token)
	assert.Equal(t, "site-1", cfg.Umami.WebsiteID)
	assert.Equal(t, 3, cfg.Upstream.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Upstream.Timeout)
	assert.True(t, cfg.Upstream.CircuitBreaker)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.EnableHSTS)
	assert.Equal(t, 2, cfg.WriteLimitPerMin)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 25, cfg.Redis.PoolSize)
}

func TestFromEnvInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("UPSTREAM_MAX_ATTEMPTS", "many")
	t.Setenv("UPSTREAM_TIMEOUT", "soon")
	t.Setenv("ENABLE_HSTS", "sometimes")

	cfg := FromEnv()

	assert.Equal(t, 1, cfg.Upstream.MaxAttempts)
	assert.Equal(t, 15*time.Second, cfg.Upstream.Timeout)
	assert.False(t, cfg.EnableHSTS)
}

func TestLogValueRedactsSecrets(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_do_not_print")
	t.Setenv("WAKATIME_API_KEY", "waka_do_not_print")

	cfg := FromEnv()
	rendered := cfg.LogValue().String()

	assert.False(t, strings.Contains(rendered, "ghp_do_not_print"))
	assert.False(t, strings.Contains(rendered, "waka_do_not_print"))
	assert.Contains(t, rendered, "github_token=true")
}
