package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

const (
	AuthModeHeader = "header"
	AuthModeToken  = "token"
)

// Config is the process-wide configuration. It is loaded once at startup and
// passed explicitly to the components that need it; treat it as read-only.
type Config struct {
	Environment string
	Port        string

	// Database
	UseLocalDB  bool
	LocalDBPath string
	PostgresDSN string

	// CORS
	AllowedOrigins []string

	// Identity
	AuthMode           string
	AdminUsers         []string
	AllowedEmailDomain string
	JWTSecret          string

	RateLimitPerMinute int
	Debug              bool
}

// LoadConfig reads the environment (and optional .env files) into a Config.
func LoadConfig() *Config {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	switch env {
	case "production":
		loadEnvFile(".env.production")
	default:
		loadEnvFile(".env.local")
	}
	loadEnvFile(".env")

	cfg := &Config{
		Environment:        getEnvWithDefault("ENVIRONMENT", "development"),
		Port:               getEnvWithDefault("PORT", "8005"),
		UseLocalDB:         getEnvBool("USE_LOCAL_DB", false),
		LocalDBPath:        strings.TrimSpace(os.Getenv("LOCAL_DB_PATH")),
		AuthMode:           strings.ToLower(getEnvWithDefault("AUTH_MODE", AuthModeHeader)),
		AdminUsers:         splitList(getEnvWithDefault("ADMIN_USERS", "jisung.jang")),
		AllowedEmailDomain: strings.ToLower(getEnvWithDefault("ALLOWED_EMAIL_DOMAIN", "samsung.com")),
		JWTSecret:          strings.TrimSpace(os.Getenv("JWT_SECRET")),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 0),
		Debug:              getEnvBool("DEBUG", false),
	}

	// Trim whitespace to avoid trailing spaces/newlines from env sources
	cfg.PostgresDSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = buildPostgresDSN()
	}

	if origins := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	} else {
		frontendPort := getEnvWithDefault("FRONTEND_PORT_HOST", "3005")
		cfg.AllowedOrigins = []string{
			"http://localhost:" + frontendPort,
			"http://127.0.0.1:" + frontendPort,
			"http://localhost:80",
		}
	}

	if cfg.Environment == "production" {
		cfg.Debug = false
	}

	return cfg
}

// Cached config (initialized once per cold start)
var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config, loading it on first use.
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = LoadConfig()
	})
	return cachedConfig
}

// Validate checks the settings every component relies on.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	switch c.AuthMode {
	case AuthModeHeader, AuthModeToken:
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeHeader, AuthModeToken, c.AuthMode)
	}
	if !c.UseLocalDB && c.PostgresDSN == "" {
		return fmt.Errorf("database configuration incomplete: set POSTGRES_DSN or USE_LOCAL_DB")
	}
	if c.AllowedEmailDomain == "" {
		return fmt.Errorf("ALLOWED_EMAIL_DOMAIN is required")
	}
	return nil
}

// IsAdmin reports whether the handle is on the admin allowlist.
func (c *Config) IsAdmin(handle string) bool {
	for _, admin := range c.AdminUsers {
		if strings.EqualFold(admin, handle) {
			return true
		}
	}
	return false
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// buildPostgresDSN assembles a DSN from the split POSTGRES_* variables used by
// the docker-compose deployment.
func buildPostgresDSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User: url.UserPassword(
			getEnvWithDefault("POSTGRES_USER", "postgres"),
			getEnvWithDefault("POSTGRES_PASSWORD", "password"),
		),
		Host: getEnvWithDefault("POSTGRES_HOST", "postgres") + ":" + getEnvWithDefault("POSTGRES_PORT", "5432"),
		Path: "/" + getEnvWithDefault("POSTGRES_DB", "openwebui"),
	}
	q := u.Query()
	q.Set("sslmode", getEnvWithDefault("POSTGRES_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads a .env file without overriding variables already set.
func loadEnvFile(filename string) {
	if _, err := os.Stat(filename); err != nil {
		return
	}
	_ = godotenv.Load(filename)
}
