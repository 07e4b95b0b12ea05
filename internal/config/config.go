package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port      string
	APIPrefix string
	Debug     bool
	DataDir   string

	DBDriver     string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBSSLMode    string
	DBSQLitePath string

	JWTIssuer      string
	SessionTTLDays int

	AdminEmail    string
	AdminPassword string
	AdminFullName string

	// Legacy client credentials
	LegacyPassword string
	LegacySecret   string

	RateLimitRPS   float64
	RateLimitBurst int

	SiteConfigFile string
	AssetsDir      string
}

func Load() *Config {
	return &Config{
		Port:           getenv("API_PORT", getenv("PORT", "8080")),
		APIPrefix:      NormalizePrefix(getenv("API_PREFIX_DIR", "/api")),
		Debug:          getbool("DEBUG", false),
		DataDir:        getenv("DATA_DIR", "data"),
		DBDriver:       strings.ToLower(getenv("DB_DRIVER", DriverPostgres)),
		DBHost:         getenv("DB_HOST", "localhost"),
		DBPort:         getenv("DB_PORT", "5432"),
		DBUser:         getenv("DB_USER", "postgres"),
		DBPassword:     getenv("DB_PASSWORD", "postgres"),
		DBName:         getenv("DB_NAME", "vertretungsplan"),
		DBSSLMode:      getenv("DB_SSLMODE", "disable"),
		DBSQLitePath:   getenv("DB_SQLITE_PATH", "vertretungsplan.db"),
		JWTIssuer:      getenv("JWT_ISSUER", "vertretungsplan"),
		SessionTTLDays: getint("SESSION_TTL_DAYS", 90),
		AdminEmail:     getenv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword:  getenv("ADMIN_PASSWORD", "admin123"),
		AdminFullName:  getenv("ADMIN_FULL_NAME", "Administrator"),
		LegacyPassword: getenv("LEGACY_PASSWORD", "legacy"),
		LegacySecret:   getenv("LEGACY_SECRET", ""),
		RateLimitRPS:   getfloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getint("RATE_LIMIT_BURST", 10),
		SiteConfigFile: getenv("SITE_CONFIG_FILE", ""),
		AssetsDir:      getenv("ASSETS_DIR", "assets"),
	}
}

// Validate reports the first setting the server cannot start with.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want %s or %s)", c.DBDriver, DriverPostgres, DriverSQLite)
	}
	if c.SessionTTLDays <= 0 {
		return fmt.Errorf("SESSION_TTL_DAYS must be positive, got %d", c.SessionTTLDays)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}
	return nil
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLDays) * 24 * time.Hour
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == DriverSQLite {
		return c.DBSQLitePath
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

// KeyPath resolves a file name inside the data directory.
func (c *Config) KeyPath(name string) string {
	return filepath.Join(c.DataDir, name)
}

// NormalizePrefix returns "" or a path with a leading and no trailing slash.
func NormalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

func getenv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getbool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getenv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getint(key string, fallback int) int {
	v, err := strconv.Atoi(getenv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getfloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getenv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}
