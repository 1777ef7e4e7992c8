package config // package config loads application configuration from environment variables

import (
	"errors"  // errors.Join collects every missing variable into one report
	"fmt"     // fmt formats configuration errors
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings normalizes driver names
)

// Store drivers selectable with STORE_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Database settings are only required when the
// mysql store driver is selected.
type Config struct {
	Env           string // application environment (e.g. "dev", "production")
	Port          string // HTTP port to listen on
	StoreDriver   string // "mysql" or "memory"
	DBUser        string // database username
	DBPass        string // database password (optional)
	DBHost        string // database host address
	DBPort        string // database port number
	DBName        string // database name
	DBAutoSchema  bool   // create missing tables at startup
	JWTSecret     string // secret used to sign JWTs
	AccessTTLMin  int    // access token time-to-live in minutes
	BcryptCost    int    // bcrypt cost for password hashing
	AdminUsername string // bootstrap admin account (optional)
	AdminPassword string // bootstrap admin password (required with AdminUsername)
	UploadDir     string // directory receiving uploaded product images
	PublicBaseURL string // base URL used to build public image links
	LogLevel      string // debug, info, warn or error
	LogFile       string // optional rotating log file path
}

// loader accumulates missing or malformed required variables so a single
// startup attempt reports all of them.
type loader struct {
	errs []error
}

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		l.errs = append(l.errs, fmt.Errorf("missing required env var: %s", key))
		return ""
	}
	return v
}

// intOr is like envInt but records a malformed value instead of silently
// falling back.
func (l *loader) intOr(key string, def int) int {
	s, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid int for %s: %q", key, s))
		return def
	}
	return n
}

// Load reads configuration values from environment variables.  Every
// missing required variable is reported in the returned error.
func Load() (Config, error) {
	l := &loader{}
	cfg := Config{
		Env:           envStr("APP_ENV", "dev"),
		Port:          envStr("APP_PORT", "8080"),
		StoreDriver:   strings.ToLower(envStr("STORE_DRIVER", DriverMySQL)),
		DBPass:        os.Getenv("DB_PASS"),
		DBAutoSchema:  envBool("DB_AUTO_SCHEMA", false),
		JWTSecret:     l.must("JWT_SECRET"),
		AccessTTLMin:  l.intOr("ACCESS_TOKEN_TTL_MIN", 60),
		BcryptCost:    l.intOr("BCRYPT_COST", 12),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		UploadDir:     envStr("UPLOAD_DIR", "uploads"),
		PublicBaseURL: strings.TrimRight(envStr("PUBLIC_BASE_URL", ""), "/"),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		LogFile:       os.Getenv("LOG_FILE"),
	}

	switch cfg.StoreDriver {
	case DriverMySQL:
		cfg.DBUser = l.must("DB_USER")
		cfg.DBHost = l.must("DB_HOST")
		cfg.DBPort = l.must("DB_PORT")
		cfg.DBName = l.must("DB_NAME")
	case DriverMemory:
	default:
		l.errs = append(l.errs, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver))
	}

	if cfg.AccessTTLMin <= 0 {
		l.errs = append(l.errs, fmt.Errorf("ACCESS_TOKEN_TTL_MIN must be positive"))
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		l.errs = append(l.errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31"))
	}
	if cfg.AdminUsername != "" && cfg.AdminPassword == "" {
		l.errs = append(l.errs, fmt.Errorf("ADMIN_PASSWORD is required when ADMIN_USERNAME is set"))
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.Port
	}
	return cfg, errors.Join(l.errs...)
}

// IsProduction reports whether the service runs in the production environment.
func (c Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}
