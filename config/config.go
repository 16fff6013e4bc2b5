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
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DefaultPort                   = "8080"
	DefaultLogLevel               = "info"
	DefaultLogFormat              = "console"
	DefaultAccessTokenExpiry      = time.Hour
	DefaultRememberMeExpiry       = 7 * 24 * time.Hour
	DefaultRefreshTokenExpiry     = 30 * 24 * time.Hour
	DefaultLoginMaxAttempts       = 5
	DefaultLockoutDuration        = 15 * time.Minute
	DefaultTwoFactorCodeTTL       = 10 * time.Minute
	DefaultTwoFactorCodeDigits    = 6
	DefaultTwoFactorMaxAttempts   = 5
	DefaultPasswordResetTTL       = time.Hour
	DefaultPasswordMinLength      = 8
	DefaultKafkaAuditTopic        = "auth.audit"
	DefaultKafkaNotificationTopic = "auth.notifications"

	// developmentJWTSecret is only ever used outside production, and its use is
	// reported through Config.Warnings.
	developmentJWTSecret = "dev-only-insecure-jwt-secret-change-me"
)

type Config struct {
	Env       string
	Port      string
	DBURL     string
	LogLevel  string
	LogFormat string

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenExpiry  time.Duration
	RememberMeExpiry   time.Duration
	RefreshTokenExpiry time.Duration

	LoginMaxAttempts int
	LockoutDuration  time.Duration

	TwoFactorCodeTTL     time.Duration
	TwoFactorCodeDigits  int
	TwoFactorMaxAttempts int

	PasswordResetTTL           time.Duration
	PasswordMinLength          int
	PasswordResetRevealUnknown bool

	AutoMigrate bool

	KafkaBrokers           []string
	KafkaAuditTopic        string
	KafkaNotificationTopic string

	CORSAllowOrigins string

	// Warnings collects non-fatal problems found while loading; they are
	// logged once the logger exists.
	Warnings []string
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load reads config/.env.dev or config/.env.prod (chosen by ENV) and then the
// process environment, which always wins over the file.
func Load() (*Config, error) {
	env := getEnv("ENV", EnvDevelopment)

	var warnings []string
	envFile := filepath.Join("config", ".env.dev")
	if env == EnvProduction {
		envFile = filepath.Join("config", ".env.prod")
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		warnings = append(warnings, fmt.Sprintf("could not read %s: %v", envFile, err))
	}

	dbURL := getEnv("DB_URL", "")
	if dbURL == "" {
		return nil, missing("DB_URL")
	}

	secret := getEnv("JWT_SECRET", "")
	if secret == "" {
		if env == EnvProduction {
			return nil, missing("JWT_SECRET")
		}
		secret = developmentJWTSecret
		warnings = append(warnings, "JWT_SECRET is not set, using the development fallback secret; never run like this in production")
	}

	cfg := &Config{
		Env:       env,
		Port:      getEnv("PORT", DefaultPort),
		DBURL:     dbURL,
		LogLevel:  getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat: getEnv("LOG_FORMAT", DefaultLogFormat),

		AccessTokenSecret:  secret,
		RefreshTokenSecret: getEnv("JWT_REFRESH_SECRET", secret),

		LoginMaxAttempts:     getEnvAsInt("LOGIN_MAX_ATTEMPTS", DefaultLoginMaxAttempts),
		TwoFactorCodeDigits:  getEnvAsInt("TWO_FACTOR_CODE_DIGITS", DefaultTwoFactorCodeDigits),
		TwoFactorMaxAttempts: getEnvAsInt("TWO_FACTOR_MAX_ATTEMPTS", DefaultTwoFactorMaxAttempts),
		PasswordMinLength:    getEnvAsInt("PASSWORD_MIN_LENGTH", DefaultPasswordMinLength),

		PasswordResetRevealUnknown: getEnvAsBool("PASSWORD_RESET_REVEAL_UNKNOWN", false),
		AutoMigrate:                getEnvAsBool("DB_AUTO_MIGRATE", env != EnvProduction),

		KafkaBrokers:           getEnvAsList("KAFKA_BROKERS"),
		KafkaAuditTopic:        getEnv("KAFKA_AUDIT_TOPIC", DefaultKafkaAuditTopic),
		KafkaNotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", DefaultKafkaNotificationTopic),

		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"ACCESS_TOKEN_EXPIRY", DefaultAccessTokenExpiry, &cfg.AccessTokenExpiry},
		{"REMEMBER_ME_TOKEN_EXPIRY", DefaultRememberMeExpiry, &cfg.RememberMeExpiry},
		{"REFRESH_TOKEN_EXPIRY", DefaultRefreshTokenExpiry, &cfg.RefreshTokenExpiry},
		{"LOCKOUT_DURATION", DefaultLockoutDuration, &cfg.LockoutDuration},
		{"TWO_FACTOR_CODE_TTL", DefaultTwoFactorCodeTTL, &cfg.TwoFactorCodeTTL},
		{"PASSWORD_RESET_TTL", DefaultPasswordResetTTL, &cfg.PasswordResetTTL},
	}
	for _, d := range durations {
		val, warn := getEnvAsDuration(d.key, d.def)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		*d.dst = val
	}

	if cfg.LoginMaxAttempts <= 0 {
		warnings = append(warnings, fmt.Sprintf("LOGIN_MAX_ATTEMPTS must be positive, using default %d", DefaultLoginMaxAttempts))
		cfg.LoginMaxAttempts = DefaultLoginMaxAttempts
	}
	if cfg.TwoFactorMaxAttempts <= 0 {
		warnings = append(warnings, fmt.Sprintf("TWO_FACTOR_MAX_ATTEMPTS must be positive, using default %d", DefaultTwoFactorMaxAttempts))
		cfg.TwoFactorMaxAttempts = DefaultTwoFactorMaxAttempts
	}
	if cfg.TwoFactorCodeDigits != 6 && cfg.TwoFactorCodeDigits != 8 {
		warnings = append(warnings, fmt.Sprintf("TWO_FACTOR_CODE_DIGITS must be 6 or 8, using default %d", DefaultTwoFactorCodeDigits))
		cfg.TwoFactorCodeDigits = DefaultTwoFactorCodeDigits
	}

	cfg.Warnings = warnings
	return cfg, nil
}

func missing(key string) error {
	return fmt.Errorf("missing required config: %s", key)
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvAsList(key string) []string {
	valStr := os.Getenv(key)
	if valStr == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultVal time.Duration) (time.Duration, string) {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal, ""
	}
	val, err := ParseDuration(valStr)
	if err != nil || val <= 0 {
		return defaultVal, fmt.Sprintf("invalid value for %s, using default %s", key, defaultVal)
	}
	return val, ""
}

// ParseDuration accepts Go duration strings ("90m", "1h") and whole days ("7d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if len(s) > 1 && s[len(s)-1] == 'd' {
		days, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration format: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
