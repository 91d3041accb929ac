package app

import (
	"os"
	"strconv"
	"time"

	"github.com/hivecert/hivecert/internal/registry/domain"
	"github.com/hivecert/hivecert/internal/registry/service"
)

type Config struct {
	DatabaseURL      string // Required: global registry database
	AdminDatabaseURL string // Optional: connection allowed to create and drop schemas (default: DatabaseURL)

	SessionSecret string        // Optional: HS256 secret, at least 32 bytes (default: random per process)
	SessionTTL    time.Duration // Session lifetime (default: 12h)
	Issuer        string        // Session issuer claim (default: hivecert)
	SecureCookies bool          // Mark session cookies Secure (default: true outside dev)

	BaseURL          string        // Public URL confirmation links point at (default: http://localhost:<port>)
	SiteName         string        // Product name in emails and texts (default: HiveCert)
	StructureTimeout time.Duration // Deadline for applying the tenant structure (default: 45s)
	TenantctlPath    string        // Optional: run the structure tool out of process

	PhoneEmailDomain    string                 // Domain of synthesized phone login addresses
	AdminCodes          map[domain.Role]string // Optional: code required per role
	DefaultMaxUsers     int                    // Quota when the registration leaves it out (default: 50)
	DefaultMaxStorageMB int                    // Quota when the registration leaves it out (default: 1024)

	MailAPIURL string // Optional: JSON mail API; emails are logged when empty
	MailAPIKey string
	MailFrom   string
	SMSAPIURL  string // Optional: SMS API; texts are logged when empty
	SMSAPIKey  string
	SMSFrom    string

	RedisAddr     string // Optional: enables the namespace and job locks
	RedisPassword string
	RedisDB       int

	PepperFile          string        // Path to the password pepper (default: ./pepper)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	HousekeepingInterval time.Duration // Expired code and token cleanup (default: 1h)
	ReconcileInterval    time.Duration // Namespace drift check, 0 disables (default: 6h)
}

func LoadConfig() Config {
	cfg := Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		AdminDatabaseURL: os.Getenv("ADMIN_DATABASE_URL"),

		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionTTL:    getEnvDurationOrDefault("SESSION_TTL", 12*time.Hour),
		Issuer:        getEnvOrDefault("SESSION_ISSUER", "hivecert"),

		BaseURL:          os.Getenv("BASE_URL"),
		SiteName:         getEnvOrDefault("SITE_NAME", "HiveCert"),
		StructureTimeout: getEnvDurationOrDefault("STRUCTURE_TIMEOUT", service.DefaultStructureTimeout),
		TenantctlPath:    os.Getenv("TENANTCTL_PATH"),

		PhoneEmailDomain:    getEnvOrDefault("PHONE_EMAIL_DOMAIN", service.DefaultPhoneEmailDomain),
		DefaultMaxUsers:     getEnvIntOrDefault("DEFAULT_MAX_USERS", service.DefaultMaxUsers),
		DefaultMaxStorageMB: getEnvIntOrDefault("DEFAULT_MAX_STORAGE_MB", service.DefaultMaxStorageMB),

		MailAPIURL: os.Getenv("MAIL_API_URL"),
		MailAPIKey: os.Getenv("MAIL_API_KEY"),
		MailFrom:   getEnvOrDefault("MAIL_FROM", "HiveCert <no-reply@hivecert.io>"),
		SMSAPIURL:  os.Getenv("SMS_API_URL"),
		SMSAPIKey:  os.Getenv("SMS_API_KEY"),
		SMSFrom:    getEnvOrDefault("SMS_FROM", "HiveCert"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),

		PepperFile:          getEnvOrDefault("PEPPER_FILE", "pepper"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		ReconcileInterval:    getEnvDurationOrDefault("RECONCILE_INTERVAL", 6*time.Hour),
	}

	if cfg.AdminDatabaseURL == "" {
		cfg.AdminDatabaseURL = cfg.DatabaseURL
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + strconv.Itoa(cfg.Port)
	}
	cfg.SecureCookies = getEnvBoolOrDefault("SECURE_COOKIES", cfg.Env != "dev")

	// Roles without a code register freely
	cfg.AdminCodes = map[domain.Role]string{}
	if code := os.Getenv("ADMIN_CODE_ADMIN"); code != "" {
		cfg.AdminCodes[domain.RoleAdmin] = code
	}
	if code := os.Getenv("ADMIN_CODE_SUPER_ADMIN"); code != "" {
		cfg.AdminCodes[domain.RoleSuperAdmin] = code
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
