package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yeremiapane/waiter-dashboard/utils"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	APIURL           string
	WSURL            string
	AppURL           string
	StaffRole        string
	Port             string
	GinMode          string
	LogLevel         string
	CORSOrigin       string
	DBDriver         string
	DBDSN            string
	JournalEnabled   bool
	ProvisionTimeout time.Duration
	WriteTimeout     time.Duration
}

// Load membaca .env (jika ada) lalu environment
func Load() Config {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Debugf("Warning: .env file not found: %v", err)
	}

	apiURL := strings.TrimRight(getEnv("API_URL", "http://localhost:3000"), "/")
	cfg := Config{
		APIURL:           apiURL,
		WSURL:            strings.TrimRight(getEnv("WS_URL", wsFromHTTP(apiURL)), "/"),
		AppURL:           strings.TrimRight(getEnv("APP_URL", "http://localhost:5173"), "/"),
		StaffRole:        getEnv("STAFF_ROLE", "waiter"),
		Port:             getEnv("PORT", "8080"),
		GinMode:          os.Getenv("GIN_MODE"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CORSOrigin:       getEnv("CORS_ORIGIN", "*"),
		DBDriver:         getEnv("DB_DRIVER", "sqlite"),
		DBDSN:            getEnv("DB_DSN", "waiter_dashboard.db"),
		JournalEnabled:   getBool("JOURNAL_ENABLED", true),
		ProvisionTimeout: getDuration("PROVISION_TIMEOUT", 10*time.Second),
		WriteTimeout:     getDuration("WRITE_TIMEOUT", 5*time.Second),
	}
	return cfg
}

// InitDB membuka koneksi gorm sesuai DB_DRIVER
func InitDB(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DBDSN)
	case "mysql":
		dialector = mysql.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}
	return db, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		utils.ErrorLogger.Errorf("Invalid %s=%q, using %v", key, v, def)
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		utils.ErrorLogger.Errorf("Invalid %s=%q, using %v", key, v, def)
		return def
	}
	return d
}

// wsFromHTTP -> https://host jadi wss://host
func wsFromHTTP(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	return u.String()
}
