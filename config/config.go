package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every runtime setting of the service. Values come from the
// environment (optionally seeded from a .env file by main).
type Config struct {
	Port    string
	GinMode string

	DBDriver string
	DBDSN    string
	DBUser   string
	DBPass   string
	DBHost   string
	DBPort   string
	DBName   string

	StoreTimezone        string
	SlotCutoffBuffer     time.Duration
	AdmissionLockTimeout time.Duration
	SlotLockBackend      string
	SlotLockTTL          time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AMQPURL             string
	AutoTicketOnCooking bool

	KDSPushMode     string
	KDSPollInterval time.Duration

	JWTSecret      string
	CORSOrigin     string
	RateLimitRPS   float64
	RateLimitBurst int
	LogLevel       string

	StoreName      string
	TicketFooter   string
	CurrencySymbol string
}

// Load reads the configuration with defaults suited for local development.
func Load() Config {
	return Config{
		Port:    getenv("PORT", "8080"),
		GinMode: getenv("GIN_MODE", "debug"),

		DBDriver: strings.ToLower(getenv("DB_DRIVER", "mysql")),
		DBDSN:    os.Getenv("DB_DSN"),
		DBUser:   getenv("DB_USER", "root"),
		DBPass:   os.Getenv("DB_PASS"),
		DBHost:   getenv("DB_HOST", "127.0.0.1"),
		DBPort:   getenv("DB_PORT", "3306"),
		DBName:   getenv("DB_NAME", "damafapp"),

		StoreTimezone:        getenv("STORE_TIMEZONE", "UTC"),
		SlotCutoffBuffer:     envDur("SLOT_CUTOFF_BUFFER", 0),
		AdmissionLockTimeout: envDur("ADMISSION_LOCK_TIMEOUT", 3*time.Second),
		SlotLockBackend:      strings.ToLower(getenv("SLOT_LOCK_BACKEND", "local")),
		SlotLockTTL:          envDur("SLOT_LOCK_TTL", 10*time.Second),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		AMQPURL:             os.Getenv("AMQP_URL"),
		AutoTicketOnCooking: envBool("AUTO_TICKET_ON_COOKING", false),

		KDSPushMode:     strings.ToLower(getenv("KDS_PUSH_MODE", "direct")),
		KDSPollInterval: envDur("KDS_POLL_INTERVAL", 2*time.Second),

		JWTSecret:      getenv("JWT_SECRET", "dev-secret-change-me"),
		CORSOrigin:     getenv("CORS_ORIGIN", "*"),
		RateLimitRPS:   envFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 40),
		LogLevel:       getenv("LOG_LEVEL", "info"),

		StoreName:      getenv("STORE_NAME", "DamafAPP"),
		TicketFooter:   getenv("TICKET_FOOTER", "*** COMPROBANTE NO FISCAL ***"),
		CurrencySymbol: getenv("CURRENCY_SYMBOL", "$"),
	}
}

// Location resolves the store time zone. Slot days and slot start instants
// are always evaluated here, never in the host zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_TIMEZONE %q: %w", c.StoreTimezone, err)
	}
	return loc, nil
}

// MySQLDSN builds the DSN from parts unless DB_DSN was given explicitly.
func (c Config) MySQLDSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	auth := c.DBUser
	if c.DBPass != "" {
		auth = c.DBUser + ":" + c.DBPass
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, c.DBHost, c.DBPort, c.DBName)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
