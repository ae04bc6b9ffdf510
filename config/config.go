package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds all runtime settings for the spot-price backend
type Config struct {
	Port        string
	Environment string

	DBDriver   string // "sqlite" or "postgres"
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	PriceFeedURL     string
	ReservoirFeedURL string
	FetchTimeout     time.Duration

	MarketAreas     []string
	ExemptArea      string
	PriceMultiplier decimal.Decimal
	PriceSurcharge  decimal.Decimal

	RefreshAt       TimeOfDay
	RetrainInterval time.Duration
	BackfillDays    int
}

// TimeOfDay is a wall-clock time within a day, e.g. the daily refresh moment
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" into a TimeOfDay
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q, want HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Adjustment is the per-area price correction applied before persistence
type Adjustment struct {
	Exempt     bool
	Multiplier decimal.Decimal
	Surcharge  decimal.Decimal
}

// AdjustmentFor returns the adjustment table entry for an area. Every area
// except the configured exempt one carries the multiplier and surcharge.
func (c *Config) AdjustmentFor(area string) Adjustment {
	if area == c.ExemptArea {
		return Adjustment{Exempt: true}
	}
	return Adjustment{Multiplier: c.PriceMultiplier, Surcharge: c.PriceSurcharge}
}

var AppConfig *Config
var DB *gorm.DB

// LoadConfig loads environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	refreshAt, err := ParseTimeOfDay(getEnv("REFRESH_AT", "15:30"))
	if err != nil {
		return nil, fmt.Errorf("REFRESH_AT: %w", err)
	}

	multiplier, err := decimal.NewFromString(getEnv("PRICE_MULTIPLIER", "1.25"))
	if err != nil {
		return nil, fmt.Errorf("PRICE_MULTIPLIER: %w", err)
	}
	surcharge, err := decimal.NewFromString(getEnv("PRICE_SURCHARGE", "0.1541"))
	if err != nil {
		return nil, fmt.Errorf("PRICE_SURCHARGE: %w", err)
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "strompris_db"),
		SQLitePath: getEnv("SQLITE_PATH", "PriceData.db"),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		PriceFeedURL:     getEnv("PRICE_FEED_URL", "https://www.hvakosterstrommen.no/api/v1/prices"),
		ReservoirFeedURL: getEnv("RESERVOIR_FEED_URL", "https://biapi.nve.no/magasinstatistikk/api/Magasinstatistikk/HentOffentligData"),
		FetchTimeout:     time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 10)) * time.Second,

		MarketAreas:     splitAreas(getEnv("MARKET_AREAS", "NO1,NO2,NO3,NO4,NO5")),
		ExemptArea:      getEnv("EXEMPT_AREA", "NO4"),
		PriceMultiplier: multiplier,
		PriceSurcharge:  surcharge,

		RefreshAt:       refreshAt,
		RetrainInterval: time.Duration(getEnvInt("RETRAIN_INTERVAL_DAYS", 14)) * 24 * time.Hour,
		BackfillDays:    getEnvInt("BACKFILL_DAYS", 14),
	}

	AppConfig = config
	return config, nil
}

// InitDB initializes the database connection for the configured driver
func InitDB() (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if AppConfig.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var db *gorm.DB
	var err error

	switch AppConfig.DBDriver {
	case "sqlite":
		log.Printf("Opening SQLite database at %s", AppConfig.SQLitePath)
		db, err = gorm.Open(sqlite.Open(AppConfig.SQLitePath), gormConfig)
	case "postgres":
		log.Printf("Connecting to database: host=%s port=%s user=%s dbname=%s",
			maskHost(AppConfig.DBHost),
			AppConfig.DBPort,
			AppConfig.DBUser,
			AppConfig.DBName,
		)
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=require TimeZone=Europe/Oslo",
			AppConfig.DBHost,
			AppConfig.DBUser,
			AppConfig.DBPassword,
			AppConfig.DBName,
			AppConfig.DBPort,
		)
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", AppConfig.DBDriver)
	}

	if err != nil {
		log.Printf("Database connection error: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection with ping
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Failed to get underlying database: %v", err)
		return nil, fmt.Errorf("failed to get database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		log.Printf("Database ping failed: %v", err)
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	log.Printf("Database connection verified successfully")
	DB = db
	return db, nil
}

// maskHost masks host for logging, preserving domain structure
func maskHost(host string) string {
	if len(host) <= 3 {
		return "***"
	}
	if len(host) <= 15 {
		return host[:3] + "***"
	}
	return host[:8] + "***" + host[len(host)-10:]
}

func splitAreas(s string) []string {
	var areas []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			areas = append(areas, part)
		}
	}
	return areas
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
