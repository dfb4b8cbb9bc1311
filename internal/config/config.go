package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Bonus    BonusConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret    string
	TeamCapacity int
	CohortSize   int
}

// BonusConfig holds the coin amounts issued for each bonus trigger
type BonusConfig struct {
	Signup     decimal.Decimal
	DailyLogin decimal.Decimal
	Referral   decimal.Decimal
	TeamCreate decimal.Decimal
	TeamJoin   decimal.Decimal
	Vote       decimal.Decimal
	Leadership decimal.Decimal
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "teamcoin"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			TeamCapacity: getEnvInt("TEAM_CAPACITY", 9),
			CohortSize:   getEnvInt("COHORT_SIZE", 9),
		},
		Bonus: BonusConfig{
			Signup:     getEnvDecimal("SIGNUP_BONUS", "100"),
			DailyLogin: getEnvDecimal("DAILY_LOGIN_BONUS", "10"),
			Referral:   getEnvDecimal("REFERRAL_BONUS", "50"),
			TeamCreate: getEnvDecimal("TEAM_CREATE_BONUS", "20"),
			TeamJoin:   getEnvDecimal("TEAM_JOIN_BONUS", "10"),
			Vote:       getEnvDecimal("VOTE_BONUS", "5"),
			Leadership: getEnvDecimal("LEADERSHIP_BONUS", "25"),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.App.TeamCapacity < 2 {
		return nil, fmt.Errorf("TEAM_CAPACITY must be at least 2")
	}

	if config.App.CohortSize < 2 {
		return nil, fmt.Errorf("COHORT_SIZE must be at least 2")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable with a fallback default
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvDecimal gets a decimal environment variable with a fallback default
func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.RequireFromString(defaultValue)
	}
	return d
}
