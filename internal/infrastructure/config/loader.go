package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment constants
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// ConfigPaths defines the paths to look for config files
var ConfigPaths = []string{
	"./configs",
	"../configs",
	"../../configs",
}

// DotEnvPaths defines the paths to look for .env files
var DotEnvPaths = []string{
	".env",
	"./configs/.env",
	"../configs/.env",
}

// LoadConfig loads configuration from file based on the environment.
// Environment variables with the TL_ prefix override file values.
func LoadConfig() (*Config, error) {
	if err := loadDotEnvFile(); err != nil {
		fmt.Println("Warning: Could not load .env file:", err)
	}

	env := getEnvironment()

	v := viper.New()
	v.SetConfigName(env)
	v.SetConfigType("yaml")

	for _, path := range ConfigPaths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	v.SetEnvPrefix("TL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	processEnvOverrides(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.Environment = env
	processDurations(&config)

	return &config, nil
}

// Validate ensures all required configuration values are present
func (c *Config) Validate() error {
	var missing []string

	if c.Server.Port == 0 {
		missing = append(missing, "server.port")
	}
	if c.Server.ShutdownTimeout == 0 {
		missing = append(missing, "server.shutdownTimeout")
	}
	if c.Admin.Enabled && c.Admin.Port == 0 {
		missing = append(missing, "admin.port")
	}
	if c.Database.Host == "" {
		missing = append(missing, "database.host (or TL_DB_HOST environment variable)")
	}
	if c.Database.Username == "" {
		missing = append(missing, "database.username (or TL_DB_USERNAME environment variable)")
	}
	if c.Database.Database == "" {
		missing = append(missing, "database.database (or TL_DB_NAME environment variable)")
	}
	if c.Database.QueryTimeout == 0 {
		missing = append(missing, "database.queryTimeout")
	}
	if c.Trade.MaxRetries == 0 {
		missing = append(missing, "trade.maxRetries")
	}
	if c.Logger.Level == "" {
		missing = append(missing, "logger.level")
	}

	if c.Environment != Development && c.Environment != Production && c.Environment != Test {
		return fmt.Errorf("invalid environment value: %s, must be one of: %s, %s, or %s",
			c.Environment, Development, Production, Test)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configurations: %v", missing)
	}

	return nil
}

// loadDotEnvFile attempts to load environment variables from .env files
func loadDotEnvFile() error {
	var lastError error

	for _, path := range DotEnvPaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return nil
			} else {
				lastError = err
			}
		}
	}

	if lastError != nil {
		return fmt.Errorf("could not load any .env file: %w", lastError)
	}

	return fmt.Errorf("no .env file found in search paths")
}

// setDefaults sets default values for non-critical configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5432)
	v.SetDefault("server.maxLineBytes", 4096)
	v.SetDefault("server.idleTimeout", 300)    // seconds
	v.SetDefault("server.shutdownTimeout", 10) // seconds

	v.SetDefault("admin.enabled", true)
	v.SetDefault("admin.port", 8080)
	v.SetDefault("admin.readTimeout", 15)  // seconds
	v.SetDefault("admin.writeTimeout", 15) // seconds

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.port", 5433)
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 10)
	v.SetDefault("database.connMaxLifetime", 30) // minutes
	v.SetDefault("database.connMaxIdleTime", 15) // minutes
	v.SetDefault("database.queryTimeout", 5)     // seconds
	v.SetDefault("database.retryAttempts", 3)
	v.SetDefault("database.retryDelay", 1) // seconds

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")

	v.SetDefault("trade.maxRetries", 3)
	v.SetDefault("trade.lockTimeoutMs", 5000)
}

// getEnvironment determines the environment to use based on TL_ENV
func getEnvironment() string {
	env := os.Getenv("TL_ENV")
	if env == "" {
		env = Development
	}
	return strings.ToLower(env)
}

// processEnvOverrides ensures sensitive environment variables override config values
func processEnvOverrides(v *viper.Viper) {
	if dbHost := os.Getenv("TL_DB_HOST"); dbHost != "" {
		v.Set("database.host", dbHost)
	}
	if dbPort := os.Getenv("TL_DB_PORT"); dbPort != "" {
		v.Set("database.port", dbPort)
	}
	if dbUser := os.Getenv("TL_DB_USERNAME"); dbUser != "" {
		v.Set("database.username", dbUser)
	}
	if dbPass := os.Getenv("TL_DB_PASSWORD"); dbPass != "" {
		v.Set("database.password", dbPass)
	}
	if dbName := os.Getenv("TL_DB_NAME"); dbName != "" {
		v.Set("database.database", dbName)
	}
	if sslMode := os.Getenv("TL_DB_SSL_MODE"); sslMode != "" {
		v.Set("database.sslMode", sslMode)
	}
	if serverPort := os.Getenv("TL_SERVER_PORT"); serverPort != "" {
		v.Set("server.port", serverPort)
	}
	if adminPort := os.Getenv("TL_ADMIN_PORT"); adminPort != "" {
		v.Set("admin.port", adminPort)
	}
	if logLevel := os.Getenv("TL_LOGGER_LEVEL"); logLevel != "" {
		v.Set("logger.level", logLevel)
	}
}

// processDurations converts duration fields from their raw config units
func processDurations(config *Config) {
	config.Server.IdleTimeout = time.Duration(config.Server.IdleTimeout) * time.Second
	config.Server.ShutdownTimeout = time.Duration(config.Server.ShutdownTimeout) * time.Second

	config.Admin.ReadTimeout = time.Duration(config.Admin.ReadTimeout) * time.Second
	config.Admin.WriteTimeout = time.Duration(config.Admin.WriteTimeout) * time.Second

	config.Database.ConnMaxLifetime = time.Duration(config.Database.ConnMaxLifetime) * time.Minute
	config.Database.ConnMaxIdleTime = time.Duration(config.Database.ConnMaxIdleTime) * time.Minute
	config.Database.QueryTimeout = time.Duration(config.Database.QueryTimeout) * time.Second
	config.Database.RetryDelay = time.Duration(config.Database.RetryDelay) * time.Second
}
