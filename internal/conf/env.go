// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"main.debug", "MARCHARVEST_DEBUG", validateEnvBool},

		// Record store
		{"database.type", "MARCHARVEST_DATABASE_TYPE", validateEnvDatabaseType},
		{"database.sqlite.path", "MARCHARVEST_DATABASE_SQLITE_PATH", nil},
		{"database.mysql.host", "MARCHARVEST_DATABASE_MYSQL_HOST", nil},
		{"database.mysql.port", "MARCHARVEST_DATABASE_MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "MARCHARVEST_DATABASE_MYSQL_USERNAME", nil},
		{"database.mysql.password", "MARCHARVEST_DATABASE_MYSQL_PASSWORD", nil},
		{"database.mysql.database", "MARCHARVEST_DATABASE_MYSQL_DATABASE", nil},

		// Harvest
		{"harvest.stagingdir", "MARCHARVEST_HARVEST_STAGINGDIR", nil},
		{"fetch.timeout", "MARCHARVEST_FETCH_TIMEOUT", validateEnvDuration},

		// Outer surfaces
		{"webserver.listen", "MARCHARVEST_WEBSERVER_LISTEN", validateEnvListen},
		{"mqtt.enabled", "MARCHARVEST_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "MARCHARVEST_MQTT_BROKER", nil},
		{"mqtt.password", "MARCHARVEST_MQTT_PASSWORD", nil},
		{"sentry.enabled", "MARCHARVEST_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "MARCHARVEST_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	switch value {
	case DatabaseSQLite, DatabaseMySQL:
		return nil
	default:
		return fmt.Errorf("must be %s or %s", DatabaseSQLite, DatabaseMySQL)
	}
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

func validateEnvDuration(value string) error {
	if _, err := time.ParseDuration(value); err != nil {
		return fmt.Errorf("must be a duration such as 30s")
	}
	return nil
}

func validateEnvListen(value string) error {
	if _, _, err := net.SplitHostPort(value); err != nil {
		return fmt.Errorf("must be host:port")
	}
	return nil
}
