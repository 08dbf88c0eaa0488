// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Supported database types
const (
	DatabaseSQLite = "sqlite"
	DatabaseMySQL  = "mysql"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, validate := range []func(*Settings) error{
		validateDatabaseSettings,
		validateHarvestSettings,
		validateWebServerSettings,
		validateMQTTSettings,
		validateSentrySettings,
	} {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDatabaseSettings(settings *Settings) error {
	db := &settings.Database
	switch strings.ToLower(db.Type) {
	case DatabaseSQLite:
		if db.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	case DatabaseMySQL:
		if db.MySQL.Host == "" || db.MySQL.Database == "" {
			return fmt.Errorf("database.mysql.host and database.mysql.database are required")
		}
		if db.MySQL.Port < 1 || db.MySQL.Port > 65535 {
			return fmt.Errorf("database.mysql.port %d is out of range", db.MySQL.Port)
		}
	default:
		return fmt.Errorf("database.type %q is not supported, use %s or %s", db.Type, DatabaseSQLite, DatabaseMySQL)
	}
	db.Type = strings.ToLower(db.Type)
	return nil
}

func validateHarvestSettings(settings *Settings) error {
	if settings.Harvest.BatchSize <= 0 {
		settings.Harvest.BatchSize = DefaultBatchSize
	}
	if settings.Harvest.ProgressEvery < 0 {
		return fmt.Errorf("harvest.progressevery must not be negative")
	}
	return nil
}

func validateWebServerSettings(settings *Settings) error {
	if !settings.WebServer.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(settings.WebServer.Listen); err != nil {
		return fmt.Errorf("webserver.listen %q must be host:port", settings.WebServer.Listen)
	}
	return nil
}

func validateMQTTSettings(settings *Settings) error {
	if !settings.MQTT.Enabled {
		return nil
	}
	u, err := url.Parse(settings.MQTT.Broker)
	if err != nil || u.Host == "" {
		return fmt.Errorf("mqtt.broker %q must be a URL such as tcp://host:1883", settings.MQTT.Broker)
	}
	if settings.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	return nil
}

func validateSentrySettings(settings *Settings) error {
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		return fmt.Errorf("sentry.dsn is required when sentry is enabled")
	}
	return nil
}
