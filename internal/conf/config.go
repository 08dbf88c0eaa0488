// conf/config.go configuration settings for marcharvest
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/marcharvest/internal/errors"
	"github.com/tphakala/marcharvest/internal/logger"
	"github.com/tphakala/marcharvest/internal/secrets"
)

//go:embed config.yaml
var configFiles embed.FS

// MainSettings holds general application settings
type MainSettings struct {
	Name  string `yaml:"name"`  // instance name, reported in MQTT payloads
	Debug bool   `yaml:"debug"` // true to enable debug logging
}

// SQLiteSettings contains settings for the SQLite record store
type SQLiteSettings struct {
	Path string `yaml:"path"` // path to the database file
}

// MySQLSettings contains settings for the MySQL record store
type MySQLSettings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"` // may reference ${ENV_VAR}
	// PasswordFile is read instead of Password when set, e.g. a Docker secret
	PasswordFile string `yaml:"passwordfile"`
	Database     string `yaml:"database"`
}

// DatabaseSettings selects and configures the record store backend
type DatabaseSettings struct {
	Type          string         `yaml:"type"`          // sqlite or mysql
	SlowThreshold time.Duration  `yaml:"slowthreshold"` // statements slower than this are logged at WARN
	SQLite        SQLiteSettings `yaml:"sqlite"`
	MySQL         MySQLSettings  `yaml:"mysql"`
}

// HarvestSettings controls harvest runs
type HarvestSettings struct {
	BatchSize        int           `yaml:"batchsize"`        // records reconciled per batch
	StagingDir       string        `yaml:"stagingdir"`       // local directory for remote file copies
	ProgressInterval time.Duration `yaml:"progressinterval"` // minimum time between progress log lines
	ProgressEvery    int           `yaml:"progressevery"`    // records between progress log lines
}

// FetchSettings configures staging of ftp:// and sftp:// record files
type FetchSettings struct {
	Timeout        time.Duration `yaml:"timeout"`        // dial and transfer timeout
	KnownHostsFile string        `yaml:"knownhostsfile"` // ssh known_hosts used to verify sftp servers
	PrivateKeyFile string        `yaml:"privatekeyfile"` // optional ssh private key for sftp
}

// WebServerSettings contains settings for the HTTP API
type WebServerSettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"` // host:port
}

// MetricsSettings toggles the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool `yaml:"enabled"`
}

// MQTTSettings contains settings for HarvestingStatus publication
type MQTTSettings struct {
	Enabled      bool   `yaml:"enabled"`
	Broker       string `yaml:"broker"`      // tcp://host:1883
	ClientID     string `yaml:"clientid"`    // empty generates one
	TopicPrefix  string `yaml:"topicprefix"` // statuses go to <prefix>/<source>/status
	Username     string `yaml:"username"`
	Password     string `yaml:"password"` // may reference ${ENV_VAR}
	PasswordFile string `yaml:"passwordfile"`
	QoS          byte   `yaml:"qos"`
	Retain       bool   `yaml:"retain"`
}

// SentrySettings contains error telemetry settings
type SentrySettings struct {
	Enabled     bool   `yaml:"enabled"`
	DSN         string `yaml:"dsn"` // may reference ${ENV_VAR}
	Environment string `yaml:"environment"`
}

// Settings contains all configuration options for marcharvest
type Settings struct {
	Main      MainSettings         `yaml:"main"`
	Logging   logger.LoggingConfig `yaml:"logging"`
	Database  DatabaseSettings     `yaml:"database"`
	Harvest   HarvestSettings      `yaml:"harvest"`
	Fetch     FetchSettings        `yaml:"fetch"`
	WebServer WebServerSettings    `yaml:"webserver"`
	Metrics   MetricsSettings      `yaml:"metrics"`
	MQTT      MQTTSettings         `yaml:"mqtt"`
	Sentry    SentrySettings       `yaml:"sentry"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, err
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// resolveSecrets replaces credentials with their file or environment values.
func resolveSecrets(settings *Settings) error {
	for _, secret := range []struct {
		name  string
		file  string
		value *string
	}{
		{"database.mysql.password", settings.Database.MySQL.PasswordFile, &settings.Database.MySQL.Password},
		{"mqtt.password", settings.MQTT.PasswordFile, &settings.MQTT.Password},
		{"sentry.dsn", "", &settings.Sentry.DSN},
	} {
		resolved, err := secrets.Resolve(secret.file, *secret.value)
		if err != nil {
			return errors.New(fmt.Errorf("%s: %w", secret.name, err)).
				Component("configuration").
				Category(errors.CategoryConfiguration).
				Context("operation", "resolve-secret").
				Build()
		}
		*secret.value = resolved
	}
	return nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		GetLogger().Warn("environment configuration ignored", logger.Error(err))
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded config.yaml into dir and reads it back
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, defaultConfig, 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}
	return data, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath, replacing the file atomically.
// Comments in the existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}
