// conf/utils.go config path helpers
package conf

import (
	"os"
	"path/filepath"

	"github.com/tphakala/marcharvest/internal/errors"
	"github.com/tphakala/marcharvest/internal/logger"
)

// GetLogger returns the config package logger scoped to the config module.
// It is fetched from the global logger each call since the central logger
// is installed after configuration is loaded.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}

// GetDefaultConfigPaths returns the directories searched for config.yaml.
// If one of them already holds a config file only that directory is returned.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	configPaths := []string{
		".",
		filepath.Join(homeDir, ".config", "marcharvest"),
		"/etc/marcharvest",
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}

// FindConfigFile locates the configuration file.
func FindConfigFile() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", err
	}

	for _, path := range configPaths {
		configFilePath := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configFilePath); err == nil {
			return configFilePath, nil
		}
	}

	return "", errors.Newf("config file not found").
		Component("configuration").
		Category(errors.CategoryFileIO).
		Context("operation", "find-config-file").
		Build()
}
