// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/marcharvest/internal/logger"
)

// DefaultBatchSize is the number of records reconciled per batch
const DefaultBatchSize = 20

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("main.name", "marcharvest")
	viper.SetDefault("main.debug", false)

	viper.SetDefault("logging.default_level", logger.DefaultLogLevel)
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	viper.SetDefault("logging.file_output.level", logger.DefaultLogLevel)

	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.slowthreshold", 200*time.Millisecond)
	viper.SetDefault("database.sqlite.path", "marcharvest.db")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", 3306)
	viper.SetDefault("database.mysql.username", "marcharvest")
	viper.SetDefault("database.mysql.database", "marcharvest")

	viper.SetDefault("harvest.batchsize", DefaultBatchSize)
	viper.SetDefault("harvest.stagingdir", "staging")
	viper.SetDefault("harvest.progressinterval", 5*time.Second)
	viper.SetDefault("harvest.progressevery", 100)

	viper.SetDefault("fetch.timeout", 30*time.Second)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.listen", "127.0.0.1:8080")

	viper.SetDefault("metrics.enabled", true)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topicprefix", "marcharvest")
	viper.SetDefault("mqtt.qos", 1)
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.environment", "production")
}
