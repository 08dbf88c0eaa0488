package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateConfig runs the test in an empty working directory with a fresh viper.
func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	viper.Reset()
	t.Cleanup(viper.Reset)
	return dir
}

func TestLoadCreatesDefaultConfig(t *testing.T) {
	dir := isolateConfig(t)

	settings, err := Load()
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DatabaseSQLite, settings.Database.Type)
	assert.Equal(t, DefaultBatchSize, settings.Harvest.BatchSize)
	assert.Equal(t, 5*time.Second, settings.Harvest.ProgressInterval)
	assert.Equal(t, 200*time.Millisecond, settings.Database.SlowThreshold)
	assert.Equal(t, "info", settings.Logging.DefaultLevel)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
	assert.Same(t, settings, GetSettings())
}

func TestLoadReadsExistingConfig(t *testing.T) {
	dir := isolateConfig(t)

	config := `
database:
  type: mysql
  mysql:
    host: db.internal
    port: 3307
    database: catalog
harvest:
  batchsize: 50
mqtt:
  enabled: true
  broker: tcp://broker:1883
  topicprefix: library
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(config), 0o600))

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DatabaseMySQL, settings.Database.Type)
	assert.Equal(t, "db.internal", settings.Database.MySQL.Host)
	assert.Equal(t, 3307, settings.Database.MySQL.Port)
	assert.Equal(t, 50, settings.Harvest.BatchSize)
	assert.Equal(t, "library", settings.MQTT.TopicPrefix)
	assert.Equal(t, byte(1), settings.MQTT.QoS)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	dir := isolateConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("main:\n  name: test\n"), 0o600))

	t.Setenv("MARCHARVEST_DATABASE_SQLITE_PATH", "/var/lib/marcharvest/records.db")
	t.Setenv("MARCHARVEST_WEBSERVER_LISTEN", "0.0.0.0:9090")

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/marcharvest/records.db", settings.Database.SQLite.Path)
	assert.Equal(t, "0.0.0.0:9090", settings.WebServer.Listen)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	dir := isolateConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("database:\n  type: oracle\n"), 0o600))

	_, err := Load()
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 1)
	assert.Contains(t, ve.Errors[0], "oracle")
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	dir := isolateConfig(t)

	settings, err := Load()
	require.NoError(t, err)

	settings.Harvest.StagingDir = "/srv/staging"
	settings.Sentry.Environment = "staging"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, SaveYAMLConfig(path, settings))

	viper.Reset()
	reloaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/staging", reloaded.Harvest.StagingDir)
	assert.Equal(t, "staging", reloaded.Sentry.Environment)
	assert.Equal(t, settings.Harvest.ProgressInterval, reloaded.Harvest.ProgressInterval)

	leftovers, err := filepath.Glob(filepath.Join(dir, "config-*.yaml"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFindConfigFile(t *testing.T) {
	dir := isolateConfig(t)

	_, err := FindConfigFile()
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{}\n"), 0o600))
	path, err := FindConfigFile()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", filepath.Base(path))
}

func TestLoadResolvesSecrets(t *testing.T) {
	dir := isolateConfig(t)

	secretPath := filepath.Join(dir, "mysql_password")
	require.NoError(t, os.WriteFile(secretPath, []byte("from-file\n"), 0o600))
	t.Setenv("MARCHARVEST_TEST_MQTT_PASSWORD", "from-env")

	config := `
database:
  mysql:
    password: ignored
    passwordfile: ` + secretPath + `
mqtt:
  password: ${MARCHARVEST_TEST_MQTT_PASSWORD}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(config), 0o600))

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", settings.Database.MySQL.Password)
	assert.Equal(t, "from-env", settings.MQTT.Password)
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	dir := isolateConfig(t)
	config := "mqtt:\n  password: ${MARCHARVEST_TEST_UNSET_PASSWORD}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(config), 0o600))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mqtt.password")
}
