// Package app wires configuration, logging, telemetry, the record store and
// the harvest services for the command line.
package app

import (
	"fmt"

	"github.com/tphakala/marcharvest/internal/buildinfo"
	"github.com/tphakala/marcharvest/internal/conf"
	"github.com/tphakala/marcharvest/internal/datastore"
	"github.com/tphakala/marcharvest/internal/fetch"
	"github.com/tphakala/marcharvest/internal/harvest"
	"github.com/tphakala/marcharvest/internal/logger"
	"github.com/tphakala/marcharvest/internal/mqtt"
	"github.com/tphakala/marcharvest/internal/observability"
	"github.com/tphakala/marcharvest/internal/telemetry"
)

// Context carries the process-wide state shared by commands.
type Context struct {
	Build    *buildinfo.Context
	Settings *conf.Settings

	central *logger.CentralLogger
}

// NewContext creates a Context. Settings stay nil until Setup.
func NewContext(build *buildinfo.Context) *Context {
	return &Context{Build: build}
}

// Setup loads configuration and installs the central logger and error
// telemetry.
func (c *Context) Setup() error {
	settings, err := conf.Load()
	if err != nil {
		return err
	}

	if settings.Main.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)
	c.central = central

	if err := telemetry.InitSentry(settings, c.Build); err != nil {
		return err
	}

	c.Settings = settings
	return nil
}

// Teardown flushes telemetry and log files. It is safe to call more than once.
func (c *Context) Teardown() {
	telemetry.Flush(telemetry.DefaultFlushTimeout)
	if c.central != nil {
		if err := c.central.Close(); err != nil {
			fmt.Printf("error closing log files: %v\n", err)
		}
		c.central = nil
	}
}

// Open builds the services for the loaded settings.
func (c *Context) Open() (*App, error) {
	if c.Settings == nil {
		return nil, fmt.Errorf("configuration is not loaded")
	}
	return Open(c.Settings)
}

// App holds the opened record store and the services built on it.
type App struct {
	Settings  *conf.Settings
	Store     datastore.Manager
	Metrics   *observability.Metrics
	Fetcher   *fetch.Fetcher
	Driver    *harvest.Driver
	Inspector *harvest.Inspector

	publisher *mqtt.Publisher
}

// Open opens the record store and builds the harvest services. Status
// publication is wired when MQTT is enabled.
func Open(settings *conf.Settings) (*App, error) {
	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}

	store, err := datastore.Open(&settings.Database)
	if err != nil {
		return nil, err
	}

	a := &App{
		Settings: settings,
		Store:    store,
		Metrics:  m,
		Fetcher:  fetch.New(fetch.ConfigFromSettings(settings)),
	}

	opts := []harvest.Option{harvest.WithMetrics(m.Harvest)}
	if settings.MQTT.Enabled {
		client := mqtt.NewClient(mqtt.ConfigFromSettings(settings), m.MQTT)
		a.publisher = mqtt.NewPublisher(client, settings.MQTT.TopicPrefix, settings.Main.Name)
		opts = append(opts, harvest.WithPublisher(a.publisher))
	}

	a.Driver = harvest.NewDriver(store.DB(), a.Fetcher, HarvestConfig(settings), opts...)
	a.Inspector = harvest.NewInspector(a.Fetcher, m.Harvest)
	return a, nil
}

// HarvestConfig maps settings onto harvest.Config.
func HarvestConfig(settings *conf.Settings) harvest.Config {
	return harvest.Config{
		BatchSize:        settings.Harvest.BatchSize,
		ProgressEvery:    settings.Harvest.ProgressEvery,
		ProgressInterval: settings.Harvest.ProgressInterval,
	}
}

// Publishing reports whether finished runs are published over MQTT.
func (a *App) Publishing() bool {
	return a.publisher != nil
}

// Close disconnects the publisher and closes the record store.
func (a *App) Close() error {
	if a.publisher != nil {
		a.publisher.Close()
	}
	return a.Store.Close()
}
