// Package telemetry initializes Sentry error reporting for the errors package.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/marcharvest/internal/buildinfo"
	"github.com/tphakala/marcharvest/internal/conf"
	"github.com/tphakala/marcharvest/internal/errors"
	"github.com/tphakala/marcharvest/internal/logger"
)

// DefaultFlushTimeout bounds the wait for queued events on shutdown.
const DefaultFlushTimeout = 2 * time.Second

// GetLogger returns the telemetry module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// InitSentry initializes the Sentry SDK and installs the reporter used by
// errors.ErrorBuilder.Build. It does nothing when telemetry is disabled.
func InitSentry(settings *conf.Settings, build *buildinfo.Context) error {
	return initSentry(settings, build, nil)
}

func initSentry(settings *conf.Settings, build *buildinfo.Context, transport sentry.Transport) error {
	if !settings.Sentry.Enabled {
		errors.SetTelemetryReporter(nil)
		return nil
	}
	if settings.Sentry.DSN == "" {
		return fmt.Errorf("sentry is enabled but no dsn is configured")
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:        settings.Sentry.DSN,
		SampleRate: 1.0,

		// Privacy-compliant settings
		AttachStacktrace: false,
		Environment:      settings.Sentry.Environment,
		ServerName:       "",

		Release:   build.Release(),
		Transport: transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("instance", settings.Main.Name)
		scope.SetTag("database", settings.Database.Type)
	})

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))

	GetLogger().Info("error telemetry enabled",
		logger.String("environment", settings.Sentry.Environment),
		logger.String("release", build.Release()))
	return nil
}

// applyPrivacyFilters applies privacy filters to a Sentry event
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}

// Flush waits for queued events to be delivered.
func Flush(timeout time.Duration) {
	if errors.GetTelemetryReporter() == nil {
		return
	}
	if !sentry.Flush(timeout) {
		GetLogger().Warn("telemetry flush timed out", logger.Duration("timeout", timeout))
	}
}
