// Package mqtt publishes harvesting statuses to an MQTT broker.
package mqtt

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/marcharvest/internal/conf"
	"github.com/tphakala/marcharvest/internal/logger"
)

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	Connect(ctx context.Context) error

	// Publish sends payload to topic using the configured QoS and retain flag.
	Publish(ctx context.Context, topic string, payload []byte) error

	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string // statuses go to <prefix>/<source>/status
	QoS         byte
	Retain      bool

	ReconnectCooldown    time.Duration
	MaxReconnectInterval time.Duration
	// Connection timeouts
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "marcharvest"

// GetLogger returns the mqtt module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("mqtt")
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		TopicPrefix:          DefaultTopicPrefix,
		ReconnectCooldown:    5 * time.Second,
		MaxReconnectInterval: 5 * time.Minute,
		ConnectTimeout:       30 * time.Second,
		PublishTimeout:       10 * time.Second,
		DisconnectTimeout:    250 * time.Millisecond,
	}
}

// ConfigFromSettings builds a Config from application settings. An empty
// client id is generated from the instance name.
func ConfigFromSettings(s *conf.Settings) Config {
	cfg := DefaultConfig()
	cfg.Broker = s.MQTT.Broker
	cfg.ClientID = s.MQTT.ClientID
	cfg.Username = s.MQTT.Username
	cfg.Password = s.MQTT.Password
	cfg.QoS = s.MQTT.QoS
	cfg.Retain = s.MQTT.Retain
	if s.MQTT.TopicPrefix != "" {
		cfg.TopicPrefix = s.MQTT.TopicPrefix
	}
	if cfg.ClientID == "" {
		name := s.Main.Name
		if name == "" {
			name = DefaultTopicPrefix
		}
		cfg.ClientID = name + "-" + uuid.NewString()[:8]
	}
	return cfg
}
