package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
	"github.com/tphakala/marcharvest/internal/errors"
	"github.com/tphakala/marcharvest/internal/harvest"
	"github.com/tphakala/marcharvest/internal/logger"
)

// Publisher announces harvesting statuses on <prefix>/<source>/status.
type Publisher struct {
	client   Client
	prefix   string
	instance string
	log      logger.Logger
}

// NewPublisher creates a Publisher that sends through client.
func NewPublisher(client Client, prefix, instance string) *Publisher {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &Publisher{
		client:   client,
		prefix:   prefix,
		instance: instance,
		log:      GetLogger(),
	}
}

// Topic returns the status topic of a source.
func (p *Publisher) Topic(sourceCode string) string {
	return p.prefix + "/" + sourceCode + "/status"
}

// PublishStatus connects on demand and publishes status as JSON.
func (p *Publisher) PublishStatus(ctx context.Context, source *entities.Source, status *entities.HarvestingStatus) error {
	if !p.client.IsConnected() {
		if err := p.client.Connect(ctx); err != nil {
			return errors.New(fmt.Errorf("connect: %w", err)).
				Component("mqtt").
				Category(errors.CategoryMQTTConnect).
				Build()
		}
	}

	payload, err := json.Marshal(NewStatusDTO(p.instance, source, status))
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	topic := p.Topic(source.Code)
	if err := p.client.Publish(ctx, topic, payload); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}
	p.log.Debug("harvesting status published",
		logger.String("topic", topic),
		logger.Int64("session_id", status.SessionID))
	return nil
}

// Close disconnects the underlying client.
func (p *Publisher) Close() {
	p.client.Disconnect()
}

var _ harvest.StatusPublisher = (*Publisher)(nil)
