package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/marcharvest/internal/datastore/entities"
	"github.com/tphakala/marcharvest/internal/errors"
)

// MockClient mocks Client for publisher tests
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Connect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockClient) Publish(ctx context.Context, topic string, payload []byte) error {
	return m.Called(ctx, topic, payload).Error(0)
}

func (m *MockClient) IsConnected() bool {
	return m.Called().Bool(0)
}

func (m *MockClient) Disconnect() {
	m.Called()
}

func testStatus() (*entities.Source, *entities.HarvestingStatus) {
	source := &entities.Source{ID: 3, Code: "nlr", Name: "National library"}
	status := &entities.HarvestingStatus{
		SourceID:     3,
		RunID:        "6f1c1b7e-0000-4000-8000-000000000000",
		CreatedAt:    time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		SessionID:    1714550400,
		Created:      2,
		Updated:      1,
		Deleted:      4,
		Processed:    3,
		TotalRecords: 4,
		Error:        true,
		Message:      "a.iso: not exists",
	}
	return source, status
}

func TestPublishStatus(t *testing.T) {
	t.Parallel()

	source, status := testStatus()
	c := &MockClient{}
	c.On("IsConnected").Return(true)

	var payload []byte
	c.On("Publish", mock.Anything, "harvest/nlr/status", mock.Anything).
		Run(func(args mock.Arguments) { payload = args.Get(2).([]byte) }).
		Return(nil)

	p := NewPublisher(c, "/harvest/", "node-1")
	require.NoError(t, p.PublishStatus(context.Background(), source, status))
	c.AssertExpectations(t)
	c.AssertNotCalled(t, "Connect", mock.Anything)

	var got map[string]any
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "node-1", got["instance"])
	assert.Equal(t, "nlr", got["source"])
	assert.Equal(t, "National library", got["source_name"])
	assert.Equal(t, "2024-05-01T08:00:00Z", got["finished_at"])
	assert.InDelta(t, 1714550400, got["session_id"], 0)
	assert.InDelta(t, 75, got["percent"], 0)
	assert.InDelta(t, 4, got["deleted"], 0)
	assert.Equal(t, true, got["error"])
	assert.Equal(t, "a.iso: not exists", got["message"])
}

func TestPublishStatusConnectsOnDemand(t *testing.T) {
	t.Parallel()

	source, status := testStatus()
	c := &MockClient{}
	c.On("IsConnected").Return(false)
	c.On("Connect", mock.Anything).Return(nil)
	c.On("Publish", mock.Anything, DefaultTopicPrefix+"/nlr/status", mock.Anything).Return(nil)

	p := NewPublisher(c, "", "")
	require.NoError(t, p.PublishStatus(context.Background(), source, status))
	c.AssertExpectations(t)
}

func TestPublishStatusErrors(t *testing.T) {
	t.Parallel()

	source, status := testStatus()
	errBroker := errors.NewStd("broker unavailable")

	t.Run("connect fails", func(t *testing.T) {
		t.Parallel()
		c := &MockClient{}
		c.On("IsConnected").Return(false)
		c.On("Connect", mock.Anything).Return(errBroker)

		err := NewPublisher(c, "", "").PublishStatus(context.Background(), source, status)
		require.ErrorIs(t, err, errBroker)
		assert.True(t, errors.IsCategory(err, errors.CategoryMQTTConnect))
		c.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("publish fails", func(t *testing.T) {
		t.Parallel()
		c := &MockClient{}
		c.On("IsConnected").Return(true)
		c.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errBroker)

		err := NewPublisher(c, "", "").PublishStatus(context.Background(), source, status)
		require.ErrorIs(t, err, errBroker)
		assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPublish))
	})
}

func TestPublisherClose(t *testing.T) {
	t.Parallel()

	c := &MockClient{}
	c.On("Disconnect").Return()
	NewPublisher(c, "", "").Close()
	c.AssertCalled(t, "Disconnect")
}
