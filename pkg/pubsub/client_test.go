package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strikeground/strikeground-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	require.Equal(t, "projects/sg-prod/topics/sg-ticket-events", TopicResourceName("sg-prod", "sg-ticket-events"))
	require.Equal(t, "projects/other/topics/t", TopicResourceName("sg-prod", " projects/other/topics/t "))
	require.Empty(t, TopicResourceName("", "sg-ticket-events"))
	require.Empty(t, TopicResourceName("sg-prod", "  "))
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{TicketsTopic: "t"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errNoTopic)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	require.Nil(t, c.Publisher("t"))
	require.NoError(t, c.Close())
	require.Error(t, c.Ping(context.Background()))
}
