package pubsub

import (
	"context"
	"testing"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/stretchr/testify/require"

	"github.com/vtuhub/walletledger/pkg/config"
)

func TestSubscriptionPath(t *testing.T) {
	path, err := subscriptionPath("p1", " funding ")
	require.NoError(t, err)
	require.Equal(t, "projects/p1/subscriptions/funding", path)

	path, err = subscriptionPath("", "projects/other/subscriptions/x")
	require.NoError(t, err)
	require.Equal(t, "projects/other/subscriptions/x", path)

	_, err = subscriptionPath("", "funding")
	require.ErrorIs(t, err, errProjectIDRequired)

	_, err = subscriptionPath("p1", " ")
	require.ErrorIs(t, err, errSubscriptionMissing)
}

func TestReceiveSettingsOverridesDefaults(t *testing.T) {
	settings := receiveSettings(config.PubSubConfig{MaxOutstanding: 25, NumGoroutines: 4})
	require.Equal(t, 25, settings.MaxOutstandingMessages)
	require.Equal(t, 4, settings.NumGoroutines)

	defaults := receiveSettings(config.PubSubConfig{})
	require.Equal(t, pubsub.DefaultReceiveSettings.MaxOutstandingMessages, defaults.MaxOutstandingMessages)
}

func TestNewClientValidatesBeforeDialing(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{FundingSubscription: "funding"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "p1"}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errSubscriptionMissing)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	require.Nil(t, c.FundingSubscription())
	require.NoError(t, c.Close())
	require.ErrorIs(t, c.Ping(context.Background()), errClientClosed)
}
