package referrals

import (
	"context"
	"errors"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memReferrers struct {
	values map[string]string
	err    error
}

func (m *memReferrers) Get(_ context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	value, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (m *memReferrers) ReferrerKey(accountID string) string {
	return "wl:referrer:" + accountID
}

func TestRedisReferrersLookup(t *testing.T) {
	store := &memReferrers{values: map[string]string{
		"wl:referrer:acct-1": "acct-ref",
		"wl:referrer:acct-2": "  ",
	}}
	lookup, err := NewRedisReferrers(store)
	require.NoError(t, err)

	referrer, ok, err := lookup.ReferrerOf(context.Background(), "acct-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "acct-ref", referrer)

	_, ok, err = lookup.ReferrerOf(context.Background(), "acct-2")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = lookup.ReferrerOf(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = lookup.ReferrerOf(context.Background(), " ")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisReferrersPropagatesErrors(t *testing.T) {
	lookup, err := NewRedisReferrers(&memReferrers{err: errors.New("down")})
	require.NoError(t, err)

	_, _, err = lookup.ReferrerOf(context.Background(), "acct-1")
	require.EqualError(t, err, "down")

	_, err = NewRedisReferrers(nil)
	require.Error(t, err)
}
