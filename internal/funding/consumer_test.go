package funding

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	pkgerrors "github.com/vtuhub/walletledger/pkg/errors"
)

type fakeProcessor struct {
	events []Event
	result *Result
	err    error
}

func (f *fakeProcessor) Process(_ context.Context, event Event) (*Result, error) {
	f.events = append(f.events, event)
	return f.result, f.err
}

func newTestConsumer(p processor) *Consumer {
	return &Consumer{svc: p, logg: testLogger()}
}

func TestNewConsumerRequiresDependencies(t *testing.T) {
	_, err := NewConsumer(nil, nil, nil)
	require.Error(t, err)
}

func TestHandleDecodesAndAcks(t *testing.T) {
	p := &fakeProcessor{result: &Result{}}
	c := newTestConsumer(p)

	data, err := json.Marshal(map[string]any{
		"provider":              "monnify",
		"transaction_reference": "TX1",
		"account_id":            "A",
		"amount":                "1500.50",
	})
	require.NoError(t, err)

	require.True(t, c.handle(context.Background(), "m1", data))
	require.Len(t, p.events, 1)
	require.Equal(t, "TX1", p.events[0].TransactionReference)
	require.Equal(t, "1500.5", p.events[0].Amount.String())
}

func TestHandleAcksMalformedPayload(t *testing.T) {
	p := &fakeProcessor{}
	c := newTestConsumer(p)

	require.True(t, c.handle(context.Background(), "m2", []byte("{not json")))
	require.Empty(t, p.events)
}

func TestHandleNacksRetryableErrors(t *testing.T) {
	p := &fakeProcessor{err: pkgerrors.New(pkgerrors.CodeLockTimeout, "busy")}
	c := newTestConsumer(p)
	require.False(t, c.handle(context.Background(), "m3", []byte(`{"provider":"x"}`)))

	p.err = pkgerrors.New(pkgerrors.CodeValidation, "bad")
	require.True(t, c.handle(context.Background(), "m4", []byte(`{"provider":"x"}`)))
}

func TestHandleNacksPendingReferral(t *testing.T) {
	p := &fakeProcessor{result: &Result{ReferralPending: true}}
	c := newTestConsumer(p)
	require.False(t, c.handle(context.Background(), "m5", []byte(`{"provider":"x"}`)))

	p.result = &Result{Replayed: true}
	require.True(t, c.handle(context.Background(), "m6", []byte(`{"provider":"x"}`)))
}
