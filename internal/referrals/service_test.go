package referrals

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vtuhub/walletledger/internal/ledger"
	"github.com/vtuhub/walletledger/pkg/db/models"
	"github.com/vtuhub/walletledger/pkg/enums"
	"github.com/vtuhub/walletledger/pkg/logger"
)

type fakeLedger struct {
	inputs []ledger.PostingInput
	err    error
}

func (f *fakeLedger) Credit(_ context.Context, input ledger.PostingInput) (*models.LedgerEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, input)
	return &models.LedgerEntry{
		Reference: input.Reference,
		AccountID: input.AccountID,
		TxType:    input.TxType,
		Direction: enums.DirectionCredit,
		Amount:    input.Amount,
		Status:    enums.EntryStatusSuccess,
	}, nil
}

func newService(t *testing.T, fake *fakeLedger, referrer string) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Ledger: fake,
		Referrers: ReferrerLookupFunc(func(_ context.Context, accountID string) (string, bool, error) {
			if referrer == "" {
				return "", false, nil
			}
			return referrer, true, nil
		}),
		Percent:    decimal.RequireFromString("1.5"),
		MinFunding: decimal.RequireFromString("1000.00"),
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc
}

func TestNewServiceValidates(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)

	_, err = NewService(ServiceParams{
		Ledger:    &fakeLedger{},
		Referrers: ReferrerLookupFunc(func(context.Context, string) (string, bool, error) { return "", false, nil }),
		Percent:   decimal.NewFromInt(-1),
		Logger:    logger.New(logger.Options{Output: io.Discard}),
	})
	require.Error(t, err)
}

func TestApplyBonusPostsReferralCredit(t *testing.T) {
	fake := &fakeLedger{}
	svc := newService(t, fake, "")

	entry, err := svc.ApplyBonus(context.Background(), "REFERRER", "MONNIFY_TX1", decimal.RequireFromString("2000.00"))
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Len(t, fake.inputs, 1)

	input := fake.inputs[0]
	require.Equal(t, "REF-MONNIFY_TX1", input.Reference)
	require.Equal(t, enums.TxTypeReferralBonus, input.TxType)
	require.True(t, input.Amount.Equal(decimal.RequireFromString("30.00")))
	require.Equal(t, "MONNIFY_TX1", input.Metadata["source_reference"])
}

func TestApplyBonusRoundsToZero(t *testing.T) {
	fake := &fakeLedger{}
	svc := newService(t, fake, "")

	entry, err := svc.ApplyBonus(context.Background(), "REFERRER", "TX", decimal.RequireFromString("0.20"))
	require.NoError(t, err)
	require.Nil(t, entry)
	require.Empty(t, fake.inputs)
}

func TestOnFundingHonoursMinimumAndReferrer(t *testing.T) {
	ctx := context.Background()

	fake := &fakeLedger{}
	svc := newService(t, fake, "REFERRER")
	entry, err := svc.OnFunding(ctx, "REFEREE", "TX-SMALL", decimal.RequireFromString("999.99"))
	require.NoError(t, err)
	require.Nil(t, entry)

	entry, err = svc.OnFunding(ctx, "REFEREE", "TX-BIG", decimal.RequireFromString("1000.00"))
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, "REFERRER", entry.AccountID)
	require.True(t, entry.Amount.Equal(decimal.RequireFromString("15.00")))

	none := newService(t, &fakeLedger{}, "")
	entry, err = none.OnFunding(ctx, "REFEREE", "TX-BIG", decimal.RequireFromString("5000"))
	require.NoError(t, err)
	require.Nil(t, entry)

	self := newService(t, &fakeLedger{}, "REFEREE")
	entry, err = self.OnFunding(ctx, "REFEREE", "TX-SELF", decimal.RequireFromString("5000"))
	require.NoError(t, err)
	require.Nil(t, entry)
}

func TestApplyBonusPropagatesLedgerErrors(t *testing.T) {
	boom := errors.New("boom")
	svc := newService(t, &fakeLedger{err: boom}, "")
	_, err := svc.ApplyBonus(context.Background(), "R", "TX", decimal.NewFromInt(5000))
	require.ErrorIs(t, err, boom)
}
