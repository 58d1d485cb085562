package validators

import (
	"testing"

	"github.com/stretchr/testify/require"
	pkgerrors "github.com/vtuhub/walletledger/pkg/errors"
)

type sample struct {
	AccountID string `json:"account_id" validate:"required"`
	Product   string `json:"product" validate:"required,oneof=airtime data bill"`
	Email     string `json:"email" validate:"omitempty,email"`
}

func TestStructReportsFieldsByJSONName(t *testing.T) {
	err := Struct(sample{Product: "gift", Email: "nope"})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "is required", details["account_id"])
	require.Equal(t, "must be one of [airtime data bill]", details["product"])
	require.Equal(t, "must be a valid email", details["email"])
}

func TestStructAcceptsValidInput(t *testing.T) {
	require.NoError(t, Struct(sample{AccountID: "acct-1", Product: "data"}))
}

func TestSanitizeString(t *testing.T) {
	require.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	require.Equal(t, "abcdef", SanitizeString("abcdef", 0))
}

type refInput struct {
	Reference string `json:"reference" validate:"omitempty,max=64,refid"`
	Currency  string `json:"currency" validate:"omitempty,len=3"`
}

func TestRefIDAndLengthRules(t *testing.T) {
	require.NoError(t, Struct(refInput{Reference: "VTU-20260301:ab_c.1"}))
	require.NoError(t, Struct(refInput{}))

	err := Struct(refInput{Reference: "has space", Currency: "NAIRA"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details := typed.Details().(map[string]string)
	require.Equal(t, "may contain only letters, digits, and _ . : -", details["reference"])
	require.Equal(t, "must be exactly 3 characters", details["currency"])
	require.Contains(t, typed.Message(), "reference")

	require.Error(t, Struct(refInput{Reference: "-leading-dash"}))
}
