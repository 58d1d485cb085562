package vtpass

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/vtuhub/walletledger/internal/fulfillment"
	"github.com/vtuhub/walletledger/pkg/enums"
	"github.com/vtuhub/walletledger/pkg/types"
)

const successCode = "000"

var (
	successStates = map[string]struct{}{"delivered": {}, "successful": {}, "success": {}, "completed": {}}
	pendingStates = map[string]struct{}{"pending": {}, "processing": {}, "initiated": {}}
)

// Normalize maps a decoded VTpass response to a fulfillment result. States are
// matched as whole words so "unsuccessful" is not read as success.
func Normalize(payload map[string]any) fulfillment.Result {
	code := strings.ToLower(stringField(payload, "code"))
	description := strings.TrimSpace(firstNonEmpty(
		stringField(payload, "response_description"),
		stringField(payload, "message"),
	))
	content := mapField(payload, "content")
	transactions := mapField(content, "transactions")

	providerRef := firstNonEmpty(
		stringField(payload, "requestId"),
		stringField(transactions, "transactionId"),
		stringField(content, "transactionId"),
	)

	hint := strings.ToLower(firstNonEmpty(
		stringField(transactions, "status"),
		stringField(content, "status"),
		description,
	))

	status := enums.FulfillmentStatusFailed
	switch {
	case code == successCode || hasState(hint, successStates):
		status = enums.FulfillmentStatusSuccess
	case hasState(hint, pendingStates):
		status = enums.FulfillmentStatusPending
	}

	if description == "" {
		description = "Provider request processed"
	}
	return fulfillment.NewResult(status, providerRef, description, types.JSONMap(payload))
}

func hasState(hint string, states map[string]struct{}) bool {
	words := strings.FieldsFunc(hint, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, word := range words {
		if _, ok := states[word]; ok {
			return true
		}
	}
	return false
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", v), "0"), ".")
	default:
		return fmt.Sprint(v)
	}
}

func mapField(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	nested, _ := m[key].(map[string]any)
	return nested
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
