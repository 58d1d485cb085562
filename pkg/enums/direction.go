package enums

import "fmt"

// Direction carries the balance effect of a ledger entry. Amounts are always positive.
type Direction string

const (
	DirectionCredit Direction = "CREDIT"
	DirectionDebit  Direction = "DEBIT"
)

var validDirections = []Direction{
	DirectionCredit,
	DirectionDebit,
}

// String implements fmt.Stringer.
func (d Direction) String() string {
	return string(d)
}

// IsValid reports whether the value matches a known direction.
func (d Direction) IsValid() bool {
	for _, candidate := range validDirections {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDirection converts raw input into Direction.
func ParseDirection(value string) (Direction, error) {
	for _, candidate := range validDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid direction %q", value)
}
