package enums

import "fmt"

// EntryDirection is the side of a ledger entry.
type EntryDirection string

const (
	EntryDirectionDebit  EntryDirection = "debit"
	EntryDirectionCredit EntryDirection = "credit"
)

// IsValid reports whether the value is debit or credit.
func (d EntryDirection) IsValid() bool {
	return d == EntryDirectionDebit || d == EntryDirectionCredit
}

// ParseEntryDirection converts raw input into an EntryDirection.
func ParseEntryDirection(value string) (EntryDirection, error) {
	switch EntryDirection(value) {
	case EntryDirectionDebit, EntryDirectionCredit:
		return EntryDirection(value), nil
	}
	return "", fmt.Errorf("invalid entry direction %q", value)
}
