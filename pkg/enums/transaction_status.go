package enums

import "fmt"

// TransactionStatus tracks whether a posted transaction has been compensated.
type TransactionStatus string

const (
	TransactionStatusPosted TransactionStatus = "posted"
	TransactionStatusVoided TransactionStatus = "voided"
)

// IsValid reports whether the value is a known TransactionStatus.
func (s TransactionStatus) IsValid() bool {
	return s == TransactionStatusPosted || s == TransactionStatusVoided
}

// ParseTransactionStatus converts raw input into a TransactionStatus.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	switch TransactionStatus(value) {
	case TransactionStatusPosted, TransactionStatusVoided:
		return TransactionStatus(value), nil
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}
