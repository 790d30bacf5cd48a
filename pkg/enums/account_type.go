package enums

import "fmt"

// AccountType identifies what a ledger account holds.
type AccountType string

const (
	AccountTypeWallet     AccountType = "wallet"
	AccountTypeReceivable AccountType = "receivable"
	AccountTypeEscrowHold AccountType = "escrow_hold"
	AccountTypePayable    AccountType = "payable"
	AccountTypeRevenue    AccountType = "revenue"
	AccountTypeCreditLine AccountType = "credit_line"
	AccountTypeSettlement AccountType = "settlement"
)

var validAccountTypes = []AccountType{
	AccountTypeWallet,
	AccountTypeReceivable,
	AccountTypeEscrowHold,
	AccountTypePayable,
	AccountTypeRevenue,
	AccountTypeCreditLine,
	AccountTypeSettlement,
}

// String implements fmt.Stringer.
func (a AccountType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AccountType.
func (a AccountType) IsValid() bool {
	for _, candidate := range validAccountTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// NormalSide returns the entry direction that increases the balance.
// Balances live on the platform's books: money held for merchants and
// suppliers is owed by the platform and therefore credit-normal.
func (a AccountType) NormalSide() EntryDirection {
	switch a {
	case AccountTypeReceivable, AccountTypeSettlement:
		return EntryDirectionDebit
	default:
		return EntryDirectionCredit
	}
}

// AllowsNegative reports whether the balance may drop below zero.
func (a AccountType) AllowsNegative() bool {
	switch a {
	case AccountTypeWallet, AccountTypeEscrowHold:
		return false
	default:
		return true
	}
}

// ParseAccountType converts raw input into an AccountType.
func ParseAccountType(value string) (AccountType, error) {
	for _, candidate := range validAccountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account type %q", value)
}
