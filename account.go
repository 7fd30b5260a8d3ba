package ledger

import "time"

// AccountType is a closed variant (spec §9), never extended by
// inheritance.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

func (t AccountType) valid() bool {
	switch t {
	case Asset, Liability, Equity, Revenue, Expense:
		return true
	}
	return false
}

// NormalBalance is the side on which an account's balance normally sits.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "DEBIT"
	NormalCredit NormalBalance = "CREDIT"
)

// RoundingTag marks an account eligible to absorb rounding drift (spec
// I3): "tags" is a generic set, but the rounding tag has first-class
// meaning to the Journal Writer.
const RoundingTag = "rounding"

// Account is a chart-of-accounts node (spec §3). Code, account_type, and
// normal_balance freeze (I2) the instant the account is referenced by any
// POSTED journal line; name/tags/is_active remain mutable for the life of
// the account.
type Account struct {
	ID            ID
	Code          string
	Name          string
	Type          AccountType
	NormalBalance NormalBalance
	IsActive      bool
	Tags          map[string]bool
	ParentID      *ID
	Currency      *Currency // nil = multi-currency bucket
	CreatedAt     time.Time
}

// HasTag reports whether the account carries the given tag.
func (a *Account) HasTag(tag string) bool {
	return a.Tags != nil && a.Tags[tag]
}

// IsRoundingAccount reports whether this account is tagged `rounding`
// (spec I3, §4.3).
func (a *Account) IsRoundingAccount() bool { return a.HasTag(RoundingTag) }

// MatchesCurrency reports whether this account may carry lines in c:
// a nil Currency means the multi-currency bucket, which accepts any
// currency.
func (a *Account) MatchesCurrency(c Currency) bool {
	return a.Currency == nil || *a.Currency == c
}

func validateNewAccount(a *Account) error {
	if a.Code == "" {
		return newErr(ErrValidationFailed, "account code is required")
	}
	if !a.Type.valid() {
		return newErr(ErrValidationFailed, "invalid account type %q", a.Type)
	}
	if a.NormalBalance != NormalDebit && a.NormalBalance != NormalCredit {
		return newErr(ErrValidationFailed, "invalid normal balance %q", a.NormalBalance)
	}
	if a.Currency != nil && !IsValidCurrency(*a.Currency) {
		return newErr(ErrCurrencyInvalid, "unknown currency %q", *a.Currency)
	}
	return nil
}
