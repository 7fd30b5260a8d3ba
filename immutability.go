package ledger

import "fmt"

// immutabilityEnforcer is C13: the single table of mutation guards spec
// §4.8 lists, consulted by every exposed mutation entry point before a
// write touches storage. Grounded on the teacher's compliance.go rule
// registry, but collapsed to one Go type implementing the original
// Python stack's two-layer ORM-hook plus trigger enforcement
// (original_source/finance_kernel/db/immutability.py) as a single,
// explicit call site per mutation — there is no implicit hook dispatch.
type immutabilityEnforcer struct {
	store *store
}

func newImmutabilityEnforcer(s *store) *immutabilityEnforcer {
	return &immutabilityEnforcer{store: s}
}

// guardEventMutation always rejects: an ingested Event envelope is never
// mutable (I1).
func (e *immutabilityEnforcer) guardEventMutation(id ID) error {
	return newErrDetail(ErrImmutabilityViolation,
		map[string]any{"entity": "event", "id": id.String()},
		"event envelopes are immutable once ingested")
}

// guardJournalEntryMutation allows only the audit-trail fields
// (description, updated_at/updated_by, reconciliation status, which lives
// on the separate Reconciliation record) to change once an entry is
// POSTED or REVERSED (I11).
func (e *immutabilityEnforcer) guardJournalEntryMutation(tx txn, id ID, fields []string) error {
	entry, found, err := e.store.getJournalEntry(tx, id)
	if err != nil {
		return err
	}
	if !found {
		return newErr(ErrValidationFailed, "journal entry %s not found", id)
	}
	if entry.Status == JournalDraft {
		return nil
	}
	for _, f := range fields {
		if !mutableJournalEntryFields[f] {
			return newErrDetail(ErrImmutabilityViolation,
				map[string]any{"entity": "journal_entry", "id": id.String(), "field": f},
				"field %q of a posted journal entry is immutable", f)
		}
	}
	return nil
}

var mutableJournalEntryFields = map[string]bool{
	"description": true,
	"updated_at":  true,
	"updated_by":  true,
}

// guardJournalEntryDelete always rejects deletion of a POSTED or REVERSED
// entry (I11); a DRAFT row may be deleted (spec's supplemented DRAFT
// lifecycle, see DESIGN.md Open Question #3).
func (e *immutabilityEnforcer) guardJournalEntryDelete(tx txn, id ID) error {
	entry, found, err := e.store.getJournalEntry(tx, id)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if entry.Status != JournalDraft {
		return newErrDetail(ErrImmutabilityViolation,
			map[string]any{"entity": "journal_entry", "id": id.String()},
			"posted journal entries cannot be deleted")
	}
	return nil
}

// guardJournalLineMutation always rejects: a line belonging to a POSTED
// entry never changes (I14). Lines of a DRAFT entry's draft are also
// treated as immutable once written — only the Journal Writer produces
// lines, and it never revises one in place.
func (e *immutabilityEnforcer) guardJournalLineMutation(id ID) error {
	return newErrDetail(ErrImmutabilityViolation,
		map[string]any{"entity": "journal_line", "id": id.String()},
		"journal lines are immutable once written")
}

// guardAccountMutation allows name/tags/is_active to change at any time,
// but code/account_type/normal_balance freeze the instant the account is
// referenced by any POSTED line (I2).
func (e *immutabilityEnforcer) guardAccountMutation(tx txn, id ID, fields []string) error {
	structural := false
	for _, f := range fields {
		if !mutableAccountFields[f] {
			structural = true
			break
		}
	}
	if !structural {
		return nil
	}
	referenced, err := e.accountReferencedByPostedLine(tx, id)
	if err != nil {
		return err
	}
	if referenced {
		return newErrDetail(ErrImmutabilityViolation,
			map[string]any{"entity": "account", "id": id.String()},
			"account is referenced by a posted journal line; code/type/normal_balance are frozen")
	}
	return nil
}

var mutableAccountFields = map[string]bool{
	"name":      true,
	"tags":      true,
	"is_active": true,
	"parent_id": true,
}

func (e *immutabilityEnforcer) accountReferencedByPostedLine(tx txn, accountID ID) (bool, error) {
	lines, err := e.store.allPostedLines(tx)
	if err != nil {
		return false, err
	}
	for _, l := range lines {
		if l.AccountID == accountID {
			return true, nil
		}
	}
	return false, nil
}

// guardAccountDelete rejects deletion of an account referenced by any
// posted line, and separately rejects deleting the sole rounding-tagged
// account for its currency bucket (B3, I3): at least one rounding account
// must remain per bucket so the Journal Writer always has somewhere to
// post rounding drift. Deleting one of two rounding accounts in the same
// bucket is accepted.
func (e *immutabilityEnforcer) guardAccountDelete(tx txn, id ID) error {
	referenced, err := e.accountReferencedByPostedLine(tx, id)
	if err != nil {
		return err
	}
	if referenced {
		return newErrDetail(ErrAccountReferenced,
			map[string]any{"entity": "account", "id": id.String()},
			"account is referenced by a posted journal line and cannot be deleted")
	}
	target, found, err := e.store.getAccount(tx, id)
	if err != nil {
		return err
	}
	if found && target.IsActive && target.IsRoundingAccount() {
		sole, err := e.isSoleRoundingAccount(tx, target)
		if err != nil {
			return err
		}
		if sole {
			return newErrDetail(ErrImmutabilityViolation,
				map[string]any{"entity": "account", "id": id.String()},
				"account is the sole rounding account for its currency bucket and cannot be deleted")
		}
	}
	return nil
}

// isSoleRoundingAccount counts active rounding-tagged accounts sharing
// target's currency bucket (nil Currency = the multi-currency bucket),
// the same bucketing pickRoundingAccount uses.
func (e *immutabilityEnforcer) isSoleRoundingAccount(tx txn, target *Account) (bool, error) {
	accounts, err := e.store.allAccounts(tx)
	if err != nil {
		return false, err
	}
	count := 0
	for _, a := range accounts {
		if !a.IsActive || !a.IsRoundingAccount() {
			continue
		}
		if (a.Currency == nil) != (target.Currency == nil) {
			continue
		}
		if a.Currency != nil && *a.Currency != *target.Currency {
			continue
		}
		count++
	}
	return count <= 1, nil
}

// guardPeriodTransition enforces I4's restricted transition set.
func (e *immutabilityEnforcer) guardPeriodTransition(from, to PeriodStatus) error {
	if !CanTransition(from, to) {
		return newErrDetail(ErrImmutabilityViolation,
			map[string]any{"entity": "fiscal_period", "from": from, "to": to},
			"illegal fiscal period transition %s -> %s", from, to)
	}
	return nil
}

// guardPeriodDelete rejects deleting any period that has journal entries,
// open or closed.
func (e *immutabilityEnforcer) guardPeriodDelete(tx txn, periodID ID, period *FiscalPeriod) error {
	entries, err := e.store.allJournalEntries(tx)
	if err != nil {
		return err
	}
	for _, je := range entries {
		if period.Contains(je.EffectiveDate) {
			return newErrDetail(ErrImmutabilityViolation,
				map[string]any{"entity": "fiscal_period", "id": periodID.String()},
				"period %s has journal entries and cannot be deleted", period.PeriodCode)
		}
	}
	return nil
}

// guardDimensionMutation rejects changing a dimension's code once any
// value has been defined for it; is_active remains mutable.
func (e *immutabilityEnforcer) guardDimensionMutation(tx txn, code string, fields []string) error {
	for _, f := range fields {
		if f != "code" {
			continue
		}
		hasValues, err := e.store.dimensionHasValues(tx, code)
		if err != nil {
			return err
		}
		if hasValues {
			return newErrDetail(ErrImmutabilityViolation,
				map[string]any{"entity": "dimension", "code": code},
				"dimension %q has values and its code is frozen", code)
		}
	}
	return nil
}

// guardDimensionValueMutation rejects changing code or dimension_code
// after insert; name remains mutable.
func (e *immutabilityEnforcer) guardDimensionValueMutation(dimensionCode, code string, fields []string) error {
	for _, f := range fields {
		if f == "code" || f == "dimension_code" {
			return newErrDetail(ErrImmutabilityViolation,
				map[string]any{"entity": "dimension_value", "dimension_code": dimensionCode, "code": code, "field": f},
				"field %q of a dimension value is immutable after insert", f)
		}
	}
	return nil
}

// guardExchangeRateMutation always rejects mutation once referenced by a
// journal line (I6); unreferenced rows may still be corrected before use.
func (e *immutabilityEnforcer) guardExchangeRateMutation(tx txn, id ID) error {
	referenced, err := e.exchangeRateReferenced(tx, id)
	if err != nil {
		return err
	}
	if referenced {
		return newErrDetail(ErrExchangeRateImmutable,
			map[string]any{"entity": "exchange_rate", "id": id.String()},
			"exchange rate is referenced by a journal line and is frozen")
	}
	return nil
}

func (e *immutabilityEnforcer) guardExchangeRateDelete(tx txn, id ID) error {
	referenced, err := e.exchangeRateReferenced(tx, id)
	if err != nil {
		return err
	}
	if referenced {
		return newErrDetail(ErrExchangeRateRef,
			map[string]any{"entity": "exchange_rate", "id": id.String()},
			"exchange rate is referenced by a journal line and cannot be deleted")
	}
	return nil
}

func (e *immutabilityEnforcer) exchangeRateReferenced(tx txn, rateID ID) (bool, error) {
	lines, err := e.store.allPostedLines(tx)
	if err != nil {
		return false, err
	}
	for _, l := range lines {
		if l.ExchangeRateID != nil && *l.ExchangeRateID == rateID {
			return true, nil
		}
	}
	return false, nil
}

// guardAuditEventMutation and guardAuditEventDelete always reject: the
// hash chain (I15) depends on every row being permanent.
func (e *immutabilityEnforcer) guardAuditEventMutation(seq int64) error {
	return newErrDetail(ErrImmutabilityViolation,
		map[string]any{"entity": "audit_event", "seq": seq},
		"audit events are never mutable")
}

func (e *immutabilityEnforcer) guardAuditEventDelete(seq int64) error {
	return newErrDetail(ErrImmutabilityViolation,
		map[string]any{"entity": "audit_event", "seq": seq},
		fmt.Sprintf("audit event %d cannot be deleted", seq))
}
