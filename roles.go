package ledger

import "time"

// RoleBinding maps an abstract role (e.g. "CASH") plus ledger and
// effective date to a concrete account (spec §3, §4.10). Bindings are
// stored per (role, ledger_id) as a time-ordered list; at most one may be
// active for any given effective date.
type RoleBinding struct {
	Role          string    `json:"role"`
	LedgerID      string    `json:"ledger_id"`
	AccountID     ID        `json:"account_id"`
	AccountCode   string    `json:"account_code"`
	EffectiveFrom time.Time `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
	IsActive      bool      `json:"is_active"`
}

func (b RoleBinding) covers(d time.Time) bool {
	if !b.IsActive {
		return false
	}
	if d.Before(b.EffectiveFrom) {
		return false
	}
	if b.EffectiveTo != nil && d.After(*b.EffectiveTo) {
		return false
	}
	return true
}

// roleResolver is C7.
type roleResolver struct {
	store *store
}

func newRoleResolver(s *store) *roleResolver {
	return &roleResolver{store: s}
}

// resolve returns the unique active role-binding row covering
// effectiveDate (spec §4.10). Ambiguity (two overlapping active bindings)
// or absence is an unresolved error.
func (r *roleResolver) resolve(tx txn, role, ledgerID string, effectiveDate time.Time) (ID, string, error) {
	bindings, err := r.store.getRoleBindings(tx, role, ledgerID)
	if err != nil {
		return ZeroID, "", err
	}
	var matches []RoleBinding
	for _, b := range bindings {
		if b.covers(effectiveDate) {
			matches = append(matches, b)
		}
	}
	switch len(matches) {
	case 0:
		return ZeroID, "", newErr(ErrRoleUnresolved, "role %q unresolved for ledger %q on %s", role, ledgerID, effectiveDate.Format("2006-01-02"))
	case 1:
		return matches[0].AccountID, matches[0].AccountCode, nil
	default:
		return ZeroID, "", newErr(ErrRoleUnresolved, "role %q ambiguous for ledger %q on %s: %d overlapping bindings", role, ledgerID, effectiveDate.Format("2006-01-02"), len(matches))
	}
}

// bind adds a new role binding. It does not validate against overlapping
// bindings at write time — ambiguity is only a posting-time error per
// spec §4.10, so operators may stage overlapping bindings deliberately
// before deactivating the old one.
func (r *roleResolver) bind(tx txn, b RoleBinding) error {
	existing, err := r.store.getRoleBindings(tx, b.Role, b.LedgerID)
	if err != nil {
		return err
	}
	existing = append(existing, b)
	return r.store.putRoleBindings(tx, b.Role, b.LedgerID, existing)
}
