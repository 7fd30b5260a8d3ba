package ledger

import (
	"encoding/json"
	"fmt"
	"sort"
)

// SnapshotComponent enumerates the reference-data components a
// ReferenceSnapshot can capture (spec §3/§4.2).
type SnapshotComponent string

const (
	ComponentCOA             SnapshotComponent = "chart_of_accounts"
	ComponentDimensionSchema SnapshotComponent = "dimension_schema"
	ComponentFXRates         SnapshotComponent = "fx_rates"
	ComponentRoundingPolicy  SnapshotComponent = "rounding_policy"
	ComponentTaxRules        SnapshotComponent = "tax_rules"
	ComponentPolicyRegistry  SnapshotComponent = "policy_registry"
	ComponentAccountRoleBind SnapshotComponent = "account_role_bindings"
)

// AllSnapshotComponents is the default capture request: every component.
var AllSnapshotComponents = []SnapshotComponent{
	ComponentCOA, ComponentDimensionSchema, ComponentFXRates,
	ComponentRoundingPolicy, ComponentTaxRules, ComponentPolicyRegistry,
	ComponentAccountRoleBind,
}

// referenceDataLoader is C4: read-only snapshot reads of the reference
// data every interpretation needs. Grounded on the teacher's
// bucket-per-entity reads in storage.go, generalized into one cohesive
// read path so C5 can hash each component's contents.
type referenceDataLoader struct {
	store *store
}

func newReferenceDataLoader(s *store) *referenceDataLoader {
	return &referenceDataLoader{store: s}
}

// componentContent returns the canonicalizable, ordered contents of one
// reference-data component, for C5 to hash.
func (l *referenceDataLoader) componentContent(tx txn, c SnapshotComponent) (any, int, error) {
	switch c {
	case ComponentCOA:
		accounts, err := l.store.allAccounts(tx) // already sorted by code
		if err != nil {
			return nil, 0, err
		}
		return accounts, len(accounts), nil

	case ComponentDimensionSchema:
		dims, err := l.allDimensions(tx)
		if err != nil {
			return nil, 0, err
		}
		return dims, len(dims), nil

	case ComponentFXRates:
		rates, err := l.store.allExchangeRates(tx)
		if err != nil {
			return nil, 0, err
		}
		sort.Slice(rates, func(i, j int) bool {
			if rates[i].FromCurrency != rates[j].FromCurrency {
				return rates[i].FromCurrency < rates[j].FromCurrency
			}
			if rates[i].ToCurrency != rates[j].ToCurrency {
				return rates[i].ToCurrency < rates[j].ToCurrency
			}
			return rates[i].EffectiveAt.Before(rates[j].EffectiveAt)
		})
		return rates, len(rates), nil

	case ComponentRoundingPolicy:
		type roundingRow struct {
			Currency  Currency `json:"currency"`
			Decimals  int      `json:"decimals"`
			Tolerance string   `json:"tolerance"`
		}
		var rows []roundingRow
		for _, cur := range RegisteredCurrencies() {
			dec, _ := CurrencyDecimals(cur)
			tol, _ := CurrencyTolerance(cur)
			rows = append(rows, roundingRow{Currency: cur, Decimals: dec, Tolerance: tol.String()})
		}
		if err := assertUniqueRoundingAccounts(tx, l.store); err != nil {
			return nil, 0, err
		}
		return rows, len(rows), nil

	case ComponentTaxRules:
		// Tax rule computation is explicitly out of scope (spec §1); the
		// core only needs a stable, hashable placeholder so a snapshot's
		// tax_rules component is still content-addressed and driftable.
		return map[string]any{"rules": []any{}}, 0, nil

	case ComponentPolicyRegistry:
		policies, err := l.store.allPolicies(tx)
		if err != nil {
			return nil, 0, err
		}
		sort.Slice(policies, func(i, j int) bool { return policies[i].EventType < policies[j].EventType })
		return policies, len(policies), nil

	case ComponentAccountRoleBind:
		bindings, err := l.store.allRoleBindingKeys(tx)
		if err != nil {
			return nil, 0, err
		}
		return bindings, len(bindings), nil

	default:
		return nil, 0, fmt.Errorf("unknown snapshot component %q", c)
	}
}

func (l *referenceDataLoader) allDimensions(tx txn) ([]*Dimension, error) {
	var out []*Dimension
	err := tx.Bucket(bucketDimensions).ForEach(func(k, v []byte) error {
		var d Dimension
		if err := json.Unmarshal(v, &d); err != nil {
			return err
		}
		out = append(out, &d)
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, err
}

// assertUniqueRoundingAccounts resolves Open Question #1: among active
// `rounding`-tagged accounts sharing a currency (or the multi-currency
// bucket), the lowest code wins deterministically; a genuine tie (two
// accounts with the same code, which should be structurally impossible
// since code is unique) fails snapshot capture rather than silently
// picking one.
func assertUniqueRoundingAccounts(tx txn, s *store) error {
	accounts, err := s.allAccounts(tx)
	if err != nil {
		return err
	}
	byBucket := map[string][]*Account{}
	for _, a := range accounts {
		if !a.IsActive || !a.IsRoundingAccount() {
			continue
		}
		key := "multi"
		if a.Currency != nil {
			key = string(*a.Currency)
		}
		byBucket[key] = append(byBucket[key], a)
	}
	for key, accts := range byBucket {
		sort.Slice(accts, func(i, j int) bool { return accts[i].Code < accts[j].Code })
		if len(accts) >= 2 && accts[0].Code == accts[1].Code {
			return newErr(ErrValidationFailed, "duplicate rounding account code %q for bucket %s", accts[0].Code, key)
		}
	}
	return nil
}

// pickRoundingAccount returns the deterministic rounding account for a
// currency: the active, rounding-tagged account with the lowest code
// matching that currency, falling back to the multi-currency bucket.
func pickRoundingAccount(accounts []*Account, currency Currency) (*Account, bool) {
	var candidates []*Account
	for _, a := range accounts {
		if a.IsActive && a.IsRoundingAccount() && a.Currency != nil && *a.Currency == currency {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		for _, a := range accounts {
			if a.IsActive && a.IsRoundingAccount() && a.Currency == nil {
				candidates = append(candidates, a)
			}
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Code < candidates[j].Code })
	return candidates[0], true
}
