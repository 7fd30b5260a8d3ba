package ledger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

// txn is the caller's flush-boundary scope (spec §5/§9): every
// persistence side effect produced inside one posting shares this single
// *bbolt.Tx, and a returned error rolls all of them back atomically.
type txn = *bbolt.Tx

// Bucket names, generalized from the teacher's storage.go bucket-per-entity
// layout, extended with the tables spec.md §6 requires.
var (
	bucketEvents                 = []byte("events")
	bucketAccounts               = []byte("accounts")
	bucketFiscalPeriods          = []byte("fiscal_periods")
	bucketDimensions             = []byte("dimensions")
	bucketDimensionValues        = []byte("dimension_values")
	bucketExchangeRates          = []byte("exchange_rates")
	bucketJournalEntries         = []byte("journal_entries")
	bucketJournalEntriesByIdemK  = []byte("journal_entries_by_idempotency_key")
	bucketJournalEntriesBySeq    = []byte("journal_entries_by_seq")
	bucketJournalLines           = []byte("journal_lines")
	bucketAuditEvents            = []byte("audit_events")
	bucketSequenceCounters       = []byte("sequence_counters")
	bucketEconomicEvents         = []byte("economic_events")
	bucketInterpretationOutcomes = []byte("interpretation_outcomes")
	bucketReferenceSnapshots     = []byte("reference_snapshots")
	bucketRoleBindings           = []byte("role_bindings")
	bucketPolicyRegistry         = []byte("policy_registry")
	bucketReconciliations        = []byte("reconciliations")
)

var allBuckets = [][]byte{
	bucketEvents, bucketAccounts, bucketFiscalPeriods, bucketDimensions,
	bucketDimensionValues, bucketExchangeRates, bucketJournalEntries,
	bucketJournalEntriesByIdemK, bucketJournalEntriesBySeq, bucketJournalLines,
	bucketAuditEvents, bucketSequenceCounters, bucketEconomicEvents,
	bucketInterpretationOutcomes, bucketReferenceSnapshots, bucketRoleBindings,
	bucketPolicyRegistry, bucketReconciliations,
}

// store is the bbolt-backed persistence layer shared by every component.
// Generalized from the teacher's Storage type; protobuf marshaling is
// replaced throughout by plain JSON (see DESIGN.md's protobuf note).
type store struct {
	db *bbolt.DB
}

func openStore(path string) (*store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("ledger: open storage: %w", err)
	}
	s := &store{db: db}
	if err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *store) Close() error { return s.db.Close() }

func (s *store) update(fn func(tx txn) error) error { return s.db.Update(fn) }
func (s *store) view(fn func(tx txn) error) error   { return s.db.View(fn) }

func putJSON(tx txn, bucket, key []byte, v any) error {
	b := tx.Bucket(bucket)
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", bucket, err)
	}
	return b.Put(key, data)
}

func getJSON(tx txn, bucket, key []byte, v any) (bool, error) {
	b := tx.Bucket(bucket)
	data := b.Get(key)
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", bucket, err)
	}
	return true, nil
}

func idKey(id ID) []byte { return []byte(id.String()) }

func seqKey(seq int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(seq))
	return b
}

// --- Events (C8) ---

func (s *store) getEvent(tx txn, id ID) (*Event, bool, error) {
	var e Event
	ok, err := getJSON(tx, bucketEvents, idKey(id), &e)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &e, true, nil
}

func (s *store) putEvent(tx txn, e *Event) error {
	return putJSON(tx, bucketEvents, idKey(e.ID), e)
}

// --- Accounts ---

func (s *store) getAccount(tx txn, id ID) (*Account, bool, error) {
	var a Account
	ok, err := getJSON(tx, bucketAccounts, idKey(id), &a)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &a, true, nil
}

func (s *store) putAccount(tx txn, a *Account) error {
	return putJSON(tx, bucketAccounts, idKey(a.ID), a)
}

func (s *store) deleteAccount(tx txn, id ID) error {
	return tx.Bucket(bucketAccounts).Delete(idKey(id))
}

func (s *store) findAccountByCode(tx txn, code string) (*Account, bool, error) {
	var found *Account
	err := tx.Bucket(bucketAccounts).ForEach(func(k, v []byte) error {
		var a Account
		if err := json.Unmarshal(v, &a); err != nil {
			return err
		}
		if a.Code == code {
			found = &a
		}
		return nil
	})
	return found, found != nil, err
}

func (s *store) allAccounts(tx txn) ([]*Account, error) {
	var out []*Account
	err := tx.Bucket(bucketAccounts).ForEach(func(k, v []byte) error {
		var a Account
		if err := json.Unmarshal(v, &a); err != nil {
			return err
		}
		out = append(out, &a)
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, err
}

// --- Fiscal periods ---

func (s *store) putPeriod(tx txn, p *FiscalPeriod) error {
	return putJSON(tx, bucketFiscalPeriods, idKey(p.ID), p)
}

func (s *store) getPeriod(tx txn, id ID) (*FiscalPeriod, bool, error) {
	var p FiscalPeriod
	ok, err := getJSON(tx, bucketFiscalPeriods, idKey(id), &p)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &p, true, nil
}

func (s *store) findPeriodByCode(tx txn, code string) (*FiscalPeriod, bool, error) {
	var found *FiscalPeriod
	err := tx.Bucket(bucketFiscalPeriods).ForEach(func(k, v []byte) error {
		var p FiscalPeriod
		if err := json.Unmarshal(v, &p); err != nil {
			return err
		}
		if p.PeriodCode == code {
			found = &p
		}
		return nil
	})
	return found, found != nil, err
}

func (s *store) findPeriodForDate(tx txn, d time.Time) (*FiscalPeriod, bool, error) {
	var found *FiscalPeriod
	err := tx.Bucket(bucketFiscalPeriods).ForEach(func(k, v []byte) error {
		var p FiscalPeriod
		if err := json.Unmarshal(v, &p); err != nil {
			return err
		}
		if p.Contains(d) {
			found = &p
		}
		return nil
	})
	return found, found != nil, err
}

func (s *store) allPeriods(tx txn) ([]*FiscalPeriod, error) {
	var out []*FiscalPeriod
	err := tx.Bucket(bucketFiscalPeriods).ForEach(func(k, v []byte) error {
		var p FiscalPeriod
		if err := json.Unmarshal(v, &p); err != nil {
			return err
		}
		out = append(out, &p)
		return nil
	})
	return out, err
}

// --- Dimensions ---

func (s *store) putDimension(tx txn, d *Dimension) error {
	return putJSON(tx, bucketDimensions, []byte(d.Code), d)
}

func (s *store) getDimension(tx txn, code string) (*Dimension, bool, error) {
	var d Dimension
	ok, err := getJSON(tx, bucketDimensions, []byte(code), &d)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &d, true, nil
}

func (s *store) deleteDimension(tx txn, code string) error {
	return tx.Bucket(bucketDimensions).Delete([]byte(code))
}

func dimValueKey(dimensionCode, code string) []byte {
	return []byte(dimensionCode + "\x00" + code)
}

func (s *store) putDimensionValue(tx txn, v *DimensionValue) error {
	return putJSON(tx, bucketDimensionValues, dimValueKey(v.DimensionCode, v.Code), v)
}

func (s *store) getDimensionValue(tx txn, dimensionCode, code string) (*DimensionValue, bool, error) {
	var v DimensionValue
	ok, err := getJSON(tx, bucketDimensionValues, dimValueKey(dimensionCode, code), &v)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &v, true, nil
}

func (s *store) dimensionHasValues(tx txn, dimensionCode string) (bool, error) {
	found := false
	prefix := []byte(dimensionCode + "\x00")
	c := tx.Bucket(bucketDimensionValues).Cursor()
	for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
		found = true
		break
	}
	return found, nil
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

// --- Exchange rates ---

func (s *store) putExchangeRate(tx txn, r *ExchangeRate) error {
	return putJSON(tx, bucketExchangeRates, idKey(r.ID), r)
}

func (s *store) getExchangeRate(tx txn, id ID) (*ExchangeRate, bool, error) {
	var r ExchangeRate
	ok, err := getJSON(tx, bucketExchangeRates, idKey(id), &r)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &r, true, nil
}

func (s *store) allExchangeRates(tx txn) ([]*ExchangeRate, error) {
	var out []*ExchangeRate
	err := tx.Bucket(bucketExchangeRates).ForEach(func(k, v []byte) error {
		var r ExchangeRate
		if err := json.Unmarshal(v, &r); err != nil {
			return err
		}
		out = append(out, &r)
		return nil
	})
	return out, err
}

// --- Journal entries & lines ---

func (s *store) putJournalEntry(tx txn, e *JournalEntry) error {
	if err := putJSON(tx, bucketJournalEntries, idKey(e.ID), e); err != nil {
		return err
	}
	if e.IdempotencyKey != "" {
		if err := tx.Bucket(bucketJournalEntriesByIdemK).Put([]byte(e.IdempotencyKey), idKey(e.ID)); err != nil {
			return err
		}
	}
	if e.Status == JournalPosted {
		if err := tx.Bucket(bucketJournalEntriesBySeq).Put(seqKey(e.Seq), idKey(e.ID)); err != nil {
			return err
		}
	}
	return nil
}

func (s *store) getJournalEntry(tx txn, id ID) (*JournalEntry, bool, error) {
	var e JournalEntry
	ok, err := getJSON(tx, bucketJournalEntries, idKey(id), &e)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &e, true, nil
}

func (s *store) findJournalEntryByIdempotencyKey(tx txn, key string) (*JournalEntry, bool, error) {
	idBytes := tx.Bucket(bucketJournalEntriesByIdemK).Get([]byte(key))
	if idBytes == nil {
		return nil, false, nil
	}
	id, err := parseID(string(idBytes))
	if err != nil {
		return nil, false, err
	}
	return s.getJournalEntry(tx, id)
}

func (s *store) putJournalLine(tx txn, l *JournalLine) error {
	return putJSON(tx, bucketJournalLines, journalLineKey(l.JournalEntryID, l.LineSeq), l)
}

func journalLineKey(entryID ID, lineSeq int) []byte {
	return []byte(fmt.Sprintf("%s\x00%06d", entryID.String(), lineSeq))
}

func (s *store) linesForEntry(tx txn, entryID ID) ([]*JournalLine, error) {
	var out []*JournalLine
	prefix := []byte(entryID.String() + "\x00")
	c := tx.Bucket(bucketJournalLines).Cursor()
	for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
		var l JournalLine
		if err := json.Unmarshal(v, &l); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, nil
}

func (s *store) allPostedLines(tx txn) ([]*JournalLine, error) {
	var out []*JournalLine
	err := tx.Bucket(bucketJournalLines).ForEach(func(k, v []byte) error {
		var l JournalLine
		if err := json.Unmarshal(v, &l); err != nil {
			return err
		}
		out = append(out, &l)
		return nil
	})
	return out, err
}

func (s *store) allJournalEntries(tx txn) ([]*JournalEntry, error) {
	var out []*JournalEntry
	err := tx.Bucket(bucketJournalEntries).ForEach(func(k, v []byte) error {
		var e JournalEntry
		if err := json.Unmarshal(v, &e); err != nil {
			return err
		}
		out = append(out, &e)
		return nil
	})
	return out, err
}

func (s *store) allEconomicEvents(tx txn) ([]*EconomicEvent, error) {
	var out []*EconomicEvent
	err := tx.Bucket(bucketEconomicEvents).ForEach(func(k, v []byte) error {
		var e EconomicEvent
		if err := json.Unmarshal(v, &e); err != nil {
			return err
		}
		out = append(out, &e)
		return nil
	})
	return out, err
}

// --- Audit events ---

func (s *store) putAuditEvent(tx txn, a *AuditEvent) error {
	return putJSON(tx, bucketAuditEvents, seqKey(a.Seq), a)
}

func (s *store) getAuditEventBySeq(tx txn, seq int64) (*AuditEvent, bool, error) {
	var a AuditEvent
	ok, err := getJSON(tx, bucketAuditEvents, seqKey(seq), &a)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &a, true, nil
}

func (s *store) allAuditEvents(tx txn) ([]*AuditEvent, error) {
	var out []*AuditEvent
	c := tx.Bucket(bucketAuditEvents).Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var a AuditEvent
		if err := json.Unmarshal(v, &a); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, nil
}

// --- Sequence counters (C3) ---

func (s *store) nextSequence(tx txn, name string) (int64, error) {
	b := tx.Bucket(bucketSequenceCounters)
	data := b.Get([]byte(name))
	var current int64
	if data != nil {
		if err := json.Unmarshal(data, &current); err != nil {
			return 0, fmt.Errorf("sequence %s: %w", name, err)
		}
	}
	current++
	out, err := json.Marshal(current)
	if err != nil {
		return 0, err
	}
	if err := b.Put([]byte(name), out); err != nil {
		return 0, err
	}
	return current, nil
}

func (s *store) currentSequence(tx txn, name string) (int64, bool, error) {
	b := tx.Bucket(bucketSequenceCounters)
	data := b.Get([]byte(name))
	if data == nil {
		return 0, false, nil
	}
	var current int64
	if err := json.Unmarshal(data, &current); err != nil {
		return 0, false, err
	}
	return current, true, nil
}

// --- Economic events / outcomes (C11) ---

func (s *store) putEconomicEvent(tx txn, e *EconomicEvent) error {
	return putJSON(tx, bucketEconomicEvents, idKey(e.ID), e)
}

func (s *store) putOutcome(tx txn, o *InterpretationOutcome) error {
	return putJSON(tx, bucketInterpretationOutcomes, idKey(o.ID), o)
}

func (s *store) saveOutcome(tx txn, o *InterpretationOutcome) error {
	return s.putOutcome(tx, o)
}

// --- Reference snapshots (C5) ---

func (s *store) putSnapshot(tx txn, snap *ReferenceSnapshot) error {
	return putJSON(tx, bucketReferenceSnapshots, idKey(snap.ID), snap)
}

func (s *store) getSnapshot(tx txn, id ID) (*ReferenceSnapshot, bool, error) {
	var snap ReferenceSnapshot
	ok, err := getJSON(tx, bucketReferenceSnapshots, idKey(id), &snap)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &snap, true, nil
}

// --- Role bindings (C7) ---

func roleBindingsKey(role, ledgerID string) []byte {
	return []byte(role + "\x00" + ledgerID)
}

func (s *store) putRoleBindings(tx txn, role, ledgerID string, bindings []RoleBinding) error {
	return putJSON(tx, bucketRoleBindings, roleBindingsKey(role, ledgerID), bindings)
}

func (s *store) getRoleBindings(tx txn, role, ledgerID string) ([]RoleBinding, error) {
	var bindings []RoleBinding
	_, err := getJSON(tx, bucketRoleBindings, roleBindingsKey(role, ledgerID), &bindings)
	return bindings, err
}

func (s *store) allRoleBindingKeys(tx txn) ([][]RoleBinding, error) {
	var out [][]RoleBinding
	err := tx.Bucket(bucketRoleBindings).ForEach(func(k, v []byte) error {
		var bindings []RoleBinding
		if err := json.Unmarshal(v, &bindings); err != nil {
			return err
		}
		out = append(out, bindings)
		return nil
	})
	return out, err
}

// --- Policy registry (C9) ---

func (s *store) putPolicy(tx txn, p *PostingProfile) error {
	return putJSON(tx, bucketPolicyRegistry, []byte(p.EventType), p)
}

func (s *store) getPolicy(tx txn, eventType string) (*PostingProfile, bool, error) {
	var p PostingProfile
	ok, err := getJSON(tx, bucketPolicyRegistry, []byte(eventType), &p)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &p, true, nil
}

func (s *store) allPolicies(tx txn) ([]*PostingProfile, error) {
	var out []*PostingProfile
	err := tx.Bucket(bucketPolicyRegistry).ForEach(func(k, v []byte) error {
		var p PostingProfile
		if err := json.Unmarshal(v, &p); err != nil {
			return err
		}
		out = append(out, &p)
		return nil
	})
	return out, err
}

// --- Reconciliations ---

func (s *store) putReconciliation(tx txn, r *Reconciliation) error {
	return putJSON(tx, bucketReconciliations, idKey(r.ID), r)
}

func (s *store) getReconciliation(tx txn, id ID) (*Reconciliation, bool, error) {
	var r Reconciliation
	ok, err := getJSON(tx, bucketReconciliations, idKey(id), &r)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &r, true, nil
}

func (s *store) allReconciliations(tx txn) ([]*Reconciliation, error) {
	var out []*Reconciliation
	err := tx.Bucket(bucketReconciliations).ForEach(func(k, v []byte) error {
		var r Reconciliation
		if err := json.Unmarshal(v, &r); err != nil {
			return err
		}
		out = append(out, &r)
		return nil
	})
	return out, err
}

func parseID(s string) (ID, error) {
	return parseUUID(s)
}
