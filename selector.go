package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"
)

// TrialBalanceRow is one (account, currency) aggregate row (spec §4.9).
type TrialBalanceRow struct {
	AccountID   ID
	AccountCode string
	Currency    Currency
	DebitTotal  Decimal
	CreditTotal Decimal
}

// selectorFilter narrows a read to an as-of date and/or a single currency;
// zero values mean "unfiltered".
type selectorFilter struct {
	AsOf     *time.Time
	Currency *Currency
}

// ledgerSelector is C14: every ledger read here (trial balance, account
// balance, totals, canonical hash) filters status=POSTED, StaleDrafts is
// the one read of DRAFT entries, and nothing here writes. Grounded on the teacher's query_api.go read-model
// shape, rebuilt against JournalLine/JournalEntry instead of the
// teacher's Entry/Amount types.
type ledgerSelector struct {
	store *store
}

func newLedgerSelector(s *store) *ledgerSelector {
	return &ledgerSelector{store: s}
}

type postedLineView struct {
	line      *JournalLine
	entrySeq  int64
	accountCode string
}

func (sel *ledgerSelector) postedLines(tx txn, f selectorFilter) ([]postedLineView, error) {
	entries, err := sel.store.allJournalEntries(tx)
	if err != nil {
		return nil, err
	}
	entrySeqByID := make(map[ID]int64, len(entries))
	entryEligible := make(map[ID]bool, len(entries))
	for _, e := range entries {
		entrySeqByID[e.ID] = e.Seq
		eligible := e.Status == JournalPosted
		if eligible && f.AsOf != nil {
			eligible = !e.EffectiveDate.After(*f.AsOf)
		}
		entryEligible[e.ID] = eligible
	}

	accounts, err := sel.store.allAccounts(tx)
	if err != nil {
		return nil, err
	}
	codeByID := make(map[ID]string, len(accounts))
	for _, a := range accounts {
		codeByID[a.ID] = a.Code
	}

	lines, err := sel.store.allPostedLines(tx)
	if err != nil {
		return nil, err
	}
	var out []postedLineView
	for _, l := range lines {
		if !entryEligible[l.JournalEntryID] {
			continue
		}
		if f.Currency != nil && l.Currency != *f.Currency {
			continue
		}
		out = append(out, postedLineView{line: l, entrySeq: entrySeqByID[l.JournalEntryID], accountCode: codeByID[l.AccountID]})
	}
	return out, nil
}

// TrialBalance implements spec §4.9's trial_balance query.
func (sel *ledgerSelector) TrialBalance(tx txn, f selectorFilter) ([]TrialBalanceRow, error) {
	views, err := sel.postedLines(tx, f)
	if err != nil {
		return nil, err
	}
	type key struct {
		account  ID
		currency Currency
	}
	totals := map[key]*TrialBalanceRow{}
	for _, v := range views {
		k := key{v.line.AccountID, v.line.Currency}
		row, ok := totals[k]
		if !ok {
			row = &TrialBalanceRow{AccountID: v.line.AccountID, AccountCode: v.accountCode, Currency: v.line.Currency}
			totals[k] = row
		}
		if v.line.Side == Debit {
			row.DebitTotal = row.DebitTotal.Add(v.line.Amount)
		} else {
			row.CreditTotal = row.CreditTotal.Add(v.line.Amount)
		}
	}
	rows := make([]TrialBalanceRow, 0, len(totals))
	for _, row := range totals {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AccountCode != rows[j].AccountCode {
			return rows[i].AccountCode < rows[j].AccountCode
		}
		return rows[i].Currency < rows[j].Currency
	})
	return rows, nil
}

// AccountBalance restricts TrialBalance to one account.
func (sel *ledgerSelector) AccountBalance(tx txn, accountID ID, f selectorFilter) ([]TrialBalanceRow, error) {
	rows, err := sel.TrialBalance(tx, f)
	if err != nil {
		return nil, err
	}
	var out []TrialBalanceRow
	for _, r := range rows {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out, nil
}

// TotalDebitsCredits is the aggregate double-entry check (I16).
func (sel *ledgerSelector) TotalDebitsCredits(tx txn, f selectorFilter) (Decimal, Decimal, error) {
	rows, err := sel.TrialBalance(tx, f)
	if err != nil {
		return Decimal{}, Decimal{}, err
	}
	debit, credit := Zero(), Zero()
	for _, r := range rows {
		debit = debit.Add(r.DebitTotal)
		credit = credit.Add(r.CreditTotal)
	}
	return debit, credit, nil
}

// CanonicalHash implements spec §4.9's canonical hash algorithm exactly:
// build a record per line, canonicalize dimensions and amount, sort by
// (account_id, currency, canonical-dimensions, entry_seq, line_seq), then
// feed each record's canonical JSON plus a trailing newline into one
// SHA-256 digest (I17: independent of insertion order, map order,
// formatting).
func (sel *ledgerSelector) CanonicalHash(tx txn, f selectorFilter) (string, error) {
	views, err := sel.postedLines(tx, f)
	if err != nil {
		return "", err
	}

	type record struct {
		accountID  string
		currency   string
		dimensions string
		entrySeq   int64
		lineSeq    int
		payload    map[string]any
	}
	records := make([]record, 0, len(views))
	for _, v := range views {
		l := v.line
		dimJSON, err := CanonicalJSON(l.Dimensions)
		if err != nil {
			return "", err
		}
		records = append(records, record{
			accountID:  l.AccountID.String(),
			currency:   string(l.Currency),
			dimensions: string(dimJSON),
			entrySeq:   v.entrySeq,
			lineSeq:    l.LineSeq,
			payload: map[string]any{
				"account_id":  l.AccountID.String(),
				"currency":    string(l.Currency),
				"dimensions":  l.Dimensions,
				"entry_seq":   v.entrySeq,
				"line_seq":    l.LineSeq,
				"side":        string(l.Side),
				"amount":      l.Amount.String(),
				"is_rounding": l.IsRounding,
			},
		})
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.accountID != b.accountID {
			return a.accountID < b.accountID
		}
		if a.currency != b.currency {
			return a.currency < b.currency
		}
		if a.dimensions != b.dimensions {
			return a.dimensions < b.dimensions
		}
		if a.entrySeq != b.entrySeq {
			return a.entrySeq < b.entrySeq
		}
		return a.lineSeq < b.lineSeq
	})

	h := sha256.New()
	for _, r := range records {
		canonical, err := CanonicalJSON(r.payload)
		if err != nil {
			return "", err
		}
		h.Write(canonical)
		h.Write([]byte("\n"))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// StaleDrafts resolves Open Question #3: DRAFT journal entries are never
// auto-deleted, but can be enumerated by age for an operator or
// maintenance job to act on.
func (sel *ledgerSelector) StaleDrafts(tx txn, olderThan time.Time) ([]*JournalEntry, error) {
	entries, err := sel.store.allJournalEntries(tx)
	if err != nil {
		return nil, err
	}
	var out []*JournalEntry
	for _, e := range entries {
		if e.Status == JournalDraft && e.OccurredAt.Before(olderThan) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}
