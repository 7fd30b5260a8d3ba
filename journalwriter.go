package ledger

import (
	"fmt"
	"sort"
	"time"
)

// journalWriter is C10: turns a balanced AccountingIntent into one POSTED
// JournalEntry per ledger, plus its lines. Grounded on the teacher's
// posting_engine.go (PostTransaction: resolve accounts, validate balance,
// assign sequence, persist), generalized to role-based account
// resolution, period-eligibility gating, and HALF-UP synthetic rounding
// lines spec §4.3 adds on top of the teacher's flow.
type journalWriter struct {
	store   *store
	roles   *roleResolver
	seq     *sequenceAllocator
	auditor *auditor
	clock   Clock
}

func newJournalWriter(s *store, roles *roleResolver, seq *sequenceAllocator, au *auditor, clock Clock) *journalWriter {
	return &journalWriter{store: s, roles: roles, seq: seq, auditor: au, clock: clock}
}

// writeRequest bundles the inputs the coordinator has already gathered.
type writeRequest struct {
	Event          *Event
	Intent         *AccountingIntent
	Snapshot       *ReferenceSnapshot
	ActorID        string
	IsAdjustment   bool
	CloseRunID     string
}

// write posts every ledger intent in req.Intent as its own JournalEntry,
// returning the posted entries in AccountingIntent order. If any ledger
// intent fails, the error is returned and nothing already written in this
// call survives — the caller's transaction rolls back as a whole (C12
// never commits or rolls back itself).
func (w *journalWriter) write(tx txn, req *writeRequest) ([]*JournalEntry, error) {
	if err := req.Intent.ValidateBalance(); err != nil {
		return nil, err
	}

	var posted []*JournalEntry
	for _, li := range req.Intent.LedgerIntents {
		entry, err := w.writeLedgerIntent(tx, req, li)
		if err != nil {
			return nil, err
		}
		posted = append(posted, entry)
	}
	return posted, nil
}

func (w *journalWriter) writeLedgerIntent(tx txn, req *writeRequest, li LedgerIntent) (*JournalEntry, error) {
	idemKey := req.Event.IdempotencyKey() + ":" + li.LedgerID

	if existing, found, err := w.store.findJournalEntryByIdempotencyKey(tx, idemKey); err != nil {
		return nil, err
	} else if found {
		return nil, newErrDetail(ErrAlreadyPosted,
			map[string]any{"journal_entry_id": existing.ID.String(), "seq": existing.Seq},
			"journal entry already posted for idempotency key %q", idemKey)
	}

	period, found, err := w.store.findPeriodForDate(tx, req.Intent.EffectiveDate)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, newErr(ErrPeriodNotFound, "no fiscal period covers %s", req.Intent.EffectiveDate.Format("2006-01-02"))
	}
	if err := postingEligibility(period, req.IsAdjustment, req.CloseRunID); err != nil {
		return nil, err
	}

	resolved, roles, err := w.resolveLines(tx, li, req.Intent.EffectiveDate)
	if err != nil {
		return nil, err
	}
	resolved, roles, err = w.applyRounding(tx, li.LedgerID, resolved, roles)
	if err != nil {
		return nil, err
	}
	orderLines(resolved, roles)

	seq, err := w.seq.next(tx, SeqJournalEntry)
	if err != nil {
		return nil, fmt.Errorf("journal writer: allocate seq: %w", err)
	}

	now := w.clock.Now()
	entry := &JournalEntry{
		ID:                       NewID(),
		LedgerID:                 li.LedgerID,
		SourceEventID:            req.Event.ID,
		SourceEventType:          req.Event.EventType,
		OccurredAt:               req.Event.OccurredAt,
		EffectiveDate:            req.Intent.EffectiveDate,
		PostedAt:                 now,
		ActorID:                  req.ActorID,
		Status:                   JournalPosted,
		IdempotencyKey:           idemKey,
		PostingRuleVersion:       req.Intent.ProfileVersion,
		COASnapshotVersion:       req.Snapshot.Components[ComponentCOA].Version,
		DimensionSnapshotVersion: req.Snapshot.Components[ComponentDimensionSchema].Version,
		CurrencySnapshotVersion:  req.Snapshot.Components[ComponentRoundingPolicy].Version,
		FXSnapshotVersion:        req.Snapshot.Components[ComponentFXRates].Version,
		SnapshotID:               req.Snapshot.ID,
		Seq:                      seq,
		UpdatedAt:                now,
		UpdatedBy:                req.ActorID,
	}

	for i, l := range resolved {
		l.ID = NewID()
		l.JournalEntryID = entry.ID
		l.LineSeq = i
		if err := w.store.putJournalLine(tx, l); err != nil {
			return nil, fmt.Errorf("journal writer: persist line: %w", err)
		}
	}
	if err := w.store.putJournalEntry(tx, entry); err != nil {
		return nil, fmt.Errorf("journal writer: persist entry: %w", err)
	}

	if _, err := w.auditor.append(tx, "POSTING", map[string]any{
		"journal_entry_id": entry.ID.String(),
		"ledger_id":        li.LedgerID,
		"seq":              seq,
		"source_event_id":  req.Event.ID.String(),
	}, req.ActorID); err != nil {
		return nil, fmt.Errorf("journal writer: audit: %w", err)
	}

	return entry, nil
}

// resolveLines maps each role-based IntentLine to a concrete account,
// checking it is active and currency-compatible (spec §4.3 step 2). It
// returns the resolved lines alongside their source roles in the same
// order — roles drive the line_seq ordering (§4.3 step 5) but are not
// part of JournalLine's persisted schema, so they travel as a parallel
// slice rather than a field.
func (w *journalWriter) resolveLines(tx txn, li LedgerIntent, effectiveDate time.Time) ([]*JournalLine, []string, error) {
	lines := make([]*JournalLine, 0, len(li.Lines))
	roles := make([]string, 0, len(li.Lines))
	for _, il := range li.Lines {
		accountID, accountCode, err := w.roles.resolve(tx, il.Role, li.LedgerID, effectiveDate)
		if err != nil {
			return nil, nil, err
		}
		account, found, err := w.store.getAccount(tx, accountID)
		if err != nil {
			return nil, nil, err
		}
		if !found {
			return nil, nil, newErr(ErrRoleUnresolved, "role %q resolved to unknown account %s", il.Role, accountCode)
		}
		if !account.IsActive {
			return nil, nil, newErr(ErrAccountInactive, "account %s is inactive", account.Code)
		}
		if !account.MatchesCurrency(il.Currency) {
			return nil, nil, newErr(ErrCurrencyInvalid, "account %s cannot carry currency %s", account.Code, il.Currency)
		}
		decimals, ok := CurrencyDecimals(il.Currency)
		if !ok {
			return nil, nil, newErr(ErrCurrencyInvalid, "unknown currency %q", il.Currency)
		}
		lines = append(lines, &JournalLine{
			AccountID:  accountID,
			Side:       il.Side,
			Amount:     il.Amount.RoundHalfUp(decimals),
			Currency:   il.Currency,
			Dimensions: il.Dimensions.Clone(),
			LineMemo:   il.Memo,
		})
		roles = append(roles, il.Role)
	}
	return lines, roles, nil
}

// applyRounding absorbs per-currency rounding drift left over after each
// line was rounded to its currency's decimal places (spec I3, §4.3 step
// 4): for every currency whose debits and credits no longer net to zero,
// a synthetic line posts the residual to that currency's rounding
// account, determined deterministically by pickRoundingAccount. The
// synthetic line has no role of its own; it carries the empty string so
// orderLines still places it last.
func (w *journalWriter) applyRounding(tx txn, ledgerID string, lines []*JournalLine, roles []string) ([]*JournalLine, []string, error) {
	type net struct{ debit, credit Decimal }
	totals := map[Currency]net{}
	for _, l := range lines {
		n := totals[l.Currency]
		if l.Side == Debit {
			n.debit = n.debit.Add(l.Amount)
		} else {
			n.credit = n.credit.Add(l.Amount)
		}
		totals[l.Currency] = n
	}

	var currencies []Currency
	for c := range totals {
		currencies = append(currencies, c)
	}
	sortCurrencies(currencies)

	var accounts []*Account
	for _, ccy := range currencies {
		n := totals[ccy]
		diff := n.debit.Sub(n.credit)
		if diff.IsZero() {
			continue
		}
		tol, ok := CurrencyTolerance(ccy)
		if !ok {
			return nil, nil, newErr(ErrCurrencyInvalid, "unknown currency %q", ccy)
		}
		if diff.Abs().Cmp(tol) > 0 {
			return nil, nil, newErr(ErrUnbalanced,
				"ledger %s currency %s: post-rounding residual %s exceeds tolerance %s",
				ledgerID, ccy, diff.String(), tol.String())
		}
		if accounts == nil {
			var err error
			accounts, err = w.store.allAccounts(tx)
			if err != nil {
				return nil, nil, err
			}
		}
		roundingAccount, ok := pickRoundingAccount(accounts, ccy)
		if !ok {
			return nil, nil, newErr(ErrValidationFailed, "no rounding account configured for currency %s", ccy)
		}
		side := Credit
		amount := diff
		if diff.IsNegative() {
			side = Debit
			amount = diff.Neg()
		}
		lines = append(lines, &JournalLine{
			AccountID:  roundingAccount.ID,
			Side:       side,
			Amount:     amount,
			Currency:   ccy,
			IsRounding: true,
			LineMemo:   "rounding adjustment",
		})
		roles = append(roles, "")
	}
	return lines, roles, nil
}

// orderLines imposes the deterministic line_seq ordering spec §4.3 step 5
// requires: (role, currency, side) ascending, then amount descending,
// with any rounding line always last. roles is the parallel slice
// resolveLines/applyRounding produced; line_seq itself is assigned by the
// caller after this sort.
func orderLines(lines []*JournalLine, roles []string) {
	idx := make([]int, len(lines))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := lines[idx[i]], lines[idx[j]]
		ra, rb := roles[idx[i]], roles[idx[j]]
		if a.IsRounding != b.IsRounding {
			return !a.IsRounding
		}
		if ra != rb {
			return ra < rb
		}
		if a.Currency != b.Currency {
			return a.Currency < b.Currency
		}
		if a.Side != b.Side {
			return a.Side == Debit
		}
		return a.Amount.Cmp(b.Amount) > 0
	})
	sorted := make([]*JournalLine, len(lines))
	for i, j := range idx {
		sorted[i] = lines[j]
	}
	copy(lines, sorted)
}
