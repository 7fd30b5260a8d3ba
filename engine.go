package ledger

import (
	"fmt"
	"io"
)

// Config configures a new Engine. Only DBPath is required; everything
// else defaults to production-sensible values, matching the teacher's
// constructor-with-defaults style rather than a functional-options API.
type Config struct {
	// DBPath is the bbolt database file path.
	DBPath string
	// Clock, if nil, defaults to SystemClock{}.
	Clock Clock
	// LogWriter, if nil, defaults to os.Stdout. Pass io.Discard in tests.
	LogWriter io.Writer
}

// Engine is the assembled core: every component wired over one shared
// store, matching the single bbolt.DB the caller opens once per worker
// (spec §5's "each worker owns one database session"). Engine exposes no
// implicit transaction — every mutating call takes the caller's tx, or
// (for Post) opens exactly one db.Update closure itself since posting is
// the one operation whose entire side-effect set the spec defines as a
// single unit.
type Engine struct {
	store *store
	clock Clock
	log   logger

	loader       *referenceDataLoader
	snapshots    *snapshotService
	seq          *sequenceAllocator
	auditor      *auditor
	roles        *roleResolver
	ingestor     *eventIngestor
	meaning      *meaningBuilder
	writer       *journalWriter
	outcomes     *outcomeRecorder
	coordinator  *coordinator
	selector     *ledgerSelector
	reconciler   *reconciliationService
	immutability *immutabilityEnforcer
}

// Open creates or opens the bbolt database at cfg.DBPath and wires every
// component over it.
func Open(cfg Config) (*Engine, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("ledger: Config.DBPath is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	log := newLogger(cfg.LogWriter)

	s, err := openStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	loader := newReferenceDataLoader(s)
	seq := newSequenceAllocator(s)
	auditor := newAuditor(s, seq, clock, log)
	roles := newRoleResolver(s)
	snapshots := newSnapshotService(s, loader, clock)
	ingestor := newEventIngestor(s, clock)
	meaning := newMeaningBuilder()
	writer := newJournalWriter(s, roles, seq, auditor, clock)
	outcomes := newOutcomeRecorder(s, clock)
	coord := newCoordinator(snapshots, ingestor, meaning, writer, outcomes, s, log)
	selector := newLedgerSelector(s)
	reconciler := newReconciliationService(s, selector, clock)
	immutability := newImmutabilityEnforcer(s)

	return &Engine{
		store: s, clock: clock, log: log,
		loader: loader, snapshots: snapshots, seq: seq, auditor: auditor,
		roles: roles, ingestor: ingestor, meaning: meaning, writer: writer,
		outcomes: outcomes, coordinator: coord, selector: selector,
		reconciler: reconciler, immutability: immutability,
	}, nil
}

// Close releases the underlying database handle.
func (e *Engine) Close() error { return e.store.Close() }

// Post runs InterpretAndPost inside exactly one bbolt.Update closure: the
// transaction boundary spec §5 requires, where a returned error rolls
// back every side effect atomically and the core itself never calls
// commit or rollback beyond that single closure return.
func (e *Engine) Post(req *PostRequest) (*PostResult, error) {
	var result *PostResult
	err := e.store.update(func(tx txn) error {
		r, err := e.coordinator.InterpretAndPost(tx, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// View runs a read-only query against a consistent snapshot of the
// store. Selector, reconciliation-summary, and audit-chain-validation
// reads all go through this.
func (e *Engine) View(fn func(tx txn) error) error { return e.store.view(fn) }

// Update exposes the raw transaction boundary administrative operations
// compose against — every governed mutation still goes through a typed
// Engine method (UpdateAccount, UpdateDimension, CorrectExchangeRate,
// etc. below) that consults its guard* method before writing; Update
// itself performs no write.
func (e *Engine) Update(fn func(tx txn) error) error { return e.store.update(fn) }

// Selector returns the read-only query surface (C14).
func (e *Engine) Selector() *ledgerSelector { return e.selector }

// Reconciliation returns the reconciliation surface.
func (e *Engine) Reconciliation() *reconciliationService { return e.reconciler }

// Snapshots returns the reference snapshot surface (C5).
func (e *Engine) Snapshots() *snapshotService { return e.snapshots }

// Roles returns the role resolver/binder surface (C7).
func (e *Engine) Roles() *roleResolver { return e.roles }

// Immutability returns the mutation-guard surface (C13), consulted by
// administrative mutation entry points before any write to a governed
// entity.
func (e *Engine) Immutability() *immutabilityEnforcer { return e.immutability }

// Auditor exposes append/validateChain for administrative tooling.
func (e *Engine) Auditor() *auditor { return e.auditor }

// RegisterPostingProfile installs or replaces a declarative posting
// profile in the policy registry (C9's profile lookup table).
func (e *Engine) RegisterPostingProfile(tx txn, profile *PostingProfile) error {
	return e.store.putPolicy(tx, profile)
}

// CreateAccount validates and inserts a new chart-of-accounts node. Code
// must be unique across the chart (spec §3's account identity), checked
// here since storage itself is keyed by id, not code.
func (e *Engine) CreateAccount(tx txn, a *Account) error {
	if err := validateNewAccount(a); err != nil {
		return err
	}
	if _, found, err := e.store.findAccountByCode(tx, a.Code); err != nil {
		return err
	} else if found {
		return newErr(ErrValidationFailed, "account code %q already in use", a.Code)
	}
	if a.ID == ZeroID {
		a.ID = NewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = e.clock.Now()
	}
	return e.store.putAccount(tx, a)
}

// CreateFiscalPeriod validates and inserts a new fiscal period.
func (e *Engine) CreateFiscalPeriod(tx txn, p *FiscalPeriod) error {
	if err := validateNewPeriod(p); err != nil {
		return err
	}
	if p.ID == ZeroID {
		p.ID = NewID()
	}
	if p.Status == "" {
		p.Status = PeriodOpen
	}
	return e.store.putPeriod(tx, p)
}

// TransitionPeriod moves a fiscal period to a new status, enforcing I4
// via the Immutability Enforcer before writing.
func (e *Engine) TransitionPeriod(tx txn, periodID ID, to PeriodStatus, closedBy string) error {
	period, found, err := e.store.getPeriod(tx, periodID)
	if err != nil {
		return err
	}
	if !found {
		return newErr(ErrPeriodNotFound, "period %s not found", periodID)
	}
	if err := e.immutability.guardPeriodTransition(period.Status, to); err != nil {
		return err
	}
	period.Status = to
	if to == PeriodClosed || to == PeriodLocked {
		now := e.clock.Now()
		period.ClosedAt = &now
		period.ClosedBy = closedBy
	}
	return e.store.putPeriod(tx, period)
}

// BindRole installs a new role binding (C7).
func (e *Engine) BindRole(tx txn, b RoleBinding) error {
	return e.roles.bind(tx, b)
}

// CreateExchangeRate validates and inserts a new FX quote.
func (e *Engine) CreateExchangeRate(tx txn, r *ExchangeRate) error {
	if err := validateNewExchangeRate(r); err != nil {
		return err
	}
	if r.ID == ZeroID {
		r.ID = NewID()
	}
	return e.store.putExchangeRate(tx, r)
}

// AccountChanges carries the fields a caller wants to change on an
// existing Account; a nil field means "leave unchanged". UpdateAccount
// derives the touched-field list from which pointers are set and runs it
// past guardAccountMutation before writing.
type AccountChanges struct {
	Name          *string
	Tags          map[string]bool
	IsActive      *bool
	ParentID      *ID
	Code          *string
	Type          *AccountType
	NormalBalance *NormalBalance
}

// UpdateAccount applies changes to an existing account, rejecting any
// structural field (code/type/normal_balance) once the account has been
// referenced by a posted line (I2). This is the reachable application
// path for guardAccountMutation — CreateAccount only guards the insert.
func (e *Engine) UpdateAccount(tx txn, id ID, changes AccountChanges) error {
	var fields []string
	if changes.Name != nil {
		fields = append(fields, "name")
	}
	if changes.Tags != nil {
		fields = append(fields, "tags")
	}
	if changes.IsActive != nil {
		fields = append(fields, "is_active")
	}
	if changes.ParentID != nil {
		fields = append(fields, "parent_id")
	}
	if changes.Code != nil {
		fields = append(fields, "code")
	}
	if changes.Type != nil {
		fields = append(fields, "type")
	}
	if changes.NormalBalance != nil {
		fields = append(fields, "normal_balance")
	}
	if len(fields) == 0 {
		return nil
	}
	if err := e.immutability.guardAccountMutation(tx, id, fields); err != nil {
		return err
	}
	account, found, err := e.store.getAccount(tx, id)
	if err != nil {
		return err
	}
	if !found {
		return newErr(ErrValidationFailed, "account %s not found", id)
	}
	if changes.Code != nil && *changes.Code != account.Code {
		if _, found, err := e.store.findAccountByCode(tx, *changes.Code); err != nil {
			return err
		} else if found {
			return newErr(ErrValidationFailed, "account code %q already in use", *changes.Code)
		}
		account.Code = *changes.Code
	}
	if changes.Name != nil {
		account.Name = *changes.Name
	}
	if changes.Tags != nil {
		account.Tags = changes.Tags
	}
	if changes.IsActive != nil {
		account.IsActive = *changes.IsActive
	}
	if changes.ParentID != nil {
		account.ParentID = changes.ParentID
	}
	if changes.Type != nil {
		account.Type = *changes.Type
	}
	if changes.NormalBalance != nil {
		account.NormalBalance = *changes.NormalBalance
	}
	return e.store.putAccount(tx, account)
}

// DeleteAccount removes an account, rejecting one referenced by a posted
// line (I2) or the sole rounding account remaining in its currency bucket
// (B3) via guardAccountDelete.
func (e *Engine) DeleteAccount(tx txn, id ID) error {
	if err := e.immutability.guardAccountDelete(tx, id); err != nil {
		return err
	}
	return e.store.deleteAccount(tx, id)
}

// CreateDimension inserts a new dimension. Code must be unique.
func (e *Engine) CreateDimension(tx txn, d *Dimension) error {
	if err := validateNewDimension(d); err != nil {
		return err
	}
	if _, found, err := e.store.getDimension(tx, d.Code); err != nil {
		return err
	} else if found {
		return newErr(ErrValidationFailed, "dimension code %q already in use", d.Code)
	}
	if d.ID == ZeroID {
		d.ID = NewID()
	}
	return e.store.putDimension(tx, d)
}

// UpdateDimension renames a dimension and/or recodes it, rejecting a code
// change once any value has been defined under the old code (guarded by
// guardDimensionMutation) — the reachable application path for that
// guard. newName/newCode nil means "leave unchanged".
func (e *Engine) UpdateDimension(tx txn, code string, newName, newCode *string) error {
	var fields []string
	if newName != nil {
		fields = append(fields, "name")
	}
	if newCode != nil && *newCode != code {
		fields = append(fields, "code")
	}
	if len(fields) == 0 {
		return nil
	}
	if err := e.immutability.guardDimensionMutation(tx, code, fields); err != nil {
		return err
	}
	dim, found, err := e.store.getDimension(tx, code)
	if err != nil {
		return err
	}
	if !found {
		return newErr(ErrValidationFailed, "dimension %q not found", code)
	}
	if newName != nil {
		dim.Name = *newName
	}
	if newCode != nil && *newCode != code {
		if _, found, err := e.store.getDimension(tx, *newCode); err != nil {
			return err
		} else if found {
			return newErr(ErrValidationFailed, "dimension code %q already in use", *newCode)
		}
		dim.Code = *newCode
		if err := e.store.putDimension(tx, dim); err != nil {
			return err
		}
		return e.store.deleteDimension(tx, code)
	}
	return e.store.putDimension(tx, dim)
}

// CreateDimensionValue inserts a new value for an existing dimension.
func (e *Engine) CreateDimensionValue(tx txn, v *DimensionValue) error {
	if v.DimensionCode == "" || v.Code == "" {
		return newErr(ErrValidationFailed, "dimension value requires dimension_code and code")
	}
	if _, found, err := e.store.getDimensionValue(tx, v.DimensionCode, v.Code); err != nil {
		return err
	} else if found {
		return newErr(ErrValidationFailed, "dimension value %q already exists for dimension %q", v.Code, v.DimensionCode)
	}
	if v.ID == ZeroID {
		v.ID = NewID()
	}
	return e.store.putDimensionValue(tx, v)
}

// UpdateDimensionValue renames a dimension value and/or attempts to
// recode it. A code or dimension_code change is always rejected by
// guardDimensionValueMutation (the value's identity is frozen after
// insert) — this is the reachable application path for that guard.
func (e *Engine) UpdateDimensionValue(tx txn, dimensionCode, code string, newName, newCode *string) error {
	var fields []string
	if newName != nil {
		fields = append(fields, "name")
	}
	if newCode != nil && *newCode != code {
		fields = append(fields, "code")
	}
	if len(fields) == 0 {
		return nil
	}
	if err := e.immutability.guardDimensionValueMutation(dimensionCode, code, fields); err != nil {
		return err
	}
	v, found, err := e.store.getDimensionValue(tx, dimensionCode, code)
	if err != nil {
		return err
	}
	if !found {
		return newErr(ErrValidationFailed, "dimension value %q/%q not found", dimensionCode, code)
	}
	if newName != nil {
		v.Name = *newName
	}
	return e.store.putDimensionValue(tx, v)
}

// CorrectExchangeRate updates an unreferenced exchange rate's quote and
// source, rejecting the change once any journal line has used it (I6) via
// guardExchangeRateMutation — the reachable application path for that
// guard. Superseding a used rate means inserting a new row instead.
func (e *Engine) CorrectExchangeRate(tx txn, id ID, newRate Decimal, newSource string) error {
	if err := e.immutability.guardExchangeRateMutation(tx, id); err != nil {
		return err
	}
	rate, found, err := e.store.getExchangeRate(tx, id)
	if err != nil {
		return err
	}
	if !found {
		return newErr(ErrValidationFailed, "exchange rate %s not found", id)
	}
	if !newRate.IsPositive() || newRate.Cmp(maxExchangeRate) > 0 {
		return newErr(ErrInvalidExchangeRate, "rate must be positive and at most %s, got %s", maxExchangeRate.String(), newRate.String())
	}
	rate.Rate = newRate
	if newSource != "" {
		rate.Source = newSource
	}
	return e.store.putExchangeRate(tx, rate)
}

// ValidateSnapshot recomputes content hashes for a previously captured
// reference snapshot and reports any drift (I7).
func (e *Engine) ValidateSnapshot(tx txn, snap *ReferenceSnapshot) ([]DriftError, error) {
	return e.snapshots.validateIntegrity(tx, snap)
}

// ValidateAuditChain walks the audit log verifying hash-chain integrity
// (I15).
func (e *Engine) ValidateAuditChain(tx txn) error {
	return e.auditor.validateChain(tx)
}
