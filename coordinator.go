package ledger

import "fmt"

// PostRequest is the caller-assembled unit of work for one posting (spec
// §4.1's control-flow summary): an event envelope plus an already
// balanced, role-based accounting intent. The core never constructs the
// intent itself — that is module-specific business logic living above
// this package.
type PostRequest struct {
	Event        *Event
	Intent       *AccountingIntent
	ActorID      string
	IsAdjustment bool
	CloseRunID   string
}

// PostResult is what InterpretAndPost hands back: either posted journal
// entries, or a recorded rejection — never both.
type PostResult struct {
	Outcome       *InterpretationOutcome
	Economic      *EconomicEvent
	JournalEntries []*JournalEntry
	Rejected      bool
}

// coordinator is C12: composes C5 (snapshot capture) -> C8 (ingest) -> C9
// (meaning) -> C10 (journal write) -> C11 (outcome record). It never
// calls commit or rollback — the caller owns the transaction boundary
// (spec §5 "the core never calls commit or rollback").
type coordinator struct {
	snapshots *snapshotService
	ingestor  *eventIngestor
	meaning   *meaningBuilder
	writer    *journalWriter
	outcomes  *outcomeRecorder
	store     *store
	log       logger
}

func newCoordinator(snapshots *snapshotService, ingestor *eventIngestor, meaning *meaningBuilder,
	writer *journalWriter, outcomes *outcomeRecorder, s *store, log logger) *coordinator {
	return &coordinator{
		snapshots: snapshots, ingestor: ingestor, meaning: meaning,
		writer: writer, outcomes: outcomes, store: s, log: log,
	}
}

// InterpretAndPost runs the full pipeline inside tx, the caller's
// transaction. A returned error means the caller should roll back; a
// PostResult with Rejected=true means the rejection itself was recorded
// successfully and the caller may still flush normally.
func (c *coordinator) InterpretAndPost(tx txn, req *PostRequest) (*PostResult, error) {
	snap, err := c.snapshots.capture(tx, AllSnapshotComponents, req.ActorID)
	if err != nil {
		return nil, fmt.Errorf("coordinator: capture snapshot: %w", err)
	}

	event, err := c.ingestor.ingest(tx, req.Event)
	if err != nil {
		return nil, fmt.Errorf("coordinator: ingest: %w", err)
	}

	profile, found, err := c.store.getPolicy(tx, event.EventType)
	if err != nil {
		return nil, fmt.Errorf("coordinator: load policy: %w", err)
	}
	if !found {
		return nil, newErr(ErrValidationFailed, "no posting profile registered for event type %q", event.EventType)
	}
	profileHash := snap.Components[ComponentPolicyRegistry].ContentHash

	meaningResult := c.meaning.interpret(event, profile, profileHash)
	if meaningResult.IsBlocked() {
		outcome, err := c.outcomes.recordRejection(tx, event.ID, meaningResult.Blocked.ReasonCode, meaningResult.Blocked.Message)
		if err != nil {
			return nil, fmt.Errorf("coordinator: record rejection: %w", err)
		}
		c.log.Info("posting_blocked", map[string]any{
			"event_id": event.ID.String(), "reason_code": meaningResult.Blocked.ReasonCode,
		})
		return &PostResult{Outcome: outcome, Rejected: true}, nil
	}

	economic := &EconomicEvent{
		ID:             NewID(),
		SourceEventID:  event.ID,
		EconomicType:   meaningResult.Economic.EconomicType,
		Quantity:       meaningResult.Economic.Quantity,
		Dimensions:     meaningResult.Economic.Dimensions,
		EffectiveDate:  req.Intent.EffectiveDate,
		ProfileID:      meaningResult.Economic.ProfileID,
		ProfileVersion: meaningResult.Economic.ProfileVersion,
		ProfileHash:    meaningResult.Economic.ProfileHash,
		COASnapshotVer: snap.Components[ComponentCOA].Version,
		DimSnapshotVer: snap.Components[ComponentDimensionSchema].Version,
		CcySnapshotVer: snap.Components[ComponentRoundingPolicy].Version,
		FXSnapshotVer:  snap.Components[ComponentFXRates].Version,
		CreatedAt:      c.ingestor.clock.Now(),
	}
	if err := c.store.putEconomicEvent(tx, economic); err != nil {
		return nil, fmt.Errorf("coordinator: persist economic event: %w", err)
	}

	entries, err := c.writer.write(tx, &writeRequest{
		Event:        event,
		Intent:       req.Intent,
		Snapshot:     snap,
		ActorID:      req.ActorID,
		IsAdjustment: req.IsAdjustment,
		CloseRunID:   req.CloseRunID,
	})
	if err != nil {
		return nil, fmt.Errorf("coordinator: write journal: %w", err)
	}

	entryIDs := make([]ID, len(entries))
	for i, e := range entries {
		entryIDs[i] = e.ID
	}
	outcome, err := c.outcomes.recordSuccess(tx, event.ID, economic.ID, entryIDs)
	if err != nil {
		return nil, fmt.Errorf("coordinator: record outcome: %w", err)
	}

	return &PostResult{Outcome: outcome, Economic: economic, JournalEntries: entries}, nil
}
