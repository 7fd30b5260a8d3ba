package ledger

import (
	"fmt"
	"time"
)

// AuditEvent is an append-only record of one lifecycle action (spec §3).
// The chain is linear (I15): each non-genesis row's PrevHash equals the
// immediately preceding row's Hash by Seq; no row may ever be updated or
// deleted. Grounded on the pack's
// 18ae503a_default-user-OI__kernel-go-internal-audit-ledger.go hash-chain
// shape (Sequence/PrevHash/CurrentHash, genesis row for seq 0).
type AuditEvent struct {
	ID         ID
	Seq        int64
	Action     string
	Payload    map[string]any
	ActorID    string
	OccurredAt time.Time
	PrevHash   string
	Hash       string
}

// auditor is C6.
type auditor struct {
	store *store
	seq   *sequenceAllocator
	clock Clock
	log   logger
}

func newAuditor(s *store, seq *sequenceAllocator, clock Clock, log logger) *auditor {
	return &auditor{store: s, seq: seq, clock: clock, log: log}
}

// append writes one audit event, chaining it to the previous row by hash
// (spec §4.6).
func (au *auditor) append(tx txn, action string, payload map[string]any, actorID string) (*AuditEvent, error) {
	seq, err := au.seq.next(tx, SeqAuditEvent)
	if err != nil {
		return nil, fmt.Errorf("audit: allocate seq: %w", err)
	}

	prevHash := genesisHash
	if seq > 1 {
		prev, ok, err := au.store.getAuditEventBySeq(tx, seq-1)
		if err != nil {
			return nil, fmt.Errorf("audit: read prior row: %w", err)
		}
		if !ok {
			return nil, newErr(ErrSnapshotIntegrity, "audit chain gap before seq %d", seq)
		}
		prevHash = prev.Hash
	}

	occurredAt := au.clock.Now()
	event := &AuditEvent{
		ID:         NewID(),
		Seq:        seq,
		Action:     action,
		Payload:    payload,
		ActorID:    actorID,
		OccurredAt: occurredAt,
		PrevHash:   prevHash,
	}
	hash, err := ContentHash(auditHashTuple(event))
	if err != nil {
		return nil, fmt.Errorf("audit: compute hash: %w", err)
	}
	event.Hash = hash

	if err := au.store.putAuditEvent(tx, event); err != nil {
		return nil, fmt.Errorf("audit: persist: %w", err)
	}
	au.log.Info("audit_append", map[string]any{"seq": seq, "action": action, "actor": actorID})
	return event, nil
}

// auditHashTuple is the canonicalized tuple spec §4.6 hashes:
// (seq, action, payload, actor, occurred_at, prev_hash).
func auditHashTuple(e *AuditEvent) map[string]any {
	return map[string]any{
		"seq":         e.Seq,
		"action":      e.Action,
		"payload":     e.Payload,
		"actor":       e.ActorID,
		"occurred_at": e.OccurredAt.UTC().Format(time.RFC3339Nano),
		"prev_hash":   e.PrevHash,
	}
}

// validateChain walks rows in seq order, recomputing hashes and checking
// prev_hash linkage; a mismatch indicates tamper detected (spec §4.6).
func (au *auditor) validateChain(tx txn) error {
	events, err := au.store.allAuditEvents(tx)
	if err != nil {
		return err
	}
	prevHash := genesisHash
	for _, e := range events {
		if e.PrevHash != prevHash {
			return newErrDetail(ErrSnapshotIntegrity,
				map[string]any{"seq": e.Seq, "expected_prev": prevHash, "actual_prev": e.PrevHash},
				"audit chain broken at seq %d", e.Seq)
		}
		recomputed, err := ContentHash(auditHashTuple(e))
		if err != nil {
			return err
		}
		if recomputed != e.Hash {
			return newErrDetail(ErrSnapshotIntegrity,
				map[string]any{"seq": e.Seq, "expected_hash": recomputed, "actual_hash": e.Hash},
				"audit hash mismatch at seq %d", e.Seq)
		}
		prevHash = e.Hash
	}
	return nil
}
