package ledger

import "fmt"

// eventIngestor is C8: validates and stores raw business event envelopes,
// enforcing payload-hash integrity and envelope immutability (I1).
// Grounded on the teacher's event_store.go (CreateEvent/AppendEvent),
// generalized to add the idempotent-no-op / PAYLOAD_MISMATCH contract
// spec §4.7 and law L2 require.
type eventIngestor struct {
	store *store
	clock Clock
}

func newEventIngestor(s *store, clock Clock) *eventIngestor {
	return &eventIngestor{store: s, clock: clock}
}

// ingest inserts envelope if no row with this event_id exists. If one
// exists with a matching payload_hash, it is an idempotent no-op. If one
// exists with a differing payload_hash, it is PAYLOAD_MISMATCH and
// nothing is mutated.
func (ing *eventIngestor) ingest(tx txn, envelope *Event) (*Event, error) {
	hash, err := computePayloadHash(envelope.Payload)
	if err != nil {
		return nil, fmt.Errorf("ingest: hash payload: %w", err)
	}
	envelope.PayloadHash = hash

	existing, found, err := ing.store.getEvent(tx, envelope.ID)
	if err != nil {
		return nil, err
	}
	if found {
		if existing.PayloadHash != envelope.PayloadHash {
			return nil, newErrDetail(ErrPayloadMismatch,
				map[string]any{"event_id": envelope.ID.String()},
				"event %s already ingested with a different payload", envelope.ID)
		}
		return existing, nil
	}

	envelope.IngestedAt = ing.clock.Now()
	if err := ing.store.putEvent(tx, envelope); err != nil {
		return nil, fmt.Errorf("ingest: persist: %w", err)
	}
	return envelope, nil
}
