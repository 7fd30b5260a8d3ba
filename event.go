package ledger

import "time"

// Event is the immutable source record for every posting (spec §3). Once
// inserted, no field may change (I1) — the Event Ingestor (C8) enforces
// this by treating a re-submission with a matching payload_hash as a
// no-op and one with a differing hash as PAYLOAD_MISMATCH.
type Event struct {
	ID            ID
	EventType     string
	OccurredAt    time.Time
	EffectiveDate time.Time
	ActorID       string
	Producer      string
	Payload       map[string]any
	PayloadHash   string
	SchemaVersion int
	IngestedAt    time.Time
}

// IdempotencyKey is `producer:event_type:event_id` (spec §6). The Journal
// Writer stores and looks up this key with ":" plus the ledger id
// appended, one key per ledger entry, to detect twin posts.
func (e *Event) IdempotencyKey() string {
	return e.Producer + ":" + e.EventType + ":" + e.ID.String()
}

// computePayloadHash returns the SHA-256 hex digest of the event's
// canonicalized payload (spec §3: "payload_hash = SHA-256 of
// canonicalized payload").
func computePayloadHash(payload map[string]any) (string, error) {
	return ContentHash(payload)
}
