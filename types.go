package ledger

import "github.com/google/uuid"

// ID is the opaque 128-bit identifier type used throughout the core
// (spec §3: "identifier = opaque 128-bit id"), carried as a uuid.UUID.
type ID = uuid.UUID

// NewID generates a fresh random identifier.
func NewID() ID { return uuid.New() }

// ZeroID is the nil identifier, used as a sentinel for "not set".
var ZeroID ID = uuid.Nil

// parseUUID parses a string-form identifier.
func parseUUID(s string) (ID, error) { return uuid.Parse(s) }

// Dimensions is an analytical tag map attached to accounts, journal
// lines, and intent lines: dimension code -> dimension value code.
// Canonicalized by CanonicalJSON's key-sorting for hashing purposes
// (spec §4.9's "canonicalize dimensions by sorting keys lexicographically").
type Dimensions map[string]string

// Clone returns a shallow copy so callers can't mutate a stored map
// through a returned reference.
func (d Dimensions) Clone() Dimensions {
	if d == nil {
		return nil
	}
	out := make(Dimensions, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Side is DEBIT or CREDIT, a closed variant per spec §9.
type Side string

const (
	Debit  Side = "DEBIT"
	Credit Side = "CREDIT"
)

func (s Side) Opposite() Side {
	if s == Debit {
		return Credit
	}
	return Debit
}

func (s Side) valid() bool { return s == Debit || s == Credit }
