package ledger

import (
	"fmt"
	"time"
)

// ComponentVersion is one (version, content_hash, effective_from) tuple
// within a ReferenceSnapshot (spec §3). Version may be a row-count proxy
// — uniqueness comes from content_hash, not version.
type ComponentVersion struct {
	Version       int       `json:"version"`
	ContentHash   string    `json:"content_hash"`
	EffectiveFrom time.Time `json:"effective_from"`
}

// ReferenceSnapshot is an immutable bundle captured at posting time
// (spec §3): one ComponentVersion per reference-data component.
type ReferenceSnapshot struct {
	ID         ID                                   `json:"id"`
	CapturedAt time.Time                            `json:"captured_at"`
	CapturedBy string                               `json:"captured_by"`
	Components map[SnapshotComponent]ComponentVersion `json:"components"`
}

// DriftError describes one component whose recomputed content hash no
// longer matches the hash recorded in the snapshot (spec §4.2, I7).
type DriftError struct {
	Component    SnapshotComponent
	ExpectedHash string
	ActualHash   string
}

// snapshotService is C5.
type snapshotService struct {
	store  *store
	loader *referenceDataLoader
	clock  Clock
}

func newSnapshotService(s *store, loader *referenceDataLoader, clock Clock) *snapshotService {
	return &snapshotService{store: s, loader: loader, clock: clock}
}

// capture reads the current contents of each requested component,
// canonicalizes, hashes, and records (version, content_hash,
// effective_from) for each (spec §4.2).
func (svc *snapshotService) capture(tx txn, components []SnapshotComponent, capturedBy string) (*ReferenceSnapshot, error) {
	if len(components) == 0 {
		components = AllSnapshotComponents
	}
	now := svc.clock.Now()
	snap := &ReferenceSnapshot{
		ID:         NewID(),
		CapturedAt: now,
		CapturedBy: capturedBy,
		Components: make(map[SnapshotComponent]ComponentVersion, len(components)),
	}
	for _, c := range components {
		content, version, err := svc.loader.componentContent(tx, c)
		if err != nil {
			return nil, fmt.Errorf("snapshot: capture %s: %w", c, err)
		}
		hash, err := ContentHash(content)
		if err != nil {
			return nil, fmt.Errorf("snapshot: hash %s: %w", c, err)
		}
		snap.Components[c] = ComponentVersion{
			Version:       version,
			ContentHash:   hash,
			EffectiveFrom: now,
		}
	}
	if err := svc.store.putSnapshot(tx, snap); err != nil {
		return nil, fmt.Errorf("snapshot: persist: %w", err)
	}
	return snap, nil
}

// get retrieves a previously captured snapshot.
func (svc *snapshotService) get(tx txn, id ID) (*ReferenceSnapshot, bool, error) {
	return svc.store.getSnapshot(tx, id)
}

// validateIntegrity recomputes each component's content hash from current
// reference data; any mismatch is a drift error, never silently repaired
// (spec I7, §4.2: "this is the L4 replay-determinism guarantee").
func (svc *snapshotService) validateIntegrity(tx txn, snap *ReferenceSnapshot) ([]DriftError, error) {
	var drifts []DriftError
	for component, recorded := range snap.Components {
		content, _, err := svc.loader.componentContent(tx, component)
		if err != nil {
			return nil, fmt.Errorf("snapshot: validate %s: %w", component, err)
		}
		actual, err := ContentHash(content)
		if err != nil {
			return nil, fmt.Errorf("snapshot: hash %s: %w", component, err)
		}
		if actual != recorded.ContentHash {
			drifts = append(drifts, DriftError{
				Component:    component,
				ExpectedHash: recorded.ContentHash,
				ActualHash:   actual,
			})
		}
	}
	return drifts, nil
}
