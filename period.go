package ledger

import "time"

// PeriodStatus is a closed variant (spec §9).
type PeriodStatus string

const (
	PeriodOpen    PeriodStatus = "OPEN"
	PeriodClosing PeriodStatus = "CLOSING"
	PeriodClosed  PeriodStatus = "CLOSED"
	PeriodLocked  PeriodStatus = "LOCKED"
)

// legalPeriodTransitions enumerates I4's restricted transition set.
var legalPeriodTransitions = map[PeriodStatus]map[PeriodStatus]bool{
	PeriodOpen:    {PeriodClosing: true, PeriodClosed: true},
	PeriodClosing: {PeriodOpen: true, PeriodClosed: true},
	PeriodClosed:  {PeriodLocked: true},
	PeriodLocked:  {},
}

// CanTransition reports whether from -> to is a legal fiscal-period
// status transition under I4.
func CanTransition(from, to PeriodStatus) bool {
	return legalPeriodTransitions[from][to]
}

// FiscalPeriod is a date range with a lifecycle status governing whether
// postings are accepted (spec §3).
type FiscalPeriod struct {
	ID               ID
	PeriodCode       string
	StartDate        time.Time
	EndDate          time.Time
	Status           PeriodStatus
	AllowsAdjustment bool
	ClosedAt         *time.Time
	ClosedBy         string
	// CloseRunID identifies the close run that put this period into
	// CLOSING, so that a post flagged as belonging to the same close run
	// may still land while the period transitions (spec §4.3 step 1).
	CloseRunID string
}

// Contains reports whether effectiveDate falls within [StartDate, EndDate]
// inclusive.
func (p *FiscalPeriod) Contains(effectiveDate time.Time) bool {
	d := effectiveDate.Truncate(24 * time.Hour)
	start := p.StartDate.Truncate(24 * time.Hour)
	end := p.EndDate.Truncate(24 * time.Hour)
	return !d.Before(start) && !d.After(end)
}

func validateNewPeriod(p *FiscalPeriod) error {
	if p.PeriodCode == "" {
		return newErr(ErrValidationFailed, "period code is required")
	}
	if p.EndDate.Before(p.StartDate) {
		return newErr(ErrValidationFailed, "period end before start")
	}
	return nil
}

// postingEligibility decides, for a given period and posting request,
// whether a post may proceed (spec §4.3 step 1). It returns nil when the
// post is allowed, or a *LedgerError otherwise.
func postingEligibility(p *FiscalPeriod, isAdjustment bool, closeRunID string) error {
	switch p.Status {
	case PeriodOpen:
		return nil
	case PeriodClosing:
		if closeRunID != "" && closeRunID == p.CloseRunID {
			return nil
		}
		return newErr(ErrPeriodClosed, "period %s is closing", p.PeriodCode)
	case PeriodClosed:
		if p.AllowsAdjustment && isAdjustment {
			return nil
		}
		if isAdjustment && !p.AllowsAdjustment {
			return newErr(ErrAdjustmentsNotAllowed, "period %s does not allow adjustments", p.PeriodCode)
		}
		return newErr(ErrPeriodClosed, "period %s is closed", p.PeriodCode)
	case PeriodLocked:
		return newErr(ErrPeriodLocked, "period %s is locked", p.PeriodCode)
	default:
		return newErr(ErrValidationFailed, "unknown period status %q", p.Status)
	}
}
