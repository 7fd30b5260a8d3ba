package ledger

import (
	"fmt"
)

// GuardOp is a closed set of declarative guard operators. New event types
// are onboarded by registering a new PostingProfile — never by adding a
// branch to the meaning builder (spec §4.4: "no if/switch on event_type
// is permitted in the meaning builder itself").
type GuardOp string

const (
	GuardRequired GuardOp = "REQUIRED"  // payload field must be present and non-empty
	GuardEquals   GuardOp = "EQUALS"    // payload field must equal Value
	GuardNotEqual GuardOp = "NOT_EQUAL" // payload field must differ from Value
)

// GuardCondition is one declarative rule a PostingProfile can attach to
// block interpretation (spec §4.4's "Guard"). Grounded on the teacher's
// compliance.go rule-registry pattern (ComplianceRule/TaxRule looked up
// by key, not branched on in code), generalized from tax/compliance
// checks to arbitrary payload-field guards.
type GuardCondition struct {
	Field      string  `json:"field"`
	Op         GuardOp `json:"op"`
	Value      any     `json:"value,omitempty"`
	ReasonCode string  `json:"reason_code"`
	Message    string  `json:"message"`
}

// PostingProfile is a versioned, declarative rule describing how one
// event type is interpreted (spec §3 "Accounting intent"/§9 "Policies are
// data, not subclass hierarchies"). Looked up by event_type in the policy
// registry captured in a reference snapshot.
type PostingProfile struct {
	EventType       string           `json:"event_type"`
	ProfileID       string           `json:"profile_id"`
	Version         int              `json:"version"`
	EconomicType    string           `json:"economic_type"`
	QuantityField   string           `json:"quantity_field,omitempty"`
	DimensionFields map[string]string `json:"dimension_fields,omitempty"` // dimension code -> payload key
	Guards          []GuardCondition `json:"guards,omitempty"`
}

// GuardRejection is returned when a profile's guard blocks interpretation
// (spec §4.4).
type GuardRejection struct {
	ReasonCode string
	Message    string
	Detail     map[string]any
}

// MeaningResult is the discriminated output of the meaning builder: ok
// carries EconomicEventData, otherwise Blocked carries the rejection.
type MeaningResult struct {
	Economic *EconomicEventData
	Blocked  *GuardRejection
}

func (r *MeaningResult) IsBlocked() bool { return r.Blocked != nil }

// EconomicEventData is the pure-function output used to build an
// EconomicEvent row (spec §4.4).
type EconomicEventData struct {
	EconomicType string
	Quantity     *Decimal
	Dimensions   Dimensions
	ProfileID    string
	ProfileVersion int
	ProfileHash  string
}

// meaningBuilder is C9: a pure function, no I/O. It dispatches to a
// profile by looking up (event_type -> profile) in the policy registry
// captured in the snapshot; profiles are data, never a type switch.
type meaningBuilder struct{}

func newMeaningBuilder() *meaningBuilder { return &meaningBuilder{} }

// interpret evaluates profile's guards against event's payload, then
// produces EconomicEventData. No database or network access occurs here
// — profile and its content hash are passed in already resolved.
func (meaningBuilder) interpret(event *Event, profile *PostingProfile, profileHash string) *MeaningResult {
	for _, guard := range profile.Guards {
		if blocked := evaluateGuard(guard, event.Payload); blocked != nil {
			return &MeaningResult{Blocked: blocked}
		}
	}

	data := &EconomicEventData{
		EconomicType:   profile.EconomicType,
		ProfileID:      profile.ProfileID,
		ProfileVersion: profile.Version,
		ProfileHash:    profileHash,
	}
	if profile.QuantityField != "" {
		if raw, ok := event.Payload[profile.QuantityField]; ok {
			if q, err := decimalFromAny(raw); err == nil {
				data.Quantity = &q
			}
		}
	}
	if len(profile.DimensionFields) > 0 {
		dims := Dimensions{}
		for dimCode, payloadKey := range profile.DimensionFields {
			if raw, ok := event.Payload[payloadKey]; ok {
				dims[dimCode] = fmt.Sprintf("%v", raw)
			}
		}
		if len(dims) > 0 {
			data.Dimensions = dims
		}
	}
	return &MeaningResult{Economic: data}
}

func evaluateGuard(g GuardCondition, payload map[string]any) *GuardRejection {
	val, present := payload[g.Field]
	switch g.Op {
	case GuardRequired:
		if !present || val == nil || val == "" {
			return &GuardRejection{ReasonCode: g.ReasonCode, Message: g.Message,
				Detail: map[string]any{"field": g.Field}}
		}
	case GuardEquals:
		if !present || fmt.Sprintf("%v", val) != fmt.Sprintf("%v", g.Value) {
			return &GuardRejection{ReasonCode: g.ReasonCode, Message: g.Message,
				Detail: map[string]any{"field": g.Field, "expected": g.Value, "actual": val}}
		}
	case GuardNotEqual:
		if present && fmt.Sprintf("%v", val) == fmt.Sprintf("%v", g.Value) {
			return &GuardRejection{ReasonCode: g.ReasonCode, Message: g.Message,
				Detail: map[string]any{"field": g.Field, "forbidden": g.Value}}
		}
	}
	return nil
}

func decimalFromAny(v any) (Decimal, error) {
	switch t := v.(type) {
	case string:
		return ParseDecimal(t)
	case float64:
		return ParseDecimal(fmt.Sprintf("%g", t))
	case int:
		return NewDecimalFromInt(int64(t)), nil
	case int64:
		return NewDecimalFromInt(t), nil
	default:
		return Decimal{}, fmt.Errorf("cannot convert %T to decimal", v)
	}
}
