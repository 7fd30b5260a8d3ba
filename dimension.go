package ledger

// Dimension defines one analytical axis (e.g. "project", "cost_center").
// Its Code is immutable once any DimensionValue exists for it; IsActive
// may change.
type Dimension struct {
	ID       ID
	Code     string
	Name     string
	IsActive bool
}

// DimensionValue is one member of a Dimension's value set. Code and
// DimensionCode are immutable after insert; Name is mutable.
type DimensionValue struct {
	ID            ID
	DimensionCode string
	Code          string
	Name          string
	IsActive      bool
}

func validateNewDimension(d *Dimension) error {
	if d.Code == "" {
		return newErr(ErrValidationFailed, "dimension code is required")
	}
	return nil
}

func validateNewDimensionValue(v *DimensionValue) error {
	if v.DimensionCode == "" || v.Code == "" {
		return newErr(ErrValidationFailed, "dimension value requires dimension_code and code")
	}
	return nil
}
