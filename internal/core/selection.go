package core

// FilterSelection is the per-query input: an inclusive ordinal range and
// the payers to include. An empty payer set is valid and selects nothing.
type FilterSelection struct {
	MinOrdinal int      `json:"min_ordinal"`
	MaxOrdinal int      `json:"max_ordinal"`
	Payers     []string `json:"payers"`
}

// Validate checks the range against a month index of the given size.
func (s FilterSelection) Validate(months int) error {
	if s.MinOrdinal < 0 || s.MinOrdinal >= months || s.MaxOrdinal < 0 || s.MaxOrdinal >= months {
		return &SelectionError{Min: s.MinOrdinal, Max: s.MaxOrdinal, Months: months, Err: ErrOrdinalOutOfRange}
	}
	if s.MinOrdinal > s.MaxOrdinal {
		return &SelectionError{Min: s.MinOrdinal, Max: s.MaxOrdinal, Months: months, Err: ErrInvertedRange}
	}
	return nil
}

// SingleMonth reports whether the selection covers exactly one month.
func (s FilterSelection) SingleMonth() bool {
	return s.MinOrdinal == s.MaxOrdinal
}

// PayerSet returns the selected payers as a lookup set.
func (s FilterSelection) PayerSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Payers))
	for _, p := range s.Payers {
		set[p] = struct{}{}
	}
	return set
}
