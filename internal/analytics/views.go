package analytics

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"claimlens/internal/rank"
)

// View wraps one query output. A view is either populated or the empty
// sentinel; an empty view means "no data", which is not the same thing as
// a populated view whose sums are zero.
type View[T any] struct {
	data      T
	populated bool
}

// Populated returns a view holding data.
func Populated[T any](data T) View[T] {
	return View[T]{data: data, populated: true}
}

// EmptyView returns the empty sentinel.
func EmptyView[T any]() View[T] {
	return View[T]{}
}

// Empty reports whether v is the empty sentinel.
func (v View[T]) Empty() bool { return !v.populated }

// Data returns the view contents and whether the view is populated.
func (v View[T]) Data() (T, bool) { return v.data, v.populated }

// MarshalJSON encodes the sentinel as {"empty":true} and a populated view
// as {"empty":false,"data":...}.
func (v View[T]) MarshalJSON() ([]byte, error) {
	if !v.populated {
		return []byte(`{"empty":true}`), nil
	}
	return json.Marshal(struct {
		Empty bool `json:"empty"`
		Data  T    `json:"data"`
	}{Data: v.data})
}

// TimeSeries is the time-series view. It has exactly two variants:
// *TemporalSeries for a multi-month range and *PayerRanking for a single
// month. Callers switch on the concrete type.
type TimeSeries interface {
	Kind() string
	timeSeries()
}

const (
	KindTemporal     = "temporal"
	KindPayerRanking = "payer_ranking"
)

// SeriesPoint is one (month, payer) value of a temporal series.
type SeriesPoint struct {
	Ordinal     int             `json:"ordinal"`
	Label       string          `json:"label"`
	Payer       string          `json:"payer"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	Specialties []string        `json:"specialties"`
}

// TemporalSeries lists points by month ascending, then payer first-seen order.
type TemporalSeries struct {
	Points []SeriesPoint `json:"points"`
}

func (*TemporalSeries) Kind() string { return KindTemporal }
func (*TemporalSeries) timeSeries()  {}

func (s *TemporalSeries) MarshalJSON() ([]byte, error) {
	type alias TemporalSeries
	return json.Marshal(struct {
		Kind string `json:"kind"`
		*alias
	}{KindTemporal, (*alias)(s)})
}

// PayerAmount is one payer of a single-month ranking.
type PayerAmount struct {
	Payer       string          `json:"payer"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	Specialties []string        `json:"specialties"`
}

// PayerRanking is the single-month variant: payers by amount descending.
type PayerRanking struct {
	Ordinal int           `json:"ordinal"`
	Label   string        `json:"label"`
	Payers  []PayerAmount `json:"payers"`
}

func (*PayerRanking) Kind() string { return KindPayerRanking }
func (*PayerRanking) timeSeries()  {}

func (r *PayerRanking) MarshalJSON() ([]byte, error) {
	type alias PayerRanking
	return json.Marshal(struct {
		Kind string `json:"kind"`
		*alias
	}{KindPayerRanking, (*alias)(r)})
}

// Amounts returns the ranking as a payer to amount map.
func (r *PayerRanking) Amounts() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r.Payers))
	for _, p := range r.Payers {
		out[p.Payer] = p.PaidAmount
	}
	return out
}

// CategoryPayerGroup is one (service category, payer) cell.
type CategoryPayerGroup struct {
	Category    string          `json:"service_category"`
	Payer       string          `json:"payer"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	ClaimCount  int             `json:"claim_count"`
	Specialties []string        `json:"specialties"`
}

type CategoryPayerView struct {
	Groups []CategoryPayerGroup `json:"groups"`
}

// CategoryTotal is one service category of the totals view.
type CategoryTotal struct {
	Category    string          `json:"service_category"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	Specialties []string        `json:"specialties"`
}

// CategoryTotalsView carries the grand total so shares can be computed by
// the renderer.
type CategoryTotalsView struct {
	Groups []CategoryTotal `json:"groups"`
	Total  decimal.Decimal `json:"total"`
}

type SpecialtyFrequencyView struct {
	Frequencies []rank.TokenCount `json:"frequencies"`
}

// Result is the full answer to one query.
type Result struct {
	TimeSeries         View[TimeSeries]             `json:"time_series"`
	CategoryPayer      View[CategoryPayerView]      `json:"category_payer"`
	CategoryTotals     View[CategoryTotalsView]     `json:"category_totals"`
	SpecialtyFrequency View[SpecialtyFrequencyView] `json:"specialty_frequency"`
}

// Empty reports whether every view is the empty sentinel.
func (r Result) Empty() bool {
	return r.TimeSeries.Empty() && r.CategoryPayer.Empty() &&
		r.CategoryTotals.Empty() && r.SpecialtyFrequency.Empty()
}
