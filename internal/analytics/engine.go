// Package analytics is the query engine: it owns the loaded dataset and the
// monthly index derived from it, and answers selections with four views.
//
// The monthly index is built once in New. The category views and the
// specialty table depend on a service category key and are recomputed from
// raw records on every query.
package analytics

import (
	"fmt"

	"claimlens/internal/core"
	"claimlens/internal/dataset"
)

// Engine answers queries over one immutable dataset. It has no mutable
// state, so Query may be called from any number of goroutines.
type Engine struct {
	ds    *dataset.Dataset
	index *MonthlyIndex
}

// Selection describes the controls a presentation layer builds: the range
// selector marks with their default full range, and the payer options.
type Selection struct {
	Months     []core.Month `json:"months"`
	Payers     []string     `json:"payers"`
	DefaultMin int          `json:"default_min"`
	DefaultMax int          `json:"default_max"`
	RangeLabel string       `json:"range_label"`
}

// New builds the monthly index for ds and returns the engine.
func New(ds *dataset.Dataset) *Engine {
	return &Engine{ds: ds, index: BuildMonthlyIndex(ds)}
}

// Query validates sel and computes all four views. An invalid range is
// rejected with a *core.SelectionError before any work is done.
func (e *Engine) Query(sel core.FilterSelection) (Result, error) {
	if err := sel.Validate(e.ds.MonthCount()); err != nil {
		return Result{}, err
	}

	payers := sel.PayerSet()
	records := filterRecords(e.ds.Records(), sel, payers)

	return Result{
		TimeSeries:         e.timeSeries(sel, payers),
		CategoryPayer:      categoryPayer(records),
		CategoryTotals:     categoryTotals(records),
		SpecialtyFrequency: specialtyFrequency(records),
	}, nil
}

// Months returns the ordinal to label mapping in ordinal order.
func (e *Engine) Months() []core.Month { return e.ds.Months() }

// Payers returns the payer identifiers in first-seen order.
func (e *Engine) Payers() []string { return e.ds.Payers() }

// Dataset returns the dataset the engine was built from.
func (e *Engine) Dataset() *dataset.Dataset { return e.ds }

// Index returns the precomputed monthly index.
func (e *Engine) Index() *MonthlyIndex { return e.index }

// RangeLabel renders a range caption such as "Jan 2020 - Mar 2020".
func (e *Engine) RangeLabel(lo, hi int) (string, error) {
	sel := core.FilterSelection{MinOrdinal: lo, MaxOrdinal: hi}
	if err := sel.Validate(e.ds.MonthCount()); err != nil {
		return "", err
	}
	first, _ := e.ds.Month(lo)
	last, _ := e.ds.Month(hi)
	return fmt.Sprintf("%s - %s", first.Label, last.Label), nil
}

// Selection returns the selector description with the full range selected.
func (e *Engine) Selection() Selection {
	hi := e.ds.MonthCount() - 1
	label, _ := e.RangeLabel(0, hi)
	return Selection{
		Months:     e.ds.Months(),
		Payers:     e.ds.Payers(),
		DefaultMin: 0,
		DefaultMax: hi,
		RangeLabel: label,
	}
}
