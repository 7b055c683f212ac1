// Package dataset builds the immutable in-memory claim table that every
// query runs against.
package dataset

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"claimlens/internal/core"
)

// Column names used in ingest errors.
const (
	FieldMonth           = "month"
	FieldPayer           = "payer"
	FieldServiceCategory = "service_category"
	FieldSpecialty       = "claim_specialty"
	FieldPaidAmount      = "paid_amount"
)

// Row is one raw tabular input row, as read from any source.
type Row struct {
	Month           string
	Payer           string
	ServiceCategory string
	Specialty       string
	PaidAmount      string
}

// Options controls normalization during Load.
type Options struct {
	// SpecialtyDelimiters are split points in addition to whitespace.
	SpecialtyDelimiters string
}

// DefaultOptions splits specialties on ";" and whitespace.
func DefaultOptions() Options {
	return Options{SpecialtyDelimiters: ";"}
}

// Dataset is the loaded claim table. It is never mutated after Load and is
// safe to share between goroutines.
type Dataset struct {
	records []core.ClaimRecord
	months  []core.Month
	payers  []string
}

// Stats summarizes a dataset for start-up logging.
type Stats struct {
	Rows       int
	Months     int
	Payers     int
	Categories int
	TotalPaid  decimal.Decimal
}

// Load validates rows and builds the dataset with its month index and
// payer list. Any malformed row aborts the load with a *core.IngestError.
func Load(rows []Row, opts Options) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, &core.IngestError{Err: core.ErrNoRows}
	}

	records := make([]core.ClaimRecord, 0, len(rows))
	distinct := make(map[time.Time]struct{})
	seenPayer := make(map[string]struct{})
	var payers []string

	for i, raw := range rows {
		rec, err := parseRow(i+1, raw, opts)
		if err != nil {
			return nil, err
		}
		distinct[rec.Month] = struct{}{}
		if _, ok := seenPayer[rec.Payer]; !ok {
			seenPayer[rec.Payer] = struct{}{}
			payers = append(payers, rec.Payer)
		}
		records = append(records, rec)
	}

	months := buildMonthIndex(distinct)
	ordinal := make(map[time.Time]int, len(months))
	for _, m := range months {
		ordinal[m.Timestamp] = m.Ordinal
	}
	for i := range records {
		records[i].MonthOrdinal = ordinal[records[i].Month]
	}

	return &Dataset{records: records, months: months, payers: payers}, nil
}

func parseRow(line int, raw Row, opts Options) (core.ClaimRecord, error) {
	fail := func(field, value string, err error) error {
		return &core.IngestError{Row: line, Field: field, Value: value, Err: err}
	}

	month, err := core.ParseMonth(raw.Month)
	if err != nil {
		return core.ClaimRecord{}, fail(FieldMonth, raw.Month, err)
	}
	payer := strings.TrimSpace(raw.Payer)
	if payer == "" {
		return core.ClaimRecord{}, fail(FieldPayer, "", core.ErrMissingField)
	}
	category := strings.TrimSpace(raw.ServiceCategory)
	if category == "" {
		return core.ClaimRecord{}, fail(FieldServiceCategory, "", core.ErrMissingField)
	}
	amount, err := core.ParseAmount(raw.PaidAmount)
	if err != nil {
		return core.ClaimRecord{}, fail(FieldPaidAmount, raw.PaidAmount, err)
	}

	return core.ClaimRecord{
		Month:           month,
		Payer:           payer,
		ServiceCategory: category,
		Specialties:     core.NormalizeSpecialties(raw.Specialty, opts.SpecialtyDelimiters),
		PaidAmount:      amount,
	}, nil
}

// buildMonthIndex assigns dense ordinals in chronological order.
func buildMonthIndex(distinct map[time.Time]struct{}) []core.Month {
	stamps := make([]time.Time, 0, len(distinct))
	for ts := range distinct {
		stamps = append(stamps, ts)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })

	months := make([]core.Month, len(stamps))
	for i, ts := range stamps {
		months[i] = core.Month{Ordinal: i, Timestamp: ts, Label: core.MonthLabel(ts)}
	}
	return months
}

// Records returns the claim records in input order. Callers must not
// modify the returned slice.
func (d *Dataset) Records() []core.ClaimRecord { return d.records }

// Months returns a copy of the month index in ordinal order.
func (d *Dataset) Months() []core.Month {
	return append([]core.Month(nil), d.months...)
}

// MonthCount returns the number of distinct months.
func (d *Dataset) MonthCount() int { return len(d.months) }

// Month returns the index entry for an ordinal.
func (d *Dataset) Month(ordinal int) (core.Month, bool) {
	if ordinal < 0 || ordinal >= len(d.months) {
		return core.Month{}, false
	}
	return d.months[ordinal], true
}

// Payers returns a copy of the payer identifiers in first-seen order.
func (d *Dataset) Payers() []string {
	return append([]string(nil), d.payers...)
}

// Stats computes summary figures over the whole table.
func (d *Dataset) Stats() Stats {
	categories := make(map[string]struct{})
	amounts := make([]decimal.Decimal, len(d.records))
	for i, r := range d.records {
		categories[r.ServiceCategory] = struct{}{}
		amounts[i] = r.PaidAmount
	}
	return Stats{
		Rows:       len(d.records),
		Months:     len(d.months),
		Payers:     len(d.payers),
		Categories: len(categories),
		TotalPaid:  core.SumAmounts(amounts...),
	}
}

// CanonicalRow renders a loaded record back into raw form: ISO month date,
// ";"-joined specialties (blank when missing) and the exact amount. Loading
// a canonical row yields the same record.
func CanonicalRow(rec core.ClaimRecord) Row {
	specialty := ""
	if !(len(rec.Specialties) == 1 && rec.Specialties[0] == core.MissingSpecialty) {
		specialty = strings.Join(rec.Specialties, ";")
	}
	return Row{
		Month:           rec.Month.Format("2006-01-02"),
		Payer:           rec.Payer,
		ServiceCategory: rec.ServiceCategory,
		Specialty:       specialty,
		PaidAmount:      rec.PaidAmount.String(),
	}
}

// CanonicalRows returns CanonicalRow for every record in input order.
func (d *Dataset) CanonicalRows() []Row {
	out := make([]Row, len(d.records))
	for i, rec := range d.records {
		out[i] = CanonicalRow(rec)
	}
	return out
}
