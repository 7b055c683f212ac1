package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"claimlens/internal/core"
	"claimlens/internal/dataset"
	"claimlens/internal/rank"
)

// SummarySize is the number of specialties kept in every ranked summary.
const SummarySize = 3

// Bucket is one (month, payer) entry of the monthly index.
type Bucket struct {
	Ordinal     int
	Payer       string
	PaidAmount  decimal.Decimal
	Specialties []string
}

// MonthlyIndex holds the per month and payer totals computed once at load.
// Buckets are stored by ordinal ascending, then payer first-seen order.
type MonthlyIndex struct {
	buckets []Bucket
	// offsets[o] is the first bucket of ordinal o; offsets[len] == len(buckets).
	offsets []int
}

type bucketKey struct {
	ordinal int
	payer   string
}

// BuildMonthlyIndex sums amounts and ranks specialties for every
// (ordinal, payer) pair present in ds.
func BuildMonthlyIndex(ds *dataset.Dataset) *MonthlyIndex {
	type acc struct {
		sum    decimal.Decimal
		tokens []string
	}
	groups := make(map[bucketKey]*acc)
	for _, r := range ds.Records() {
		k := bucketKey{ordinal: r.MonthOrdinal, payer: r.Payer}
		g, ok := groups[k]
		if !ok {
			g = &acc{sum: decimal.Zero}
			groups[k] = g
		}
		g.sum = g.sum.Add(r.PaidAmount)
		g.tokens = append(g.tokens, r.Specialties...)
	}

	payerOrder := make(map[string]int)
	for i, p := range ds.Payers() {
		payerOrder[p] = i
	}

	buckets := make([]Bucket, 0, len(groups))
	for k, g := range groups {
		buckets = append(buckets, Bucket{
			Ordinal:     k.ordinal,
			Payer:       k.payer,
			PaidAmount:  g.sum,
			Specialties: rank.TopK(g.tokens, SummarySize, core.MissingSpecialty),
		})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Ordinal != buckets[j].Ordinal {
			return buckets[i].Ordinal < buckets[j].Ordinal
		}
		return payerOrder[buckets[i].Payer] < payerOrder[buckets[j].Payer]
	})

	months := ds.MonthCount()
	offsets := make([]int, months+1)
	b := 0
	for o := 0; o <= months; o++ {
		for b < len(buckets) && buckets[b].Ordinal < o {
			b++
		}
		offsets[o] = b
	}

	return &MonthlyIndex{buckets: buckets, offsets: offsets}
}

// Buckets returns every bucket in index order. Callers must not modify it.
func (m *MonthlyIndex) Buckets() []Bucket { return m.buckets }

// Range returns the buckets with lo <= ordinal <= hi. Ordinals must be
// valid for the index.
func (m *MonthlyIndex) Range(lo, hi int) []Bucket {
	return m.buckets[m.offsets[lo]:m.offsets[hi+1]]
}
