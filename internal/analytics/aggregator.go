package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"claimlens/internal/core"
	"claimlens/internal/rank"
)

// filterRecords applies the selection predicate in record order.
func filterRecords(records []core.ClaimRecord, sel core.FilterSelection, payers map[string]struct{}) []core.ClaimRecord {
	if len(payers) == 0 {
		return nil
	}
	var out []core.ClaimRecord
	for _, r := range records {
		if r.MonthOrdinal < sel.MinOrdinal || r.MonthOrdinal > sel.MaxOrdinal {
			continue
		}
		if _, ok := payers[r.Payer]; !ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

// timeSeries answers the time-series view from the monthly index. A single
// month selection always takes the payer ranking branch.
func (e *Engine) timeSeries(sel core.FilterSelection, payers map[string]struct{}) View[TimeSeries] {
	var hits []Bucket
	for _, b := range e.index.Range(sel.MinOrdinal, sel.MaxOrdinal) {
		if _, ok := payers[b.Payer]; ok {
			hits = append(hits, b)
		}
	}
	if len(hits) == 0 {
		return EmptyView[TimeSeries]()
	}

	if sel.SingleMonth() {
		month, _ := e.ds.Month(sel.MinOrdinal)
		ranking := &PayerRanking{
			Ordinal: month.Ordinal,
			Label:   month.Label,
			Payers:  make([]PayerAmount, len(hits)),
		}
		for i, b := range hits {
			ranking.Payers[i] = PayerAmount{Payer: b.Payer, PaidAmount: b.PaidAmount, Specialties: b.Specialties}
		}
		// hits are already in payer first-seen order, which settles ties.
		sort.SliceStable(ranking.Payers, func(i, j int) bool {
			return ranking.Payers[i].PaidAmount.GreaterThan(ranking.Payers[j].PaidAmount)
		})
		return Populated[TimeSeries](ranking)
	}

	series := &TemporalSeries{Points: make([]SeriesPoint, len(hits))}
	for i, b := range hits {
		month, _ := e.ds.Month(b.Ordinal)
		series.Points[i] = SeriesPoint{
			Ordinal:     b.Ordinal,
			Label:       month.Label,
			Payer:       b.Payer,
			PaidAmount:  b.PaidAmount,
			Specialties: b.Specialties,
		}
	}
	return Populated[TimeSeries](series)
}

type group struct {
	sum    decimal.Decimal
	count  int
	tokens []string
}

func (g *group) add(r core.ClaimRecord) {
	g.sum = g.sum.Add(r.PaidAmount)
	g.count++
	g.tokens = append(g.tokens, r.Specialties...)
}

func (g *group) summary() []string {
	return rank.TopK(g.tokens, SummarySize, core.MissingSpecialty)
}

func categoryPayer(records []core.ClaimRecord) View[CategoryPayerView] {
	if len(records) == 0 {
		return EmptyView[CategoryPayerView]()
	}
	type key struct{ category, payer string }
	groups := make(map[key]*group)
	for _, r := range records {
		k := key{r.ServiceCategory, r.Payer}
		g, ok := groups[k]
		if !ok {
			g = &group{sum: decimal.Zero}
			groups[k] = g
		}
		g.add(r)
	}

	view := CategoryPayerView{Groups: make([]CategoryPayerGroup, 0, len(groups))}
	for k, g := range groups {
		view.Groups = append(view.Groups, CategoryPayerGroup{
			Category:    k.category,
			Payer:       k.payer,
			PaidAmount:  g.sum,
			ClaimCount:  g.count,
			Specialties: g.summary(),
		})
	}
	sort.Slice(view.Groups, func(i, j int) bool {
		a, b := view.Groups[i], view.Groups[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Payer < b.Payer
	})
	return Populated(view)
}

func categoryTotals(records []core.ClaimRecord) View[CategoryTotalsView] {
	if len(records) == 0 {
		return EmptyView[CategoryTotalsView]()
	}
	groups := make(map[string]*group)
	for _, r := range records {
		g, ok := groups[r.ServiceCategory]
		if !ok {
			g = &group{sum: decimal.Zero}
			groups[r.ServiceCategory] = g
		}
		g.add(r)
	}

	view := CategoryTotalsView{Groups: make([]CategoryTotal, 0, len(groups))}
	sums := make([]decimal.Decimal, 0, len(groups))
	for category, g := range groups {
		view.Groups = append(view.Groups, CategoryTotal{
			Category:    category,
			PaidAmount:  g.sum,
			Specialties: g.summary(),
		})
		sums = append(sums, g.sum)
	}
	view.Total = core.SumAmounts(sums...)
	sort.Slice(view.Groups, func(i, j int) bool {
		return view.Groups[i].Category < view.Groups[j].Category
	})
	return Populated(view)
}

func specialtyFrequency(records []core.ClaimRecord) View[SpecialtyFrequencyView] {
	if len(records) == 0 {
		return EmptyView[SpecialtyFrequencyView]()
	}
	var tokens []string
	for _, r := range records {
		tokens = append(tokens, r.Specialties...)
	}
	return Populated(SpecialtyFrequencyView{
		Frequencies: rank.Frequencies(tokens, core.MissingSpecialty),
	})
}
