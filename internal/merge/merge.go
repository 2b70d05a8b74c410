package merge

import (
	"sort"
	"strings"

	"cartilla/internal/model"
)

// Separator joins the plans and specialties of one merged row.
const Separator = ", "

// Merge groups rows by identity and unions their Plan and Specialty
// values. Each value is taken whole, never split on the separator, which
// keeps merging an already merged table a no-op. Empty values are
// dropped. Output is sorted by identity so input order never matters.
func Merge(rows []model.Row) []model.MergedRow {
	type group struct {
		plans       map[string]struct{}
		specialties map[string]struct{}
	}
	groups := make(map[model.Identity]*group)
	for _, r := range rows {
		g, ok := groups[r.Identity]
		if !ok {
			g = &group{plans: map[string]struct{}{}, specialties: map[string]struct{}{}}
			groups[r.Identity] = g
		}
		if r.Plan != "" {
			g.plans[r.Plan] = struct{}{}
		}
		if r.Specialty != "" {
			g.specialties[r.Specialty] = struct{}{}
		}
	}

	merged := make([]model.MergedRow, 0, len(groups))
	for id, g := range groups {
		merged = append(merged, model.MergedRow{
			Identity:    id,
			Plans:       joinSorted(g.plans),
			Specialties: joinSorted(g.specialties),
		})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Identity.Less(merged[j].Identity)
	})
	return merged
}

func joinSorted(set map[string]struct{}) string {
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)
	return strings.Join(values, Separator)
}
