package trends

import "trendwatch/pkg/domain"

// DedupeByID collapses raw items to one per id. When an id repeats the
// later occurrence replaces the earlier one (last wins), which matters
// when concatenating overlapping source lists such as "rising" followed
// by "new". Output keeps the insertion order of first-seen ids.
func DedupeByID(items []domain.RawItem) []domain.RawItem {
	idx := make(map[string]int, len(items))
	out := make([]domain.RawItem, 0, len(items))
	for _, item := range items {
		if i, ok := idx[item.ID]; ok {
			out[i] = item
			continue
		}
		idx[item.ID] = len(out)
		out = append(out, item)
	}
	return out
}

// DedupeMarketsByID collapses markets to one per id, last wins,
// first-seen order preserved.
func DedupeMarketsByID(markets []domain.Market) []domain.Market {
	idx := make(map[string]int, len(markets))
	out := make([]domain.Market, 0, len(markets))
	for _, m := range markets {
		if i, ok := idx[m.ID]; ok {
			out[i] = m
			continue
		}
		idx[m.ID] = len(out)
		out = append(out, m)
	}
	return out
}

// DedupeMarketsBySlug collapses markets to one per slug, keeping the
// candidate with the larger volume rather than blindly overwriting.
// Used when ranking markets for display.
func DedupeMarketsBySlug(markets []domain.Market) []domain.Market {
	idx := make(map[string]int, len(markets))
	out := make([]domain.Market, 0, len(markets))
	for _, m := range markets {
		if i, ok := idx[m.Slug]; ok {
			if m.Volume > out[i].Volume {
				out[i] = m
			}
			continue
		}
		idx[m.Slug] = len(out)
		out = append(out, m)
	}
	return out
}
