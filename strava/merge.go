package strava

import "sort"

// Merge combines freshly fetched activities with a previously cached set.
// An activity whose ID appears in both sets is replaced by the fetched
// record. The result is sorted strictly ascending by start date.
func Merge(existing, fetched []Activity) []Activity {
	fetchedIDs := make(map[string]struct{}, len(fetched))
	for _, a := range fetched {
		fetchedIDs[a.ID] = struct{}{}
	}

	merged := make([]Activity, 0, len(existing)+len(fetched))
	for _, a := range existing {
		if _, dup := fetchedIDs[a.ID]; !dup {
			merged = append(merged, a)
		}
	}
	merged = append(merged, fetched...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].StartDate < merged[j].StartDate
	})
	return merged
}
