package rfm

import "sort"

// DefaultTopSegments is how many segments the dashboard breakdown shows
const DefaultTopSegments = 8

// TopSegments counts codes and returns the most frequent ones. Ties keep the
// order in which codes first appear. limit <= 0 returns every code
func TopSegments(codes []string, limit int) []SegmentCount {
	counts := CountLabels(codes)
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}

	out := make([]SegmentCount, len(counts))
	for i, c := range counts {
		out[i] = SegmentCount{Code: c.Label, Count: c.Count, Segment: Segment(c.Label)}
	}
	return out
}

// CountLabels is a value count sorted by count descending, ties by first
// appearance. Empty labels are skipped
func CountLabels(labels []string) []LabelCount {
	index := make(map[string]int)
	var out []LabelCount
	for _, l := range labels {
		if l == "" {
			continue
		}
		if i, ok := index[l]; ok {
			out[i].Count++
			continue
		}
		index[l] = len(out)
		out = append(out, LabelCount{Label: l, Count: 1})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// Segment names a code by the sum of its three digits. Codes that are not
// three digits between 1 and 5 have no name
func Segment(code string) string {
	if len(code) != 3 {
		return ""
	}
	sum := 0
	for _, ch := range code {
		if ch < '1' || ch > '5' {
			return ""
		}
		sum += int(ch - '0')
	}

	switch {
	case sum >= 12:
		return "Champions"
	case sum >= 9:
		return "Loyal"
	case sum >= 6:
		return "At Risk"
	default:
		return "Lost"
	}
}
