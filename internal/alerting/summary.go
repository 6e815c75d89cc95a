package alerting

import "sort"

// Summary counts alerts for dashboards and digests.
type Summary struct {
	Total      int              `json:"total"`
	BySeverity map[Severity]int `json:"by_severity"`
	ByType     map[Type]int     `json:"by_type"`
}

// Summarize counts alerts by severity and by type.
func Summarize(alerts []Alert) Summary {
	s := Summary{
		Total:      len(alerts),
		BySeverity: make(map[Severity]int),
		ByType:     make(map[Type]int),
	}
	for _, a := range alerts {
		s.BySeverity[a.Severity]++
		s.ByType[a.Type]++
	}
	return s
}

// Dedupe keeps the first alert for each id.
func Dedupe(alerts []Alert) []Alert {
	seen := make(map[string]struct{}, len(alerts))
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}

// FilterResolved drops alerts whose id has been marked resolved.
func FilterResolved(alerts []Alert, resolved map[string]bool) []Alert {
	if len(resolved) == 0 {
		return alerts
	}
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if resolved[a.ID] {
			continue
		}
		out = append(out, a)
	}
	return out
}

// SortBySeverity orders critical first, keeping evaluation order within a severity.
func SortBySeverity(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.rank() < alerts[j].Severity.rank()
	})
}
