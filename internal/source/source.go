package source

import (
	"context"
	"strings"

	"campaign-alerts/internal/ads"
	"campaign-alerts/internal/alerting"
	"campaign-alerts/internal/period"
)

// DefaultMaxRows caps a single fetch.
const DefaultMaxRows = 10000

// RowSource retrieves raw metric rows for a date range. A nil accountIDs slice
// means no account filter.
type RowSource interface {
	FetchRows(ctx context.Context, r period.Range, accountIDs []string) ([]ads.Row, error)
}

// EntityResolver maps hotel, city and state filters to ad account ids. It
// returns nil when no entity filter applies and a non-nil empty slice when the
// filter matched nothing.
type EntityResolver interface {
	ResolveAccounts(ctx context.Context, filters ads.Filters) ([]string, error)
}

// ConfigSource provides per-hotel alert configuration keyed by hotel name.
type ConfigSource interface {
	AlertConfigs(ctx context.Context) (map[string]alerting.HotelConfig, error)
}

// Hotel links a dashboard entity to its ad accounts.
type Hotel struct {
	Name       string   `json:"name"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	AccountIDs []string `json:"account_ids"`
}

// MatchHotels returns the account ids of hotels matching every entity filter
// that is set. The result is never nil.
func MatchHotels(hotels []Hotel, f ads.Filters) []string {
	ids := make([]string, 0)
	seen := make(map[string]struct{})
	for _, h := range hotels {
		if !matchAny(f.Hotels, h.Name) || !matchAny(f.Cities, h.City) || !matchAny(f.States, h.State) {
			continue
		}
		for _, id := range h.AccountIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

func matchAny(wanted []string, v string) bool {
	if len(wanted) == 0 {
		return true
	}
	v = strings.TrimSpace(v)
	for _, w := range wanted {
		if strings.EqualFold(strings.TrimSpace(w), v) {
			return true
		}
	}
	return false
}
