package source

import (
	"context"
	"sync"

	"campaign-alerts/internal/ads"
	"campaign-alerts/internal/alerting"
	"campaign-alerts/internal/period"
)

// Memory serves rows, hotels and alert configs from memory. It backs offline
// evaluation of CSV exports and tests.
type Memory struct {
	mu      sync.RWMutex
	rows    []ads.Row
	hotels  []Hotel
	configs map[string]alerting.HotelConfig
	maxRows int
}

// NewMemory constructs an empty in-memory source capped at maxRows per fetch.
func NewMemory(maxRows int) *Memory {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Memory{configs: make(map[string]alerting.HotelConfig), maxRows: maxRows}
}

// AddRows appends metric rows.
func (m *Memory) AddRows(rows ...ads.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rows...)
}

// AddHotels registers hotels for entity resolution.
func (m *Memory) AddHotels(hotels ...Hotel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotels = append(m.hotels, hotels...)
}

// SetConfig stores the alert configuration of a hotel.
func (m *Memory) SetConfig(hotel string, cfg alerting.HotelConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[hotel] = cfg
}

// FetchRows returns rows within r, optionally restricted to accountIDs.
func (m *Memory) FetchRows(ctx context.Context, r period.Range, accountIDs []string) ([]ads.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var allowed map[string]struct{}
	if accountIDs != nil {
		allowed = make(map[string]struct{}, len(accountIDs))
		for _, id := range accountIDs {
			allowed[id] = struct{}{}
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ads.Row, 0)
	for _, row := range m.rows {
		if len(out) >= m.maxRows {
			break
		}
		if !r.Contains(row.Date) {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[row.AccountID]; !ok {
				continue
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// ResolveAccounts matches hotels against the entity filters.
func (m *Memory) ResolveAccounts(ctx context.Context, f ads.Filters) ([]string, error) {
	if !f.HasEntityFilter() {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MatchHotels(m.hotels, f), nil
}

// AlertConfigs returns a copy of the stored configurations.
func (m *Memory) AlertConfigs(ctx context.Context) (map[string]alerting.HotelConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]alerting.HotelConfig, len(m.configs))
	for k, v := range m.configs {
		out[k] = v
	}
	return out, nil
}

var (
	_ RowSource      = (*Memory)(nil)
	_ EntityResolver = (*Memory)(nil)
	_ ConfigSource   = (*Memory)(nil)
)
