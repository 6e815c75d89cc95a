package calc

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ROAS returns revenue per unit of spend, or 0 without spend.
func ROAS(revenue, spend float64) float64 {
	if spend > 0 {
		return revenue / spend
	}
	return 0
}

// CPA returns spend per conversion, or 0 without conversions.
func CPA(spend, conversions float64) float64 {
	if conversions > 0 {
		return spend / conversions
	}
	return 0
}

// CPC returns spend per click, or 0 without clicks.
func CPC(spend, clicks float64) float64 {
	if clicks > 0 {
		return spend / clicks
	}
	return 0
}

// CTR returns the click-through rate on a percentage scale.
func CTR(clicks, impressions float64) float64 {
	if impressions > 0 {
		return 100 * clicks / impressions
	}
	return 0
}

// CPM returns spend per thousand impressions.
func CPM(spend, impressions float64) float64 {
	if impressions > 0 {
		return 1000 * spend / impressions
	}
	return 0
}

// Frequency returns average impressions per reached user.
func Frequency(impressions, reach float64) float64 {
	if reach > 0 {
		return impressions / reach
	}
	return 0
}

// PercentDelta returns the percentage change from previous to current.
// Growth from zero reports +100 and zero to zero reports 0.
func PercentDelta(current, previous float64) float64 {
	if previous > 0 {
		return 100 * (current - previous) / previous
	}
	if current > 0 {
		return 100
	}
	return 0
}

// ParseNumber parses a numeric field, returning 0 for blank or malformed input.
func ParseNumber(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// ParseOptional keeps nil as absent and coerces malformed values to 0.
func ParseOptional(raw *string) *float64 {
	if raw == nil {
		return nil
	}
	v := ParseNumber(*raw)
	return &v
}

// Coalesce returns the first present value, or 0 when all are absent.
func Coalesce(values ...*float64) float64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
