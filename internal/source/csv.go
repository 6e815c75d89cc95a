package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"campaign-alerts/internal/ads"
	"campaign-alerts/internal/calc"
	"campaign-alerts/internal/period"
)

// Columns recognised by ReadCSV. Only date and campaign_id are required.
const (
	ColDate               = "date"
	ColAccountID          = "account_id"
	ColAccountName        = "account_name"
	ColCampaignID         = "campaign_id"
	ColCampaignName       = "campaign_name"
	ColPlatform           = "platform"
	ColClient             = "client"
	ColSpend              = "spend"
	ColImpressions        = "impressions"
	ColClicks             = "clicks"
	ColReach              = "reach"
	ColConversions        = "conversions"
	ColConversionsValue   = "conversions_value"
	ColPurchaseCount      = "action_omni_purchase"
	ColPurchaseValue      = "action_value_omni_purchase"
	ColLeads              = "action_leads"
	ColStatus             = "campaign_status"
	ColObjective          = "campaign_objective"
	ColBiddingStrategy    = "bidding_strategy"
	ColResultType         = "result_type"
	ColDailyBudget        = "daily_budget"
	ColEndDate            = "campaign_end_date"
	ColSpendCap           = "account_spend_cap"
	ColAmountSpent        = "account_amount_spent"
	ColSearchBudgetLostIS = "search_budget_lost_impression_share"
)

type csvRecord struct {
	index  map[string]int
	fields []string
}

func (r csvRecord) str(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r csvRecord) optional(col string) *string {
	i, ok := r.index[col]
	if !ok || i >= len(r.fields) || strings.TrimSpace(r.fields[i]) == "" {
		return nil
	}
	v := r.fields[i]
	return &v
}

func (r csvRecord) number(col string) float64 {
	return calc.ParseNumber(r.str(col))
}

func (r csvRecord) integer(col string) int64 {
	return int64(calc.ParseNumber(r.str(col)))
}

// ReadCSV parses metric rows from a CSV export with a header line. Malformed
// numbers become zero; a malformed date fails the whole read.
func ReadCSV(in io.Reader) ([]ads.Row, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{ColDate, ColCampaignID} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("csv header missing %q column", required)
		}
	}

	rows := make([]ads.Row, 0)
	line := 1
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		row, err := parseRecord(csvRecord{index: index, fields: fields})
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(rec csvRecord) (ads.Row, error) {
	date, err := parseDate(rec.str(ColDate))
	if err != nil {
		return ads.Row{}, err
	}

	row := ads.Row{
		Date:               date,
		AccountID:          rec.str(ColAccountID),
		AccountName:        rec.str(ColAccountName),
		CampaignID:         rec.str(ColCampaignID),
		CampaignName:       rec.str(ColCampaignName),
		Platform:           ads.ParsePlatform(rec.str(ColPlatform)),
		Client:             rec.str(ColClient),
		Spend:              rec.number(ColSpend),
		Impressions:        rec.integer(ColImpressions),
		Clicks:             rec.integer(ColClicks),
		Reach:              rec.integer(ColReach),
		Conversions:        calc.ParseOptional(rec.optional(ColConversions)),
		ConversionsValue:   calc.ParseOptional(rec.optional(ColConversionsValue)),
		PurchaseCount:      calc.ParseOptional(rec.optional(ColPurchaseCount)),
		PurchaseValue:      calc.ParseOptional(rec.optional(ColPurchaseValue)),
		LeadsCount:         calc.ParseOptional(rec.optional(ColLeads)),
		Status:             rec.str(ColStatus),
		Objective:          rec.str(ColObjective),
		BiddingStrategy:    rec.str(ColBiddingStrategy),
		ResultType:         rec.str(ColResultType),
		DailyBudget:        rec.number(ColDailyBudget),
		SpendCap:           rec.integer(ColSpendCap),
		AmountSpent:        rec.integer(ColAmountSpent),
		SearchBudgetLostIS: calc.ParseOptional(rec.optional(ColSearchBudgetLostIS)),
	}
	if raw := rec.str(ColEndDate); raw != "" {
		end, err := parseDate(raw)
		if err != nil {
			return ads.Row{}, fmt.Errorf("campaign end date: %w", err)
		}
		row.EndDate = &end
	}
	return row, nil
}

func parseDate(raw string) (time.Time, error) {
	if len(raw) > len(period.Layout) {
		raw = raw[:len(period.Layout)]
	}
	t, err := time.Parse(period.Layout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return t, nil
}
