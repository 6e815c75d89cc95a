package service

import (
	"context"

	"campaign-alerts/internal/ads"
	"campaign-alerts/internal/aggregate"
	"campaign-alerts/internal/compare"
	"campaign-alerts/internal/period"
)

// Bundle is the analytics payload handed to the presentation layer.
type Bundle struct {
	StartDate               string                             `json:"startDate,omitempty"`
	EndDate                 string                             `json:"endDate,omitempty"`
	Campaigns               []aggregate.CampaignRollup         `json:"campaigns"`
	Accounts                []aggregate.AccountRollup          `json:"accounts"`
	ObjectiveAnalysis       []aggregate.GroupRollup            `json:"objectiveAnalysis"`
	BiddingStrategyAnalysis []aggregate.GroupRollup            `json:"biddingStrategyAnalysis"`
	TemporalData            []aggregate.GroupRollup            `json:"temporalData"`
	TopCampaigns            []aggregate.CampaignRollup         `json:"topCampaigns"`
	Totals                  aggregate.Summary                  `json:"totals"`
	Platforms               map[ads.Platform]aggregate.Summary `json:"platforms"`
	Comparison              *compare.Comparison                `json:"comparison,omitempty"`
	CampaignComparisons     []compare.CampaignComparison       `json:"campaignComparisons,omitempty"`
}

func emptyBundle() Bundle {
	return Bundle{
		Campaigns:               []aggregate.CampaignRollup{},
		Accounts:                []aggregate.AccountRollup{},
		ObjectiveAnalysis:       []aggregate.GroupRollup{},
		BiddingStrategyAnalysis: []aggregate.GroupRollup{},
		TemporalData:            []aggregate.GroupRollup{},
		TopCampaigns:            []aggregate.CampaignRollup{},
		Platforms:               map[ads.Platform]aggregate.Summary{},
	}
}

// Analytics builds the aggregate bundle for the filters. Missing dates, zero
// matching accounts and fetch failures degrade to an empty or partial bundle.
func (s *Service) Analytics(ctx context.Context, f ads.Filters) (Bundle, error) {
	runID := newRunID()
	logger := s.runLogger(runID)

	snap, ok, err := s.load(ctx, f, logger)
	if err != nil {
		s.metrics.ObserveEvaluation("analytics", "cancelled")
		return Bundle{}, err
	}

	bundle := emptyBundle()
	if !snap.window.IsZero() {
		bundle.StartDate = snap.window.Start.Format(period.Layout)
		bundle.EndDate = snap.window.End.Format(period.Layout)
	}
	if !ok {
		s.metrics.ObserveEvaluation("analytics", "empty")
		return bundle, nil
	}

	campaigns := s.aggregator.Campaigns(snap.current)
	bundle.Campaigns = campaigns
	bundle.Accounts = aggregate.Accounts(campaigns)
	bundle.ObjectiveAnalysis = aggregate.ByObjective(snap.current)
	bundle.BiddingStrategyAnalysis = aggregate.ByBiddingStrategy(snap.current)
	bundle.TemporalData = aggregate.ByDate(snap.current)
	bundle.TopCampaigns = aggregate.TopCampaigns(campaigns, s.topN)
	bundle.Totals = aggregate.Totals(campaigns)
	bundle.Platforms = aggregate.ByPlatform(campaigns)

	if snap.hasPrevious {
		previous := s.aggregator.Campaigns(snap.previous)
		cmp := compare.Compare(snap.window, snap.yoy, campaigns, previous)
		bundle.Comparison = &cmp
		bundle.CampaignComparisons = cmp.CampaignList(campaigns)
	}

	s.metrics.ObserveEvaluation("analytics", "ok")
	s.metrics.SetCampaigns(len(campaigns))
	logger.Info().
		Str("window", snap.window.String()).
		Int("rows", len(snap.current)).
		Int("campaigns", len(campaigns)).
		Bool("comparison", bundle.Comparison != nil).
		Msg("analytics computed")
	return bundle, nil
}
