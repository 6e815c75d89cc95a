package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campaign-alerts/internal/ads"
	"campaign-alerts/internal/alerting"
	"campaign-alerts/internal/calc"
	"campaign-alerts/internal/period"
	"campaign-alerts/internal/source"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	fetchRowsSQL = `SELECT
        metric_date,
        account_id,
        COALESCE(account_name, ''),
        campaign_id,
        COALESCE(campaign_name, ''),
        platform,
        COALESCE(client, ''),
        spend::text,
        impressions::text,
        clicks::text,
        reach::text,
        conversions::text,
        conversions_value::text,
        action_omni_purchase::text,
        action_value_omni_purchase::text,
        action_leads::text,
        COALESCE(campaign_status, ''),
        COALESCE(campaign_objective, ''),
        COALESCE(bidding_strategy, ''),
        COALESCE(result_type, ''),
        daily_budget::text,
        campaign_end_date,
        account_spend_cap::text,
        account_amount_spent::text,
        search_budget_lost_impression_share::text
    FROM campaign_metrics
    WHERE metric_date >= $1
      AND metric_date <= $2
      AND ($3::text[] IS NULL OR account_id = ANY($3))
    ORDER BY metric_date, campaign_id
    LIMIT $4;`

	resolveAccountsSQL = `SELECT DISTINCT ha.account_id
    FROM hotels h
    JOIN hotel_accounts ha ON ha.hotel_id = h.id
    WHERE ($1::text[] IS NULL OR lower(h.name) = ANY($1))
      AND ($2::text[] IS NULL OR lower(h.city) = ANY($2))
      AND ($3::text[] IS NULL OR lower(h.state) = ANY($3))
    ORDER BY ha.account_id;`

	alertConfigsSQL = `SELECT
        h.name,
        c.roas_min::text,
        c.cpa_max::text,
        c.ctr_min::text,
        c.webhook_active
    FROM alert_configs c
    JOIN hotels h ON h.id = c.hotel_id;`

	insertAlertSQL = `INSERT INTO alerts (
        run_id,
        alert_id,
        alert_type,
        severity,
        campaign_id,
        account_id,
        client,
        platform,
        message,
        metrics,
        notified,
        created_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
    )
    ON CONFLICT (run_id, alert_id) DO UPDATE
    SET notified = EXCLUDED.notified
    RETURNING id, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        run_id,
        alert_id,
        alert_type,
        severity,
        campaign_id,
        account_id,
        client,
        platform,
        message,
        metrics,
        notified,
        created_at
    FROM alerts
    ORDER BY created_at DESC, id DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store serves metric rows, hotel entities and alert configuration, and audits alerts.
type Store struct {
	pool    *pgxpool.Pool
	maxRows int
}

// NewStore wires a pgx pool into a Store. maxRows caps each row fetch.
func NewStore(pool *pgxpool.Pool, maxRows int) *Store {
	if maxRows <= 0 {
		maxRows = source.DefaultMaxRows
	}
	return &Store{pool: pool, maxRows: maxRows}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// best effort; the lock also drops when the connection closes
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// FetchRows lists metric rows between the range endpoints, inclusive.
func (s *Store) FetchRows(ctx context.Context, r period.Range, accountIDs []string) ([]ads.Row, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, fetchRowsSQL, r.Start, r.End, accountIDs, s.maxRows)
	if queryErr != nil {
		return nil, fmt.Errorf("fetch metric rows: %w", queryErr)
	}
	defer rows.Close()

	out := make([]ads.Row, 0)
	for rows.Next() {
		row, scanErr := scanMetricRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan metric row: %w", scanErr)
		}
		out = append(out, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// ResolveAccounts maps hotel, city and state filters to account ids.
func (s *Store) ResolveAccounts(ctx context.Context, f ads.Filters) ([]string, error) {
	if !f.HasEntityFilter() {
		return nil, nil
	}
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, resolveAccountsSQL, lowerOrNil(f.Hotels), lowerOrNil(f.Cities), lowerOrNil(f.States))
	if queryErr != nil {
		return nil, fmt.Errorf("resolve accounts: %w", queryErr)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ids, nil
}

// AlertConfigs lists per-hotel alert configuration.
func (s *Store) AlertConfigs(ctx context.Context) (map[string]alerting.HotelConfig, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, alertConfigsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list alert configs: %w", queryErr)
	}
	defer rows.Close()

	configs := make(map[string]alerting.HotelConfig)
	for rows.Next() {
		var (
			name                    string
			roasMin, cpaMax, ctrMin *string
			cfg                     alerting.HotelConfig
		)
		if err := rows.Scan(&name, &roasMin, &cpaMax, &ctrMin, &cfg.WebhookActive); err != nil {
			return nil, err
		}
		cfg.ROASMin = calc.ParseOptional(roasMin)
		cfg.CPAMax = calc.ParseOptional(cpaMax)
		cfg.CTRMin = calc.ParseOptional(ctrMin)
		configs[name] = cfg
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return configs, nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	createdAt := alert.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	metrics := []byte(alert.Metrics)
	if len(metrics) == 0 {
		metrics = []byte("{}")
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.RunID,
		alert.AlertID,
		alert.Type,
		alert.Severity,
		alert.CampaignID,
		alert.AccountID,
		alert.Client,
		alert.Platform,
		alert.Message,
		metrics,
		alert.Notified,
		createdAt,
	)

	rec := alert
	if scanErr := row.Scan(&rec.ID, &rec.CreatedAt); scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		var rec AlertRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.AlertID,
			&rec.Type,
			&rec.Severity,
			&rec.CampaignID,
			&rec.AccountID,
			&rec.Client,
			&rec.Platform,
			&rec.Message,
			&rec.Metrics,
			&rec.Notified,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func scanMetricRow(rows pgx.Rows) (ads.Row, error) {
	var (
		row                                        ads.Row
		platform                                   string
		spend, impressions, clicks, reach          *string
		conversions, conversionsValue              *string
		purchaseCount, purchaseValue, leads        *string
		dailyBudget, spendCap, amountSpent, lostIS *string
	)

	if err := rows.Scan(
		&row.Date,
		&row.AccountID,
		&row.AccountName,
		&row.CampaignID,
		&row.CampaignName,
		&platform,
		&row.Client,
		&spend,
		&impressions,
		&clicks,
		&reach,
		&conversions,
		&conversionsValue,
		&purchaseCount,
		&purchaseValue,
		&leads,
		&row.Status,
		&row.Objective,
		&row.BiddingStrategy,
		&row.ResultType,
		&dailyBudget,
		&row.EndDate,
		&spendCap,
		&amountSpent,
		&lostIS,
	); err != nil {
		return ads.Row{}, err
	}

	row.Platform = ads.ParsePlatform(platform)
	row.Spend = number(spend)
	row.Impressions = int64(number(impressions))
	row.Clicks = int64(number(clicks))
	row.Reach = int64(number(reach))
	row.Conversions = calc.ParseOptional(conversions)
	row.ConversionsValue = calc.ParseOptional(conversionsValue)
	row.PurchaseCount = calc.ParseOptional(purchaseCount)
	row.PurchaseValue = calc.ParseOptional(purchaseValue)
	row.LeadsCount = calc.ParseOptional(leads)
	row.DailyBudget = number(dailyBudget)
	row.SpendCap = int64(number(spendCap))
	row.AmountSpent = int64(number(amountSpent))
	row.SearchBudgetLostIS = calc.ParseOptional(lostIS)
	return row, nil
}

func number(raw *string) float64 {
	if raw == nil {
		return 0
	}
	return calc.ParseNumber(*raw)
}

func lowerOrNil(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

var (
	_ source.RowSource      = (*Store)(nil)
	_ source.EntityResolver = (*Store)(nil)
	_ source.ConfigSource   = (*Store)(nil)
	_ AlertStore            = (*Store)(nil)
	_ AdvisoryLocker        = (*Store)(nil)
)
