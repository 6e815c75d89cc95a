package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"campaign-alerts/internal/ads"
	"campaign-alerts/internal/alerting"
	"campaign-alerts/internal/period"
)

const (
	restRowsPath    = "/campaign_metrics"
	restHotelsPath  = "/hotels"
	restConfigsPath = "/alert_configs"
)

// RESTOptions parameterise the reporting API source.
type RESTOptions struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	UserAgent string
	MaxRows   int
}

// REST reads rows, hotels and alert configs from a reporting API that serves
// the same column names as the CSV export.
type REST struct {
	opts    RESTOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewREST constructs a reporting API source.
func NewREST(opts RESTOptions, logger zerolog.Logger) *REST {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}

	return &REST{
		opts:    opts,
		logger:  logger.With().Str("component", "rest_source").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// FetchRows lists metric rows between the range endpoints, inclusive.
func (s *REST) FetchRows(ctx context.Context, r period.Range, accountIDs []string) ([]ads.Row, error) {
	q := url.Values{}
	q.Set("start", r.Start.Format(period.Layout))
	q.Set("end", r.End.Format(period.Layout))
	q.Set("limit", strconv.Itoa(s.opts.MaxRows))
	if accountIDs != nil {
		q.Set("account_id", strings.Join(accountIDs, ","))
	}

	var records []map[string]any
	if err := s.get(ctx, restRowsPath, q, &records); err != nil {
		return nil, err
	}

	rows := make([]ads.Row, 0, len(records))
	for i, obj := range records {
		row, err := parseRecord(objectRecord(obj))
		if err != nil {
			return nil, fmt.Errorf("reporting api row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	if len(rows) > s.opts.MaxRows {
		rows = rows[:s.opts.MaxRows]
	}
	s.logger.Debug().Str("window", r.String()).Int("rows", len(rows)).Msg("fetched metric rows")
	return rows, nil
}

// ResolveAccounts maps entity filters through the hotel listing.
func (s *REST) ResolveAccounts(ctx context.Context, f ads.Filters) ([]string, error) {
	if !f.HasEntityFilter() {
		return nil, nil
	}
	var hotels []Hotel
	if err := s.get(ctx, restHotelsPath, nil, &hotels); err != nil {
		return nil, err
	}
	return MatchHotels(hotels, f), nil
}

// AlertConfigs returns the per-hotel alert configuration.
func (s *REST) AlertConfigs(ctx context.Context) (map[string]alerting.HotelConfig, error) {
	configs := make(map[string]alerting.HotelConfig)
	if err := s.get(ctx, restConfigsPath, nil, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

func (s *REST) get(ctx context.Context, path string, q url.Values, out any) error {
	if s.baseURL == "" {
		return fmt.Errorf("reporting api base url not configured")
	}
	endpoint := s.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(s.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "campaignwatch/1.0")
	}
	if s.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.opts.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return parseHTTPError(resp.StatusCode, payload)
	}

	dec := json.NewDecoder(strings.NewReader(string(payload)))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// objectRecord flattens a JSON object into the column view parseRecord reads.
// Numbers may arrive as JSON numbers or strings.
func objectRecord(obj map[string]any) csvRecord {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rec := csvRecord{index: make(map[string]int, len(keys)), fields: make([]string, 0, len(keys))}
	for _, k := range keys {
		var v string
		switch val := obj[k].(type) {
		case nil:
		case string:
			v = val
		case json.Number:
			v = val.String()
		case bool:
			v = strconv.FormatBool(val)
		default:
			v = fmt.Sprint(val)
		}
		rec.index[strings.ToLower(k)] = len(rec.fields)
		rec.fields = append(rec.fields, v)
	}
	return rec
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("reporting api error (%d): %s", status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("reporting api error (%d): %s", status, apiErr.Error)
		}
		if apiErr.Details != "" {
			return fmt.Errorf("reporting api error (%d): %s", status, apiErr.Details)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("reporting api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("reporting api error (%d)", status)
}

var (
	_ RowSource      = (*REST)(nil)
	_ EntityResolver = (*REST)(nil)
	_ ConfigSource   = (*REST)(nil)
)
