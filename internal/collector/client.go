package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/dgozlan/clickguard/internal/contracts"
	"github.com/dgozlan/clickguard/pkg/config"
	"github.com/dgozlan/clickguard/pkg/httputil"
	"github.com/dgozlan/clickguard/pkg/logger"
)

// Client handles communication with the ad platform reporting API.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
}

// NewClient creates a new reporting API client. The local limiter caps
// request bursts on top of whatever the shared Redis limiter enforces.
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	rps := cfg.AdPlatform.RateLimit
	if rps <= 0 {
		rps = 5
	}

	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    cfg.AdPlatform.BaseURL,
		apiKey:     cfg.AdPlatform.APIKey,
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// dailyReportResponse represents the daily report API response.
type dailyReportResponse struct {
	Date string            `json:"date"` // YYYY-MM-DD
	Rows []dailyReportRow  `json:"rows"`
	Meta map[string]string `json:"meta,omitempty"`
}

type dailyReportRow struct {
	AdID           string  `json:"ad_id"`
	Impressions    int64   `json:"impressions"`
	Clicks         int64   `json:"clicks"`
	CTR            float64 `json:"ctr"`
	Conversions    int64   `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate"`
	BounceRate     float64 `json:"bounce_rate"`
}

// FetchDaily fetches per-ad performance aggregates for one day.
func (c *Client) FetchDaily(ctx context.Context, date time.Time) ([]contracts.PerformanceRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	day := contracts.DayOf(date)
	url := fmt.Sprintf("%s/v1/reports/daily?date=%s", c.baseURL, day.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var report dailyReportResponse
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	records := make([]contracts.PerformanceRecord, 0, len(report.Rows))
	for _, row := range report.Rows {
		if row.AdID == "" {
			continue
		}
		records = append(records, contracts.PerformanceRecord{
			AdID:           row.AdID,
			Date:           day,
			Impressions:    row.Impressions,
			Clicks:         row.Clicks,
			CTR:            row.CTR,
			Conversions:    row.Conversions,
			ConversionRate: row.ConversionRate,
			BounceRate:     row.BounceRate,
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"date": day.Format("2006-01-02"),
		"rows": len(records),
	}).Debug("Fetched daily report")

	return records, nil
}
