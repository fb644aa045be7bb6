package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/devfolio/internal/config"
	"github.com/ZanzyTHEbar/devfolio/internal/errors"
	"github.com/ZanzyTHEbar/devfolio/internal/resilience"
	"github.com/ZanzyTHEbar/devfolio/internal/stats"
)

const wakatimeFetchFailed = "Failed to fetch WakaTime data"

type wakatimeStats struct {
	Data struct {
		HumanReadableDailyAverage string          `json:"human_readable_daily_average"`
		HumanReadableTotal        string          `json:"human_readable_total"`
		BestDay                   *stats.BestDay  `json:"best_day"`
		Languages                 []stats.Entry   `json:"languages"`
		Editors                   []stats.Entry   `json:"editors"`
		Categories                []stats.Entry   `json:"categories"`
		Range                     json.RawMessage `json:"range"`
		Start                     string          `json:"start"`
		End                       string          `json:"end"`
	} `json:"data"`
}

type wakatimeAllTime struct {
	Data *struct {
		Text *string `json:"text"`
	} `json:"data"`
}

// WakaTimeAdapter fetches coding activity from the time-tracking provider
type WakaTimeAdapter struct {
	deps   Deps
	config config.WakaTimeConfig
}

// NewWakaTimeAdapter creates a new time-tracking adapter
func NewWakaTimeAdapter(deps Deps, cfg config.WakaTimeConfig) *WakaTimeAdapter {
	return &WakaTimeAdapter{deps: deps, config: cfg}
}

// Validate reports a configuration error when the key is missing
func (w *WakaTimeAdapter) Validate() error {
	if w.config.APIKey == "" {
		return errors.NewConfigurationError("WakaTime API key not configured")
	}
	return nil
}

// FetchCodingActivity returns the last-7-days summary. The all-time total is
// best effort and left nil when its call fails.
func (w *WakaTimeAdapter) FetchCodingActivity(ctx context.Context) (*stats.CodingActivitySummary, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	var weekly wakatimeStats
	var allTime *string

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		resp, err := w.deps.Client.Do(gctx, w.request("stats/last_7_days"))
		if err != nil {
			return errors.NewUpstreamError(ProviderWakaTime, wakatimeFetchFailed, http.StatusInternalServerError, "", err)
		}
		if !resp.OK() {
			return errors.NewUpstreamError(ProviderWakaTime, fmt.Sprintf("WakaTime API error: %d", resp.StatusCode),
				resp.StatusCode, string(resp.Body), statusError("WakaTime", resp))
		}
		if err := resp.DecodeJSON(&weekly); err != nil {
			return errors.NewUpstreamError(ProviderWakaTime, wakatimeFetchFailed, http.StatusInternalServerError, "", err)
		}
		return nil
	})

	g.Go(func() error {
		text, err := w.fetchAllTime(gctx)
		if err != nil {
			if gctx.Err() == nil {
				w.deps.degraded(ProviderWakaTime, "allTime", err)
			}
			return nil
		}
		allTime = text
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := summarizeCoding(weekly)
	summary.AllTime = allTime
	return &summary, nil
}

func (w *WakaTimeAdapter) request(path string) resilience.Request {
	return resilience.Request{
		Provider: ProviderWakaTime,
		URL:      joinURL(w.config.BaseURL, "users", "@"+url.PathEscape(w.config.Username), path),
		Headers:  map[string]string{"Authorization": "Bearer " + w.config.APIKey},
	}
}

func (w *WakaTimeAdapter) fetchAllTime(ctx context.Context) (*string, error) {
	resp, err := w.deps.Client.Do(ctx, w.request("all_time_since_today"))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError("WakaTime", resp)
	}

	var payload wakatimeAllTime
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, err
	}
	if payload.Data == nil {
		return nil, nil
	}
	return payload.Data.Text, nil
}

func summarizeCoding(weekly wakatimeStats) stats.CodingActivitySummary {
	data := weekly.Data

	summary := stats.CodingActivitySummary{
		DailyAverage: orDefault(data.HumanReadableDailyAverage, stats.DefaultDuration),
		TotalTime:    orDefault(data.HumanReadableTotal, stats.DefaultDuration),
		BestDay:      data.BestDay,
		Languages:    nonNil(data.Languages),
		Editors:      nonNil(data.Editors),
		Categories:   nonNil(data.Categories),
		Range:        stats.Range{Start: data.Start, End: data.End},
	}

	// range is an object on some endpoints and a preset name on others
	var r stats.Range
	if len(data.Range) > 0 && json.Unmarshal(data.Range, &r) == nil {
		if r.Start != "" {
			summary.Range.Start = r.Start
		}
		if r.End != "" {
			summary.Range.End = r.End
		}
	}

	return summary
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func nonNil(entries []stats.Entry) []stats.Entry {
	if entries == nil {
		return []stats.Entry{}
	}
	return entries
}
