package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/devfolio/internal/config"
	"github.com/ZanzyTHEbar/devfolio/internal/errors"
	"github.com/ZanzyTHEbar/devfolio/internal/resilience"
	"github.com/ZanzyTHEbar/devfolio/internal/stats"
)

const (
	umamiFetchFailed = "Failed to fetch Umami data"

	statsWindow = 30 * 24 * time.Hour
	chartWindow = 7 * 24 * time.Hour
)

// UmamiAdapter fetches website traffic from the analytics provider
type UmamiAdapter struct {
	deps   Deps
	config config.UmamiConfig
}

// NewUmamiAdapter creates a new analytics adapter
func NewUmamiAdapter(deps Deps, cfg config.UmamiConfig) *UmamiAdapter {
	return &UmamiAdapter{deps: deps, config: cfg}
}

// Validate reports a configuration error when the key or site id is missing
func (u *UmamiAdapter) Validate() error {
	if u.config.APIKey == "" || u.config.WebsiteID == "" {
		return errors.NewConfigurationError("Umami credentials not configured")
	}
	return nil
}

// FetchTraffic returns 30-day totals, the country breakdown and a 7-day chart ending at now.
// Only the totals call can fail the request; the other two degrade to empty data.
func (u *UmamiAdapter) FetchTraffic(ctx context.Context, now time.Time) (*stats.TrafficSummary, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	endAt := now.UnixMilli()
	startAt := now.Add(-statsWindow).UnixMilli()
	chartStart := now.Add(-chartWindow).UnixMilli()

	summary := &stats.TrafficSummary{
		ChartData: stats.ZeroChart(now),
		Countries: []stats.CountryVisitors{},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		totals, err := u.fetchTotals(gctx, startAt, endAt)
		if err != nil {
			return err
		}
		summary.PageViews = stats.PageViewsAliases.Count(totals)
		summary.Visitors = stats.VisitorsAliases.Count(totals)
		summary.Visits = stats.VisitsAliases.Count(totals)
		summary.Bounces = stats.BouncesAliases.Count(totals)
		summary.TotalTime = stats.TotalTimeAliases.Count(totals)
		return nil
	})

	g.Go(func() error {
		rows, err := u.fetchMetrics(gctx, startAt, endAt, url.Values{"type": {"country"}})
		if err != nil {
			if gctx.Err() == nil {
				u.deps.degraded(ProviderUmami, "countries", err)
			}
			return nil
		}
		summary.Countries = countriesFrom(rows)
		return nil
	})

	g.Go(func() error {
		rows, err := u.fetchMetrics(gctx, chartStart, endAt, url.Values{"type": {"url"}, "unit": {"day"}})
		if err != nil {
			if gctx.Err() == nil {
				u.deps.degraded(ProviderUmami, "chartData", err)
			}
			return nil
		}
		summary.ChartData = chartFrom(rows, now)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}

func (u *UmamiAdapter) request(path string, query url.Values) resilience.Request {
	return resilience.Request{
		Provider: ProviderUmami,
		URL:      joinURL(u.config.BaseURL, "websites", url.PathEscape(u.config.WebsiteID), path),
		Query:    query,
		Headers:  map[string]string{"x-umami-api-key": u.config.APIKey},
	}
}

func (u *UmamiAdapter) fetchTotals(ctx context.Context, startAt, endAt int64) (map[string]interface{}, error) {
	resp, err := u.deps.Client.Do(ctx, u.request("stats", window(startAt, endAt)))
	if err != nil {
		return nil, errors.NewUpstreamError(ProviderUmami, umamiFetchFailed, http.StatusInternalServerError, "", err)
	}

	if !resp.OK() {
		return nil, errors.NewUpstreamError(ProviderUmami, fmt.Sprintf("Umami API error: %d", resp.StatusCode),
			resp.StatusCode, string(resp.Body), statusError("Umami", resp))
	}

	var totals map[string]interface{}
	if err := resp.DecodeJSON(&totals); err != nil {
		return nil, errors.NewUpstreamError(ProviderUmami, umamiFetchFailed, http.StatusInternalServerError, "", err)
	}
	return totals, nil
}

func (u *UmamiAdapter) fetchMetrics(ctx context.Context, startAt, endAt int64, extra url.Values) ([]map[string]interface{}, error) {
	query := window(startAt, endAt)
	for k, v := range extra {
		query[k] = v
	}

	resp, err := u.deps.Client.Do(ctx, u.request("metrics", query))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError("Umami", resp)
	}

	var rows []map[string]interface{}
	if err := resp.DecodeJSON(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func window(startAt, endAt int64) url.Values {
	return url.Values{
		"startAt": {strconv.FormatInt(startAt, 10)},
		"endAt":   {strconv.FormatInt(endAt, 10)},
	}
}

func countriesFrom(rows []map[string]interface{}) []stats.CountryVisitors {
	out := make([]stats.CountryVisitors, 0, len(rows))
	for _, row := range rows {
		code := stats.CountryCodeAliases.String(row)
		out = append(out, stats.CountryVisitors{
			Country:  code,
			Visitors: stats.CountryVisitorsAliases.Count(row),
			MapID:    stats.CountryMapID(code),
		})
	}
	return out
}

// chartFrom labels the seven points from now; point i takes upstream row i when present
func chartFrom(rows []map[string]interface{}, now time.Time) []stats.ChartPoint {
	points := stats.ZeroChart(now)
	for i := range points {
		if i >= len(rows) {
			break
		}
		points[i].Pageviews = stats.ChartPageviewsAliases.Count(rows[i])
		points[i].Visits = stats.ChartVisits(rows[i])
	}
	return points
}
