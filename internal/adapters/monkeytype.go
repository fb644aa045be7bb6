package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ZanzyTHEbar/devfolio/internal/config"
	"github.com/ZanzyTHEbar/devfolio/internal/errors"
	"github.com/ZanzyTHEbar/devfolio/internal/resilience"
	"github.com/ZanzyTHEbar/devfolio/internal/stats"
)

const monkeytypeFetchFailed = "Failed to fetch Monkeytype data"

// TypingResult is one record of the provider's results list
type TypingResult struct {
	Wpm       float64         `json:"wpm"`
	Acc       float64         `json:"acc"`
	Mode      string          `json:"mode"`
	Mode2     json.RawMessage `json:"mode2"`
	Timestamp int64           `json:"timestamp"`
}

type typingResults struct {
	Data []TypingResult `json:"data"`
}

// MonkeytypeAdapter fetches typing-test results
type MonkeytypeAdapter struct {
	deps   Deps
	config config.MonkeytypeConfig
}

// NewMonkeytypeAdapter creates a new typing-test adapter
func NewMonkeytypeAdapter(deps Deps, cfg config.MonkeytypeConfig) *MonkeytypeAdapter {
	return &MonkeytypeAdapter{deps: deps, config: cfg}
}

// Validate reports a configuration error when the key is missing
func (m *MonkeytypeAdapter) Validate() error {
	if m.config.APIKey == "" {
		return errors.NewConfigurationError("Monkeytype API key not configured")
	}
	return nil
}

// FetchTyping returns the typing summary. Statuses inside the configured degrade
// range produce a zero-valued summary flagged as rate limited.
func (m *MonkeytypeAdapter) FetchTyping(ctx context.Context) (*stats.TypingSummary, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	resp, err := m.deps.Client.Do(ctx, resilience.Request{
		Provider: ProviderMonkeytype,
		URL:      joinURL(m.config.BaseURL, "results"),
		Headers:  map[string]string{"Authorization": "ApeKey " + m.config.APIKey},
	})
	if err != nil {
		return nil, errors.NewUpstreamError(ProviderMonkeytype, monkeytypeFetchFailed, http.StatusInternalServerError, "", err)
	}

	if !resp.OK() {
		if m.degrades(resp.StatusCode) {
			m.deps.degraded(ProviderMonkeytype, "results", statusError("Monkeytype", resp))
			summary := stats.EmptyTyping(resp.StatusCode)
			return &summary, nil
		}
		return nil, errors.NewUpstreamError(ProviderMonkeytype, fmt.Sprintf("Monkeytype API error: %d", resp.StatusCode),
			resp.StatusCode, string(resp.Body), statusError("Monkeytype", resp))
	}

	var payload typingResults
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, errors.NewUpstreamError(ProviderMonkeytype, monkeytypeFetchFailed, http.StatusInternalServerError, "", err)
	}

	summary := SummarizeTyping(payload.Data)
	return &summary, nil
}

func (m *MonkeytypeAdapter) degrades(status int) bool {
	return status >= m.config.DegradeStatusMin && status <= m.config.DegradeStatusMax
}

// SummarizeTyping aggregates results, which the provider lists newest first
func SummarizeTyping(results []TypingResult) stats.TypingSummary {
	summary := stats.TypingSummary{
		TotalTests:  len(results),
		RecentTests: []stats.RecentTest{},
	}
	if len(results) == 0 {
		return summary
	}

	var wpmSum, accSum float64
	for _, r := range results {
		wpmSum += r.Wpm
		accSum += r.Acc
		if r.Wpm > summary.BestWpm {
			summary.BestWpm = r.Wpm
		}
		if r.Acc > summary.BestAccuracy {
			summary.BestAccuracy = r.Acc
		}
	}
	summary.AvgWpm = wpmSum / float64(len(results))
	summary.AvgAccuracy = accSum / float64(len(results))

	for i, r := range results {
		if i == stats.MaxRecentTests {
			break
		}
		summary.RecentTests = append(summary.RecentTests, stats.RecentTest{
			Wpm:       r.Wpm,
			Accuracy:  r.Acc,
			Mode:      r.Mode,
			Duration:  rawString(r.Mode2),
			Timestamp: r.Timestamp,
		})
	}

	return summary
}

// rawString renders mode2, which the provider sends as a string or a number
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
