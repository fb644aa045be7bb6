// Package stats holds the per-request summaries returned by the dashboard
// endpoints and the helpers that build them from loosely-typed provider payloads.
package stats

// ContributionDay is one calendar bucket
type ContributionDay struct {
	Count int    `json:"count"`
	Date  string `json:"date"`
}

// ContributionSummary is the contribution-calendar view
type ContributionSummary struct {
	TotalContributions int                 `json:"totalContributions"`
	ThisWeek           int                 `json:"thisWeek"`
	Average            float64             `json:"average"`
	Weeks              [][]ContributionDay `json:"weeks"`
}

// ChartPoint is one day of the traffic chart
type ChartPoint struct {
	Date      string `json:"date"`
	Pageviews int64  `json:"pageviews"`
	Visits    int64  `json:"visits"`
}

// CountryVisitors is one row of the traffic country breakdown.
// MapID is the numeric map identifier for Country, or Country itself when unknown.
type CountryVisitors struct {
	Country  string `json:"country"`
	Visitors int64  `json:"visitors"`
	MapID    string `json:"mapId"`
}

// TrafficSummary is the website-analytics view
type TrafficSummary struct {
	PageViews int64             `json:"pageViews"`
	Visitors  int64             `json:"visitors"`
	Visits    int64             `json:"visits"`
	Bounces   int64             `json:"bounces"`
	TotalTime int64             `json:"totalTime"`
	ChartData []ChartPoint      `json:"chartData"`
	Countries []CountryVisitors `json:"countries"`
}

// BestDay is the most productive day of the coding window
type BestDay struct {
	Date string `json:"date"`
	Text string `json:"text"`
}

// Entry is one ranked language, editor or category
type Entry struct {
	Name    string  `json:"name"`
	Percent float64 `json:"percent"`
	Text    string  `json:"text"`
}

// Range is the coding window
type Range struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// CodingActivitySummary is the time-tracking view
type CodingActivitySummary struct {
	DailyAverage string   `json:"dailyAverage"`
	TotalTime    string   `json:"totalTime"`
	BestDay      *BestDay `json:"bestDay"`
	Languages    []Entry  `json:"languages"`
	Editors      []Entry  `json:"editors"`
	Categories   []Entry  `json:"categories"`
	Range        Range    `json:"range"`
	AllTime      *string  `json:"allTime"`
}

// RecentTest is one typing-test record
type RecentTest struct {
	Wpm       float64 `json:"wpm"`
	Accuracy  float64 `json:"accuracy"`
	Mode      string  `json:"mode"`
	Duration  string  `json:"duration"`
	Timestamp int64   `json:"timestamp"`
}

// TypingSummary is the typing-test view. RateLimited and ErrorCode are set only
// on the zero-valued summary served when the provider refused the request.
type TypingSummary struct {
	TotalTests   int          `json:"totalTests"`
	BestWpm      float64      `json:"bestWpm"`
	AvgWpm       float64      `json:"avgWpm"`
	BestAccuracy float64      `json:"bestAccuracy"`
	AvgAccuracy  float64      `json:"avgAccuracy"`
	RecentTests  []RecentTest `json:"recentTests"`
	RateLimited  bool         `json:"rateLimited,omitempty"`
	ErrorCode    int          `json:"errorCode,omitempty"`
}

// DefaultDuration is reported when the provider omits a human-readable duration
const DefaultDuration = "0 hrs 0 mins"

// MaxWeeks is the trailing calendar window returned by the contribution view
const MaxWeeks = 52

// MaxRecentTests bounds TypingSummary.RecentTests
const MaxRecentTests = 5

// EmptyTyping returns the zero-valued summary used when the provider refused the request
func EmptyTyping(status int) TypingSummary {
	return TypingSummary{
		RecentTests: []RecentTest{},
		RateLimited: true,
		ErrorCode:   status,
	}
}
