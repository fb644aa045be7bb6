package stats

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Aliases lists candidate upstream keys for one logical field, in priority order.
// A key may be a dotted path ("uniques.value").
type Aliases []string

// Alias tables for the analytics provider
var (
	PageViewsAliases = Aliases{"pageviews", "pageviews.value"}
	VisitorsAliases  = Aliases{"visitors", "uniques.value", "visitors.value"}
	VisitsAliases    = Aliases{"visits", "visits.value"}
	BouncesAliases   = Aliases{"bounces", "bounces.value"}
	TotalTimeAliases = Aliases{"totaltime", "totaltime.value"}

	CountryCodeAliases     = Aliases{"x", "country"}
	CountryVisitorsAliases = Aliases{"y", "value"}

	ChartPageviewsAliases = Aliases{"y", "pageviews"}
	ChartVisitsAliases    = Aliases{"visits"}
)

// chartVisitsRatio estimates a chart point's visits from its pageviews
// when the provider reports none
const chartVisitsRatio = 0.7

// Number returns the first alias that resolves to a number, or 0.
// A key holding an object with a numeric "value" counts as that number.
//
// An alias holding 0 still wins: 0 is a real count and does not fall
// through to later aliases.
func (a Aliases) Number(obj map[string]interface{}) float64 {
	for _, path := range a {
		if v, ok := lookup(obj, path); ok {
			if n, ok := toNumber(v); ok {
				return n
			}
			if m, ok := v.(map[string]interface{}); ok {
				if n, ok := toNumber(m["value"]); ok {
					return n
				}
			}
		}
	}
	return 0
}

// Count is Number truncated to a non-negative integer
func (a Aliases) Count(obj map[string]interface{}) int64 {
	return count(a.Number(obj))
}

// ChartVisits returns a daily row's visits. A missing or zero value is
// estimated as 70% of the row's "y" pageviews, rounded down.
func ChartVisits(row map[string]interface{}) int64 {
	if visits := ChartVisitsAliases.Count(row); visits > 0 {
		return visits
	}
	return count(math.Floor(Aliases{"y"}.Number(row) * chartVisitsRatio))
}

func count(n float64) int64 {
	if n <= 0 || math.IsNaN(n) {
		return 0
	}
	return int64(n)
}

// String returns the first alias holding a non-empty string, or "".
func (a Aliases) String(obj map[string]interface{}) string {
	for _, path := range a {
		if v, ok := lookup(obj, path); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func lookup(obj map[string]interface{}, path string) (interface{}, bool) {
	var cur interface{} = obj
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
