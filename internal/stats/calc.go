package stats

import (
	"math"
	"time"
)

// ChartDays is the length of the traffic chart
const ChartDays = 7

// ChartLabelLayout renders chart dates as "Jan 2"
const ChartLabelLayout = "Jan 2"

// RoundTo1 rounds f to one decimal place
func RoundTo1(f float64) float64 {
	return math.Round(f*10) / 10
}

// AveragePerDay is total spread over a year, rounded to one decimal
func AveragePerDay(total int) float64 {
	return RoundTo1(float64(total) / 365)
}

// ChartLabels returns the labels for today minus 6..0 days, oldest first, in now's location
func ChartLabels(now time.Time) []string {
	labels := make([]string, ChartDays)
	for i := range labels {
		labels[i] = now.AddDate(0, 0, i-(ChartDays-1)).Format(ChartLabelLayout)
	}
	return labels
}

// ZeroChart returns a seven-point chart with zero counts
func ZeroChart(now time.Time) []ChartPoint {
	points := make([]ChartPoint, ChartDays)
	for i, label := range ChartLabels(now) {
		points[i] = ChartPoint{Date: label}
	}
	return points
}
