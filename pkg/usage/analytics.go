package usage

import (
	"math"
	"sort"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

const (
	// DefaultRankingLimit is used when PopularityRanking is called with limit <= 0.
	DefaultRankingLimit = 10
	// DefaultRecentWindow is the number of trailing days compared against the overall mean.
	DefaultRecentWindow = 7
	// DefaultTrendThreshold is the percentage beyond which a deviation counts as a trend.
	DefaultTrendThreshold = 10.0
	// HoursPerDay is the length of a dense hourly distribution.
	HoursPerDay = 24
)

// DailySeries sums access counts per calendar date, ascending by date.
func DailySeries(aggs []models.UsageAggregate) []models.DailyTotal {
	sums := make(map[string]int64)
	for _, a := range aggs {
		sums[a.AccessDate] += a.AccessCount
	}
	out := make([]models.DailyTotal, 0, len(sums))
	for date, n := range sums {
		out = append(out, models.DailyTotal{Date: date, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// HourlyDistribution sums access counts per hour of day. Hours with no
// activity are omitted; see DenseHourly for the zero-filled form.
func HourlyDistribution(aggs []models.UsageAggregate) []models.HourlyTotal {
	sums := make(map[int]int64)
	for _, a := range aggs {
		sums[a.HourOfDay] += a.AccessCount
	}
	out := make([]models.HourlyTotal, 0, len(sums))
	for h, n := range sums {
		out = append(out, models.HourlyTotal{Hour: h, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out
}

// DenseHourly expands a sparse hourly distribution to all 24 hours.
func DenseHourly(hourly []models.HourlyTotal) []models.HourlyTotal {
	out := make([]models.HourlyTotal, HoursPerDay)
	for h := range out {
		out[h].Hour = h
	}
	for _, t := range hourly {
		if t.Hour >= 0 && t.Hour < HoursPerDay {
			out[t.Hour].Count += t.Count
		}
	}
	return out
}

// PopularityRanking sums access counts per table and returns the top entries,
// ordered by count descending and then table name ascending.
//
// The ranking is only meaningful across all tables, so a collection that has
// been narrowed with FilterTable yields apperrors.ErrFilteredAggregate.
func PopularityRanking(aggs Aggregates, limit int) (models.PopularityRanking, error) {
	if aggs.Filtered() {
		return nil, apperrors.ErrFilteredAggregate
	}
	if limit <= 0 {
		limit = DefaultRankingLimit
	}

	sums := make(map[string]int64)
	for _, a := range aggs.Rows {
		sums[a.TableFullName] += a.AccessCount
	}
	ranking := make(models.PopularityRanking, 0, len(sums))
	for name, n := range sums {
		ranking = append(ranking, models.RankedTable{TableFullName: name, AccessCount: n})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].AccessCount != ranking[j].AccessCount {
			return ranking[i].AccessCount > ranking[j].AccessCount
		}
		return ranking[i].TableFullName < ranking[j].TableFullName
	})
	if len(ranking) > limit {
		ranking = ranking[:limit]
	}
	return ranking, nil
}

// PeakHour returns the busiest hour; ties resolve to the earliest hour.
// The second result is false when the distribution is empty.
func PeakHour(hourly []models.HourlyTotal) (models.HourlyTotal, bool) {
	var (
		peak  models.HourlyTotal
		found bool
	)
	for _, h := range hourly {
		if !found || h.Count > peak.Count || (h.Count == peak.Count && h.Hour < peak.Hour) {
			peak = h
			found = true
		}
	}
	return peak, found
}

// TrendDeviation compares the mean of the last window entries of the daily
// series against the mean of the whole series, as a percentage:
//
//	(mean(recent) - mean(all)) / mean(all) * 100
//
// When the series is shorter than the window, recent is the whole series and
// the deviation is zero. The second result is false for an empty series or a
// zero overall mean.
func TrendDeviation(daily []models.DailyTotal, window int) (float64, bool) {
	if len(daily) == 0 {
		return 0, false
	}
	if window <= 0 {
		window = DefaultRecentWindow
	}

	overall := mean(daily)
	if overall == 0 {
		return 0, false
	}
	start := len(daily) - window
	if start < 0 {
		start = 0
	}
	recent := mean(daily[start:])
	return (recent - overall) / overall * 100, true
}

// ClassifyTrend turns a deviation into a direction. Deviations whose magnitude
// does not exceed threshold are stable.
func ClassifyTrend(deviation float64, ok bool, threshold float64) models.TrendDirection {
	if !ok {
		return models.TrendUnknown
	}
	switch {
	case math.Abs(deviation) <= threshold:
		return models.TrendStable
	case deviation > 0:
		return models.TrendIncreasing
	default:
		return models.TrendDecreasing
	}
}

// Trend computes the deviation and its classification in one step.
func Trend(daily []models.DailyTotal, window int, threshold float64) models.Trend {
	if window <= 0 {
		window = DefaultRecentWindow
	}
	dev, ok := TrendDeviation(daily, window)
	t := models.Trend{
		Direction:  ClassifyTrend(dev, ok, threshold),
		WindowDays: window,
	}
	if ok {
		t.DeviationPercent = &dev
	}
	return t
}

func mean(daily []models.DailyTotal) float64 {
	var sum int64
	for _, d := range daily {
		sum += d.Count
	}
	return float64(sum) / float64(len(daily))
}
