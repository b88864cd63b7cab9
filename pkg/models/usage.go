package models

import "time"

// ObjectDomainTable is the object kind that participates in usage statistics.
const ObjectDomainTable = "Table"

// AccessEvent is one record of a query touching an object, as read from an access log.
type AccessEvent struct {
	QueryID      string    `json:"query_id"`
	StartTime    time.Time `json:"query_start_time"`
	ObjectName   string    `json:"object_name"`
	ObjectDomain string    `json:"object_domain"`
}

// UsageAggregate is the distinct-query access count for one (date, hour, table).
type UsageAggregate struct {
	AccessDate    string `json:"access_date"` // YYYY-MM-DD
	DayOfWeek     string `json:"day_of_week"`
	HourOfDay     int    `json:"hour_of_day"`
	TableFullName string `json:"table_full_name"`
	AccessCount   int64  `json:"access_count"`
}

// DailyTotal is the summed access count for one calendar date.
type DailyTotal struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// HourlyTotal is the summed access count for one hour of day.
type HourlyTotal struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

// RankedTable is one entry of a popularity ranking.
type RankedTable struct {
	TableFullName string `json:"table_full_name"`
	AccessCount   int64  `json:"access_count"`
}

// PopularityRanking is ordered by access count descending, ties by table name ascending.
type PopularityRanking []RankedTable

// TrendDirection classifies a trend deviation for display.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
	TrendUnknown    TrendDirection = "unknown"
)

// Trend is the recent-vs-overall comparison of daily totals.
// DeviationPercent is nil when the overall mean is zero.
type Trend struct {
	DeviationPercent *float64       `json:"deviation_percent,omitempty"`
	Direction        TrendDirection `json:"direction"`
	WindowDays       int            `json:"window_days"`
}

// UsageReport is the analytics view over one database (optionally one table).
type UsageReport struct {
	Database    string            `json:"database,omitempty"`
	Table       string            `json:"table,omitempty"`
	Since       time.Time         `json:"since"`
	Aggregates  []UsageAggregate  `json:"aggregates"`
	Daily       []DailyTotal      `json:"daily"`
	Hourly      []HourlyTotal     `json:"hourly"`
	HourlyDense []HourlyTotal     `json:"hourly_dense"`
	Ranking     PopularityRanking `json:"ranking,omitempty"`
	PeakHour    *HourlyTotal      `json:"peak_hour,omitempty"`
	Trend       Trend             `json:"trend"`
	TotalAccess int64             `json:"total_access"`
	Warnings    []string          `json:"warnings,omitempty"`
}
