// Package usage turns raw access-log events into per-hour table access
// statistics and derives the daily, hourly, ranking and trend views over them.
// Everything in this package is pure and safe for concurrent use.
package usage

import (
	"sort"
	"strings"

	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// DateLayout is the calendar-date format of UsageAggregate.AccessDate.
const DateLayout = "2006-01-02"

type bucketKey struct {
	date  string
	hour  int
	table string
}

type bucket struct {
	dayOfWeek string
	queries   map[string]struct{}
}

// Aggregate groups table access events by (date, hour, table) and counts the
// distinct query ids in each group. Events whose object domain is not a table
// are dropped. Timestamps are bucketed in the location they carry.
//
// Rows are ordered by date ascending, then hour, then table name.
func Aggregate(events []models.AccessEvent) []models.UsageAggregate {
	buckets := make(map[bucketKey]*bucket)

	for _, ev := range events {
		if !strings.EqualFold(ev.ObjectDomain, models.ObjectDomainTable) {
			continue
		}
		key := bucketKey{
			date:  ev.StartTime.Format(DateLayout),
			hour:  ev.StartTime.Hour(),
			table: ev.ObjectName,
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{
				dayOfWeek: ev.StartTime.Weekday().String(),
				queries:   make(map[string]struct{}),
			}
			buckets[key] = b
		}
		b.queries[ev.QueryID] = struct{}{}
	}

	out := make([]models.UsageAggregate, 0, len(buckets))
	for key, b := range buckets {
		out = append(out, models.UsageAggregate{
			AccessDate:    key.date,
			DayOfWeek:     b.dayOfWeek,
			HourOfDay:     key.hour,
			TableFullName: key.table,
			AccessCount:   int64(len(b.queries)),
		})
	}
	sortAggregates(out)
	return out
}

func sortAggregates(rows []models.UsageAggregate) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.AccessDate != b.AccessDate {
			return a.AccessDate < b.AccessDate
		}
		if a.HourOfDay != b.HourOfDay {
			return a.HourOfDay < b.HourOfDay
		}
		return a.TableFullName < b.TableFullName
	})
}

// Aggregates is a usage aggregate together with the table it has been narrowed
// to, if any. A filtered collection cannot produce a popularity ranking.
type Aggregates struct {
	Rows  []models.UsageAggregate
	Table string
}

// NewAggregates wraps an unfiltered aggregate.
func NewAggregates(rows []models.UsageAggregate) Aggregates {
	if rows == nil {
		rows = []models.UsageAggregate{}
	}
	return Aggregates{Rows: rows}
}

// Filtered reports whether the collection has been narrowed to a single table.
func (a Aggregates) Filtered() bool {
	return a.Table != ""
}

// FilterTable keeps only the rows for the given fully-qualified table name.
// An empty name returns the collection unchanged.
func (a Aggregates) FilterTable(table string) Aggregates {
	if table == "" {
		return a
	}
	rows := make([]models.UsageAggregate, 0)
	for _, r := range a.Rows {
		if r.TableFullName == table {
			rows = append(rows, r)
		}
	}
	return Aggregates{Rows: rows, Table: table}
}

// TotalFor sums the access counts recorded for one table.
func (a Aggregates) TotalFor(table string) int64 {
	var total int64
	for _, r := range a.Rows {
		if r.TableFullName == table {
			total += r.AccessCount
		}
	}
	return total
}

// Total sums every access count in the collection.
func (a Aggregates) Total() int64 {
	var total int64
	for _, r := range a.Rows {
		total += r.AccessCount
	}
	return total
}

// Merge concatenates several unfiltered aggregates and restores the row order.
func Merge(parts ...Aggregates) Aggregates {
	var rows []models.UsageAggregate
	for _, p := range parts {
		rows = append(rows, p.Rows...)
	}
	if rows == nil {
		rows = []models.UsageAggregate{}
	}
	sortAggregates(rows)
	return Aggregates{Rows: rows}
}
