package usage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return v
}

func event(t *testing.T, qid, table, at string) models.AccessEvent {
	return models.AccessEvent{
		QueryID:      qid,
		StartTime:    ts(t, at),
		ObjectName:   table,
		ObjectDomain: models.ObjectDomainTable,
	}
}

func TestAggregate_DeduplicatesQueryWithinHour(t *testing.T) {
	events := []models.AccessEvent{
		event(t, "q1", "A", "2024-01-01T09:00:00Z"),
		event(t, "q1", "A", "2024-01-01T09:30:00Z"),
		event(t, "q2", "A", "2024-01-01T10:00:00Z"),
	}

	got := Aggregate(events)

	require.Len(t, got, 2)
	assert.Equal(t, models.UsageAggregate{
		AccessDate: "2024-01-01", DayOfWeek: "Monday", HourOfDay: 9, TableFullName: "A", AccessCount: 1,
	}, got[0])
	assert.Equal(t, models.UsageAggregate{
		AccessDate: "2024-01-01", DayOfWeek: "Monday", HourOfDay: 10, TableFullName: "A", AccessCount: 1,
	}, got[1])
}

func TestAggregate_CountsDistinctQueries(t *testing.T) {
	events := []models.AccessEvent{
		event(t, "q1", "db.s.t", "2024-03-05T14:01:00Z"),
		event(t, "q1", "db.s.t", "2024-03-05T14:02:00Z"),
		event(t, "q1", "db.s.t", "2024-03-05T14:03:00Z"),
		event(t, "q2", "db.s.t", "2024-03-05T14:04:00Z"),
		event(t, "q3", "db.s.t", "2024-03-05T14:59:59Z"),
	}

	got := Aggregate(events)

	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].AccessCount)
	assert.Equal(t, "Tuesday", got[0].DayOfWeek)
}

func TestAggregate_DropsNonTableObjects(t *testing.T) {
	events := []models.AccessEvent{
		event(t, "q1", "db.s.t", "2024-01-01T09:00:00Z"),
		{QueryID: "q2", StartTime: ts(t, "2024-01-01T09:00:00Z"), ObjectName: "db.s.v", ObjectDomain: "View"},
		{QueryID: "q3", StartTime: ts(t, "2024-01-01T09:00:00Z"), ObjectName: "db.s.stage", ObjectDomain: "Stage"},
		{QueryID: "q4", StartTime: ts(t, "2024-01-01T09:00:00Z"), ObjectName: "db.s.t", ObjectDomain: "table"},
	}

	got := Aggregate(events)

	require.Len(t, got, 1)
	assert.Equal(t, "db.s.t", got[0].TableFullName)
	assert.Equal(t, int64(2), got[0].AccessCount)
}

func TestAggregate_Empty(t *testing.T) {
	got := Aggregate(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAggregate_OrderedAndStable(t *testing.T) {
	events := []models.AccessEvent{
		event(t, "q5", "b", "2024-01-02T08:00:00Z"),
		event(t, "q4", "a", "2024-01-02T08:00:00Z"),
		event(t, "q3", "c", "2024-01-01T23:00:00Z"),
		event(t, "q2", "a", "2024-01-01T01:00:00Z"),
		event(t, "q1", "z", "2024-01-01T01:00:00Z"),
	}

	first := Aggregate(events)
	second := Aggregate(events)

	assert.Equal(t, first, second)
	var keys []string
	for _, r := range first {
		keys = append(keys, r.AccessDate+"/"+r.TableFullName)
	}
	assert.Equal(t, []string{"2024-01-01/a", "2024-01-01/z", "2024-01-01/c", "2024-01-02/a", "2024-01-02/b"}, keys)
}

func TestAggregate_BucketsInEventLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	ev := models.AccessEvent{
		QueryID:      "q1",
		StartTime:    time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC).In(tokyo),
		ObjectName:   "t",
		ObjectDomain: models.ObjectDomainTable,
	}

	got := Aggregate([]models.AccessEvent{ev})

	require.Len(t, got, 1)
	assert.Equal(t, "2024-01-02", got[0].AccessDate)
	assert.Equal(t, 8, got[0].HourOfDay)
	assert.Equal(t, "Tuesday", got[0].DayOfWeek)
}

func TestAggregates_FilterTable(t *testing.T) {
	aggs := NewAggregates([]models.UsageAggregate{
		{AccessDate: "2024-01-01", HourOfDay: 1, TableFullName: "a", AccessCount: 2},
		{AccessDate: "2024-01-01", HourOfDay: 2, TableFullName: "b", AccessCount: 3},
		{AccessDate: "2024-01-02", HourOfDay: 1, TableFullName: "a", AccessCount: 4},
	})

	filtered := aggs.FilterTable("a")

	assert.True(t, filtered.Filtered())
	assert.False(t, aggs.Filtered())
	assert.Len(t, filtered.Rows, 2)
	assert.Equal(t, int64(6), filtered.Total())
	assert.Equal(t, int64(6), aggs.TotalFor("a"))
	assert.Equal(t, int64(9), aggs.Total())
	assert.Equal(t, aggs, aggs.FilterTable(""))
}

func TestMerge(t *testing.T) {
	a := NewAggregates([]models.UsageAggregate{
		{AccessDate: "2024-01-02", HourOfDay: 1, TableFullName: "x.s.a", AccessCount: 1},
	})
	b := NewAggregates([]models.UsageAggregate{
		{AccessDate: "2024-01-01", HourOfDay: 5, TableFullName: "y.s.b", AccessCount: 2},
	})

	merged := Merge(a, b)

	require.Len(t, merged.Rows, 2)
	assert.Equal(t, "2024-01-01", merged.Rows[0].AccessDate)
	assert.False(t, merged.Filtered())
	assert.NotNil(t, Merge().Rows)
}
