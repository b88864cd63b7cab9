package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// RawAccessEvents reads finished queries from system.query_log, one event per
// table a query touched within database.
func (s *Source) RawAccessEvents(ctx context.Context, database string, since time.Time) ([]models.AccessEvent, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, `
		SELECT query_id, query_start_time, t
		FROM system.query_log
		ARRAY JOIN tables AS t
		WHERE type = 'QueryFinish'
		  AND event_time >= ?
		  AND startsWith(t, concat(?, '.'))
		ORDER BY query_start_time`, since, database)
	if err != nil {
		return nil, fmt.Errorf("query access history: %w", err)
	}
	defer rows.Close()

	events := []models.AccessEvent{}
	for rows.Next() {
		var (
			e     models.AccessEvent
			table string
		)
		if err := rows.Scan(&e.QueryID, &e.StartTime, &table); err != nil {
			return nil, fmt.Errorf("scan access event: %w", err)
		}
		e.ObjectName = objectName(database, table)
		e.ObjectDomain = models.ObjectDomainTable
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access history: %w", err)
	}
	return events, nil
}

// objectName maps a query_log entry ("db.table", possibly backtick-quoted)
// to the catalog.schema.table form ListTables produces.
func objectName(database, entry string) string {
	entry = strings.ReplaceAll(entry, "`", "")
	table := strings.TrimPrefix(entry, database+".")
	return database + "." + database + "." + table
}
