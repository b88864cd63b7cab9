package duckdb

import (
	"context"
	"fmt"
	"time"

	"github.com/ekaya-inc/ekaya-catalog/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	sqlguard "github.com/ekaya-inc/ekaya-catalog/pkg/sql"
)

// RawAccessEvents reads the configured access history table.
func (s *Source) RawAccessEvents(ctx context.Context, database string, since time.Time) ([]models.AccessEvent, error) {
	if s.accessLog == "" {
		return nil, fmt.Errorf("duckdb access history (set access_log_table): %w", apperrors.ErrNotSupported)
	}
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE database_name = ?
		  AND query_start_time >= ?
		ORDER BY query_start_time`,
		datasource.AccessLogColumns,
		sqlguard.QuoteRelation(sqlguard.DialectANSI, s.accessLog),
	)

	rows, err := db.QueryContext(ctx, query, database, since)
	if err != nil {
		return nil, fmt.Errorf("query access history: %w", err)
	}
	defer rows.Close()

	events := []models.AccessEvent{}
	for rows.Next() {
		var e models.AccessEvent
		if err := rows.Scan(&e.QueryID, &e.StartTime, &e.ObjectName, &e.ObjectDomain); err != nil {
			return nil, fmt.Errorf("scan access event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access history: %w", err)
	}
	return events, nil
}
