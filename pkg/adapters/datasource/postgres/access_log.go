package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-catalog/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// RawAccessEvents reads the configured access history relation, which lives in
// the default database and covers every database of the server.
func (s *Source) RawAccessEvents(ctx context.Context, database string, since time.Time) ([]models.AccessEvent, error) {
	if s.accessLog == "" {
		return nil, fmt.Errorf("postgres access history (set access_log_table): %w", apperrors.ErrNotSupported)
	}
	pool, err := s.pool(ctx, s.config.Database)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE database_name = $1
		  AND query_start_time >= $2
		ORDER BY query_start_time`,
		datasource.AccessLogColumns,
		pgx.Identifier(strings.Split(s.accessLog, ".")).Sanitize(),
	)

	rows, err := pool.Query(ctx, query, database, since)
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
