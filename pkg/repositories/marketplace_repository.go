// Package repositories provides data access to the application database.
package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/database"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// MarketplaceRepository stores marketplace listings and catalog table
// embeddings, and ranks them against each other by cosine similarity.
type MarketplaceRepository interface {
	CreateListing(ctx context.Context, listing *models.MarketplaceListing, embedding []float32) error
	ListListings(ctx context.Context) ([]*models.MarketplaceListing, error)
	ListingsWithoutEmbedding(ctx context.Context) ([]*models.MarketplaceListing, error)
	SetListingEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error

	// UpsertEmbedding stores the embedding of one catalog table, replacing any previous one.
	UpsertEmbedding(ctx context.Context, datasource, tableFullName, content string, embedding []float32) error
	DeleteEmbeddings(ctx context.Context, datasource string) (int64, error)

	// TopMatches ranks every (catalog table, listing) pair by similarity.
	TopMatches(ctx context.Context, limit int) ([]models.MarketplaceMatch, error)
	// SimilarToTable ranks listings against one indexed table of a datasource.
	// Returns apperrors.ErrNotFound if the table has no embedding.
	SimilarToTable(ctx context.Context, datasource, tableFullName string, limit int) ([]models.MarketplaceMatch, error)
}

// EmbeddingDimensions is the vector width of the embedding columns in the
// migrations. Embeddings of any other width are rejected before they reach
// the database.
const EmbeddingDimensions = 1536

func checkDimensions(embedding []float32) error {
	if len(embedding) != EmbeddingDimensions {
		return fmt.Errorf("got %d dimensions, want %d: %w",
			len(embedding), EmbeddingDimensions, apperrors.ErrEmbeddingSize)
	}
	return nil
}

type marketplaceRepository struct {
	db *database.DB
}

// NewMarketplaceRepository creates a repository on the application database.
func NewMarketplaceRepository(db *database.DB) MarketplaceRepository {
	return &marketplaceRepository{db: db}
}

var _ MarketplaceRepository = (*marketplaceRepository)(nil)

func (r *marketplaceRepository) CreateListing(ctx context.Context, listing *models.MarketplaceListing, embedding []float32) error {
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}

	var vec *pgvector.Vector
	if len(embedding) > 0 {
		if err := checkDimensions(embedding); err != nil {
			return fmt.Errorf("listing %q: %w", listing.Title, err)
		}
		v := pgvector.NewVector(embedding)
		vec = &v
	}

	query := `
		INSERT INTO marketplace_listings (id, title, description, embedding)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.Pool.QueryRow(ctx, query, listing.ID, listing.Title, listing.Description, vec).Scan(&listing.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create marketplace listing: %w", err)
	}
	return nil
}

func (r *marketplaceRepository) ListListings(ctx context.Context) ([]*models.MarketplaceListing, error) {
	return r.queryListings(ctx, `
		SELECT id, title, description, created_at
		FROM marketplace_listings
		ORDER BY created_at, title`)
}

func (r *marketplaceRepository) ListingsWithoutEmbedding(ctx context.Context) ([]*models.MarketplaceListing, error) {
	return r.queryListings(ctx, `
		SELECT id, title, description, created_at
		FROM marketplace_listings
		WHERE embedding IS NULL
		ORDER BY created_at, title`)
}

func (r *marketplaceRepository) queryListings(ctx context.Context, query string) ([]*models.MarketplaceListing, error) {
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list marketplace listings: %w", err)
	}
	defer rows.Close()

	listings := []*models.MarketplaceListing{}
	for rows.Next() {
		var l models.MarketplaceListing
		if err := rows.Scan(&l.ID, &l.Title, &l.Description, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan marketplace listing: %w", err)
		}
		listings = append(listings, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating marketplace listings: %w", err)
	}
	return listings, nil
}

func (r *marketplaceRepository) SetListingEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	if err := checkDimensions(embedding); err != nil {
		return fmt.Errorf("listing %s: %w", id, err)
	}
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE marketplace_listings SET embedding = $2 WHERE id = $1`,
		id, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("failed to set listing embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("listing %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (r *marketplaceRepository) UpsertEmbedding(ctx context.Context, datasource, tableFullName, content string, embedding []float32) error {
	if err := checkDimensions(embedding); err != nil {
		return fmt.Errorf("embedding for %s: %w", tableFullName, err)
	}

	query := `
		INSERT INTO catalog_embeddings (table_full_name, datasource, content, embedding, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (datasource, table_full_name) DO UPDATE SET
			content    = EXCLUDED.content,
			embedding  = EXCLUDED.embedding,
			updated_at = now()`

	if _, err := r.db.Pool.Exec(ctx, query, tableFullName, datasource, content, pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("failed to upsert embedding for %s: %w", tableFullName, err)
	}
	return nil
}

func (r *marketplaceRepository) DeleteEmbeddings(ctx context.Context, datasource string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM catalog_embeddings WHERE datasource = $1`, datasource)
	if err != nil {
		return 0, fmt.Errorf("failed to delete embeddings: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *marketplaceRepository) TopMatches(ctx context.Context, limit int) ([]models.MarketplaceMatch, error) {
	query := `
		SELECT c.datasource, c.table_full_name, m.title, m.description,
		       1 - (c.embedding <=> m.embedding) AS similarity
		FROM catalog_embeddings c
		CROSS JOIN marketplace_listings m
		WHERE m.embedding IS NOT NULL
		ORDER BY similarity DESC, c.datasource, c.table_full_name, m.title
		LIMIT $1`

	return r.queryMatches(ctx, query, limit)
}

func (r *marketplaceRepository) SimilarToTable(ctx context.Context, datasource, tableFullName string, limit int) ([]models.MarketplaceMatch, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT true FROM catalog_embeddings WHERE datasource = $1 AND table_full_name = $2`,
		datasource, tableFullName).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("embedding for %s in %s: %w", tableFullName, datasource, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up embedding: %w", err)
	}

	query := `
		SELECT c.datasource, c.table_full_name, m.title, m.description,
		       1 - (c.embedding <=> m.embedding) AS similarity
		FROM catalog_embeddings c
		JOIN marketplace_listings m ON m.embedding IS NOT NULL
		WHERE c.datasource = $2 AND c.table_full_name = $3
		ORDER BY c.embedding <=> m.embedding, m.title
		LIMIT $1`

	return r.queryMatches(ctx, query, limit, datasource, tableFullName)
}

func (r *marketplaceRepository) queryMatches(ctx context.Context, query string, limit int, args ...any) ([]models.MarketplaceMatch, error) {
	rows, err := r.db.Pool.Query(ctx, query, append([]any{limit}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query marketplace matches: %w", err)
	}
	defer rows.Close()

	matches := []models.MarketplaceMatch{}
	for rows.Next() {
		var m models.MarketplaceMatch
		if err := rows.Scan(&m.Datasource, &m.Table, &m.Title, &m.Description, &m.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan marketplace match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating marketplace matches: %w", err)
	}
	return matches, nil
}
