//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/testhelpers"
)

// axis returns a unit vector along dimension i, optionally tilted toward j.
func axis(i, j int, tilt float32) []float32 {
	v := make([]float32, EmbeddingDimensions)
	v[i] = 1
	if tilt != 0 {
		v[j] = tilt
	}
	return v
}

func setupMarketplaceTest(t *testing.T) MarketplaceRepository {
	t.Helper()
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	_, err := testDB.DB.Pool.Exec(ctx, `TRUNCATE catalog_embeddings, marketplace_listings`)
	require.NoError(t, err)

	return NewMarketplaceRepository(testDB.DB)
}

func TestMarketplaceRepository_TopMatchesOrdersBySimilarity(t *testing.T) {
	repo := setupMarketplaceTest(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateListing(ctx, &models.MarketplaceListing{Title: "Weather", Description: "daily weather"}, axis(0, 0, 0)))
	require.NoError(t, repo.CreateListing(ctx, &models.MarketplaceListing{Title: "Retail POS", Description: "store sales"}, axis(1, 0, 0)))
	require.NoError(t, repo.CreateListing(ctx, &models.MarketplaceListing{Title: "Pending"}, nil))

	require.NoError(t, repo.UpsertEmbedding(ctx, "wh", "SALES.PUBLIC.ORDERS", "orders", axis(1, 0, 0.2)))

	matches, err := repo.TopMatches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2, "listings without an embedding never match")

	assert.Equal(t, "Retail POS", matches[0].Title)
	assert.Equal(t, "SALES.PUBLIC.ORDERS", matches[0].Table)
	assert.Equal(t, "wh", matches[0].Datasource)
	assert.Greater(t, matches[0].Similarity, matches[1].Similarity)

	limited, err := repo.TopMatches(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMarketplaceRepository_UpsertReplacesEmbedding(t *testing.T) {
	repo := setupMarketplaceTest(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateListing(ctx, &models.MarketplaceListing{Title: "Weather"}, axis(0, 0, 0)))
	require.NoError(t, repo.CreateListing(ctx, &models.MarketplaceListing{Title: "Retail POS"}, axis(1, 0, 0)))

	require.NoError(t, repo.UpsertEmbedding(ctx, "wh", "SALES.PUBLIC.ORDERS", "v1", axis(1, 0, 0)))
	require.NoError(t, repo.UpsertEmbedding(ctx, "wh", "SALES.PUBLIC.ORDERS", "v2", axis(0, 0, 0)))

	matches, err := repo.SimilarToTable(ctx, "wh", "SALES.PUBLIC.ORDERS", 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "Weather", matches[0].Title)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
}

func TestMarketplaceRepository_SimilarToTableNotIndexed(t *testing.T) {
	repo := setupMarketplaceTest(t)

	_, err := repo.SimilarToTable(context.Background(), "wh", "NOPE.PUBLIC.T", 5)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMarketplaceRepository_SameTableNameInTwoDatasources(t *testing.T) {
	repo := setupMarketplaceTest(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateListing(ctx, &models.MarketplaceListing{Title: "Weather"}, axis(0, 0, 0)))
	require.NoError(t, repo.CreateListing(ctx, &models.MarketplaceListing{Title: "Retail POS"}, axis(1, 0, 0)))

	require.NoError(t, repo.UpsertEmbedding(ctx, "prod", "SALES.PUBLIC.ORDERS", "prod orders", axis(1, 0, 0)))
	require.NoError(t, repo.UpsertEmbedding(ctx, "archive", "SALES.PUBLIC.ORDERS", "archived weather", axis(0, 0, 0)))

	prod, err := repo.SimilarToTable(ctx, "prod", "SALES.PUBLIC.ORDERS", 1)
	require.NoError(t, err)
	require.Len(t, prod, 1)
	assert.Equal(t, "Retail POS", prod[0].Title)
	assert.Equal(t, "prod", prod[0].Datasource)

	archive, err := repo.SimilarToTable(ctx, "archive", "SALES.PUBLIC.ORDERS", 1)
	require.NoError(t, err)
	require.Len(t, archive, 1)
	assert.Equal(t, "Weather", archive[0].Title)
	assert.Equal(t, "archive", archive[0].Datasource)

	all, err := repo.TopMatches(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 4, "both datasources keep their own embedding")

	_, err = repo.SimilarToTable(ctx, "other", "SALES.PUBLIC.ORDERS", 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMarketplaceRepository_ListingEmbeddingLifecycle(t *testing.T) {
	repo := setupMarketplaceTest(t)
	ctx := context.Background()

	listing := &models.MarketplaceListing{Title: "Census", Description: "population"}
	require.NoError(t, repo.CreateListing(ctx, listing, nil))
	assert.False(t, listing.CreatedAt.IsZero())

	pending, err := repo.ListingsWithoutEmbedding(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, listing.ID, pending[0].ID)

	require.NoError(t, repo.SetListingEmbedding(ctx, listing.ID, axis(2, 0, 0)))

	pending, err = repo.ListingsWithoutEmbedding(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := repo.ListListings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMarketplaceRepository_DeleteEmbeddings(t *testing.T) {
	repo := setupMarketplaceTest(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertEmbedding(ctx, "wh", "A.B.C", "x", axis(0, 0, 0)))
	require.NoError(t, repo.UpsertEmbedding(ctx, "other", "D.E.F", "y", axis(1, 0, 0)))

	n, err := repo.DeleteEmbeddings(ctx, "wh")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
