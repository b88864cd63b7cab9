package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/catalog"
	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
	"github.com/ekaya-inc/ekaya-catalog/pkg/llm"
	"github.com/ekaya-inc/ekaya-catalog/pkg/logging"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
)

// IndexResult summarizes a bulk indexing run.
type IndexResult struct {
	Indexed  int      `json:"indexed"`
	Failed   int      `json:"failed"`
	Warnings []string `json:"warnings,omitempty"`
}

// MarketplaceService matches catalog tables against marketplace listings by
// embedding similarity.
type MarketplaceService interface {
	TopMatches(ctx context.Context, limit int) ([]models.MarketplaceMatch, error)
	// SimilarToTable ranks listings against one indexed table. An empty ds
	// selects the first configured datasource.
	SimilarToTable(ctx context.Context, ds string, table models.QualifiedName, limit int) ([]models.MarketplaceMatch, error)

	// IndexTable embeds a table's description and stores it for matching.
	IndexTable(ctx context.Context, ds string, table models.QualifiedName) error

	// IndexDatabase indexes every table of a database with bounded parallelism.
	IndexDatabase(ctx context.Context, ds, database string) (*IndexResult, error)

	AddListing(ctx context.Context, title, description string) (*models.MarketplaceListing, error)
	ListListings(ctx context.Context) ([]*models.MarketplaceListing, error)

	// EmbedPendingListings embeds listings stored without an embedding.
	EmbedPendingListings(ctx context.Context) (int, error)
}

type marketplaceService struct {
	repo         repositories.MarketplaceRepository
	sources      SourceSet
	catalog      CatalogService
	descriptions DescriptionService
	embedder     llm.EmbeddingClient
	pool         *llm.WorkerPool
	cfg          config.MarketplaceConfig
	logger       *zap.Logger
}

// NewMarketplaceService creates a marketplace service. descriptions may be
// nil, in which case tables are embedded from their metadata alone.
func NewMarketplaceService(
	repo repositories.MarketplaceRepository,
	sources SourceSet,
	catalogService CatalogService,
	descriptions DescriptionService,
	embedder llm.EmbeddingClient,
	pool *llm.WorkerPool,
	cfg config.MarketplaceConfig,
	logger *zap.Logger,
) MarketplaceService {
	if cfg.MatchLimit <= 0 {
		cfg.MatchLimit = 10
	}
	if pool == nil {
		pool = llm.NewWorkerPool(llm.DefaultWorkerPoolConfig(), logger)
	}
	return &marketplaceService{
		repo:         repo,
		sources:      sources,
		catalog:      catalogService,
		descriptions: descriptions,
		embedder:     embedder,
		pool:         pool,
		cfg:          cfg,
		logger:       logger.Named("marketplace"),
	}
}

var _ MarketplaceService = (*marketplaceService)(nil)

func (s *marketplaceService) limit(limit int) int {
	if limit <= 0 {
		return s.cfg.MatchLimit
	}
	return limit
}

func (s *marketplaceService) TopMatches(ctx context.Context, limit int) ([]models.MarketplaceMatch, error) {
	return s.repo.TopMatches(ctx, s.limit(limit))
}

func (s *marketplaceService) SimilarToTable(ctx context.Context, ds string, table models.QualifiedName, limit int) ([]models.MarketplaceMatch, error) {
	ds, err := s.sources.Resolve(ds)
	if err != nil {
		return nil, err
	}
	return s.repo.SimilarToTable(ctx, ds, table.String(), s.limit(limit))
}

func (s *marketplaceService) IndexTable(ctx context.Context, ds string, table models.QualifiedName) error {
	ds, err := s.sources.Resolve(ds)
	if err != nil {
		return err
	}

	tables, err := s.catalog.ListTables(ctx, ds, table.Catalog)
	if err != nil {
		return err
	}
	descriptor, ok := catalog.IndexByName(tables)[table.String()]
	if !ok {
		return fmt.Errorf("table %s: %w", table, apperrors.ErrNotFound)
	}
	return s.indexDescriptor(ctx, ds, descriptor)
}

func (s *marketplaceService) indexDescriptor(ctx context.Context, ds string, descriptor models.TableDescriptor) error {
	name := descriptor.QualifiedName()

	columns, err := s.catalog.GetColumns(ctx, ds, name)
	if err != nil {
		return err
	}

	var description string
	if s.descriptions != nil && s.descriptions.IsAvailable() {
		d, err := s.descriptions.Describe(ctx, ds, name, "")
		if err != nil {
			// Metadata alone still produces a usable embedding.
			s.logger.Warn("Indexing without generated description",
				zap.String("table", name.String()),
				zap.String("error", logging.SanitizeError(err)))
		} else {
			description = d.Content
		}
	}

	content := embeddingText(descriptor, columns, description)
	vec, err := s.embedder.CreateEmbedding(ctx, content, s.cfg.EmbeddingModel)
	if err != nil {
		return fmt.Errorf("embed %s: %w", name, err)
	}

	if err := s.repo.UpsertEmbedding(ctx, ds, name.String(), content, vec); err != nil {
		return err
	}
	s.logger.Debug("Indexed table", zap.String("table", name.String()))
	return nil
}

func (s *marketplaceService) IndexDatabase(ctx context.Context, ds, database string) (*IndexResult, error) {
	ds, err := s.sources.Resolve(ds)
	if err != nil {
		return nil, err
	}
	tables, err := s.catalog.ListTables(ctx, ds, database)
	if err != nil {
		return nil, err
	}

	items := make([]llm.WorkItem[struct{}], 0, len(tables))
	for _, t := range tables {
		items = append(items, llm.WorkItem[struct{}]{
			ID: t.FullName(),
			Execute: func(ctx context.Context) (struct{}, error) {
				return struct{}{}, s.indexDescriptor(ctx, ds, t)
			},
		})
	}

	results := llm.Process(ctx, s.pool, items, func(completed, total int) {
		s.logger.Debug("Indexing progress",
			zap.String("database", database),
			zap.Int("completed", completed),
			zap.Int("total", total))
	})

	result := &IndexResult{}
	for _, r := range results {
		if r.Err != nil {
			result.Failed++
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s could not be indexed: %s", r.ID, logging.SanitizeError(r.Err)))
			continue
		}
		result.Indexed++
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	s.logger.Info("Indexed database",
		zap.String("datasource", ds),
		zap.String("database", database),
		zap.Int("indexed", result.Indexed),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *marketplaceService) AddListing(ctx context.Context, title, description string) (*models.MarketplaceListing, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("listing title is required")
	}

	vec, err := s.embedder.CreateEmbedding(ctx, listingText(title, description), s.cfg.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("embed listing: %w", err)
	}

	listing := &models.MarketplaceListing{Title: title, Description: description}
	if err := s.repo.CreateListing(ctx, listing, vec); err != nil {
		return nil, err
	}
	return listing, nil
}

func (s *marketplaceService) ListListings(ctx context.Context) ([]*models.MarketplaceListing, error) {
	return s.repo.ListListings(ctx)
}

func (s *marketplaceService) EmbedPendingListings(ctx context.Context) (int, error) {
	pending, err := s.repo.ListingsWithoutEmbedding(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	inputs := make([]string, len(pending))
	for i, l := range pending {
		inputs[i] = listingText(l.Title, l.Description)
	}
	vecs, err := s.embedder.CreateEmbeddings(ctx, inputs, s.cfg.EmbeddingModel)
	if err != nil {
		return 0, fmt.Errorf("embed listings: %w", err)
	}
	if len(vecs) != len(pending) {
		return 0, fmt.Errorf("embed listings: got %d embeddings for %d listings", len(vecs), len(pending))
	}

	for i, l := range pending {
		if err := s.repo.SetListingEmbedding(ctx, l.ID, vecs[i]); err != nil {
			return i, err
		}
	}
	return len(pending), nil
}

// embeddingText is the document embedded for one catalog table.
func embeddingText(t models.TableDescriptor, columns []models.ColumnDescriptor, description string) string {
	var b strings.Builder
	b.WriteString(t.FullName())
	if c := t.CommentText(); c != "" {
		b.WriteString("\n")
		b.WriteString(c)
	}
	b.WriteString("\nColumns:")
	for _, col := range columns {
		b.WriteString("\n- ")
		b.WriteString(col.ColumnName)
		if col.Comment != nil && *col.Comment != "" {
			b.WriteString(": ")
			b.WriteString(*col.Comment)
		}
	}
	if description != "" {
		b.WriteString("\n\n")
		b.WriteString(description)
	}
	return b.String()
}

func listingText(title, description string) string {
	if description == "" {
		return title
	}
	return title + "\n" + description
}
