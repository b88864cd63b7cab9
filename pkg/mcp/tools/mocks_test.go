package tools

import (
	"context"

	"github.com/ekaya-inc/ekaya-catalog/pkg/catalog"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
	"github.com/ekaya-inc/ekaya-catalog/pkg/usage"
)

type mockCatalogService struct {
	databases []string
	tables    []models.TableDescriptor
	detail    *services.TableDetailResult
	search    *services.UsageListing
	err       error

	lastDatasource string
	lastTerm       string
	lastCategories []string
	lastLimit      int
	lastTable      models.QualifiedName
}

func (m *mockCatalogService) ListDatabases(ctx context.Context, ds string) ([]string, error) {
	m.lastDatasource = ds
	return m.databases, m.err
}

func (m *mockCatalogService) ListTables(ctx context.Context, ds, database string) ([]models.TableDescriptor, error) {
	m.lastDatasource = ds
	return m.tables, m.err
}

func (m *mockCatalogService) ListAllTables(ctx context.Context, ds string) (*services.TableListing, error) {
	return &services.TableListing{Tables: m.tables}, m.err
}

func (m *mockCatalogService) GetColumns(ctx context.Context, ds string, table models.QualifiedName) ([]models.ColumnDescriptor, error) {
	return nil, m.err
}

func (m *mockCatalogService) CountRows(ctx context.Context, ds string, table models.QualifiedName) (int64, error) {
	return 0, m.err
}

func (m *mockCatalogService) GetTableStats(ctx context.Context, ds string, table models.QualifiedName) (*models.TableStats, error) {
	return nil, m.err
}

func (m *mockCatalogService) GetTableDetail(ctx context.Context, ds string, table models.QualifiedName) (*services.TableDetailResult, error) {
	m.lastTable = table
	if m.err != nil {
		return nil, m.err
	}
	return m.detail, nil
}

func (m *mockCatalogService) Search(ctx context.Context, ds, term string, categoryIDs []string) (*services.UsageListing, error) {
	m.lastTerm = term
	m.lastCategories = categoryIDs
	if m.err != nil {
		return nil, m.err
	}
	return m.search, nil
}

func (m *mockCatalogService) Recommend(ctx context.Context, ds string, limit int) (*services.UsageListing, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.search, nil
}

func (m *mockCatalogService) Categories() []models.Category {
	return catalog.DefaultTaxonomy().All()
}

func (m *mockCatalogService) Refresh(ctx context.Context, ds string) error {
	return m.err
}

var _ services.CatalogService = (*mockCatalogService)(nil)

type mockUsageService struct {
	report       *models.UsageReport
	err          error
	lastDatabase string
	lastTable    string
	allCalled    bool
}

func (m *mockUsageService) Aggregates(ctx context.Context, ds, database string) (usage.Aggregates, []string, error) {
	return usage.Aggregates{}, nil, m.err
}

func (m *mockUsageService) AllAggregates(ctx context.Context, ds string) (usage.Aggregates, []string, error) {
	return usage.Aggregates{}, nil, m.err
}

func (m *mockUsageService) Report(ctx context.Context, ds, database, table string) (*models.UsageReport, error) {
	m.lastDatabase = database
	m.lastTable = table
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func (m *mockUsageService) AllDatabasesReport(ctx context.Context, ds, table string) (*models.UsageReport, error) {
	m.allCalled = true
	m.lastTable = table
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func (m *mockUsageService) TableAccessTotal(ctx context.Context, ds string, table models.QualifiedName) (int64, []string, error) {
	return 0, nil, m.err
}

var _ services.UsageService = (*mockUsageService)(nil)

type mockDescriptionService struct {
	desc       *models.TableDescription
	err        error
	lastLocale string
}

func (m *mockDescriptionService) Describe(ctx context.Context, ds string, table models.QualifiedName, locale string) (*models.TableDescription, error) {
	m.lastLocale = locale
	if m.err != nil {
		return nil, m.err
	}
	return m.desc, nil
}

func (m *mockDescriptionService) IsAvailable() bool { return m.err == nil }

var _ services.DescriptionService = (*mockDescriptionService)(nil)

type mockMarketplaceService struct {
	matches   []models.MarketplaceMatch
	err       error
	lastDS    string
	lastTable string
	lastLimit int
}

func (m *mockMarketplaceService) TopMatches(ctx context.Context, limit int) ([]models.MarketplaceMatch, error) {
	m.lastLimit = limit
	return m.matches, m.err
}

func (m *mockMarketplaceService) SimilarToTable(ctx context.Context, ds string, table models.QualifiedName, limit int) ([]models.MarketplaceMatch, error) {
	m.lastDS = ds
	m.lastTable = table.String()
	m.lastLimit = limit
	return m.matches, m.err
}

func (m *mockMarketplaceService) IndexTable(ctx context.Context, ds string, table models.QualifiedName) error {
	return m.err
}

func (m *mockMarketplaceService) IndexDatabase(ctx context.Context, ds, database string) (*services.IndexResult, error) {
	return &services.IndexResult{}, m.err
}

func (m *mockMarketplaceService) AddListing(ctx context.Context, title, description string) (*models.MarketplaceListing, error) {
	return &models.MarketplaceListing{Title: title, Description: description}, m.err
}

func (m *mockMarketplaceService) ListListings(ctx context.Context) ([]*models.MarketplaceListing, error) {
	return nil, m.err
}

func (m *mockMarketplaceService) EmbedPendingListings(ctx context.Context) (int, error) {
	return 0, m.err
}

var _ services.MarketplaceService = (*mockMarketplaceService)(nil)
