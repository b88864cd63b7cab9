package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/cache"
	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// fakeSource is an in-memory warehouse keyed by database and full table name.
type fakeSource struct {
	mu sync.Mutex

	databases []string
	tables    map[string][]models.TableDescriptor
	columns   map[string][]models.ColumnDescriptor
	rowCounts map[string]int64
	stats     map[string]*models.TableStats
	events    map[string][]models.AccessEvent

	listDatabasesErr error
	listTablesErr    map[string]error
	countErr         error
	statsErr         error
	eventsErr        map[string]error

	calls  map[string]int
	closed bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		tables:        map[string][]models.TableDescriptor{},
		columns:       map[string][]models.ColumnDescriptor{},
		rowCounts:     map[string]int64{},
		stats:         map[string]*models.TableStats{},
		events:        map[string][]models.AccessEvent{},
		listTablesErr: map[string]error{},
		eventsErr:     map[string]error{},
		calls:         map[string]int{},
	}
}

func (f *fakeSource) record(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeSource) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeSource) ListDatabases(ctx context.Context) ([]string, error) {
	f.record("list_databases")
	if f.listDatabasesErr != nil {
		return nil, f.listDatabasesErr
	}
	return append([]string{}, f.databases...), nil
}

func (f *fakeSource) ListTables(ctx context.Context, database string) ([]models.TableDescriptor, error) {
	f.record("list_tables")
	if err := f.listTablesErr[database]; err != nil {
		return nil, err
	}
	return append([]models.TableDescriptor{}, f.tables[database]...), nil
}

func (f *fakeSource) ListColumns(ctx context.Context, table models.QualifiedName) ([]models.ColumnDescriptor, error) {
	f.record("list_columns")
	cols, ok := f.columns[table.String()]
	if !ok {
		return nil, fmt.Errorf("table %s: %w", table, apperrors.ErrNotFound)
	}
	return cols, nil
}

func (f *fakeSource) CountRows(ctx context.Context, table models.QualifiedName) (int64, error) {
	f.record("count_rows")
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.rowCounts[table.String()], nil
}

func (f *fakeSource) TableStats(ctx context.Context, table models.QualifiedName) (*models.TableStats, error) {
	f.record("table_stats")
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	if s, ok := f.stats[table.String()]; ok {
		return s, nil
	}
	return &models.TableStats{}, nil
}

func (f *fakeSource) RawAccessEvents(ctx context.Context, database string, since time.Time) ([]models.AccessEvent, error) {
	f.record("access_events")
	if err := f.eventsErr[database]; err != nil {
		return nil, err
	}
	return append([]models.AccessEvent{}, f.events[database]...), nil
}

func (f *fakeSource) Ping(ctx context.Context) error { return nil }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

var _ datasource.Source = (*fakeSource)(nil)

// fakeFactory hands out prepared sources by datasource name.
type fakeFactory struct {
	mu      sync.Mutex
	sources map[string]datasource.Source
	err     error
	created int
}

func (f *fakeFactory) NewSource(ctx context.Context, cfg config.DatasourceConfig) (datasource.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	if f.err != nil {
		return nil, f.err
	}
	src, ok := f.sources[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("no fake source for %s", cfg.Name)
	}
	return src, nil
}

func (f *fakeFactory) ListTypes() []datasource.AdapterInfo { return nil }

func strPtr(s string) *string { return &s }

func table(catalog, schema, name string, comment *string) models.TableDescriptor {
	return models.TableDescriptor{Catalog: catalog, Schema: schema, Name: name, Comment: comment}
}

func accessEvent(qid, object, at string) models.AccessEvent {
	ts, err := time.Parse(time.RFC3339, at)
	if err != nil {
		panic(err)
	}
	return models.AccessEvent{QueryID: qid, StartTime: ts, ObjectName: object, ObjectDomain: "Table"}
}

// warehouseFixture is a two-database warehouse:
//
//	SALES.PUBLIC.ORDERS     2 distinct queries
//	SALES.PUBLIC.CUSTOMERS  1
//	HR.PUBLIC.EMPLOYEES     3
//	HR.PUBLIC.OLD_TABLE     1 (dropped from the catalog)
//	HR.EMPLOYEES            1 (malformed name)
func warehouseFixture() *fakeSource {
	src := newFakeSource()
	src.databases = []string{"SALES", "HR"}
	src.tables["SALES"] = []models.TableDescriptor{
		table("SALES", "PUBLIC", "ORDERS", strPtr("Customer orders (売上)")),
		table("SALES", "PUBLIC", "CUSTOMERS", strPtr("顧客マスタ")),
		table("SALES", "PUBLIC", "SHIPMENTS", nil),
	}
	src.tables["HR"] = []models.TableDescriptor{
		table("HR", "PUBLIC", "EMPLOYEES", strPtr("Employee master")),
	}
	src.columns["SALES.PUBLIC.ORDERS"] = []models.ColumnDescriptor{
		{TableName: "ORDERS", ColumnName: "ORDER_ID", DataType: "NUMBER", Comment: strPtr("Order identifier"), OrdinalPosition: 1},
		{TableName: "ORDERS", ColumnName: "AMOUNT", DataType: "NUMBER", OrdinalPosition: 2},
	}
	src.columns["HR.PUBLIC.EMPLOYEES"] = []models.ColumnDescriptor{
		{TableName: "EMPLOYEES", ColumnName: "ID", DataType: "NUMBER", OrdinalPosition: 1},
	}
	src.rowCounts["SALES.PUBLIC.ORDERS"] = 1200

	src.events["SALES"] = []models.AccessEvent{
		accessEvent("q1", "SALES.PUBLIC.ORDERS", "2026-01-05T10:15:00Z"),
		accessEvent("q1", "SALES.PUBLIC.ORDERS", "2026-01-05T10:16:00Z"),
		accessEvent("q2", "SALES.PUBLIC.ORDERS", "2026-01-05T10:40:00Z"),
		accessEvent("q3", "SALES.PUBLIC.CUSTOMERS", "2026-01-06T11:00:00Z"),
		{QueryID: "q4", StartTime: time.Date(2026, 1, 6, 11, 0, 0, 0, time.UTC), ObjectName: "SALES.PUBLIC.V", ObjectDomain: "View"},
	}
	src.events["HR"] = []models.AccessEvent{
		accessEvent("h1", "HR.PUBLIC.EMPLOYEES", "2026-01-05T09:00:00Z"),
		accessEvent("h2", "HR.PUBLIC.EMPLOYEES", "2026-01-05T09:30:00Z"),
		accessEvent("h3", "HR.PUBLIC.EMPLOYEES", "2026-01-07T14:00:00Z"),
		accessEvent("h4", "HR.PUBLIC.OLD_TABLE", "2026-01-07T14:00:00Z"),
		accessEvent("h5", "HR.EMPLOYEES", "2026-01-07T15:00:00Z"),
	}
	return src
}

func testUsageConfig() config.UsageConfig {
	return config.UsageConfig{
		LookbackMonths:        3,
		RecentWindowDays:      7,
		TrendThresholdPercent: 10,
		RankingLimit:          10,
		RecommendationLimit:   5,
	}
}

// testEnv wires the services over one fake datasource named "wh".
type testEnv struct {
	src     *fakeSource
	factory *fakeFactory
	sources SourceSet
	cache   *cache.Cache
	usage   *usageService
	catalog CatalogService
}

func newTestEnv(t *testing.T, src *fakeSource) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	factory := &fakeFactory{sources: map[string]datasource.Source{"wh": src}}
	sources := NewSourceSet([]config.DatasourceConfig{{Name: "wh", Type: "fake"}}, factory, logger)
	c := cache.New(cache.NewMemoryStore(), time.Minute, logger)

	us := NewUsageService(sources, c, testUsageConfig(), 2, logger).(*usageService)
	us.now = func() time.Time { return time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC) }

	return &testEnv{
		src:     src,
		factory: factory,
		sources: sources,
		cache:   c,
		usage:   us,
		catalog: NewCatalogService(sources, c, nil, us, 2, 5, logger),
	}
}

// mockMarketplaceRepository is an in-memory MarketplaceRepository.
type mockMarketplaceRepository struct {
	mu         sync.Mutex
	listings   []*models.MarketplaceListing
	listingVec map[uuid.UUID][]float32
	embeddings map[string]string // datasource/table -> content
	vectors    map[string][]float32
	matches    []models.MarketplaceMatch
	lastLimit  int
	upsertErr  error
}

func newMockMarketplaceRepository() *mockMarketplaceRepository {
	return &mockMarketplaceRepository{
		listingVec: map[uuid.UUID][]float32{},
		embeddings: map[string]string{},
		vectors:    map[string][]float32{},
	}
}

func (m *mockMarketplaceRepository) CreateListing(ctx context.Context, listing *models.MarketplaceListing, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	listing.CreatedAt = time.Now()
	m.listings = append(m.listings, listing)
	if embedding != nil {
		m.listingVec[listing.ID] = embedding
	}
	return nil
}

func (m *mockMarketplaceRepository) ListListings(ctx context.Context) ([]*models.MarketplaceListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.MarketplaceListing{}, m.listings...), nil
}

func (m *mockMarketplaceRepository) ListingsWithoutEmbedding(ctx context.Context) ([]*models.MarketplaceListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.MarketplaceListing
	for _, l := range m.listings {
		if _, ok := m.listingVec[l.ID]; !ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockMarketplaceRepository) SetListingEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listingVec[id] = embedding
	return nil
}

func (m *mockMarketplaceRepository) UpsertEmbedding(ctx context.Context, ds, tableFullName, content string, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.embeddings[ds+"/"+tableFullName] = content
	m.vectors[ds+"/"+tableFullName] = embedding
	return nil
}

func (m *mockMarketplaceRepository) DeleteEmbeddings(ctx context.Context, ds string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.embeddings))
	m.embeddings = map[string]string{}
	return n, nil
}

func (m *mockMarketplaceRepository) TopMatches(ctx context.Context, limit int) ([]models.MarketplaceMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	return m.matches, nil
}

func (m *mockMarketplaceRepository) SimilarToTable(ctx context.Context, ds, tableFullName string, limit int) ([]models.MarketplaceMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	if _, ok := m.embeddings[ds+"/"+tableFullName]; !ok {
		return nil, fmt.Errorf("embedding for %s: %w", tableFullName, apperrors.ErrNotFound)
	}
	return m.matches, nil
}

func (m *mockMarketplaceRepository) content(ds, table string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.embeddings[ds+"/"+table]
	return c, ok
}
