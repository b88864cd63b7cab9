package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

func strPtr(s string) *string { return &s }

func table(name string, comment *string) models.TableDescriptor {
	return models.TableDescriptor{Catalog: "db", Schema: "public", Name: name, Comment: comment}
}

func names(tables []models.TableDescriptor) []string {
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		out = append(out, t.Name)
	}
	return out
}

func fixtureTables() []models.TableDescriptor {
	return []models.TableDescriptor{
		table("sales_fact", nil),
		table("dim_region", strPtr("region lookup")),
		table("CUSTOMER_MASTER", strPtr("顧客マスタ")),
		table("t_order_line", strPtr("注文明細")),
		table("audit_log", strPtr("")),
	}
}

func TestFilterByKeywords_SpecExample(t *testing.T) {
	tables := []models.TableDescriptor{
		table("sales_fact", nil),
		table("dim_region", strPtr("region lookup")),
	}

	got := FilterByKeywords(tables, []string{"sales"})

	assert.Equal(t, []string{"sales_fact"}, names(got))
}

func TestFilterByKeywords(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		want     []string
	}{
		{"empty set is identity", nil, []string{"sales_fact", "dim_region", "CUSTOMER_MASTER", "t_order_line", "audit_log"}},
		{"blank keywords are identity", []string{" ", ""}, []string{"sales_fact", "dim_region", "CUSTOMER_MASTER", "t_order_line", "audit_log"}},
		{"matches comment", []string{"lookup"}, []string{"dim_region"}},
		{"case-insensitive name", []string{"customer"}, []string{"CUSTOMER_MASTER"}},
		{"japanese comment", []string{"注文"}, []string{"t_order_line"}},
		{"any keyword", []string{"sales", "region"}, []string{"sales_fact", "dim_region"}},
		{"no match", []string{"inventory"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(FilterByKeywords(fixtureTables(), tt.keywords)))
		})
	}
}

func TestSearchByTerm(t *testing.T) {
	tables := fixtureTables()

	assert.Equal(t, tables, SearchByTerm(tables, ""))
	assert.Equal(t, tables, SearchByTerm(tables, "   "))
	assert.Equal(t, []string{"CUSTOMER_MASTER"}, names(SearchByTerm(tables, "Customer")))
	assert.Equal(t, []string{"CUSTOMER_MASTER"}, names(SearchByTerm(tables, "顧客")))
	assert.Equal(t, []string{"dim_region"}, names(SearchByTerm(tables, "LOOKUP")))
	assert.Empty(t, SearchByTerm(tables, "missing"))
	assert.NotNil(t, SearchByTerm(tables, "missing"))
}

func TestSearchByTerm_NilCommentNeverMatches(t *testing.T) {
	tables := []models.TableDescriptor{table("a", nil)}
	assert.Empty(t, SearchByTerm(tables, "lookup"))
}

func TestApply_TermAndCategoriesIntersect(t *testing.T) {
	tax := DefaultTaxonomy()
	customer, ok := tax.Get("customer")
	require.True(t, ok)
	region, ok := tax.Get("region")
	require.True(t, ok)

	tables := fixtureTables()

	assert.Equal(t, []string{"dim_region"}, names(Apply(tables, "dim", customer, region)))
	assert.Equal(t, []string{"dim_region", "CUSTOMER_MASTER"}, names(Apply(tables, "", customer, region)))
	assert.Empty(t, Apply(tables, "sales", customer))
	assert.Equal(t, tables, Apply(tables, ""))
}

func TestParseQualifiedName(t *testing.T) {
	q, err := ParseQualifiedName("SALES_DB.PUBLIC.ORDERS")
	require.NoError(t, err)
	assert.Equal(t, models.QualifiedName{Catalog: "SALES_DB", Schema: "PUBLIC", Name: "ORDERS"}, q)
	assert.Equal(t, "SALES_DB.PUBLIC.ORDERS", q.String())

	for _, bad := range []string{"", "orders", "public.orders", "a.b.c.d", "a..c", ".b.c", "a.b. "} {
		_, err := ParseQualifiedName(bad)
		assert.ErrorIsf(t, err, apperrors.ErrMalformedName, "input %q", bad)
	}
}

func TestIndexByName(t *testing.T) {
	idx := IndexByName(fixtureTables())
	assert.Len(t, idx, 5)
	assert.Equal(t, "dim_region", idx["db.public.dim_region"].Name)
}
