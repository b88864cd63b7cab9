package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// defaultCategories is the built-in topical taxonomy. Each keyword set carries
// both English and Japanese terms so that either naming convention matches.
var defaultCategories = []models.Category{
	{
		ID:       "sales_finance",
		Labels:   map[string]string{"en": "Sales / Finance", "ja": "売上・財務"},
		Question: map[string]string{"en": "Data about revenue", "ja": "売上に関するデータ"},
		Keywords: []string{"revenue", "sales", "income", "profit", "売上", "収益", "金額", "単価"},
	},
	{
		ID:       "customer",
		Labels:   map[string]string{"en": "Customer", "ja": "顧客"},
		Question: map[string]string{"en": "Customer data", "ja": "顧客データ"},
		Keywords: []string{"customer", "client", "user", "顧客", "ユーザー", "会員"},
	},
	{
		ID:       "product",
		Labels:   map[string]string{"en": "Product", "ja": "製品"},
		Question: map[string]string{"en": "Product information", "ja": "製品情報"},
		Keywords: []string{"product", "item", "inventory", "製品", "商品", "在庫"},
	},
	{
		ID:       "marketing",
		Labels:   map[string]string{"en": "Marketing", "ja": "マーケティング"},
		Question: map[string]string{"en": "Marketing data", "ja": "マーケティングデータ"},
		Keywords: []string{"marketing", "campaign", "advertisement", "広告", "キャンペーン"},
	},
	{
		ID:       "transaction",
		Labels:   map[string]string{"en": "Transaction", "ja": "取引"},
		Question: map[string]string{"en": "Transaction data", "ja": "取引データ"},
		Keywords: []string{"transaction", "payment", "order", "取引", "注文", "支払"},
	},
	{
		ID:       "time_series",
		Labels:   map[string]string{"en": "Time series", "ja": "時系列"},
		Question: map[string]string{"en": "Time-series data", "ja": "時系列データ"},
		Keywords: []string{"daily", "monthly", "yearly", "日次", "月次", "年次", "推移"},
	},
	{
		ID:       "region",
		Labels:   map[string]string{"en": "Region", "ja": "地域"},
		Question: map[string]string{"en": "Data by region", "ja": "地域別のデータ"},
		Keywords: []string{"region", "area", "location", "地域", "都道府県", "市区町村"},
	},
	{
		ID:       "organization",
		Labels:   map[string]string{"en": "Organization", "ja": "組織"},
		Question: map[string]string{"en": "Data by organization or department", "ja": "組織・部門別のデータ"},
		Keywords: []string{"department", "division", "organization", "部門", "組織", "部署"},
	},
}

// Taxonomy is an ordered, read-only set of categories.
type Taxonomy struct {
	categories []models.Category
	byID       map[string]models.Category
}

// DefaultTaxonomy returns the built-in bilingual taxonomy.
func DefaultTaxonomy() *Taxonomy {
	t, _ := NewTaxonomy(defaultCategories)
	return t
}

// NewTaxonomy validates and indexes a category list. IDs must be unique and
// every category needs at least one keyword.
func NewTaxonomy(categories []models.Category) (*Taxonomy, error) {
	t := &Taxonomy{
		categories: make([]models.Category, 0, len(categories)),
		byID:       make(map[string]models.Category, len(categories)),
	}
	for i, c := range categories {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			return nil, fmt.Errorf("category %d: id is required", i)
		}
		if _, dup := t.byID[c.ID]; dup {
			return nil, fmt.Errorf("category %q: duplicate id", c.ID)
		}
		if len(c.Keywords) == 0 {
			return nil, fmt.Errorf("category %q: at least one keyword is required", c.ID)
		}
		t.categories = append(t.categories, c)
		t.byID[c.ID] = c
	}
	return t, nil
}

type categoriesFile struct {
	Categories []models.Category `yaml:"categories"`
}

// LoadTaxonomy reads a YAML category file. An empty path returns the default taxonomy.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	if path == "" {
		return DefaultTaxonomy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}
	var f categoriesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse categories file: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("categories file %s defines no categories", path)
	}
	return NewTaxonomy(f.Categories)
}

// All returns the categories in declaration order.
func (t *Taxonomy) All() []models.Category {
	out := make([]models.Category, len(t.categories))
	copy(out, t.categories)
	return out
}

// Get looks up a category by ID.
func (t *Taxonomy) Get(id string) (models.Category, bool) {
	c, ok := t.byID[id]
	return c, ok
}

// Resolve maps category IDs to categories. Unknown IDs yield apperrors.ErrNotFound.
func (t *Taxonomy) Resolve(ids []string) ([]models.Category, error) {
	out := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		c, ok := t.byID[id]
		if !ok {
			return nil, fmt.Errorf("category %q: %w", id, apperrors.ErrNotFound)
		}
		out = append(out, c)
	}
	return out, nil
}
