package models

import (
	"time"

	"github.com/google/uuid"
)

// MarketplaceListing is an external data product that can be matched against the catalog.
type MarketplaceListing struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// MarketplaceMatch is a listing scored by cosine similarity against catalog embeddings.
type MarketplaceMatch struct {
	Datasource  string  `json:"datasource"`
	Table       string  `json:"table"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Similarity  float64 `json:"similarity"`
}

// TableDescription is the single-shot natural-language analysis of a table.
type TableDescription struct {
	Table       string    `json:"table"`
	Content     string    `json:"content"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generated_at"`
}
