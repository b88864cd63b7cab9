package models

import (
	"strings"
	"time"
)

// QualifiedName identifies a table as catalog.schema.table.
type QualifiedName struct {
	Catalog string `json:"catalog"`
	Schema  string `json:"schema"`
	Name    string `json:"name"`
}

// String returns the dotted catalog.schema.table form used as the join key
// between the metadata and usage flows.
func (q QualifiedName) String() string {
	return q.Catalog + "." + q.Schema + "." + q.Name
}

// TableDescriptor is a snapshot of one table's metadata as reported by a MetadataSource.
type TableDescriptor struct {
	Catalog  string  `json:"table_catalog"`
	Schema   string  `json:"table_schema"`
	Name     string  `json:"table_name"`
	Comment  *string `json:"comment,omitempty"`
	Owner    string  `json:"table_owner,omitempty"`
	RowCount *int64  `json:"row_count,omitempty"`
}

// QualifiedName returns the table's fully-qualified identity.
func (t TableDescriptor) QualifiedName() QualifiedName {
	return QualifiedName{Catalog: t.Catalog, Schema: t.Schema, Name: t.Name}
}

// FullName returns catalog.schema.table.
func (t TableDescriptor) FullName() string {
	return t.QualifiedName().String()
}

// CommentText returns the comment, or "" when absent.
func (t TableDescriptor) CommentText() string {
	if t.Comment == nil {
		return ""
	}
	return *t.Comment
}

// ColumnDescriptor describes one column of a table, in source order.
type ColumnDescriptor struct {
	TableName       string  `json:"table_name"`
	ColumnName      string  `json:"column_name"`
	DataType        string  `json:"data_type,omitempty"`
	Comment         *string `json:"comment,omitempty"`
	OrdinalPosition int     `json:"ordinal_position"`
}

// TableStats holds storage-level facts about a table. Engines that cannot
// report a value leave it nil.
type TableStats struct {
	LastAltered  *time.Time `json:"last_altered,omitempty"`
	CreatedOn    *time.Time `json:"created_on,omitempty"`
	StorageBytes *int64     `json:"storage_bytes,omitempty"`
}

// TableDetail is the aggregate view of a single selected table.
type TableDetail struct {
	Table       TableDescriptor    `json:"table"`
	Columns     []ColumnDescriptor `json:"columns"`
	RowCount    *int64             `json:"row_count,omitempty"`
	Stats       *TableStats        `json:"stats,omitempty"`
	AccessCount int64              `json:"access_count"`
}

// TableWithUsage pairs a descriptor with its access total over the usage window.
type TableWithUsage struct {
	TableDescriptor
	AccessCount int64 `json:"access_count"`
}

// Category is one entry of the topical taxonomy used to narrow a search.
type Category struct {
	ID       string            `json:"id" yaml:"id"`
	Labels   map[string]string `json:"labels" yaml:"labels"`
	Question map[string]string `json:"question,omitempty" yaml:"question"`
	Keywords []string          `json:"keywords" yaml:"keywords"`
}

// Label returns the category label for locale, falling back to English and then the ID.
func (c Category) Label(locale string) string {
	if l, ok := c.Labels[strings.ToLower(locale)]; ok && l != "" {
		return l
	}
	if l, ok := c.Labels["en"]; ok && l != "" {
		return l
	}
	return c.ID
}
