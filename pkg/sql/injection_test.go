package sql

import (
	"errors"
	"testing"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
)

func TestCheckIdentifierForInjection(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		expectSafe bool
	}{
		// Warehouse names seen in practice
		{"upper snake", "SALES_DB", true},
		{"lower snake", "order_lines", true},
		{"with digits", "events_2024", true},
		{"dollar", "SYS$META", true},
		{"hyphen", "analytics-prod", true},
		{"space", "Customer Master", true},
		{"japanese", "売上データ", true},

		// Rejections
		{"empty", "", false},
		{"blank", "   ", false},
		{"single quote", "sales'", false},
		{"double quote", `sales"`, false},
		{"semicolon", "sales; DROP TABLE users", false},
		{"comment", "sales--", false},
		{"dot", "sales.public", false},
		{"parenthesis", "sales()", false},
		{"tautology", "x' OR '1'='1", false},
		{"newline", "sales\nDROP", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CheckIdentifierForInjection("database", tt.value)
			if tt.expectSafe && res != nil {
				t.Errorf("expected %q to be safe, rejected: %s", tt.value, res.Reason)
			}
			if !tt.expectSafe && res == nil {
				t.Errorf("expected %q to be rejected", tt.value)
			}
		})
	}
}

func TestCheckIdentifier_TooLong(t *testing.T) {
	long := make([]byte, MaxIdentifierLength+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := CheckIdentifier("table", string(long)); err == nil {
		t.Error("expected overlong identifier to be rejected")
	}
}

func TestCheckIdentifier_WrapsSentinel(t *testing.T) {
	err := CheckIdentifier("schema", "public;")
	if !errors.Is(err, apperrors.ErrUnsafeIdentifier) {
		t.Errorf("expected ErrUnsafeIdentifier, got %v", err)
	}
	if err := CheckIdentifier("schema", "public"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestCheckRelation(t *testing.T) {
	if err := CheckRelation("audit.access_history"); err != nil {
		t.Errorf("expected valid relation, got %v", err)
	}
	if err := CheckRelation("audit..access_history"); err == nil {
		t.Error("expected empty part to be rejected")
	}
	if err := CheckRelation("audit.x;drop"); err == nil {
		t.Error("expected unsafe part to be rejected")
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		dialect Dialect
		in      string
		want    string
	}{
		{DialectANSI, "orders", `"orders"`},
		{DialectANSI, `we"ird`, `"we""ird"`},
		{DialectSQLServer, "orders", "[orders]"},
		{DialectSQLServer, "a]b", "[a]]b]"},
		{DialectClickHouse, "orders", "`orders`"},
		{DialectClickHouse, "a`b", "`a``b`"},
	}
	for _, tt := range tests {
		if got := QuoteIdentifier(tt.dialect, tt.in); got != tt.want {
			t.Errorf("QuoteIdentifier(%d, %q) = %s, want %s", tt.dialect, tt.in, got, tt.want)
		}
	}

	if got := QuoteRelation(DialectANSI, "SALES.PUBLIC.ORDERS"); got != `"SALES"."PUBLIC"."ORDERS"` {
		t.Errorf("QuoteRelation = %s", got)
	}
}
