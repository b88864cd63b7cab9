package sql

import (
	"fmt"
	"strings"
	"unicode"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/ekaya-inc/ekaya-catalog/pkg/apperrors"
)

// MaxIdentifierLength bounds database, schema and table names accepted from callers.
const MaxIdentifierLength = 255

// InjectionCheckResult describes why an identifier was rejected.
type InjectionCheckResult struct {
	Kind        string // database | schema | table | relation
	Value       string
	Fingerprint string // libinjection fingerprint, empty for character-class rejections
	Reason      string
}

// Error renders the result as a wrapped ErrUnsafeIdentifier.
func (r *InjectionCheckResult) Error() error {
	return fmt.Errorf("%w: %s %q: %s", apperrors.ErrUnsafeIdentifier, r.Kind, r.Value, r.Reason)
}

// CheckIdentifierForInjection inspects a name that will be interpolated into
// metadata SQL (several engines cannot bind database or schema names as
// parameters). Names may contain letters in any script, digits, spaces and
// _ $ - characters; anything else, or a libinjection hit, is rejected.
//
// Returns nil when the identifier is safe.
func CheckIdentifierForInjection(kind, value string) *InjectionCheckResult {
	if strings.TrimSpace(value) == "" {
		return &InjectionCheckResult{Kind: kind, Value: value, Reason: "empty"}
	}
	if len(value) > MaxIdentifierLength {
		return &InjectionCheckResult{Kind: kind, Value: value, Reason: "too long"}
	}
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case '_', '$', '-', ' ':
			continue
		}
		return &InjectionCheckResult{Kind: kind, Value: value, Reason: fmt.Sprintf("character %q not allowed", r)}
	}

	if isSQLi, fingerprint := libinjection.IsSQLi(value); isSQLi {
		return &InjectionCheckResult{
			Kind:        kind,
			Value:       value,
			Fingerprint: string(fingerprint),
			Reason:      "matches injection pattern",
		}
	}
	return nil
}

// CheckIdentifier returns apperrors.ErrUnsafeIdentifier when value is unsafe.
func CheckIdentifier(kind, value string) error {
	if res := CheckIdentifierForInjection(kind, value); res != nil {
		return res.Error()
	}
	return nil
}

// CheckRelation validates a dotted relation such as "audit.access_history",
// checking each part as an identifier.
func CheckRelation(value string) error {
	for _, part := range strings.Split(value, ".") {
		if err := CheckIdentifier("relation", part); err != nil {
			return err
		}
	}
	return nil
}

// Dialect selects identifier quoting rules.
type Dialect int

const (
	DialectANSI       Dialect = iota // "name" (postgres, duckdb)
	DialectSQLServer                 // [name]
	DialectClickHouse                // `name`
)

// QuoteIdentifier quotes a single identifier for the dialect, doubling any
// embedded closing quote.
func QuoteIdentifier(d Dialect, name string) string {
	switch d {
	case DialectSQLServer:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	case DialectClickHouse:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

// QuoteRelation quotes every part of a dotted relation.
func QuoteRelation(d Dialect, relation string) string {
	parts := strings.Split(relation, ".")
	for i, p := range parts {
		parts[i] = QuoteIdentifier(d, p)
	}
	return strings.Join(parts, ".")
}
