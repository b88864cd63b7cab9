package mssql

import (
	"fmt"

	sqlguard "github.com/ekaya-inc/ekaya-catalog/pkg/sql"
)

// quoteName returns a bracket-quoted identifier, the equivalent of QUOTENAME().
// ] is escaped as ]].
func quoteName(identifier string) string {
	return sqlguard.QuoteIdentifier(sqlguard.DialectSQLServer, identifier)
}

// buildFullyQualifiedName builds a three-part table name: [database].[schema].[table]
func buildFullyQualifiedName(database, schema, table string) string {
	return fmt.Sprintf("%s.%s.%s", quoteName(database), quoteName(schema), quoteName(table))
}

// catalogView returns a system catalog view in database, e.g. [sales].sys.objects
func catalogView(database, view string) string {
	return quoteName(database) + ".sys." + view
}
