// Package migrations holds the application database schema, applied at
// startup by database.RunMigrations.
package migrations

import "embed"

// FS contains the versioned golang-migrate files.
//
//go:embed *.sql
var FS embed.FS
