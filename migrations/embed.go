// Package migrations embeds the SQL schema migrations so the server and the
// migrate command can apply them without a migrations directory on disk.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql files of this directory
//
//go:embed *.sql
var FS embed.FS
