package migrations

import "embed"

// FS contains embedded Postgres migrations for wheel storage.
//
//go:embed *.sql
var FS embed.FS
