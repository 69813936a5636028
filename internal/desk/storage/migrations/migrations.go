// Package migrations embeds the desk's SQL schema. The statements are kept
// portable so the same files run on SQLite and PostgreSQL.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
