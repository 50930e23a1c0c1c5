// Package migrations embeds the goose SQL migrations for the postgres storage.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
