// Package migrations embeds the goose SQL migrations for the SQL store drivers.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
