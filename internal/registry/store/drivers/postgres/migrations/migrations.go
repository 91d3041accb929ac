// Package migrations embeds the global registry schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
