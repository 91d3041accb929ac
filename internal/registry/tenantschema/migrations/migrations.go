// Package migrations embeds the table layout applied to every tenant
// namespace.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
