// Package migrations embeds the sqlite schema migration files so they ship
// inside the binary and can be applied at startup via iofs.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
