// Package migrations embeds the goose SQL migrations.
package migrations

import "embed"

// FS holds the versioned SQL files applied by goose.
//
//go:embed *.sql
var FS embed.FS
