// Package migrations embeds the schema SQL so the binary can bring a fresh
// database up to date on startup.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
