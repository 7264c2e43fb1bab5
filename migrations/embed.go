// Package migrations holds the numbered SQL files applied by "vaxhub migrate".
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
