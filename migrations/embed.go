// Package migrations embeds the SQL schema migrations so binaries and tests
// run against the same schema without a filesystem dependency.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
