// Package migrations embeds the SQL schema migrations so binaries run them
// without a deploy-time file dependency.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
