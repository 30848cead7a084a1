// Package migrations holds the SQL schema of the Postgres order log.
package migrations

import "embed"

// Files contains the embedded SQL migrations
//
//go:embed *.sql
var Files embed.FS
