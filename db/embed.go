// Package db embeds the storefront schema.
package db

import _ "embed"

// Schema creates every table idempotently.
//
//go:embed migrations/001_schema.sql
var Schema string
