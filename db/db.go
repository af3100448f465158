// Package db embeds the SQL schema applied by the storage layer.
package db

import _ "embed"

// SchemaSQL is the initial database schema.
//
//go:embed schema.sql
var SchemaSQL string
