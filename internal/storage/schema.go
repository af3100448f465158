package storage

import (
	"github.com/aiscribe/scribe/db"
)

// ---------------------------------------------------------------------------
// Schema version
// ---------------------------------------------------------------------------

// SchemaVersion is the current database schema version.
const SchemaVersion = 2

// ---------------------------------------------------------------------------
// Migration support
// ---------------------------------------------------------------------------

// Migration describes a single schema migration. Migrations are ordered by
// Version and are idempotent.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations is the ordered list of all schema migrations.
// Apply them sequentially; skip any whose Version is already recorded
// in the schema_migrations table.
var Migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: documents, settings",
		SQL:         db.SchemaSQL,
	},
	{
		Version:     2,
		Description: "Index documents by last update",
		SQL:         `CREATE INDEX IF NOT EXISTS idx_documents_updated ON documents(updated_at DESC);`,
	},
}
