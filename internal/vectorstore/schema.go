package vectorstore

import "database/sql"

const ddl = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS chunks (
    id            TEXT PRIMARY KEY,
    project       TEXT NOT NULL,
    file_path     TEXT NOT NULL,
    relative_path TEXT NOT NULL,
    language      TEXT NOT NULL DEFAULT '',
    extension     TEXT NOT NULL DEFAULT '',
    file_hash     TEXT NOT NULL DEFAULT '',
    start_line    INTEGER NOT NULL,
    end_line      INTEGER NOT NULL,
    content       TEXT NOT NULL,
    indexed_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    embedding     BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_project ON chunks(project);
CREATE INDEX IF NOT EXISTS idx_chunks_project_file ON chunks(project, file_path);
`

// initSchema creates the store's tables if they don't already exist.
func initSchema(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}
