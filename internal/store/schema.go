package store

// schemaVersion is the current schema version. Increment when adding migrations.
const schemaVersion = 2

// migrations maps version numbers to SQL statements that bring the schema
// from (version-1) to (version). Version 1 is the initial schema.
var migrations = map[int]string{
	1: `
-- One row per loaded file.
CREATE TABLE IF NOT EXISTS batches (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id    TEXT    NOT NULL UNIQUE,
	file_name   TEXT    NOT NULL,
	row_count   INTEGER NOT NULL DEFAULT 0,
	loaded_at   TEXT    NOT NULL
);

-- Raw event rows. Derived fields are recomputed on load.
CREATE TABLE IF NOT EXISTS event_rows (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_seq   INTEGER NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	summary     TEXT    NOT NULL DEFAULT '',
	calendar_id TEXT    NOT NULL DEFAULT '',
	start_at    TEXT    NOT NULL DEFAULT '',
	end_at      TEXT    NOT NULL DEFAULT '',
	start_date  TEXT    NOT NULL DEFAULT '',
	end_date    TEXT    NOT NULL DEFAULT '',
	extra_json  TEXT    NOT NULL DEFAULT '',
	source_file TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_event_rows_batch ON event_rows(batch_seq, seq);

-- Key-value store for settings and metadata (schema version, rule text, notes).
CREATE TABLE IF NOT EXISTS app_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);
`,

	2: `
-- Import fingerprint (path, size, mtime) so rescans skip files already loaded.
ALTER TABLE batches ADD COLUMN fingerprint TEXT NOT NULL DEFAULT '';

CREATE INDEX IF NOT EXISTS idx_batches_fingerprint ON batches(fingerprint);
`,
}
