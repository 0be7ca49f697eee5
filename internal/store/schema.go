package store

// schemaVersion is the current schema version. Increment when adding migrations.
const schemaVersion = 2

// migrations maps version numbers to SQL statements that bring the schema
// from (version-1) to (version). Version 1 is the initial schema.
var migrations = map[int]string{
	1: `
-- One attribution result per analyzed (session, file) stream.
CREATE TABLE IF NOT EXISTS attributions (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id     TEXT    NOT NULL,
	file_uri       TEXT    NOT NULL,
	source         TEXT    NOT NULL,
	confidence     REAL    NOT NULL,
	ai_probability REAL    NOT NULL,
	total_score    REAL    NOT NULL,
	event_count    INTEGER NOT NULL DEFAULT 0,
	result_json    TEXT    NOT NULL DEFAULT '',
	analyzed_at    TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attributions_session ON attributions(session_id);
CREATE INDEX IF NOT EXISTS idx_attributions_file ON attributions(file_uri);
CREATE INDEX IF NOT EXISTS idx_attributions_analyzed ON attributions(analyzed_at);

-- Bucketed timeline rows for an attribution. Empty buckets are kept
-- for gap visualization.
CREATE TABLE IF NOT EXISTS time_buckets (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	attribution_id INTEGER NOT NULL REFERENCES attributions(id) ON DELETE CASCADE,
	start_time     TEXT    NOT NULL,
	end_time       TEXT    NOT NULL,
	event_count    INTEGER NOT NULL DEFAULT 0,
	is_empty       INTEGER NOT NULL DEFAULT 0,
	ai_probability REAL
);

CREATE INDEX IF NOT EXISTS idx_time_buckets_attribution ON time_buckets(attribution_id);

-- Review-quality assessments, one per analyzed (session, file) stream.
CREATE TABLE IF NOT EXISTS review_assessments (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id      TEXT    NOT NULL,
	file_uri        TEXT    NOT NULL,
	overall_score   REAL    NOT NULL,
	quality_level   TEXT    NOT NULL,
	confidence      REAL    NOT NULL,
	assessment_json TEXT    NOT NULL DEFAULT '',
	assessed_at     TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_session ON review_assessments(session_id);

-- Key-value store for daemon metadata (schema version, ingest cursors).
CREATE TABLE IF NOT EXISTS daemon_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);
`,

	2: `
-- Commits observed in watched repositories, used to corroborate
-- review-quality timing and co-author trailers.
CREATE TABLE IF NOT EXISTS git_commits (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	hash             TEXT    NOT NULL UNIQUE,
	author           TEXT    NOT NULL,
	message          TEXT    NOT NULL DEFAULT '',
	timestamp        TEXT    NOT NULL,
	has_coauthor_tag INTEGER NOT NULL DEFAULT 0,
	coauthor_name    TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_git_commits_hash ON git_commits(hash);
CREATE INDEX IF NOT EXISTS idx_git_commits_timestamp ON git_commits(timestamp);
`,
}
