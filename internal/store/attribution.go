package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropic/edit-attribution/internal/bucket"
	"github.com/anthropic/edit-attribution/internal/detection"
	"github.com/anthropic/edit-attribution/internal/review"
)

// AttributionRecord is a persisted attribution row. Result holds the
// full engine output, round-tripped through result_json.
type AttributionRecord struct {
	ID         int64
	SessionID  string
	FileURI    string
	EventCount int
	AnalyzedAt time.Time
	Result     detection.Attribution
}

// SaveAttribution persists an attribution result and its bucketed
// timeline in one transaction, returning the new row id. Bucket rows
// drop their event payloads; only window bounds and per-window scores
// are kept.
func (s *Store) SaveAttribution(sessionID, fileURI string, eventCount int, att detection.Attribution, buckets []bucket.TimeBucket, analyzedAt time.Time) (int64, error) {
	payload, err := json.Marshal(att)
	if err != nil {
		return 0, fmt.Errorf("marshal attribution: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin save attribution: %w", err)
	}

	res, err := tx.Exec(
		`INSERT INTO attributions (session_id, file_uri, source, confidence, ai_probability, total_score, event_count, result_json, analyzed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, fileURI, string(att.Source), att.Confidence, att.AIProbability,
		att.TotalScore, eventCount, string(payload),
		analyzedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("insert attribution: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	for _, b := range buckets {
		var prob interface{}
		if b.AIProbability != nil {
			prob = *b.AIProbability
		}
		_, err := tx.Exec(
			`INSERT INTO time_buckets (attribution_id, start_time, end_time, event_count, is_empty, ai_probability)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, b.Start.UTC().Format(time.RFC3339Nano), b.End.UTC().Format(time.RFC3339Nano),
			b.EventCount, boolInt(b.IsEmpty), prob,
		)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert time bucket: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save attribution: %w", err)
	}
	return id, nil
}

// LatestAttribution returns the most recent attribution for a session,
// or nil if none is recorded.
func (s *Store) LatestAttribution(sessionID string) (*AttributionRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, session_id, file_uri, event_count, result_json, analyzed_at
		 FROM attributions WHERE session_id = ?
		 ORDER BY id DESC LIMIT 1`,
		sessionID,
	)
	rec, err := scanAttribution(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// QueryAttributions returns all attributions for a session ordered by
// analysis time ascending.
func (s *Store) QueryAttributions(sessionID string) ([]AttributionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, file_uri, event_count, result_json, analyzed_at
		 FROM attributions WHERE session_id = ?
		 ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []AttributionRecord
	for rows.Next() {
		rec, err := scanAttribution(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAttribution(row rowScanner) (*AttributionRecord, error) {
	var rec AttributionRecord
	var payload, ts string
	if err := row.Scan(&rec.ID, &rec.SessionID, &rec.FileURI, &rec.EventCount, &payload, &ts); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("parse analyzed_at %q: %w", ts, err)
	}
	rec.AnalyzedAt = t
	if err := json.Unmarshal([]byte(payload), &rec.Result); err != nil {
		return nil, fmt.Errorf("unmarshal attribution %d: %w", rec.ID, err)
	}
	return &rec, nil
}

// SaveAssessment persists a review-quality assessment.
func (s *Store) SaveAssessment(sessionID, fileURI string, a review.Assessment, assessedAt time.Time) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO review_assessments (session_id, file_uri, overall_score, quality_level, confidence, assessment_json, assessed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, fileURI, a.OverallScore, string(a.QualityLevel), a.Confidence,
		string(payload), assessedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// LatestAssessment returns the most recent review assessment for a
// session, or nil if none is recorded.
func (s *Store) LatestAssessment(sessionID string) (*review.Assessment, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT assessment_json FROM review_assessments WHERE session_id = ?
		 ORDER BY id DESC LIMIT 1`,
		sessionID,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var a review.Assessment
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, fmt.Errorf("unmarshal assessment: %w", err)
	}
	return &a, nil
}

// InsertGitCommit records a commit observed in a watched repository.
// Duplicate hashes are ignored.
func (s *Store) InsertGitCommit(hash, author, message string, timestamp time.Time, hasCoAuthor bool, coAuthor string) error {
	_, err := s.db.Exec(
		`INSERT INTO git_commits (hash, author, message, timestamp, has_coauthor_tag, coauthor_name)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(hash) DO NOTHING`,
		hash, author, message, timestamp.UTC().Format(time.RFC3339Nano),
		boolInt(hasCoAuthor), coAuthor,
	)
	return err
}

// SetState writes a key-value pair into daemon_state.
func (s *Store) SetState(key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO daemon_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now,
	)
	return err
}

// GetState reads a daemon_state value, returning "" when unset.
func (s *Store) GetState(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM daemon_state WHERE key = ?`, key).Scan(&val)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return val, err
}

// SetCursor records an ingest cursor (byte offset) for a log path so
// the daemon can resume tailing after a restart.
func (s *Store) SetCursor(logPath string, offset int64) error {
	return s.SetState("cursor:"+logPath, fmt.Sprintf("%d", offset))
}

// Cursor returns the recorded ingest cursor for a log path, or 0.
func (s *Store) Cursor(logPath string) (int64, error) {
	val, err := s.GetState("cursor:" + logPath)
	if err != nil || val == "" {
		return 0, err
	}
	var offset int64
	if _, err := fmt.Sscanf(val, "%d", &offset); err != nil {
		return 0, fmt.Errorf("parse cursor %q: %w", val, err)
	}
	return offset, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
