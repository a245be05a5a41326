// Package store persists resolved cues in SQLite so they can be queried
// after the tracks that produced them are gone.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mgpai22/cuetrack/internal/cue"
	"github.com/mgpai22/cuetrack/internal/logging"

	_ "modernc.org/sqlite"
)

// TrackInfo describes a stored track.
type TrackInfo struct {
	ID        string
	Format    string
	Source    string
	CreatedAt time.Time
	CueCount  int64
}

// Store manages the SQLite database in WAL mode.
type Store struct {
	db     *sql.DB
	logger *logging.Logger
}

// New opens (or creates) the database at path and initializes the schema.
func New(path string, logger *logging.Logger) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, logger: logging.OrNop(logger).Named("store")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) retryOnContention(ctx context.Context, fn func() error) error {
	return retryOp(ctx, defaultRetryConfig, fn)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tracks (
		id         TEXT PRIMARY KEY,
		format     TEXT NOT NULL,
		source     TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cues (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		track_id  TEXT NOT NULL REFERENCES tracks(id),
		run_id    INTEGER NOT NULL,
		kind      TEXT NOT NULL,
		start_ms  INTEGER NOT NULL,
		end_ms    INTEGER NOT NULL,
		region_id TEXT NOT NULL DEFAULT '',
		text      TEXT NOT NULL,
		payload   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cues_track_time ON cues(track_id, start_ms, end_ms);

	CREATE TABLE IF NOT EXISTS regions (
		track_id TEXT NOT NULL REFERENCES tracks(id),
		id       TEXT NOT NULL,
		payload  TEXT NOT NULL,
		PRIMARY KEY (track_id, id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ---------------------------------------------------------------------------
// Tracks
// ---------------------------------------------------------------------------

// RegisterTrack records a track. Idempotent via ON CONFLICT.
func (s *Store) RegisterTrack(ctx context.Context, id, format, source string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.retryOnContention(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO tracks (id, format, source, created_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET format = excluded.format, source = excluded.source`,
			id, format, source, now,
		)
		return err
	})
}

// ListTracks returns every track, oldest first.
func (s *Store) ListTracks(ctx context.Context) ([]TrackInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.format, t.source, t.created_at, COUNT(c.id)
		 FROM tracks t LEFT JOIN cues c ON c.track_id = t.id
		 GROUP BY t.id ORDER BY t.created_at, t.id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []TrackInfo
	for rows.Next() {
		var t TrackInfo
		var createdStr string
		if err := rows.Scan(&t.ID, &t.Format, &t.Source, &createdStr, &t.CueCount); err != nil {
			return nil, err
		}
		t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for track %s: %w", t.ID, err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// ---------------------------------------------------------------------------
// Cues
// ---------------------------------------------------------------------------

// the parts of a cue that have no column of their own
type cuePayload struct {
	Plain  *cue.Plain  `json:"plain,omitempty"`
	Styled *cue.Styled `json:"styled,omitempty"`
}

// SaveCue appends a cue to the track's log. Returns the row ID.
func (s *Store) SaveCue(ctx context.Context, trackID string, c cue.Cue) (int64, error) {
	payload, err := json.Marshal(cuePayload{Plain: c.Plain, Styled: c.Styled})
	if err != nil {
		return 0, fmt.Errorf("encode cue: %w", err)
	}

	var lastID int64
	err = s.retryOnContention(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO cues (track_id, run_id, kind, start_ms, end_ms, region_id, text, payload)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			trackID, c.RunID, string(c.Kind), c.StartMs, c.EndMs, c.RegionID(), c.Text(), string(payload),
		)
		if err != nil {
			return err
		}
		lastID, err = res.LastInsertId()
		return err
	})
	return lastID, err
}

// ListCues returns the track's cues in start order; runID < 0 means every run.
func (s *Store) ListCues(ctx context.Context, trackID string, runID int64) ([]cue.Cue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, kind, start_ms, end_ms, payload FROM cues
		 WHERE track_id = ? AND (? < 0 OR run_id = ?)
		 ORDER BY start_ms ASC, id ASC`,
		trackID, runID, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCues(rows)
}

// ActiveCues returns the track's cues showing at nowMs, end exclusive.
func (s *Store) ActiveCues(ctx context.Context, trackID string, nowMs int64) ([]cue.Cue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, kind, start_ms, end_ms, payload FROM cues
		 WHERE track_id = ? AND start_ms <= ? AND end_ms > ?
		 ORDER BY start_ms ASC, id ASC`,
		trackID, nowMs, nowMs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCues(rows)
}

func scanCues(rows *sql.Rows) ([]cue.Cue, error) {
	var cues []cue.Cue
	for rows.Next() {
		var c cue.Cue
		var kind, payload string
		if err := rows.Scan(&c.RunID, &kind, &c.StartMs, &c.EndMs, &payload); err != nil {
			return nil, err
		}
		c.Kind = cue.Kind(kind)

		var p cuePayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("decode cue payload: %w", err)
		}
		c.Plain, c.Styled = p.Plain, p.Styled
		cues = append(cues, c)
	}
	return cues, rows.Err()
}

// ---------------------------------------------------------------------------
// Regions
// ---------------------------------------------------------------------------

// SaveRegions upserts the track's regions in one transaction.
func (s *Store) SaveRegions(ctx context.Context, trackID string, regions cue.RegionTable) error {
	return s.retryOnContention(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		for id, r := range regions {
			payload, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("encode region %s: %w", id, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO regions (track_id, id, payload) VALUES (?, ?, ?)
				 ON CONFLICT(track_id, id) DO UPDATE SET payload = excluded.payload`,
				trackID, id, string(payload),
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// Regions returns the stored regions of a track.
func (s *Store) Regions(ctx context.Context, trackID string) (cue.RegionTable, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM regions WHERE track_id = ?`, trackID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := cue.RegionTable{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r cue.Region
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode region payload: %w", err)
		}
		table[r.ID] = r
	}
	return table, rows.Err()
}

// ---------------------------------------------------------------------------
// Sink
// ---------------------------------------------------------------------------

// TrackSink writes every emitted cue of one track to the store.
type TrackSink struct {
	store   *Store
	trackID string
}

func (s *Store) Sink(trackID string) *TrackSink {
	return &TrackSink{store: s, trackID: trackID}
}

func (t *TrackSink) Emit(ctx context.Context, c cue.Cue) error {
	id, err := t.store.SaveCue(ctx, t.trackID, c)
	if err != nil {
		return fmt.Errorf("save cue: %w", err)
	}
	t.store.logger.Debugw("Cue stored",
		"track_id", t.trackID,
		"run_id", c.RunID,
		"row_id", id,
	)
	return nil
}
