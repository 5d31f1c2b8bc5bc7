// Package sqlite reads zones straight from the scanner's database.
//
// The schema is the scanner's own (users, zones, score_history,
// zone_comments); [Store.Migrate] creates it for fresh databases and tests.
// Queries mirror what the scanner's API serves, so a treemap drawn from the
// database matches one drawn from the API:
//
//   - active zones, highest score first, with the latest daily score change
//     and a preview of the newest comment
//   - completed or broken zones that ended within the look-back window and
//     scored at least [CompletedMinScore], newest first
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, registers "sqlite"

	"github.com/matzehuels/zonemap/pkg/errors"
	"github.com/matzehuels/zonemap/pkg/zone"
)

// CompletedMinScore is the lowest score a completed zone needs to be listed.
const CompletedMinScore = 50

const dateLayout = "2006-01-02"

// Store is a zone source backed by a SQLite file. It is safe for concurrent
// use.
type Store struct {
	db   *sql.DB
	path string

	// now is the clock for the completed-zone window.
	now func() time.Time
}

// Open opens the database at path, creating the directory if needed. It
// does not create tables; call [Store.Migrate] for that.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "sqlite source needs a path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Name implements source.Source.
func (s *Store) Name() string { return "sqlite:" + s.path }

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT '',
	created_at    TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS zones (
	id                 INTEGER PRIMARY KEY,
	ticker             TEXT NOT NULL,
	start_date         TEXT NOT NULL,
	end_date           TEXT,
	candle_count       INTEGER,
	score              REAL,
	highest_body       REAL,
	lowest_body        REAL,
	total_diff_percent REAL,
	avg_rsi            REAL,
	status             TEXT,
	is_flagged         INTEGER NOT NULL DEFAULT 0,
	last_updated       TEXT DEFAULT CURRENT_TIMESTAMP,
	created_at         TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS ix_zones_ticker ON zones (ticker);
CREATE INDEX IF NOT EXISTS ix_zones_status ON zones (status);
CREATE TABLE IF NOT EXISTS score_history (
	id           INTEGER PRIMARY KEY,
	zone_id      INTEGER NOT NULL REFERENCES zones (id) ON DELETE CASCADE,
	date         TEXT NOT NULL,
	score        REAL,
	score_change REAL,
	candle_count INTEGER,
	created_at   TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS ix_score_history_zone ON score_history (zone_id, date);
CREATE TABLE IF NOT EXISTS zone_comments (
	id         INTEGER PRIMARY KEY,
	zone_id    INTEGER NOT NULL REFERENCES zones (id) ON DELETE CASCADE,
	user_id    INTEGER NOT NULL REFERENCES users (id),
	comment    TEXT NOT NULL,
	created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS ix_zone_comments_zone ON zone_comments (zone_id, created_at);
`

// Migrate creates any missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// zoneColumns selects one zone row with its derived fields: the latest
// score change, the comment count, and the newest comment with its author.
const zoneColumns = `
SELECT z.id, z.ticker, z.score, z.candle_count, z.total_diff_percent,
       COALESCE(z.is_flagged, 0), z.status, z.start_date, z.end_date, z.avg_rsi,
       (SELECT h.score_change FROM score_history h
         WHERE h.zone_id = z.id ORDER BY h.date DESC LIMIT 1),
       (SELECT COUNT(*) FROM zone_comments c WHERE c.zone_id = z.id),
       (SELECT u.username FROM zone_comments c LEFT JOIN users u ON u.id = c.user_id
         WHERE c.zone_id = z.id ORDER BY c.created_at DESC, c.id DESC LIMIT 1),
       (SELECT c.comment FROM zone_comments c
         WHERE c.zone_id = z.id ORDER BY c.created_at DESC, c.id DESC LIMIT 1)
FROM zones z`

// Zones implements source.Source: the active zones, highest score first.
func (s *Store) Zones(ctx context.Context) ([]zone.Zone, error) {
	return s.query(ctx, zoneColumns+`
WHERE z.status = 'active'
ORDER BY z.score DESC, z.id`)
}

// CompletedZones returns completed or broken zones that ended within the
// last days days and scored at least [CompletedMinScore].
func (s *Store) CompletedZones(ctx context.Context, days int) ([]zone.Zone, error) {
	cutoff := s.now().AddDate(0, 0, -days).Format(dateLayout)
	return s.query(ctx, zoneColumns+`
WHERE z.status IN ('completed', 'broken')
  AND z.end_date >= ?
  AND z.score >= ?
ORDER BY z.end_date DESC, z.id`, cutoff, CompletedMinScore)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]zone.Zone, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query zones: %w", err)
	}
	defer rows.Close()

	var zones []zone.Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query zones: %w", err)
	}
	return zones, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanZone(row scanner) (zone.Zone, error) {
	var (
		z                       zone.Zone
		score, diff, rsi, delta sql.NullFloat64
		candles                 sql.NullInt64
		status, start, end      sql.NullString
		user, text              sql.NullString
	)
	err := row.Scan(&z.ID, &z.Ticker, &score, &candles, &diff,
		&z.IsFlagged, &status, &start, &end, &rsi,
		&delta, &z.CommentCount, &user, &text)
	if err != nil {
		return zone.Zone{}, err
	}
	z.Score = score.Float64
	z.CandleCount = int(candles.Int64)
	z.TotalDiffPercent = diff.Float64
	z.Status = status.String
	z.StartDate = start.String
	z.EndDate = end.String
	z.AvgRSI = rsi.Float64
	z.ScoreChange = delta.Float64
	if text.Valid {
		z.LastComment = zone.CommentPreview(user.String, text.String)
	}
	return z, nil
}

// Detail returns a zone with its score history, oldest first, and its
// comments, newest first.
func (s *Store) Detail(ctx context.Context, id int64) (zone.Detail, error) {
	z, err := scanZone(s.db.QueryRowContext(ctx, zoneColumns+` WHERE z.id = ?`, id))
	if err == sql.ErrNoRows {
		return zone.Detail{}, errors.New(errors.ErrCodeNotFound, "zone %d not found", id)
	}
	if err != nil {
		return zone.Detail{}, fmt.Errorf("query zone %d: %w", id, err)
	}
	d := zone.Detail{Zone: z}

	rows, err := s.db.QueryContext(ctx, `
SELECT date, score, score_change, candle_count
FROM score_history WHERE zone_id = ? ORDER BY date`, id)
	if err != nil {
		return zone.Detail{}, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			p             zone.ScorePoint
			score, change sql.NullFloat64
			candles       sql.NullInt64
		)
		if err := rows.Scan(&p.Date, &score, &change, &candles); err != nil {
			return zone.Detail{}, err
		}
		p.Score, p.ScoreChange, p.CandleCount = score.Float64, change.Float64, int(candles.Int64)
		d.History = append(d.History, p)
	}
	if err := rows.Err(); err != nil {
		return zone.Detail{}, err
	}

	d.Comments, err = s.comments(ctx, id)
	return d, err
}

func (s *Store) comments(ctx context.Context, id int64) ([]zone.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.id, COALESCE(u.username, 'Unknown'), c.comment, COALESCE(c.created_at, '')
FROM zone_comments c LEFT JOIN users u ON u.id = c.user_id
WHERE c.zone_id = ? ORDER BY c.created_at DESC, c.id DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()
	var out []zone.Comment
	for rows.Next() {
		var c zone.Comment
		if err := rows.Scan(&c.ID, &c.Username, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ToggleFlag flips the flag of a zone and returns the new state.
func (s *Store) ToggleFlag(ctx context.Context, id int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE zones SET is_flagged = NOT COALESCE(is_flagged, 0) WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("toggle flag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, errors.New(errors.ErrCodeNotFound, "zone %d not found", id)
	}
	var flagged bool
	if err := tx.QueryRowContext(ctx, `SELECT is_flagged FROM zones WHERE id = ?`, id).Scan(&flagged); err != nil {
		return false, err
	}
	return flagged, tx.Commit()
}
