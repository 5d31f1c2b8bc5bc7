package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/matzehuels/zonemap/pkg/zone"
)

// Put inserts or replaces a zone row. Derived fields (score change, last
// comment, comment count) are ignored; they come from the history and
// comment tables. An empty start date defaults to today.
func (s *Store) Put(ctx context.Context, z zone.Zone) error {
	return s.put(ctx, s.db, z)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) put(ctx context.Context, ex execer, z zone.Zone) error {
	start := z.StartDate
	if start == "" {
		start = s.now().Format(dateLayout)
	}
	status := z.Status
	if status == "" {
		status = zone.StatusActive
	}
	_, err := ex.ExecContext(ctx, `
INSERT INTO zones (id, ticker, start_date, end_date, candle_count, score,
                   total_diff_percent, avg_rsi, status, is_flagged, last_updated)
VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (id) DO UPDATE SET
	ticker = excluded.ticker,
	start_date = excluded.start_date,
	end_date = excluded.end_date,
	candle_count = excluded.candle_count,
	score = excluded.score,
	total_diff_percent = excluded.total_diff_percent,
	avg_rsi = excluded.avg_rsi,
	status = excluded.status,
	is_flagged = excluded.is_flagged,
	last_updated = CURRENT_TIMESTAMP`,
		z.ID, z.Ticker, start, z.EndDate, z.CandleCount, z.Score,
		z.TotalDiffPercent, z.AvgRSI, status, z.IsFlagged)
	if err != nil {
		return fmt.Errorf("put zone %d: %w", z.ID, err)
	}
	return nil
}

// Import writes zones in one transaction.
func (s *Store) Import(ctx context.Context, zones []zone.Zone) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, z := range zones {
		if err := s.put(ctx, tx, z); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AddScore records one day of score history. The score change is taken
// against the previous day's row, as the scanner does.
func (s *Store) AddScore(ctx context.Context, zoneID int64, day time.Time, score float64, candles int) error {
	date := day.Format(dateLayout)
	var prev sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
SELECT score FROM score_history WHERE zone_id = ? AND date < ?
ORDER BY date DESC LIMIT 1`, zoneID, date).Scan(&prev)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("previous score: %w", err)
	}
	change := 0.0
	if prev.Valid {
		change = score - prev.Float64
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO score_history (zone_id, date, score, score_change, candle_count)
VALUES (?, ?, ?, ?, ?)`, zoneID, date, score, change, candles)
	if err != nil {
		return fmt.Errorf("add score: %w", err)
	}
	return nil
}

// AddComment attaches a comment by username to a zone, creating the user
// when needed.
func (s *Store) AddComment(ctx context.Context, zoneID int64, username, text string, at time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO users (username) VALUES (?) ON CONFLICT (username) DO NOTHING`, username); err != nil {
		return 0, fmt.Errorf("add user: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
INSERT INTO zone_comments (zone_id, user_id, comment, created_at)
SELECT ?, id, ?, ? FROM users WHERE username = ?`,
		zoneID, text, at.UTC().Format(time.DateTime), username)
	if err != nil {
		return 0, fmt.Errorf("add comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}
