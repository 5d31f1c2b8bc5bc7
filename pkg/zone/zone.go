// Package zone defines accumulation-zone records and their JSON codec.
//
// A zone is one scored price-consolidation window for a ticker. The scanner
// that produces zones is out of scope here; this package only carries the
// fields the treemap needs (plus the few the detail view shows) and decodes
// them tolerantly: a record is never rejected because one field is missing
// or mistyped. See [Decode].
package zone

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Zone statuses as written by the scanner.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusBroken    = "broken"
)

// CommentPreviewLen is the number of characters of a comment kept in
// [Zone.LastComment] before an ellipsis is appended.
const CommentPreviewLen = 50

// Zone is one scored accumulation zone.
type Zone struct {
	ID               int64   `json:"id"`
	Ticker           string  `json:"ticker"`
	Score            float64 `json:"score"`
	ScoreChange      float64 `json:"score_change"`
	CandleCount      int     `json:"candle_count"`
	TotalDiffPercent float64 `json:"total_diff_percent"`
	IsFlagged        bool    `json:"is_flagged"`
	LastComment      string  `json:"last_comment,omitempty"`

	Status       string  `json:"status,omitempty"`
	StartDate    string  `json:"start_date,omitempty"`
	EndDate      string  `json:"end_date,omitempty"`
	AvgRSI       float64 `json:"avg_rsi,omitempty"`
	CommentCount int     `json:"comment_count,omitempty"`
}

// Weight returns the layout weight of the zone: its score when finite and
// positive, otherwise 0.
func (z Zone) Weight() float64 {
	if z.Score > 0 && !math.IsInf(z.Score, 0) {
		return z.Score
	}
	return 0
}

// ScorePoint is one day of a zone's score history.
type ScorePoint struct {
	Date        string  `json:"date"`
	Score       float64 `json:"score"`
	ScoreChange float64 `json:"score_change"`
	CandleCount int     `json:"candle_count"`
}

// Comment is a user note attached to a zone.
type Comment struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Text      string `json:"comment"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Detail is everything the detail view shows for one zone.
type Detail struct {
	Zone     Zone         `json:"zone"`
	History  []ScorePoint `json:"history"`
	Comments []Comment    `json:"comments,omitempty"`
}

// CommentPreview formats the newest comment the way zone listings show it:
// "user: text", with the text cut to [CommentPreviewLen] characters and "..."
// appended when cut.
func CommentPreview(username, text string) string {
	if username == "" {
		username = "Unknown"
	}
	if utf8.RuneCountInString(text) > CommentPreviewLen {
		runes := []rune(text)
		text = string(runes[:CommentPreviewLen]) + "..."
	}
	return username + ": " + strings.TrimSpace(text)
}
