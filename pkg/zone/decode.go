package zone

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"

	"github.com/matzehuels/zonemap/pkg/errors"
)

// Report describes what [Decode] had to forgive.
type Report struct {
	// Skipped counts array elements that were not JSON objects.
	Skipped int

	// Issues lists fields that were present but could not be coerced to
	// their type. The field takes its zero value. Every issue carries
	// [errors.ErrCodeMalformedRecord].
	Issues []error
}

// Clean reports whether nothing was skipped or coerced.
func (r Report) Clean() bool { return r.Skipped == 0 && len(r.Issues) == 0 }

// Log writes the report to logger: a warning per category, each issue at
// debug level.
func (r Report) Log(logger *log.Logger, source string) {
	if r.Clean() || logger == nil {
		return
	}
	if r.Skipped > 0 {
		logger.Warn("skipped non-object zone records", "source", source, "count", r.Skipped)
	}
	for _, issue := range r.Issues {
		logger.Debug("coerced zone field", "source", source, "issue", issue)
	}
	if n := len(r.Issues); n > 0 {
		logger.Warn("coerced malformed zone fields", "source", source, "count", n, "code", errors.ErrCodeMalformedRecord)
	}
}

type envelope struct {
	Success *bool             `json:"success"`
	Error   string            `json:"error"`
	Zones   []json.RawMessage `json:"zones"`
}

// Decode parses a zone list. The input is either a bare JSON array of zone
// objects or an envelope of the form {"success": true, "zones": [...]}.
//
// Decoding is tolerant: missing fields take their zero value; numbers
// written as strings are accepted; fields of the wrong type are zeroed and
// reported; elements that are not objects are skipped and counted. Decode
// only fails when data is not JSON at all, when the top level is neither an
// array nor an envelope, or when the envelope reports success=false.
func Decode(data []byte) ([]Zone, Report, error) {
	var rep Report
	raw, err := splitList(data)
	if err != nil {
		return nil, rep, err
	}

	zones := make([]Zone, 0, len(raw))
	for i, msg := range raw {
		rec, ok := object(msg)
		if !ok {
			rep.Skipped++
			continue
		}
		c := coercer{index: i}
		zones = append(zones, c.zone(rec))
		rep.Issues = append(rep.Issues, c.issues...)
	}
	return zones, rep, nil
}

func splitList(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty zone document")
	}
	switch trimmed[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode zone list")
		}
		return raw, nil
	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode zone envelope")
		}
		if env.Success != nil && !*env.Success {
			msg := env.Error
			if msg == "" {
				msg = "source reported failure"
			}
			return nil, errors.New(errors.ErrCodeInvalidInput, "%s", msg)
		}
		return env.Zones, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "zone document must be an array or an object")
}

// DecodeDetail parses a zone detail document of the form
// {"zone": {...}, "history": [...], "comments": [...]}, optionally with a
// "success" flag. The same coercion rules as [Decode] apply.
func DecodeDetail(data []byte) (Detail, Report, error) {
	var rep Report
	var doc struct {
		Success  *bool            `json:"success"`
		Error    string           `json:"error"`
		Zone     map[string]any    `json:"zone"`
		History  []json.RawMessage `json:"history"`
		Comments []json.RawMessage `json:"comments"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Detail{}, rep, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode zone detail")
	}
	if doc.Success != nil && !*doc.Success {
		if strings.Contains(strings.ToLower(doc.Error), "not found") {
			return Detail{}, rep, errors.New(errors.ErrCodeNotFound, "%s", doc.Error)
		}
		return Detail{}, rep, errors.New(errors.ErrCodeInvalidInput, "%s", doc.Error)
	}
	if doc.Zone == nil {
		return Detail{}, rep, errors.New(errors.ErrCodeNotFound, "zone detail has no zone")
	}

	c := coercer{}
	d := Detail{Zone: c.zone(doc.Zone)}
	for i, raw := range doc.History {
		h, ok := object(raw)
		if !ok {
			rep.Skipped++
			continue
		}
		c.index = i
		d.History = append(d.History, ScorePoint{
			Date:        c.toStr(h, "date"),
			Score:       c.toFloat(h, "score"),
			ScoreChange: c.toFloat(h, "score_change"),
			CandleCount: c.toInt(h, "candle_count"),
		})
	}
	for i, raw := range doc.Comments {
		m, ok := object(raw)
		if !ok {
			rep.Skipped++
			continue
		}
		c.index = i
		d.Comments = append(d.Comments, Comment{
			ID:        c.toID(m, "id"),
			Username:  c.toStr(m, "username"),
			Text:      c.toStr(m, "comment"),
			CreatedAt: c.toStr(m, "created_at"),
		})
	}
	rep.Issues = c.issues
	return d, rep, nil
}

// ReadJSON decodes a zone list from r. See [Decode].
// ReadJSON does not close r.
func ReadJSON(r io.Reader) ([]Zone, Report, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Report{}, fmt.Errorf("read: %w", err)
	}
	return Decode(data)
}

// ImportJSON reads the zone list stored at path.
func ImportJSON(path string) ([]Zone, Report, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Report{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "%s", path)
		}
		return nil, Report{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	zones, rep, err := ReadJSON(f)
	if err != nil {
		return nil, rep, fmt.Errorf("import %s: %w", path, err)
	}
	return zones, rep, nil
}

func object(raw json.RawMessage) (map[string]any, bool) {
	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil || rec == nil {
		return nil, false
	}
	return rec, true
}

// coercer converts loosely-typed JSON values into zone fields, collecting
// an issue for each value that had the wrong shape.
type coercer struct {
	index  int
	issues []error
}

func (c *coercer) zone(rec map[string]any) Zone {
	return Zone{
		ID:               c.toID(rec, "id"),
		Ticker:           c.toStr(rec, "ticker"),
		Score:            c.toFloat(rec, "score"),
		ScoreChange:      c.toFloat(rec, "score_change"),
		CandleCount:      c.toInt(rec, "candle_count"),
		TotalDiffPercent: c.toFloat(rec, "total_diff_percent"),
		IsFlagged:        c.toBool(rec, "is_flagged"),
		LastComment:      c.toStr(rec, "last_comment"),
		Status:           c.toStr(rec, "status"),
		StartDate:        c.toStr(rec, "start_date"),
		EndDate:          c.toStr(rec, "end_date"),
		AvgRSI:           c.toFloat(rec, "avg_rsi"),
		CommentCount:     c.toInt(rec, "comment_count"),
	}
}

func (c *coercer) bad(field string, v any) {
	c.issues = append(c.issues, errors.New(errors.ErrCodeMalformedRecord,
		"record %d: field %q has unusable value %v", c.index, field, v))
}

func (c *coercer) toFloat(rec map[string]any, field string) float64 {
	v, ok := rec[field]
	if !ok || v == nil {
		return 0
	}
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	case bool:
		if x {
			return 1
		}
		return 0
	}
	c.bad(field, v)
	return 0
}

func (c *coercer) toInt(rec map[string]any, field string) int {
	v, ok := rec[field]
	if !ok || v == nil {
		return 0
	}
	f := c.toFloat(rec, field)
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		c.bad(field, v)
		return int(math.Trunc(math.Max(math.Min(f, math.MaxInt32), math.MinInt32)))
	}
	return int(f)
}

// maxExactID is the largest integer a JSON number carries without loss.
const maxExactID = 1 << 53

func (c *coercer) toID(rec map[string]any, field string) int64 {
	v, ok := rec[field]
	if !ok || v == nil {
		return 0
	}
	f := c.toFloat(rec, field)
	if f != math.Trunc(f) || math.Abs(f) > maxExactID {
		c.bad(field, v)
		return 0
	}
	return int64(f)
}

func (c *coercer) toStr(rec map[string]any, field string) string {
	v, ok := rec[field]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	c.bad(field, v)
	return ""
}

func (c *coercer) toBool(rec map[string]any, field string) bool {
	v, ok := rec[field]
	if !ok || v == nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
			return b
		}
	}
	c.bad(field, v)
	return false
}
