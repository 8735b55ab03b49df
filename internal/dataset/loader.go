// Package dataset reads feedback sessions from an .xlsx export and writes
// evaluation reports back to .xlsx.
package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"voice-rewards-go/internal/types"
)

var ErrNoRows = errors.New("no data rows")

// Dataset is one export: sessions from the first sheet, business contexts
// from a sheet named "businesses" when present. Skipped counts session rows
// left out, either blank (no id or transcript) or unparseable. Unparseable
// rows are also listed in Rejected.
type Dataset struct {
	Sessions []types.FeedbackSession
	Contexts map[string]*types.BusinessContext
	Skipped  int
	Rejected []RowError
}

// RowError is a session row that could not be parsed. Row is the 1-based
// sheet row, header included.
type RowError struct {
	Row       int
	SessionID string
	Err       error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d (%s): %v", e.Row, e.SessionID, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

type column struct {
	field string
	match func(h string) bool
}

func has(subs ...string) func(string) bool {
	return func(h string) bool {
		for _, s := range subs {
			if strings.Contains(h, s) {
				return true
			}
		}
		return false
	}
}

// first match wins, so more specific headers come first
var sessionColumns = []column{
	{"tier", has("tier")},
	{"duration", has("duration")},
	{"session", has("session")},
	{"business", has("business", "store")},
	{"customer", has("customer")},
	{"transcript", has("transcript", "text")},
	{"categories", has("categor")},
	{"items", has("item")},
	{"amount", has("amount")},
	{"purchased_at", has("purchase")},
	{"feedback_at", has("feedback", "submitted")},
	{"user_agent", has("agent")},
	{"screen", has("screen")},
	{"cookies", has("cookie")},
}

var businessColumns = []column{
	{"type", has("type")},
	{"business", has("business", "store", "id")},
	{"departments", has("department")},
	{"strengths", has("strength")},
	{"issues", has("issue")},
	{"staff", has("staff")},
}

func detect(header []string, cols []column) map[string]int {
	idx := map[string]int{}
	for i, h := range header {
		n := strings.ToLower(strings.TrimSpace(h))
		for _, c := range cols {
			if c.match(n) {
				if _, seen := idx[c.field]; !seen {
					idx[c.field] = i
				}
				break
			}
		}
	}
	return idx
}

type row struct {
	cells []string
	idx   map[string]int
}

func (r row) get(field string) string {
	i, ok := r.idx[field]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

func (r row) list(field string) []string {
	raw := r.get(field)
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(c rune) bool { return c == ';' || c == ',' || c == '|' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads the export at path. Header names are matched loosely.
func Load(path string) (Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Dataset{}, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Dataset{}, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return Dataset{}, ErrNoRows
	}

	ds := Dataset{Contexts: map[string]*types.BusinessContext{}}
	idx := detect(rows[0], sessionColumns)
	for i, cells := range rows[1:] {
		r := row{cells: cells, idx: idx}
		if r.get("session") == "" || r.get("transcript") == "" {
			ds.Skipped++
			continue
		}
		s, err := parseSession(r)
		if err != nil {
			ds.Skipped++
			ds.Rejected = append(ds.Rejected, RowError{Row: i + 2, SessionID: r.get("session"), Err: err})
			continue
		}
		ds.Sessions = append(ds.Sessions, s)
	}

	for _, name := range sheets[1:] {
		if !strings.EqualFold(strings.TrimSpace(name), "businesses") {
			continue
		}
		brows, err := f.GetRows(name)
		if err != nil {
			return Dataset{}, fmt.Errorf("read businesses: %w", err)
		}
		if len(brows) == 0 {
			break
		}
		bidx := detect(brows[0], businessColumns)
		for _, cells := range brows[1:] {
			r := row{cells: cells, idx: bidx}
			id := r.get("business")
			if id == "" {
				continue
			}
			ds.Contexts[id] = &types.BusinessContext{
				BusinessType: r.get("type"),
				Departments:  r.list("departments"),
				Strengths:    r.list("strengths"),
				KnownIssues:  r.list("issues"),
				StaffNames:   r.list("staff"),
			}
		}
	}
	return ds, nil
}

func parseSession(r row) (types.FeedbackSession, error) {
	s := types.FeedbackSession{
		SessionID:    r.get("session"),
		BusinessID:   r.get("business"),
		CustomerHash: r.get("customer"),
		Transcript:   r.get("transcript"),
		Categories:   r.list("categories"),
		Purchase:     types.PurchaseRecord{Items: r.list("items")},
	}
	var err error
	if s.Purchase.Amount, err = parseInt(r.get("amount")); err != nil {
		return s, fmt.Errorf("amount: %w", err)
	}
	if s.Purchase.PurchasedAt, err = parseTime(r.get("purchased_at")); err != nil {
		return s, fmt.Errorf("purchased at: %w", err)
	}
	if s.FeedbackAt, err = parseTime(r.get("feedback_at")); err != nil {
		return s, fmt.Errorf("feedback at: %w", err)
	}
	secs, err := strconv.ParseFloat(orZero(r.get("duration")), 64)
	if err != nil {
		return s, fmt.Errorf("duration: %w", err)
	}
	s.Duration = time.Duration(secs * float64(time.Second))
	tier, err := parseInt(r.get("tier"))
	if err != nil {
		return s, fmt.Errorf("tier: %w", err)
	}
	s.Tier = types.BusinessTier(tier)

	if ua := r.get("user_agent"); ua != "" || r.get("screen") != "" {
		cookies, _ := strconv.ParseBool(orDefault(r.get("cookies"), "true"))
		s.Device = &types.DeviceFingerprint{
			UserAgent:       ua,
			ScreenSignature: r.get("screen"),
			CookiesEnabled:  cookies,
		}
	}
	return s, nil
}

func parseInt(v string) (int64, error) {
	v = strings.ReplaceAll(orZero(v), " ", "")
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return int64(f), nil
	}
	return strconv.ParseInt(v, 10, 64)
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04"}

func parseTime(v string) (time.Time, error) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", v)
}

func orZero(v string) string { return orDefault(v, "0") }

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
