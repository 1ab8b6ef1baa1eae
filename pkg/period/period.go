// Package period selects which journal records a run looks at.
//
// There are two distinct query modes. Recent takes the newest N records
// regardless of calendar boundaries. Month takes every record dated inside one
// calendar month, where the month is always computed in Japan Standard Time.
package period

import (
	"fmt"
	"time"
)

// JST is the fixed local zone used for every calendar computation, independent
// of the host timezone.
var JST = time.FixedZone("Asia/Tokyo", 9*60*60)

// DefaultRecent is the record count used when no month is given.
const DefaultRecent = 30

// Mode names the query mode of a Period.
type Mode int

const (
	ModeRecent Mode = iota
	ModeMonth
)

func (m Mode) String() string {
	if m == ModeMonth {
		return "month"
	}
	return "recent"
}

// Period is either Recent(n) or Month(year, month). The zero value is Recent
// with the default limit.
type Period struct {
	mode  Mode
	limit int
	year  int
	month time.Month
}

// Recent selects the newest n records. n <= 0 means DefaultRecent.
func Recent(n int) Period {
	if n <= 0 {
		n = DefaultRecent
	}
	return Period{mode: ModeRecent, limit: n}
}

// Month selects the calendar month year-month in JST.
func Month(year int, month time.Month) Period {
	return Period{mode: ModeMonth, year: year, month: month}
}

// Parse reads a "YYYY-MM" month. An empty string yields Recent(DefaultRecent).
func Parse(s string) (Period, error) {
	if s == "" {
		return Recent(DefaultRecent), nil
	}
	t, err := time.ParseInLocation("2006-01", s, JST)
	if err != nil {
		return Period{}, fmt.Errorf("period %q must be in YYYY-MM form: %w", s, err)
	}
	return Month(t.Year(), t.Month()), nil
}

func (p Period) Mode() Mode { return p.mode }

// Limit is the record count of a Recent period (0 for months).
func (p Period) Limit() int {
	if p.mode == ModeRecent && p.limit <= 0 {
		return DefaultRecent
	}
	return p.limit
}

// Window returns the first and last instant of a Month period in JST:
// the 1st at 00:00:00 and the last day at 23:59:59. ok is false for Recent.
func (p Period) Window() (start, end time.Time, ok bool) {
	if p.mode != ModeMonth {
		return time.Time{}, time.Time{}, false
	}
	start = time.Date(p.year, p.month, 1, 0, 0, 0, 0, JST)
	end = start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end, true
}

// Contains reports whether t falls inside the period's window. Recent periods
// contain every instant.
func (p Period) Contains(t time.Time) bool {
	start, end, ok := p.Window()
	if !ok {
		return true
	}
	local := t.In(JST)
	return !local.Before(start) && !local.After(end)
}

// TargetMonth is the first day of the month the results belong to. Recent
// periods belong to the JST month of now.
func (p Period) TargetMonth(now time.Time) time.Time {
	if start, _, ok := p.Window(); ok {
		return start
	}
	n := now.In(JST)
	return time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, JST)
}

// Key is the "YYYY-MM" label used in file names. Recent periods use the JST
// month of now.
func (p Period) Key(now time.Time) string {
	return p.TargetMonth(now).Format("2006-01")
}

// Label describes the covered dates, e.g. "2025年01月01日 ~ 2025年01月31日".
func (p Period) Label(now time.Time) string {
	if start, end, ok := p.Window(); ok {
		return start.Format("2006年01月02日") + " ~ " + end.Format("2006年01月02日")
	}
	return "取得可能な最新 ~ " + now.In(JST).Format("2006年01月02日")
}

// Previous returns the calendar month before the JST month of t.
func Previous(t time.Time) Period {
	first := time.Date(t.In(JST).Year(), t.In(JST).Month(), 1, 0, 0, 0, 0, JST)
	prev := first.AddDate(0, -1, 0)
	return Month(prev.Year(), prev.Month())
}

func (p Period) String() string {
	if p.mode == ModeMonth {
		return fmt.Sprintf("%04d-%02d", p.year, int(p.month))
	}
	return fmt.Sprintf("recent %d", p.Limit())
}
