package processors

import "time"

// Window is the reporting time window used to select which realized events
// and trades count toward the report. It is purely a predicate: it never
// alters ledger processing order or FIFO matching. Zero bounds mean
// unbounded on that side.
type Window struct {
	Start time.Time
	End   time.Time // exclusive
}

// YearWindow returns the window covering one calendar year in UTC:
// [Jan 1 00:00:00 of year, Jan 1 00:00:00 of year+1).
func YearWindow(year int) Window {
	return Window{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && !t.Before(w.End) {
		return false
	}
	return true
}

// IsUnbounded reports whether the window covers all history.
func (w Window) IsUnbounded() bool {
	return w.Start.IsZero() && w.End.IsZero()
}
