package timewindow

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Period is one labelled opening window as published by a dining hall or truck.
// Open and Close are nil when the source marks the period as closed.
type Period struct {
	Label       string  `json:"label"`
	RawTimeText string  `json:"rawTimeText"`
	IsOpen      bool    `json:"isOpen"`
	Open        *string `json:"open"`
	Close       *string `json:"close"`
}

// NewOpenPeriod builds an open period from its two boundary strings.
func NewOpenPeriod(label, open, closes string) Period {
	return Period{
		Label:       label,
		RawTimeText: open + " - " + closes,
		IsOpen:      true,
		Open:        &open,
		Close:       &closes,
	}
}

// NewClosedPeriod builds a period the source explicitly marks as closed.
func NewClosedPeriod(label, rawText string) Period {
	return Period{Label: label, RawTimeText: rawText}
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hours   int
	Minutes int
}

func (c Clock) minutes() int {
	return c.Hours*60 + c.Minutes
}

var timePattern = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*(?:([ap])\.?\s*m\.?)?$`)

// ParseTime parses "H:MM" with an optional meridiem ("a.m.", "PM", "pm", ...).
// The boolean is false for anything it cannot understand.
func ParseTime(text string) (Clock, bool) {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Clock{}, false
	}

	hours, err := strconv.Atoi(m[1])
	if err != nil {
		return Clock{}, false
	}
	minutes, err := strconv.Atoi(m[2])
	if err != nil || minutes > 59 {
		return Clock{}, false
	}

	switch strings.ToLower(m[3]) {
	case "":
		if hours > 23 {
			return Clock{}, false
		}
	case "a":
		if hours < 1 || hours > 12 {
			return Clock{}, false
		}
		if hours == 12 {
			hours = 0
		}
	case "p":
		if hours < 1 || hours > 12 {
			return Clock{}, false
		}
		if hours != 12 {
			hours += 12
		}
	}

	return Clock{Hours: hours, Minutes: minutes}, true
}

type window struct {
	period Period
	open   int
	close  int
}

func (w window) contains(now int) bool {
	if w.close <= w.open {
		return now >= w.open || now < w.close
	}
	return now >= w.open && now < w.close
}

// windows returns the periods whose open and close times both parse.
func windows(periods []Period) []window {
	var result []window
	for _, p := range periods {
		if !p.IsOpen || p.Open == nil || p.Close == nil {
			continue
		}
		open, ok := ParseTime(*p.Open)
		if !ok {
			continue
		}
		end, ok := ParseTime(*p.Close)
		if !ok {
			continue
		}
		result = append(result, window{period: p, open: open.minutes(), close: end.minutes()})
	}
	return result
}

func minuteOfDay(now time.Time) int {
	return now.Hour()*60 + now.Minute()
}

func active(periods []Period, now time.Time) (window, bool) {
	n := minuteOfDay(now)
	for _, w := range windows(periods) {
		if w.contains(n) {
			return w, true
		}
	}
	return window{}, false
}

// IsOpen reports whether now falls inside any period. Close is exclusive and a
// close time at or before the open time wraps past midnight.
func IsOpen(periods []Period, now time.Time) bool {
	_, ok := active(periods, now)
	return ok
}

// ClosingTime returns the raw close text of the active period.
func ClosingTime(periods []Period, now time.Time) *string {
	w, ok := active(periods, now)
	if !ok {
		return nil
	}
	closes := *w.period.Close
	return &closes
}

// NextOpenTime returns the open text of the nearest period still to open today,
// or the earliest opening of the day when nothing else opens before midnight.
func NextOpenTime(periods []Period, now time.Time) *string {
	ws := windows(periods)
	if len(ws) == 0 {
		return nil
	}

	n := minuteOfDay(now)
	var next, earliest *window
	for i := range ws {
		w := &ws[i]
		if earliest == nil || w.open < earliest.open {
			earliest = w
		}
		offset := w.open - n
		if offset <= 0 {
			continue
		}
		if next == nil || offset < next.open-n {
			next = w
		}
	}

	if next == nil {
		next = earliest
	}
	open := *next.period.Open
	return &open
}

// Status is the open/closed answer for one place at one instant.
type Status struct {
	IsOpen   bool    `json:"isOpen"`
	ClosesAt *string `json:"closesAt,omitempty"`
	NextOpen *string `json:"nextOpen,omitempty"`
}

// Evaluate bundles IsOpen, ClosingTime and NextOpenTime.
func Evaluate(periods []Period, now time.Time) Status {
	if closes := ClosingTime(periods, now); closes != nil {
		return Status{IsOpen: true, ClosesAt: closes}
	}
	return Status{NextOpen: NextOpenTime(periods, now)}
}

// Parseable reports whether the period carries two boundaries the evaluator understands.
func (p Period) Parseable() bool {
	return len(windows([]Period{p})) == 1
}

// StartOfDay is local midnight of t in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
