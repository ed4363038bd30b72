package scrape

import (
	"bytes"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const headingSel = "h1, h2, h3, h4, h5, h6"

var dayNumberRe = regexp.MustCompile(`\d+`)

type TruckScheduleExtractor struct {
	locations []string
	slots     TruckSlots
}

func NewTruckScheduleExtractor(locations []string, slots TruckSlots) *TruckScheduleExtractor {
	return &TruckScheduleExtractor{
		locations: locations,
		slots:     slots.WithDefaults(),
	}
}

func (e *TruckScheduleExtractor) Run(data []byte, now time.Time) (*TruckSchedule, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse truck schedule: %w", err)
	}

	schedule := &TruckSchedule{Slots: []ScrapedTruckSlot{}}
	seen := make(map[string]bool)
	found := 0

	for _, location := range e.locations {
		table := findScheduleTable(doc, location)
		if table == nil {
			schedule.Skipped = append(schedule.Skipped, Skip{Where: location, Reason: "no heading or table for location"})
			continue
		}
		found++

		rows := table.Find("tbody tr")
		if rows.Length() == 0 {
			rows = table.Find("tr")
		}

		rows.Each(func(i int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() == 0 {
				return
			}
			if !IsToday(cells.Eq(0).Text(), now) {
				return
			}
			where := fmt.Sprintf("%s row %d", location, i)

			for idx, spec := range []SlotSpec{e.slots.Evening, e.slots.LateNight} {
				if cells.Length() <= idx+1 {
					schedule.Skipped = append(schedule.Skipped, Skip{Where: where, Reason: "missing " + spec.Label + " cell"})
					continue
				}
				for _, name := range cellNames(cells.Eq(idx + 1)) {
					key := foldKey(name)
					if seen[key] {
						schedule.Skipped = append(schedule.Skipped, Skip{Where: where, Reason: "duplicate truck " + name})
						continue
					}
					seen[key] = true
					schedule.Slots = append(schedule.Slots, ScrapedTruckSlot{
						Name:          name,
						Location:      location,
						TimeSlotLabel: spec.Label,
						Open:          spec.Open,
						Close:         spec.Close,
					})
				}
			}
		})
	}

	if found == 0 {
		return nil, fmt.Errorf("%w: no schedule table for any configured location", ErrUnexpectedMarkup)
	}

	for _, skip := range schedule.Skipped {
		slog.Debug("Skipped truck schedule element", "where", skip.Where, "reason", skip.Reason)
	}

	return schedule, nil
}

// findScheduleTable returns the table immediately following the heading that
// mentions location, or nil. The search ends at the next heading so one
// location never borrows the table of the next.
func findScheduleTable(doc *goquery.Document, location string) *goquery.Selection {
	want := foldKey(location)
	heading := doc.Find(headingSel).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(foldKey(s.Text()), want)
	}).First()
	if heading.Length() == 0 {
		return nil
	}

	if table, stopped := tableBeforeHeading(heading.NextAll()); table != nil || stopped {
		return table
	}
	// The heading may sit alone in a wrapper with the table after it.
	if heading.Siblings().Length() == 0 {
		table, _ := tableBeforeHeading(heading.Parent().NextAll())
		return table
	}
	return nil
}

// tableBeforeHeading walks siblings in order and returns the first table found
// before any heading. stopped is true when a heading ended the walk.
func tableBeforeHeading(siblings *goquery.Selection) (*goquery.Selection, bool) {
	for i := range siblings.Length() {
		s := siblings.Eq(i)
		if s.Is("table") {
			return s, false
		}
		if s.Is(headingSel) || s.Find(headingSel).Length() > 0 {
			return nil, true
		}
		if table := s.Find("table").First(); table.Length() > 0 {
			return table, false
		}
	}
	return nil, false
}

// IsToday reports whether a schedule date cell such as "Mon, Jun 2" names
// the weekday and day of month of now. The day number must be a whole token.
func IsToday(text string, now time.Time) bool {
	folded := foldKey(text)
	if !strings.Contains(folded, foldKey(now.Format("Mon"))) {
		return false
	}
	for _, token := range dayNumberRe.FindAllString(folded, -1) {
		if day, err := strconv.Atoi(token); err == nil && day == now.Day() {
			return true
		}
	}
	return false
}

// cellNames splits a cell into names on <br> and block boundaries.
func cellNames(cell *goquery.Selection) []string {
	var names []string
	var buf strings.Builder
	flush := func() {
		if name := cleanText(buf.String()); name != "" {
			names = append(names, name)
		}
		buf.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "br":
				flush()
				return
			case "p", "div", "li":
				flush()
				defer flush()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range cell.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	flush()
	return names
}

// MergeSlots concatenates schedules from several pages, dropping truck names
// already seen case-insensitively.
func MergeSlots(schedules ...[]ScrapedTruckSlot) []ScrapedTruckSlot {
	merged := []ScrapedTruckSlot{}
	seen := make(map[string]bool)
	for _, slots := range schedules {
		for _, slot := range slots {
			key := foldKey(slot.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, slot)
		}
	}
	return merged
}
