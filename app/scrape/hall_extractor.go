package scrape

import (
	"bytes"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/dining-comb/app/timewindow"
)

var (
	anchorTargetRe = regexp.MustCompile(`^#([^-\s]+)-(.+)$`)
	rangeSepRe     = regexp.MustCompile(`\s*[–—-]\s*`)
)

type HallPageExtractor struct {
	sel HallSelectors
}

func NewHallPageExtractor(sel HallSelectors) *HallPageExtractor {
	return &HallPageExtractor{sel: sel.WithDefaults()}
}

type stationRef struct {
	name   string
	target string
}

func (e *HallPageExtractor) Run(data []byte, name, url string) (*ScrapedHall, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse hall page: %w", err)
	}

	hall := &ScrapedHall{
		Name:  name,
		URL:   url,
		Hours: []timewindow.Period{},
		Meals: []ScrapedMealPeriod{},
	}

	block := doc.Find(e.sel.HoursBlock)
	anchors := doc.Find(e.sel.PeriodAnchor)
	if block.Length() == 0 && anchors.Length() == 0 {
		return nil, fmt.Errorf("%w: no hours block and no station anchors", ErrUnexpectedMarkup)
	}

	e.extractHours(block.First(), hall)

	periods, stations := e.collectAnchors(anchors)
	sections := indexSections(doc)

	for _, period := range periods {
		mp := ScrapedMealPeriod{Name: period, Stations: []ScrapedStation{}}
		for _, ref := range stations[period] {
			section, ok := sections[strings.TrimPrefix(ref.target, "#")]
			if !ok {
				hall.Skipped = append(hall.Skipped, Skip{Where: ref.target, Reason: "no section with matching id"})
				continue
			}
			mp.Stations = append(mp.Stations, ScrapedStation{
				Name:      ref.name,
				MenuItems: e.extractCards(section, ref, hall),
			})
		}
		hall.Meals = append(hall.Meals, mp)
	}

	for _, skip := range hall.Skipped {
		slog.Debug("Skipped hall page element", "hall", name, "where", skip.Where, "reason", skip.Reason)
	}

	return hall, nil
}

func (e *HallPageExtractor) extractHours(block *goquery.Selection, hall *ScrapedHall) {
	block.Find(e.sel.HoursEntry).Each(func(i int, entry *goquery.Selection) {
		label := cleanText(entry.Find(e.sel.HoursLabel).First().Text())
		if label == "" {
			hall.Skipped = append(hall.Skipped, Skip{Where: fmt.Sprintf("hours entry %d", i), Reason: "missing period label"})
			return
		}

		if closed := entry.Find(e.sel.HoursClosed); closed.Length() > 0 {
			hall.Hours = append(hall.Hours, timewindow.NewClosedPeriod(label, cleanText(closed.First().Text())))
			return
		}

		raw := cleanText(entry.Find(e.sel.HoursRange).First().Text())
		if raw == "" {
			hall.Skipped = append(hall.Skipped, Skip{Where: "hours " + label, Reason: "missing time range"})
			return
		}

		parts := rangeSepRe.Split(raw, 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			// Unknown window: kept for display, ignored by the evaluator.
			hall.Hours = append(hall.Hours, timewindow.Period{Label: label, RawTimeText: raw, IsOpen: true})
			return
		}

		period := timewindow.NewOpenPeriod(label, strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
		period.RawTimeText = raw
		hall.Hours = append(hall.Hours, period)
	})
}

// collectAnchors returns meal periods in document order and, per period,
// its distinct stations in document order.
func (e *HallPageExtractor) collectAnchors(anchors *goquery.Selection) ([]string, map[string][]stationRef) {
	var periods []string
	stations := make(map[string][]stationRef)
	seen := make(map[string]bool)

	anchors.Each(func(_ int, a *goquery.Selection) {
		target := strings.TrimSpace(a.AttrOr("href", ""))
		period, station, ok := e.splitTarget(target)
		if !ok {
			return
		}
		if _, ok := stations[period]; !ok {
			periods = append(periods, period)
			stations[period] = nil
		}
		if seen[target] {
			return
		}
		seen[target] = true
		stations[period] = append(stations[period], stationRef{name: station, target: target})
	})

	return periods, stations
}

// splitTarget splits "#<period>-<STATION>". A known period name is matched as
// a whole prefix; otherwise the period ends at the first hyphen.
func (e *HallPageExtractor) splitTarget(target string) (string, string, bool) {
	rest, ok := strings.CutPrefix(target, "#")
	if !ok {
		return "", "", false
	}
	for _, known := range e.sel.MealPeriods {
		n := len(known)
		if len(rest) > n+1 && strings.EqualFold(rest[:n], known) && rest[n] == '-' {
			if station := cleanText(rest[n+1:]); station != "" {
				return rest[:n], station, true
			}
		}
	}

	m := anchorTargetRe.FindStringSubmatch(target)
	if m == nil {
		return "", "", false
	}
	return m[1], cleanText(m[2]), true
}

func indexSections(doc *goquery.Document) map[string]*goquery.Selection {
	sections := make(map[string]*goquery.Selection)
	doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		id := s.AttrOr("id", "")
		if _, ok := sections[id]; !ok {
			sections[id] = s
		}
	})
	return sections
}

func (e *HallPageExtractor) extractCards(section *goquery.Selection, ref stationRef, hall *ScrapedHall) []ScrapedMenuItem {
	items := []ScrapedMenuItem{}
	section.Find(e.sel.RecipeCard).Each(func(i int, card *goquery.Selection) {
		title := cleanText(card.Find(e.sel.RecipeTitle).First().Text())
		if title == "" {
			hall.Skipped = append(hall.Skipped, Skip{Where: fmt.Sprintf("%s card %d", ref.target, i), Reason: "empty title"})
			return
		}
		items = append(items, ScrapedMenuItem{
			Name:        title,
			Station:     ref.name,
			Ingredients: cleanText(card.Find(e.sel.RecipeDescription).First().Text()),
			DietaryTags: e.extractDietaryTags(card),
		})
	})
	return items
}

func (e *HallPageExtractor) extractDietaryTags(card *goquery.Selection) []string {
	var tags []string
	seen := make(map[string]bool)
	add := func(tag string) {
		tag = cleanText(tag)
		if tag == "" || seen[foldKey(tag)] {
			return
		}
		seen[foldKey(tag)] = true
		tags = append(tags, tag)
	}

	card.Find(e.sel.DietaryTag).Each(func(_ int, s *goquery.Selection) {
		add(s.Text())
	})
	card.Find(e.sel.DietaryIcon).Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("title", s.AttrOr("alt", "")))
	})
	return tags
}
