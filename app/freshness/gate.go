package freshness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/dining-comb/app/database"
	"github.com/lysyi3m/dining-comb/app/metrics"
	"github.com/lysyi3m/dining-comb/app/timewindow"
)

// Gate answers whether today's menus already exist for every known hall.
type Gate struct {
	repo       database.Repository
	configured func() []string
	loc        *time.Location
	now        func() time.Time
}

// NewGate builds a gate. configured returns the names of the hall sources
// currently configured; it may be nil.
func NewGate(repo database.Repository, configured func() []string, loc *time.Location) *Gate {
	if loc == nil {
		loc = time.Local
	}
	return &Gate{repo: repo, configured: configured, loc: loc, now: time.Now}
}

// IsCurrent reports true only when every known hall has a menu dated today.
// Known halls are the configured hall sources plus every persisted hall.
func (g *Gate) IsCurrent(ctx context.Context) (bool, error) {
	known := make(map[string]bool)
	if g.configured != nil {
		for _, name := range g.configured() {
			known[database.HallKey(name)] = true
		}
	}

	halls, err := g.repo.FindAllDiningHalls(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load dining halls: %w", err)
	}
	for _, h := range halls {
		known[h.Key] = true
	}

	if len(known) == 0 {
		metrics.ObserveFreshness(false)
		return false, nil
	}

	start := timewindow.StartOfDay(g.now().In(g.loc))
	menus, err := g.repo.FindMenusByDateRange(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return false, fmt.Errorf("failed to load today's menus: %w", err)
	}

	fresh := make(map[string]bool, len(menus))
	for _, m := range menus {
		fresh[m.HallKey] = true
	}

	missing := 0
	for key := range known {
		if !fresh[key] {
			missing++
		}
	}

	current := missing == 0
	metrics.ObserveFreshness(current)
	slog.Debug("Freshness checked", "known", len(known), "missing", missing, "current", current)
	return current, nil
}
