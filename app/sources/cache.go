package sources

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type Cache struct {
	sourcesDir string
	cache      map[string]*Source
	mu         sync.RWMutex
}

func NewCache(sourcesDir string) *Cache {
	return &Cache{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Source),
	}
}

// Run loads every *.yml file in the sources directory and replaces the cache
// contents. A missing directory yields an empty cache.
func (c *Cache) Run() error {
	if _, err := os.Stat(c.sourcesDir); os.IsNotExist(err) {
		c.swap(map[string]*Source{})
		return nil
	}

	files, err := filepath.Glob(filepath.Join(c.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	loaded := make(map[string]*Source, len(files))
	for _, file := range files {
		source, err := c.loadFile(file)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}
		if _, dup := loaded[source.Name]; dup {
			return fmt.Errorf("error loading %s: duplicate source name '%s'", file, source.Name)
		}
		loaded[source.Name] = source

		slog.Debug("Source loaded", "source", source.Name, "kind", source.Kind, "enabled", source.IsEnabled())
	}

	c.swap(loaded)
	return nil
}

func (c *Cache) swap(loaded map[string]*Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = loaded
}

func (c *Cache) loadFile(file string) (*Source, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var source Source
	if err := yaml.Unmarshal(data, &source); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	source.Name = cmp.Or(strings.TrimSpace(source.Name), stem)
	source.Kind = cmp.Or(source.Kind, KindHall)
	source.Selectors = source.Selectors.WithDefaults()
	source.Slots = source.Slots.WithDefaults()

	if err := validate(&source); err != nil {
		return nil, fmt.Errorf("invalid source: %w", err)
	}
	return &source, nil
}

func validate(source *Source) error {
	if source.URL == "" {
		return fmt.Errorf("source URL is required")
	}

	switch source.Kind {
	case KindHall:
	case KindTrucks:
		if len(source.TruckLocations) != 2 {
			return fmt.Errorf("trucks source needs exactly 2 truck_locations, got %d", len(source.TruckLocations))
		}
		for i, loc := range source.TruckLocations {
			if strings.TrimSpace(loc) == "" {
				return fmt.Errorf("truck location at index %d is empty", i)
			}
		}
	default:
		return fmt.Errorf("unknown source kind: %s", source.Kind)
	}

	return nil
}

func (c *Cache) Get(name string) (*Source, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	source, ok := c.cache[name]
	if !ok {
		return nil, fmt.Errorf("source with name '%s' not found", name)
	}
	return source, nil
}

func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Enabled returns the enabled sources of kind ordered by name.
func (c *Cache) Enabled(kind Kind) []*Source {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*Source
	for _, s := range c.cache {
		if s.Kind == kind && s.IsEnabled() {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b *Source) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func (c *Cache) HallNames() []string {
	halls := c.Enabled(KindHall)
	names := make([]string, len(halls))
	for i, h := range halls {
		names[i] = h.Name
	}
	return names
}
