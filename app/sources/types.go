package sources

import "github.com/lysyi3m/dining-comb/app/scrape"

type Kind string

const (
	KindHall   Kind = "hall"
	KindTrucks Kind = "trucks"
)

type Source struct {
	Kind           Kind                 `yaml:"kind"`
	Name           string               `yaml:"name"` // defaults to the file name
	URL            string               `yaml:"url"`
	Location       string               `yaml:"location"`
	Enabled        *bool                `yaml:"enabled"`
	Selectors      scrape.HallSelectors `yaml:"selectors"`
	TruckLocations []string             `yaml:"truck_locations"`
	Slots          scrape.TruckSlots    `yaml:"slots"`
}

func (s *Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}
