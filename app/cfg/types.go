package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath string
	Store  string

	// Application configuration
	SourcesDir        string
	Port              string
	WorkerCount       int
	MenuCron          string
	TruckCron         string
	UpsertConcurrency int
	FetchTimeout      time.Duration
	APIAccessKey      string
	RedisAddr         string

	// Application metadata
	UserAgent string
	Timezone  string
	Location  *time.Location
	Debug     bool
	Version   string
}
