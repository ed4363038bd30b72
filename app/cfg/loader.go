package cfg

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath string `long:"db-path" env:"DB_PATH" default:"./dining.db" description:"SQLite database file"`
	Store  string `long:"store" env:"STORE" default:"sqlite" choice:"sqlite" choice:"memory" description:"Persistence backend"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for scrape tasks"`
	MenuCron          string `long:"menu-cron" env:"MENU_CRON" default:"*/30 * * * *" description:"Cron spec for the gated menu scrape"`
	TruckCron         string `long:"truck-cron" env:"TRUCK_CRON" default:"0 * * * *" description:"Cron spec for the truck schedule scrape"`
	UpsertConcurrency int    `long:"upsert-concurrency" env:"UPSERT_CONCURRENCY" default:"16" description:"Maximum concurrent writes per reconciliation phase"`
	FetchTimeout      int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"0" description:"Per-source fetch timeout in seconds (0 disables)"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	RedisAddr         string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the shared scrape lock (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Dining Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"America/Los_Angeles" description:"Timezone that defines \"today\" for menus and trucks"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses args and the environment. It returns nil, nil when help was requested.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.WorkerCount <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", raw.WorkerCount)
	}
	if raw.UpsertConcurrency <= 0 {
		return nil, fmt.Errorf("upsert concurrency must be positive, got %d", raw.UpsertConcurrency)
	}
	if raw.FetchTimeout < 0 {
		return nil, fmt.Errorf("fetch timeout must be non-negative, got %d", raw.FetchTimeout)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		Store:             raw.Store,
		SourcesDir:        raw.SourcesDir,
		Port:              raw.Port,
		WorkerCount:       raw.WorkerCount,
		MenuCron:          raw.MenuCron,
		TruckCron:         raw.TruckCron,
		UpsertConcurrency: raw.UpsertConcurrency,
		FetchTimeout:      time.Duration(raw.FetchTimeout) * time.Second,
		APIAccessKey:      raw.APIAccessKey,
		RedisAddr:         raw.RedisAddr,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
		loc = time.Local
	}
	cfg.Location = loc

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func loadLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}
