package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	VenuesDir   string `long:"venues-dir" env:"VENUES_DIR" default:"./venues" description:"Directory containing per-vendor venue files"`
	StoreDriver string `long:"store-driver" env:"STORE_DRIVER" default:"json" choice:"json" choice:"sqlite" description:"State store backend"`
	StatePath   string `long:"state-path" env:"STATE_PATH" default:"./data/events.json" description:"JSON state file (json driver)"`
	DBPath      string `long:"db-path" env:"DB_PATH" default:"./data/events.db" description:"SQLite database file (sqlite driver)"`

	// Polling
	HorizonDays    int           `long:"horizon-days" env:"HORIZON_DAYS" default:"14" description:"Days ahead to poll, starting today"`
	RetentionDays  int           `long:"retention-days" env:"RETENTION_DAYS" default:"14" description:"Days past events are kept in state"`
	WorkerCount    int           `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of venues fetched concurrently"`
	FetchTimeout   time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"60s" description:"Timeout for fetching one venue"`
	Schedule       string        `long:"schedule" env:"SCHEDULE" default:"*/10 * * * *" description:"Cron schedule for runs"`
	Once           bool          `long:"once" description:"Run once and exit"`
	ChromeHeadless string        `long:"chrome-headless" env:"CHROME_HEADLESS" default:"true" choice:"true" choice:"false" description:"Run the browser used for CGV headless"`

	// HTTP surface and notifications
	Port           string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl        string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://monitor.example.com)"`
	APIAccessKey   string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	DiscordWebhook string `long:"discord-webhook" env:"DISCORD_WEBHOOK_URL" description:"Discord webhook URL (optional, logs only when unset)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" description:"User agent string for vendor requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"Asia/Seoul" description:"Timezone that defines today's date"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load reads envFiles (default .env, missing files are ignored) and then
// parses args. It returns nil, nil when help was requested.
func Load(args []string, envFiles ...string) (*Cfg, error) {
	_ = godotenv.Load(envFiles...)

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	loc, err := time.LoadLocation(raw.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", raw.Timezone, err)
	}

	cfg := &Cfg{
		VenuesDir:      raw.VenuesDir,
		StoreDriver:    raw.StoreDriver,
		StatePath:      raw.StatePath,
		DBPath:         raw.DBPath,
		HorizonDays:    raw.HorizonDays,
		RetentionDays:  raw.RetentionDays,
		WorkerCount:    raw.WorkerCount,
		FetchTimeout:   raw.FetchTimeout,
		Schedule:       raw.Schedule,
		Once:           raw.Once,
		ChromeHeadless: raw.ChromeHeadless == "true",
		Port:           raw.Port,
		BaseUrl:        raw.BaseUrl,
		APIAccessKey:   raw.APIAccessKey,
		DiscordWebhook: raw.DiscordWebhook,
		UserAgent:      cmp.Or(raw.UserAgent, DefaultUserAgent),
		Timezone:       raw.Timezone,
		Location:       loc,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	positiveFields := map[string]int{
		"horizon-days": cfg.HorizonDays,
		"worker-count": cfg.WorkerCount,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	if cfg.RetentionDays < 0 {
		return fmt.Errorf("retention-days must be non-negative")
	}
	if cfg.FetchTimeout <= 0 {
		return fmt.Errorf("fetch-timeout must be positive")
	}

	return nil
}

// PublicURL returns the configured base URL, or a localhost URL on Port.
func (c *Cfg) PublicURL() string {
	if c.BaseUrl != "" {
		return c.BaseUrl
	}
	return fmt.Sprintf("http://localhost:%s", c.Port)
}
