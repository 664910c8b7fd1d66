package cfg

import "time"

type Cfg struct {
	// Storage
	VenuesDir   string
	StoreDriver string
	StatePath   string
	DBPath      string

	// Polling
	HorizonDays    int
	RetentionDays  int
	WorkerCount    int
	FetchTimeout   time.Duration
	Schedule       string
	Once           bool
	ChromeHeadless bool

	// HTTP surface and notifications
	Port           string
	BaseUrl        string
	APIAccessKey   string
	DiscordWebhook string

	// Application metadata
	UserAgent string
	Timezone  string
	Location  *time.Location
	Debug     bool
	Version   string
}
