package venue

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Catalog holds one Config per vendor, loaded from <dir>/<vendor>.yml.
type Catalog struct {
	dir   string
	known map[string]bool
	cache map[string]*Config
	mu    sync.RWMutex
}

// NewCatalog creates a catalog. When knownVendors is non-empty, files for any
// other vendor are rejected.
func NewCatalog(dir string, knownVendors ...string) *Catalog {
	known := make(map[string]bool, len(knownVendors))
	for _, v := range knownVendors {
		known[v] = true
	}

	return &Catalog{
		dir:   dir,
		known: known,
		cache: make(map[string]*Config),
	}
}

func (c *Catalog) Run() error {
	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(c.dir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		vendor := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := c.LoadConfig(vendor)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Venue catalog loaded", "vendor", vendor, "enabled", config.Settings.Enabled, "venues", len(config.Venues), "poll_all", config.PollAll)
	}

	return nil
}

func (c *Catalog) LoadConfig(vendor string) (*Config, error) {
	configFile := c.getConfigFilePath(vendor)
	config, err := c.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	config.Vendor = vendor

	if err := c.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[config.Vendor] = config

	return config, nil
}

func (c *Catalog) GetConfig(vendor string) (*Config, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	config, ok := c.cache[vendor]
	if !ok {
		return nil, fmt.Errorf("venue config for vendor '%s' not found", vendor)
	}
	return config, nil
}

// GetConfigs returns every loaded vendor ordered by name.
func (c *Catalog) GetConfigs() []*Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	configs := make([]*Config, 0, len(c.cache))
	for _, v := range c.cache {
		configs = append(configs, v)
	}
	slices.SortFunc(configs, func(a, b *Config) int {
		return strings.Compare(a.Vendor, b.Vendor)
	})
	return configs
}

// GetEnabledConfigs returns enabled vendors ordered by name.
func (c *Catalog) GetEnabledConfigs() []*Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var enabled []*Config
	for _, v := range c.cache {
		if v.Settings.Enabled {
			enabled = append(enabled, v)
		}
	}
	slices.SortFunc(enabled, func(a, b *Config) int {
		return strings.Compare(a.Vendor, b.Vendor)
	})
	return enabled
}

func (c *Catalog) GetConfigCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *Catalog) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(config.Keywords) == 0 {
		config.Keywords = slices.Clone(DefaultKeywords)
	}
	if config.EventCodes == nil {
		config.EventCodes = map[string]string{}
	}

	for i := range config.Venues {
		config.Venues[i].Name = strings.TrimSpace(config.Venues[i].Name)
		config.Venues[i].Code = strings.TrimSpace(config.Venues[i].Code)
	}

	return &config, nil
}

func (c *Catalog) validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	if len(c.known) > 0 && !c.known[config.Vendor] {
		return fmt.Errorf("%w: %s", ErrUnknownVendor, config.Vendor)
	}

	if strings.TrimSpace(config.Brand) == "" {
		return fmt.Errorf("brand is required")
	}

	if !config.PollAll && len(config.Venues) == 0 {
		return fmt.Errorf("at least one venue is required unless poll_all is set")
	}

	for i, v := range config.Venues {
		if v.Name == "" {
			return fmt.Errorf("venue at index %d has no name", i)
		}
	}

	for i, kw := range config.Keywords {
		if strings.TrimSpace(kw.Term) == "" {
			return fmt.Errorf("keyword at index %d has no term", i)
		}
		if strings.TrimSpace(string(kw.Type)) == "" {
			return fmt.Errorf("keyword '%s' has no type", kw.Term)
		}
	}

	nonNegativeFields := map[string]int{
		"horizon days":               config.Settings.HorizonDays,
		"time lookback":              config.Scan.TimeLookback,
		"title lookback":             config.Scan.TitleLookback,
		"nearest title max distance": config.Scan.NearestTitleMaxDistance,
		"min title runes":            config.Scan.MinTitleRunes,
		"max title runes":            config.Scan.MaxTitleRunes,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	if _, err := config.WeekdaySet(); err != nil {
		return err
	}

	if _, err := config.Scan.TitleScript(); err != nil {
		return err
	}

	return nil
}

func (c *Catalog) getConfigFilePath(vendor string) string {
	return filepath.Join(c.dir, vendor+".yml")
}
