package sources

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/krtrends/marketpulse/app/item"
)

var validTypes = map[string]bool{
	TypeHTML: true,
	TypeAPI:  true,
	TypeFeed: true,
}

var validCategories = map[string]bool{
	item.CategoryViral:     true,
	item.CategoryReview:    true,
	item.CategoryTraffic:   true,
	item.CategorySNS:       true,
	item.CategoryNaver:     true,
	item.CategoryEcommerce: true,
	item.CategoryTrend:     true,
	item.CategoryNews:      true,
}

// Loader handles loading and validation of source configurations
type Loader struct {
	sourcesDir string
}

func NewLoader(sourcesDir string) *Loader {
	return &Loader{sourcesDir: sourcesDir}
}

// LoadAll loads all YAML configuration files from the sources directory,
// sorted by filename so run order is stable.
func (l *Loader) LoadAll() ([]*Config, error) {
	if _, err := os.Stat(l.sourcesDir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}

	yamlFiles, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}
	files = append(files, yamlFiles...)
	sort.Strings(files)

	configs := make([]*Config, 0, len(files))
	for _, file := range files {
		config, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		if err := l.validate(config); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", file, err)
		}

		configs = append(configs, config)
	}

	return configs, nil
}

func (l *Loader) loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Base(path)
	config.Name = strings.TrimSuffix(base, filepath.Ext(base))

	l.setDefaults(&config)

	return &config, nil
}

func (l *Loader) setDefaults(config *Config) {
	if config.Settings.Timeout == 0 {
		config.Settings.Timeout = 15 // seconds
	}
	if config.Settings.MaxItems == 0 {
		if config.Source.Type == TypeFeed {
			config.Settings.MaxItems = 20
		} else {
			config.Settings.MaxItems = 30
		}
	}
	if config.Settings.MinTitleLen == 0 {
		config.Settings.MinTitleLen = 5
	}
	if len(config.Source.URLs) == 0 && config.Source.BaseURL != "" {
		config.Source.URLs = []string{config.Source.BaseURL}
	}
	if config.Extract != nil && config.Extract.MinMatches == 0 {
		config.Extract.MinMatches = 1
	}
	if config.API != nil && config.API.CategoryParam == "" {
		config.API.CategoryParam = "subCategoryCode"
	}
}

func (l *Loader) validate(config *Config) error {
	if config.Source.Label == "" {
		return fmt.Errorf("source label is required")
	}
	if !validTypes[config.Source.Type] {
		return fmt.Errorf("invalid source type: %q", config.Source.Type)
	}

	switch config.Source.Type {
	case TypeHTML:
		if config.Source.BaseURL == "" {
			return fmt.Errorf("base_url is required for html sources")
		}
		if config.Extract == nil {
			return fmt.Errorf("extract rules are required for html sources")
		}
		if len(config.Extract.Selectors) == 0 &&
			config.Extract.AnchorFallback == nil && config.Extract.HeadingFallback == nil {
			return fmt.Errorf("html source needs selectors or a fallback strategy")
		}
	case TypeAPI:
		if config.API == nil || config.API.Endpoint == "" {
			return fmt.Errorf("api endpoint is required for api sources")
		}
	case TypeFeed:
		if len(config.Source.URLs) == 0 {
			return fmt.Errorf("feed URL is required for feed sources")
		}
	}

	if config.Categories.Default == "" {
		return fmt.Errorf("default category is required")
	}
	if !validCategories[config.Categories.Default] {
		return fmt.Errorf("invalid default category: %q", config.Categories.Default)
	}
	for i, rule := range config.Categories.Keywords {
		if rule.Match == "" {
			return fmt.Errorf("empty keyword at index %d", i)
		}
		if !validCategories[rule.Category] {
			return fmt.Errorf("invalid category %q for keyword %q", rule.Category, rule.Match)
		}
	}

	return nil
}
