package sources

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the source definitions from a YAML file, applies defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	setDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid sources file %s: %w", path, err)
	}

	return &config, nil
}

func setDefaults(config *Config) {
	if config.REST.PerPage == 0 {
		config.REST.PerPage = 100
	}
	if config.REST.MaxAttempts == 0 {
		config.REST.MaxAttempts = 3
	}
	if config.REST.RetryDelay == 0 {
		config.REST.RetryDelay = 1000
	}
	if config.REST.PageDelay == 0 {
		config.REST.PageDelay = 300
	}
	if config.REST.Timeout == 0 {
		config.REST.Timeout = 10
	}

	if config.Feed.MaxItems == 0 {
		config.Feed.MaxItems = 50
	}
	if config.Feed.MaxAttempts == 0 {
		config.Feed.MaxAttempts = 3
	}
	if config.Feed.RetryDelay == 0 {
		config.Feed.RetryDelay = 1000
	}
	if config.Feed.Timeout == 0 {
		config.Feed.Timeout = 10
	}

	if config.Catalog.PerPage == 0 {
		config.Catalog.PerPage = 100
	}
	if config.Catalog.Timeout == 0 {
		config.Catalog.Timeout = 15
	}
}

func validate(config *Config) error {
	if err := validateURL("rest.url", config.REST.URL); err != nil {
		return err
	}
	if err := validateURL("feed.url", config.Feed.URL); err != nil {
		return err
	}

	// The catalog proxy is optional; its handler is disabled when unset.
	if config.Catalog.URL != "" {
		if err := validateURL("catalog.url", config.Catalog.URL); err != nil {
			return err
		}
	}

	if config.REST.PerPage < 1 || config.REST.PerPage > 100 {
		return fmt.Errorf("rest.per_page must be between 1 and 100, got %d", config.REST.PerPage)
	}

	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s is not an absolute URL: %q", field, raw)
	}
	return nil
}
