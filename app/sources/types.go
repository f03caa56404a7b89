package sources

// Config describes the upstream endpoints the service ingests from. It is
// loaded from a YAML file so deployments can repoint the gateway without a
// rebuild; credentials stay out of it and come from process configuration.
type Config struct {
	REST    RESTSource    `yaml:"rest"`
	Feed    FeedSource    `yaml:"feed"`
	Catalog CatalogSource `yaml:"catalog"`
}

// RESTSource is the primary, paginated JSON source.
type RESTSource struct {
	URL         string            `yaml:"url"`
	Headers     map[string]string `yaml:"headers"`
	PerPage     int               `yaml:"per_page"`
	MaxAttempts int               `yaml:"max_attempts"`
	RetryDelay  int               `yaml:"retry_delay_ms"`
	PageDelay   int               `yaml:"page_delay_ms"`
	Timeout     int               `yaml:"timeout"` // seconds, per attempt
}

// FeedSource is the secondary XML syndication source, consulted when the
// REST source yields nothing. Feeds are not paginated.
type FeedSource struct {
	URL         string            `yaml:"url"`
	Headers     map[string]string `yaml:"headers"`
	MaxItems    int               `yaml:"max_items"`
	MaxAttempts int               `yaml:"max_attempts"`
	RetryDelay  int               `yaml:"retry_delay_ms"`
	Timeout     int               `yaml:"timeout"` // seconds, per attempt
}

// CatalogSource is the commerce catalog endpoint served through a plain
// pass-through proxy: no retry, no fallback, no normalization.
type CatalogSource struct {
	URL     string `yaml:"url"`
	PerPage int    `yaml:"per_page"`
	Timeout int    `yaml:"timeout"` // seconds
}
