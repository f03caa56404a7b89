package cfg

type Cfg struct {
	// Application configuration
	Port        string
	SourcesFile string
	CacheTTL    int // hours

	// Commerce catalog proxy credentials
	CatalogKey    string
	CatalogSecret string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
