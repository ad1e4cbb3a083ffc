package cfg

type Cfg struct {
	// Persistence configuration
	DBPath string

	// Application configuration
	SourcesDir     string
	Port           string
	WorkerCount    int
	IngestInterval int
	DigestHour     int
	APIToken       string

	// Outbound integrations
	AnthropicAPIKey string
	AnthropicModel  string
	ItemSummaries   bool
	SendGridAPIKey  string
	FromEmail       string
	FromName        string
	SiteURL         string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
