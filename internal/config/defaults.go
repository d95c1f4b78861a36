package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Site.ContentDir == "" {
		cfg.Site.ContentDir = "./content"
	}
	if cfg.Site.OutputDir == "" {
		cfg.Site.OutputDir = "./public"
	}
	if cfg.Site.DefaultLang == "" {
		cfg.Site.DefaultLang = "en"
	}
	if cfg.Search.Engine == "" {
		cfg.Search.Engine = EngineSimple
	}
	if cfg.Search.IndexFields == nil {
		cfg.Search.IndexFields = []string{"title", "body", "url", "lang", "tags", "date"}
	}
	if cfg.Search.ChunkSize == 0 {
		cfg.Search.ChunkSize = 64 * 1024
	}
	if cfg.Search.ChunkPrefix == "" {
		cfg.Search.ChunkPrefix = "chunk"
	}
	if cfg.Search.MemoryBudget == 0 {
		cfg.Search.MemoryBudget = 50 * 1024 * 1024
	}
	if cfg.Search.SimpleIndexName == "" {
		cfg.Search.SimpleIndexName = "search-index.json"
	}
	if cfg.Search.SimpleMaxSize == 0 {
		cfg.Search.SimpleMaxSize = 500 * 1024
	}
	if cfg.Search.OnPageError == "" {
		cfg.Search.OnPageError = OnPageErrorAbort
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.SnippetLength == 0 {
		cfg.Search.SnippetLength = 150
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./.shiori/history.db"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "./.shiori/index"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".json", ".yaml", ".yml", ".toml", ".html", ".htm", ".md"}
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 300
	}
}
