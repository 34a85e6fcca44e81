package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Index.Path == "" {
		cfg.Index.Path = "/usr/local/var/kensaku/data/index"
	}
	if cfg.Index.DocnoField == "" {
		cfg.Index.DocnoField = "docno"
	}
	if cfg.Index.LengthField == "" {
		cfg.Index.LengthField = "doclen"
	}
	if cfg.Index.TimeField == "" {
		cfg.Index.TimeField = "epoch"
	}
	if cfg.Index.VectorCacheSize == 0 {
		cfg.Index.VectorCacheSize = 4096
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 1000
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 10000
	}
	if cfg.Search.Parallelism == 0 {
		cfg.Search.Parallelism = 4
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = "trec"
	}
	if cfg.Archive.DatabasePath == "" {
		cfg.Archive.DatabasePath = "/usr/local/var/kensaku/data/db/runs.db"
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}
