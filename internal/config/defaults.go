package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/quizcast/data/quizcast.db"
	}
	ApplyDispatchDefaults(&cfg.Dispatch)
	if cfg.Intake.MinInterval == 0 {
		cfg.Intake.MinInterval = 60 * time.Second
	}
	if cfg.Intake.MaxFileSizeMB == 0 {
		cfg.Intake.MaxFileSizeMB = 10
	}
	if cfg.Intake.ExcerptLength == 0 {
		cfg.Intake.ExcerptLength = 500
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf", ".txt", ".docx", ".odt", ".rtf", ".csv", ".xlsx"}
	}
	if cfg.Watch.ProcessedDir == "" {
		cfg.Watch.ProcessedDir = "processed"
	}
}

// ApplyDispatchDefaults fills zero pacing values with the Bot API-safe defaults.
func ApplyDispatchDefaults(d *DispatchConfig) {
	if d.BatchSize <= 0 {
		d.BatchSize = 5
	}
	if d.PacingDelay == 0 {
		d.PacingDelay = 3 * time.Second
	}
	if d.BatchDelay == 0 {
		d.BatchDelay = 10 * time.Second
	}
	if d.ExtendedEvery <= 0 {
		d.ExtendedEvery = 5
	}
	if d.ExtendedDelay == 0 {
		d.ExtendedDelay = 30 * time.Second
	}
	if d.RateLimitDefault == 0 {
		d.RateLimitDefault = 10 * time.Second
	}
	if d.RetryPadding == 0 {
		d.RetryPadding = 5 * time.Second
	}
}
