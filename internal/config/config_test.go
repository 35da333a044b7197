package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"TXDB_PATH", "PORT", "LOG_LEVEL", "LOG_FORMAT", "BQ_PROJECT", "BQ_DATASET", "BQ_TABLE"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %q", cfg.Port)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Errorf("Unexpected log defaults: %q %q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.BigQueryDataset != "finance" || cfg.BigQueryTable != "transactions" {
		t.Errorf("Unexpected BigQuery defaults: %q.%q", cfg.BigQueryDataset, cfg.BigQueryTable)
	}
	if cfg.DatabasePath != "" {
		t.Errorf("Expected no database path, got %q", cfg.DatabasePath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("TXDB_PATH", "/tmp/x.db")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_FORMAT", "json")

	cfg := Load()
	if cfg.DatabasePath != "/tmp/x.db" || cfg.Port != "9090" || cfg.LogFormat != "json" {
		t.Errorf("Environment not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	base := Config{Port: "8080", LogLevel: "info", LogFormat: "console"}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "non-numeric port", mutate: func(c *Config) { c.Port = "http" }, wantErr: true},
		{name: "port out of range", mutate: func(c *Config) { c.Port = "70000" }, wantErr: true},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "chatty" }, wantErr: true},
		{name: "empty level", mutate: func(c *Config) { c.LogLevel = "" }, wantErr: true},
		{name: "bad format", mutate: func(c *Config) { c.LogFormat = "yaml" }, wantErr: true},
		{name: "uppercase json", mutate: func(c *Config) { c.LogFormat = "JSON" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
