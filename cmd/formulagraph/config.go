package main

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all formulagraph server configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	DBPath       string `json:"db_path"`
	LogLevel     string `json:"log_level"`
	CatalogPath  string `json:"catalog_path"`
	AutosaveCron string `json:"autosave_cron"`
}

func defaultConfig() Config {
	return Config{
		DBPath:       "file:" + filepath.Join(formulagraphDir(), "formulagraph.db"),
		LogLevel:     "info",
		AutosaveCron: "*/5 * * * *",
	}
}

func formulagraphDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".formulagraph"
	}
	return filepath.Join(home, ".formulagraph")
}

func settingsPath() string {
	return filepath.Join(formulagraphDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("FORMULAGRAPH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("FORMULAGRAPH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FORMULAGRAPH_CATALOG_PATH"); v != "" {
		cfg.CatalogPath = v
	}
	if v := os.Getenv("FORMULAGRAPH_AUTOSAVE_CRON"); v != "" {
		cfg.AutosaveCron = v
	}

	return cfg
}
