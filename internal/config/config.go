// Package config loads server configuration: built-in defaults, then an
// optional .env file, then environment variables, then command-line flags —
// later sources win.
package config

import (
	"flag"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds runtime settings for the ShopWithUs server.
type Config struct {
	Port        int    // HTTP listen port
	DBPath      string // SQLite database file, ":memory:" allowed
	TemplateDir string // page templates
	StaticDir   string // stylesheet + browser script
	Debug       bool   // enable debug-level logging
}

// defaults returns the development configuration.
func defaults() Config {
	return Config{
		Port:        3000,
		DBPath:      "data/shopwithus.db",
		TemplateDir: "web/templates",
		StaticDir:   "web/static",
	}
}

// Load builds the configuration. A .env file in the working directory is
// read if present (the hosted deployment keeps its settings there); a
// missing file is not an error.
func Load(args []string) (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	applyEnv(&cfg)

	fs := flag.NewFlagSet("shopwithus", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the SQLite database file")
	fs.StringVar(&cfg.TemplateDir, "templates", cfg.TemplateDir, "page template directory")
	fs.StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "static asset directory")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TEMPLATE_DIR"); v != "" {
		cfg.TemplateDir = v
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		cfg.StaticDir = v
	}
	if v := os.Getenv("DEBUG"); v != "" {
		cfg.Debug = v == "1" || v == "true"
	}
}
