// Package config provides functionality for managing configuration options
// for the server using command-line flags, a JSON file and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"
)

// Options holds the configuration values for the server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address"`

	// DatabaseDSN holds the PostgreSQL connection string.
	DatabaseDSN string `json:"database_dsn"`

	// Config is the path to the config file.
	Config string `json:"-"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	LogLevel string `json:"log_level"`

	// TombstoneRetention is how long deleted documents are kept for other devices to observe.
	TombstoneRetention time.Duration `json:"-"`
	CleanerInterval    time.Duration `json:"-"`
}

// fileOptions mirrors Options in the config file, with durations as strings like "720h".
type fileOptions struct {
	Options
	TombstoneRetention string `json:"tombstone_retention"`
	CleanerInterval    string `json:"cleaner_interval"`
}

// Defaults.
const (
	DefaultRetention = 30 * 24 * time.Hour
	DefaultInterval  = time.Hour
)

// Parse parses the process flags, config file and environment, in that order of
// increasing precedence. It exits on invalid configuration.
func Parse() *Options {
	opts, err := ParseArgs(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return opts
}

// ParseArgs is Parse with explicit arguments and environment lookup.
func ParseArgs(args []string, getenv func(string) string) (*Options, error) {
	options := &Options{}
	fs := flag.NewFlagSet("betterfly-server", flag.ContinueOnError)
	fs.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	fs.StringVar(&options.TLSCert, "tls-cert", "", "TLS certificate file")
	fs.StringVar(&options.TLSKey, "tls-key", "", "TLS private key file")
	fs.StringVar(&options.LogLevel, "log-level", "info", "log level")
	fs.DurationVar(&options.TombstoneRetention, "retention", DefaultRetention, "how long tombstones are kept")
	fs.DurationVar(&options.CleanerInterval, "cleaner-interval", DefaultInterval, "how often expired tombstones are purged")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Override flags with environment variables if set
	if configPath := getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			if err := loadFile(options.Config, options); err != nil {
				return nil, err
			}
		}
	}

	env := map[string]*string{
		"SERVER_ADDRESS": &options.Port,
		"DATABASE_DSN":   &options.DatabaseDSN,
		"TLS_CERT":       &options.TLSCert,
		"TLS_KEY":        &options.TLSKey,
		"LOG_LEVEL":      &options.LogLevel,
	}
	for name, dst := range env {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}
	for name, dst := range map[string]*time.Duration{
		"TOMBSTONE_RETENTION": &options.TombstoneRetention,
		"CLEANER_INTERVAL":    &options.CleanerInterval,
	} {
		if v := getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			*dst = d
		}
	}

	if options.DatabaseDSN == "" {
		return nil, fmt.Errorf("database DSN is required (-d or DATABASE_DSN)")
	}
	if (options.TLSCert == "") != (options.TLSKey == "") {
		return nil, fmt.Errorf("tls-cert and tls-key must be set together")
	}
	if options.CleanerInterval <= 0 || options.TombstoneRetention <= 0 {
		return nil, fmt.Errorf("retention and cleaner interval must be positive")
	}
	return options, nil
}

func loadFile(path string, options *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	file := fileOptions{Options: *options}
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	config := options.Config
	*options = file.Options
	options.Config = config

	if file.TombstoneRetention != "" {
		if options.TombstoneRetention, err = time.ParseDuration(file.TombstoneRetention); err != nil {
			return fmt.Errorf("tombstone_retention: %w", err)
		}
	}
	if file.CleanerInterval != "" {
		if options.CleanerInterval, err = time.ParseDuration(file.CleanerInterval); err != nil {
			return fmt.Errorf("cleaner_interval: %w", err)
		}
	}
	return nil
}
