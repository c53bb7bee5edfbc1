package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func env(values map[string]string) func(string) string {
	return func(k string) string { return values[k] }
}

func TestParseArgs_Defaults(t *testing.T) {
	opts, err := ParseArgs([]string{"-d", "postgres://x", "-c", ""}, env(nil))
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if opts.Port != "localhost:8080" {
		t.Errorf("Port = %q", opts.Port)
	}
	if opts.TombstoneRetention != DefaultRetention || opts.CleanerInterval != DefaultInterval {
		t.Errorf("durations = %v, %v", opts.TombstoneRetention, opts.CleanerInterval)
	}
	if opts.LogLevel != "info" {
		t.Errorf("LogLevel = %q", opts.LogLevel)
	}
}

func TestParseArgs_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"address":":9000","database_dsn":"postgres://file","tombstone_retention":"48h","cleaner_interval":"10m"}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	opts, err := ParseArgs([]string{"-a", ":7000"}, env(map[string]string{
		"CONFIG":         path,
		"SERVER_ADDRESS": ":8000",
		"LOG_LEVEL":      "debug",
	}))
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if opts.Port != ":8000" {
		t.Errorf("Port = %q; env should win", opts.Port)
	}
	if opts.DatabaseDSN != "postgres://file" {
		t.Errorf("DatabaseDSN = %q", opts.DatabaseDSN)
	}
	if opts.TombstoneRetention != 48*time.Hour || opts.CleanerInterval != 10*time.Minute {
		t.Errorf("durations = %v, %v", opts.TombstoneRetention, opts.CleanerInterval)
	}
	if opts.Config != path || opts.LogLevel != "debug" {
		t.Errorf("unexpected options: %+v", opts)
	}
}

func TestParseArgs_Errors(t *testing.T) {
	badFile := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(badFile, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		args []string
		env  map[string]string
		want string
	}{
		{"missing dsn", []string{"-c", ""}, nil, "database DSN"},
		{"half tls", []string{"-d", "x", "-c", "", "-tls-cert", "c.pem"}, nil, "together"},
		{"bad env duration", []string{"-d", "x", "-c", ""}, map[string]string{"CLEANER_INTERVAL": "soon"}, "CLEANER_INTERVAL"},
		{"negative retention", []string{"-d", "x", "-c", "", "-retention", "-1h"}, nil, "positive"},
		{"corrupt file", []string{"-d", "x", "-c", badFile}, nil, "parsing config file"},
		{"unknown flag", []string{"-z"}, nil, "not defined"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseArgs(tc.args, env(tc.env))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %v; want substring %q", err, tc.want)
			}
		})
	}
}
