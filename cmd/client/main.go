package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/Quaternijkon/betterfly/internal/client/cli"
	"github.com/Quaternijkon/betterfly/internal/client/credentials"
	"github.com/Quaternijkon/betterfly/internal/client/remote"
	"github.com/Quaternijkon/betterfly/internal/client/storage"
	"github.com/Quaternijkon/betterfly/internal/client/tracker"
	"github.com/Quaternijkon/betterfly/internal/logger"
)

var (
	// version holds the build version set via ldflags.
	version = "dev"
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

var CLI struct {
	Version  kong.VersionFlag
	Data     string `help:"Local data file (.json, or .db for SQLite)." type:"path" default:"${data}" env:"BETTERFLY_DATA"`
	CA       string `name:"ca" help:"Extra CA certificate for the server." type:"path" env:"BETTERFLY_CA"`
	LogLevel string `help:"Log level written to the log file." default:"info" enum:"debug,info,warn,error"`

	Event     cli.EventCmd     `cmd:"" help:"Manage event types."`
	Start     cli.StartCmd     `cmd:"" help:"Start timing an event type."`
	Stop      cli.StopCmd      `cmd:"" help:"Stop a running session."`
	Status    cli.StatusCmd    `cmd:"" help:"Show running sessions." default:"1"`
	Session   cli.SessionCmd   `cmd:"" help:"Manage recorded sessions."`
	Dedupe    cli.DedupeCmd    `cmd:"" help:"Remove duplicate sessions."`
	Stats     cli.StatsCmd     `cmd:"" help:"Show totals, streaks and goal progress."`
	Trend     cli.TrendCmd     `cmd:"" help:"Show totals per day, week or month."`
	Heatmap   cli.HeatmapCmd   `cmd:"" help:"Show a calendar heatmap."`
	Radar     cli.RadarCmd     `cmd:"" help:"Show time spent per weekday."`
	Spectrum  cli.SpectrumCmd  `cmd:"" help:"Show activity by time of day."`
	Settings  cli.SettingsCmd  `cmd:"" help:"Show or change settings."`
	Login     cli.LoginCmd     `cmd:"" help:"Sign in to a sync server."`
	Logout    cli.LogoutCmd    `cmd:"" help:"Forget the stored account."`
	Sync      cli.SyncCmd      `cmd:"" help:"Merge local data with the server."`
	Overwrite cli.OverwriteCmd `cmd:"" help:"Replace all server data with local data."`
	Export    cli.ExportCmd    `cmd:"" help:"Write a JSON backup."`
	Import    cli.ImportCmd    `cmd:"" help:"Restore a JSON backup (signed out only)."`
}

func dataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "betterfly")
}

func main() {
	dir := dataDir()
	ctx := kong.Parse(&CLI,
		kong.Name("betterfly"),
		kong.Description("Track time spent on habits and activities."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s)", version, buildDate),
			"data":    filepath.Join(dir, storage.DefaultFileName),
		},
	)

	log := logger.New()
	if err := log.InitFile(CLI.LogLevel, filepath.Join(dir, "logs", "betterfly.log")); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()

	store, err := storage.Open(CLI.Data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	manager, err := tracker.New(store, log.Log, tracker.WithSignedIn(credentials.SignedIn))
	if err != nil {
		log.Log.Error("cannot load local data", zap.String("path", CLI.Data), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: cannot load %s: %v\n", CLI.Data, err)
		os.Exit(1)
	}

	httpClient, err := remote.NewHTTPClient(CLI.CA)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	appCtx := &cli.Context{
		Manager:    manager,
		Accounts:   cli.KeyringAccounts(),
		HTTPClient: httpClient,
		Log:        log.Log,
		In:         os.Stdin,
		Out:        os.Stdout,
		Ctx:        runCtx,
	}
	if err := ctx.Run(appCtx); err != nil {
		log.Log.Warn("command failed", zap.String("command", ctx.Command()), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
