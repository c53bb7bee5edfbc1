package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/Quaternijkon/betterfly/internal/client/credentials"
	"github.com/Quaternijkon/betterfly/internal/client/remote"
	"github.com/Quaternijkon/betterfly/internal/client/tracker"
	"github.com/Quaternijkon/betterfly/internal/models"
)

type SettingsCmd struct {
	ThemeColor *string `help:"Default color for new event types."`
	WeekStart  *string `help:"First day of the week." enum:"sunday,monday"`
	StopMode   *string `help:"How stop behaves: quick, note or interactive."`
	DarkMode   *bool   `help:"Dark mode preference."`
}

func (c *SettingsCmd) Run(ctx *Context) error {
	s := ctx.Manager.Settings()
	if c.ThemeColor != nil || c.WeekStart != nil || c.StopMode != nil || c.DarkMode != nil {
		var err error
		s, err = ctx.Manager.UpdateSettings(func(s *models.UserSettings) {
			if c.ThemeColor != nil {
				s.ThemeColor = *c.ThemeColor
			}
			if c.WeekStart != nil {
				s.WeekStart = 1
				if *c.WeekStart == "sunday" {
					s.WeekStart = 0
				}
			}
			if c.StopMode != nil {
				s.StopMode = models.StopMode(*c.StopMode)
			}
			if c.DarkMode != nil {
				s.DarkMode = *c.DarkMode
			}
		})
		if err != nil {
			return err
		}
	}
	week := "monday"
	if s.WeekStart == 0 {
		week = "sunday"
	}
	ctx.printf("theme-color: %s\nweek-start: %s\nstop-mode: %s\ndark-mode: %t\n", s.ThemeColor, week, s.StopMode, s.DarkMode)
	return nil
}

type LoginCmd struct {
	Server    string `required:"" env:"BETTERFLY_SERVER" help:"Server base URL."`
	Login     string `help:"Account name; omit for an anonymous account."`
	Anonymous bool   `help:"Create an anonymous account." xor:"provider"`
}

func (c *LoginCmd) Run(ctx *Context) error {
	provider := remote.ProviderAnonymous
	if c.Login != "" && !c.Anonymous {
		provider = remote.ProviderLogin
	}
	creds, err := remote.SignIn(ctx.context(), ctx.HTTPClient, c.Server, provider, c.Login)
	if err != nil {
		return err
	}
	if err := ctx.Accounts.Save(credentials.Account{Server: c.Server, UserID: creds.UserID, Token: creds.Token}); err != nil {
		return err
	}
	ctx.printf("Signed in as %s\n", creds.UserID)
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *Context) error {
	if err := ctx.Accounts.Delete(); err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			ctx.printf("Not signed in.\n")
			return nil
		}
		return err
	}
	ctx.printf("Signed out.\n")
	return nil
}

type SyncCmd struct{}

func (c *SyncCmd) Run(ctx *Context) error {
	syncer, err := ctx.syncer()
	if err != nil {
		return err
	}
	res, err := ctx.Manager.Sync(ctx.context(), syncer)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	ctx.printf("Synced: %d event types, %d sessions (%d writes)\n",
		len(res.Dataset.EventTypes), len(res.Dataset.Sessions), len(res.Writes))
	return nil
}

type OverwriteCmd struct {
	Yes bool `short:"y" help:"Do not ask for confirmation."`
}

func (c *OverwriteCmd) Run(ctx *Context) error {
	syncer, err := ctx.syncer()
	if err != nil {
		return err
	}
	confirmed := c.Yes || Confirm(ctx.In, ctx.Out, "Replace ALL server data with this device's data?")
	n, err := ctx.Manager.Overwrite(ctx.context(), syncer, confirmed)
	if errors.Is(err, tracker.ErrConfirmationRequired) {
		ctx.printf("Aborted.\n")
		return nil
	}
	if err != nil {
		return fmt.Errorf("overwrite failed after %d writes: %w", n, err)
	}
	ctx.printf("Server overwritten (%d writes)\n", n)
	return nil
}

type ExportCmd struct {
	Path string `arg:"" optional:"" help:"Output file; stdout when omitted."`
}

func (c *ExportCmd) Run(ctx *Context) error {
	if c.Path == "" {
		return ctx.Manager.Export(ctx.Out)
	}
	f, err := os.Create(c.Path)
	if err != nil {
		return err
	}
	if err := ctx.Manager.Export(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	ctx.printf("Exported to %s\n", c.Path)
	return nil
}

type ImportCmd struct {
	Path string `arg:"" help:"Backup file to restore."`
}

func (c *ImportCmd) Run(ctx *Context) error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := ctx.Manager.Import(f); err != nil {
		if errors.Is(err, tracker.ErrImportWhileSignedIn) {
			return fmt.Errorf("%w: run `betterfly logout` first", err)
		}
		return err
	}
	ds := ctx.Manager.Snapshot()
	ctx.printf("Imported %d event types and %d sessions\n", len(ds.EventTypes), len(ds.Sessions))
	return nil
}
