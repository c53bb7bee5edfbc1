// Package cli implements the betterfly commands on top of the tracker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Quaternijkon/betterfly/internal/client/credentials"
	"github.com/Quaternijkon/betterfly/internal/client/reconcile"
	"github.com/Quaternijkon/betterfly/internal/client/remote"
	"github.com/Quaternijkon/betterfly/internal/client/tracker"
	"github.com/Quaternijkon/betterfly/internal/models"
)

// UnknownEvent labels sessions whose event type no longer exists.
const UnknownEvent = "Unknown"

// Accounts stores the signed-in account.
type Accounts interface {
	Load() (credentials.Account, error)
	Save(credentials.Account) error
	Delete() error
}

type keyringAccounts struct{}

func (keyringAccounts) Load() (credentials.Account, error) { return credentials.Load() }
func (keyringAccounts) Save(a credentials.Account) error   { return credentials.Save(a) }
func (keyringAccounts) Delete() error                      { return credentials.Delete() }

// KeyringAccounts keeps the account in the OS keyring.
func KeyringAccounts() Accounts { return keyringAccounts{} }

// Context is passed to every command's Run method.
type Context struct {
	Manager    *tracker.Manager
	Accounts   Accounts
	HTTPClient *http.Client
	Log        *zap.Logger
	In         io.Reader
	Out        io.Writer
	Now        func() time.Time
	Ctx        context.Context
}

func (c *Context) context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

func (c *Context) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Context) printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// syncer builds a reconciler for the stored account.
func (c *Context) syncer() (*reconcile.Syncer, error) {
	acct, err := c.Accounts.Load()
	if errors.Is(err, credentials.ErrNotFound) {
		return nil, errors.New("not signed in: run `betterfly login` first")
	}
	if err != nil {
		return nil, err
	}
	return reconcile.NewSyncer(remote.New(c.HTTPClient, acct.Server, acct.Token), c.Log), nil
}

// resolveEvent finds an event type by id or case-insensitive name.
func resolveEvent(ds models.Dataset, ref string) (models.EventType, error) {
	if e, ok := ds.EventType(ref); ok {
		return e, nil
	}
	var matches []models.EventType
	for _, e := range ds.EventTypes {
		if strings.EqualFold(e.Name, ref) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return models.EventType{}, fmt.Errorf("no event type %q", ref)
	case 1:
		return matches[0], nil
	default:
		return models.EventType{}, fmt.Errorf("%q matches %d event types, use the id", ref, len(matches))
	}
}

func eventLabel(ds models.Dataset, id string) string {
	if e, ok := ds.EventType(id); ok {
		return e.Name
	}
	return UnknownEvent
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

const inputLayout = "2006-01-02 15:04"

// parseTime accepts RFC 3339 or "YYYY-MM-DD HH:MM" in the local zone.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(inputLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, use %q or RFC 3339", s, inputLayout)
	}
	return t, nil
}
