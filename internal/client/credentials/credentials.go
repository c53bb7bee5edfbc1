// Package credentials keeps the signed-in account in the OS keyring.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "betterfly"
	user    = "account"
)

var (
	// ErrNotFound is returned when nobody is signed in.
	ErrNotFound = errors.New("no credentials stored")
	// ErrKeyringUnavailable is returned when the OS keyring cannot be used.
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Account is what the client needs to reach the server on the user's behalf.
type Account struct {
	Server string `json:"server"`
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// Load returns the stored account.
func Load() (Account, error) {
	raw, err := keyring.Get(service, user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	var a Account
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return Account{}, fmt.Errorf("decode stored credentials: %w", err)
	}
	return a, nil
}

// Save stores the account, replacing any previous one.
func Save(a Account) error {
	if a.Server == "" || a.Token == "" {
		return errors.New("server and token are required")
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if err := keyring.Set(service, user, string(raw)); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

// Delete signs out. Deleting when nobody is signed in returns ErrNotFound.
func Delete() error {
	if err := keyring.Delete(service, user); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

// SignedIn reports whether an account is stored.
func SignedIn() bool {
	_, err := Load()
	return err == nil
}
