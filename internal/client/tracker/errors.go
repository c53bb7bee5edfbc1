package tracker

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation wraps every rejected input; the dataset is left untouched.
	ErrValidation = errors.New("invalid input")
	// ErrConfirmationRequired is returned by destructive operations called without confirmation.
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrSyncInProgress rejects a sync or overwrite while another one runs.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrImportWhileSignedIn rejects a backup import for an authenticated user.
	ErrImportWhileSignedIn = errors.New("import is disabled while signed in")
	// ErrNotFound is returned when an id matches no record.
	ErrNotFound = errors.New("not found")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
