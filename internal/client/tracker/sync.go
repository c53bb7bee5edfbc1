package tracker

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/Quaternijkon/betterfly/internal/client/backup"
	"github.com/Quaternijkon/betterfly/internal/client/reconcile"
	"github.com/Quaternijkon/betterfly/internal/models"
)

// Reconciler is the remote side of Sync and Overwrite.
type Reconciler interface {
	Sync(ctx context.Context, local models.Dataset, pending models.PendingDeletes) (reconcile.Result, error)
	Overwrite(ctx context.Context, local models.Dataset) (int, error)
}

func (m *Manager) beginSync() (func(), error) {
	if !m.syncing.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	m.mu.Lock()
	return func() {
		m.mu.Unlock()
		m.syncing.Store(false)
	}, nil
}

// Sync reconciles the dataset with the remote store. On success the dataset is
// replaced by the merged result and the pending log is cleared; on failure
// nothing changes.
func (m *Manager) Sync(ctx context.Context, r Reconciler) (reconcile.Result, error) {
	done, err := m.beginSync()
	if err != nil {
		return reconcile.Result{}, err
	}
	defer done()

	res, err := r.Sync(ctx, m.data.Clone(), m.pending)
	if err != nil {
		m.log.Warn("sync failed", zap.Error(err))
		return reconcile.Result{}, err
	}

	next := res.Dataset
	next.Revision = m.data.Revision
	m.data = next
	m.pending = models.PendingDeletes{}
	m.commit()
	return res, nil
}

// Overwrite replaces the remote data with the local dataset. It requires confirmed.
func (m *Manager) Overwrite(ctx context.Context, r Reconciler, confirmed bool) (int, error) {
	if !confirmed {
		return 0, ErrConfirmationRequired
	}
	done, err := m.beginSync()
	if err != nil {
		return 0, err
	}
	defer done()

	n, err := r.Overwrite(ctx, m.data.Clone())
	if err != nil {
		m.log.Warn("overwrite failed", zap.Int("committed", n), zap.Error(err))
		return n, err
	}
	if !m.pending.Empty() {
		m.pending = models.PendingDeletes{}
		m.commit()
	}
	return n, nil
}

// Export writes a backup of the current dataset.
func (m *Manager) Export(w io.Writer) error {
	return backup.Write(w, m.Snapshot())
}

// Import replaces the local dataset with a backup and clears the pending log.
// It is refused while signed in.
func (m *Manager) Import(r io.Reader) error {
	if m.signedIn() {
		return ErrImportWhileSignedIn
	}
	ds, err := backup.Read(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ds.Revision = m.data.Revision
	m.data = ds
	m.pending = models.PendingDeletes{}
	m.commit()
	m.log.Info("backup imported",
		zap.Int("event_types", len(ds.EventTypes)),
		zap.Int("sessions", len(ds.Sessions)),
	)
	return nil
}
