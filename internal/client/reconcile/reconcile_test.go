package reconcile_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quaternijkon/betterfly/internal/client/reconcile"
	"github.com/Quaternijkon/betterfly/internal/models"
)

type mockRemote struct {
	FetchSettingsFunc   func(ctx context.Context) (map[string]json.RawMessage, error)
	FetchEventTypesFunc func(ctx context.Context) ([]models.Document[models.EventType], error)
	FetchSessionsFunc   func(ctx context.Context) ([]models.Document[models.Session], error)
	CommitFunc          func(ctx context.Context, writes []models.Write) error

	commits [][]models.Write
}

func (m *mockRemote) FetchSettings(ctx context.Context) (map[string]json.RawMessage, error) {
	if m.FetchSettingsFunc == nil {
		return nil, nil
	}
	return m.FetchSettingsFunc(ctx)
}

func (m *mockRemote) FetchEventTypes(ctx context.Context) ([]models.Document[models.EventType], error) {
	if m.FetchEventTypesFunc == nil {
		return nil, nil
	}
	return m.FetchEventTypesFunc(ctx)
}

func (m *mockRemote) FetchSessions(ctx context.Context) ([]models.Document[models.Session], error) {
	if m.FetchSessionsFunc == nil {
		return nil, nil
	}
	return m.FetchSessionsFunc(ctx)
}

func (m *mockRemote) Commit(ctx context.Context, writes []models.Write) error {
	if m.CommitFunc != nil {
		if err := m.CommitFunc(ctx, writes); err != nil {
			return err
		}
	}
	m.commits = append(m.commits, writes)
	return nil
}

var base = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

func session(id, eventID string, startHour int) models.Session {
	start := base.Add(time.Duration(startHour) * time.Hour)
	end := start.Add(30 * time.Minute)
	return models.Session{ID: id, EventID: eventID, StartTime: start, EndTime: &end}
}

func event(id string, day int) models.EventType {
	return models.EventType{ID: id, Name: id, CreatedAt: base.AddDate(0, 0, day)}
}

func live[T any](v T) models.Document[T] {
	return models.Document[T]{Data: v, UpdatedAt: base}
}

func dead[T any](v T) models.Document[T] {
	return models.Document[T]{Data: v, Deleted: true, UpdatedAt: base}
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, id(it))
	}
	return out
}

func sessionIDs(s []models.Session) []string {
	return ids(s, func(s models.Session) string { return s.ID })
}

func eventIDs(e []models.EventType) []string {
	return ids(e, func(e models.EventType) string { return e.ID })
}

func writesOf(ws []models.Write, c models.Collection, op models.WriteOp) []string {
	var out []string
	for _, w := range ws {
		if w.Collection == c && w.Op == op {
			out = append(out, w.ID)
		}
	}
	return out
}

func TestSync_TombstonedSessionNeverReappears(t *testing.T) {
	s1 := session("s1", "e1", 1)
	remote := &mockRemote{
		FetchSessionsFunc: func(context.Context) ([]models.Document[models.Session], error) {
			return []models.Document[models.Session]{dead(s1)}, nil
		},
	}
	local := models.Dataset{Settings: models.DefaultSettings(), Sessions: []models.Session{s1}}

	res, err := reconcile.NewSyncer(remote, nil).Sync(context.Background(), local, models.PendingDeletes{})
	require.NoError(t, err)
	assert.Empty(t, res.Dataset.Sessions)
	assert.Empty(t, writesOf(res.Writes, models.CollectionSessions, models.OpSet))
}

func TestSync_PendingDeleteDropsRemoteCopy(t *testing.T) {
	s1 := session("s1", "e1", 1)
	s2 := session("s2", "e1", 2)
	remote := &mockRemote{
		FetchSessionsFunc: func(context.Context) ([]models.Document[models.Session], error) {
			return []models.Document[models.Session]{live(s1), live(s2)}, nil
		},
	}
	local := models.Dataset{Sessions: []models.Session{s2}}
	pending := models.PendingDeletes{Sessions: []string{"s1"}, Events: []string{"e9"}}

	res, err := reconcile.NewSyncer(remote, nil).Sync(context.Background(), local, pending)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, sessionIDs(res.Dataset.Sessions))

	require.Len(t, remote.commits, 1)
	batch := remote.commits[0]
	assert.Equal(t, models.Write{Collection: models.CollectionSessions, Op: models.OpTombstone, ID: "s1"}, batch[0])
	assert.Equal(t, models.Write{Collection: models.CollectionEventTypes, Op: models.OpTombstone, ID: "e9"}, batch[1])
}

func TestSync_RemotePrecedenceAndCreations(t *testing.T) {
	remoteEvent := event("e1", 0)
	remoteEvent.Name = "remote name"
	localEvent := event("e1", 0)
	localEvent.Name = "local name"
	localOnly := event("e2", -1)
	goneRemotely := event("e3", 2)

	olderRemote := session("s1", "e1", 1)
	newerLocal := session("s2", "e1", 5)

	remote := &mockRemote{
		FetchEventTypesFunc: func(context.Context) ([]models.Document[models.EventType], error) {
			return []models.Document[models.EventType]{live(remoteEvent), dead(goneRemotely)}, nil
		},
		FetchSessionsFunc: func(context.Context) ([]models.Document[models.Session], error) {
			return []models.Document[models.Session]{live(olderRemote)}, nil
		},
	}
	local := models.Dataset{
		EventTypes: []models.EventType{localEvent, localOnly, goneRemotely},
		Sessions:   []models.Session{newerLocal},
		Revision:   4,
	}

	res, err := reconcile.NewSyncer(remote, nil).Sync(context.Background(), local, models.PendingDeletes{})
	require.NoError(t, err)

	// createdAt ascending
	assert.Equal(t, []string{"e2", "e1"}, eventIDs(res.Dataset.EventTypes))
	assert.Equal(t, "remote name", res.Dataset.EventTypes[1].Name)
	// startTime descending
	assert.Equal(t, []string{"s2", "s1"}, sessionIDs(res.Dataset.Sessions))

	assert.Equal(t, []string{"e2"}, writesOf(res.Writes, models.CollectionEventTypes, models.OpSet))
	assert.Equal(t, []string{"s2"}, writesOf(res.Writes, models.CollectionSessions, models.OpSet))
	assert.Len(t, writesOf(res.Writes, models.CollectionSettings, models.OpSet), 1)
	assert.Equal(t, uint64(4), res.Dataset.Revision)
}

func TestSync_FetchErrorCommitsNothing(t *testing.T) {
	remote := &mockRemote{
		FetchSessionsFunc: func(context.Context) ([]models.Document[models.Session], error) {
			return nil, errors.New("unavailable")
		},
	}
	_, err := reconcile.NewSyncer(remote, nil).Sync(context.Background(), models.Dataset{}, models.PendingDeletes{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch sessions")
	assert.Empty(t, remote.commits)
}

func TestSync_CommitErrorReturnsNoResult(t *testing.T) {
	wantErr := errors.New("conflict")
	remote := &mockRemote{
		CommitFunc: func(context.Context, []models.Write) error { return wantErr },
	}
	local := models.Dataset{Sessions: []models.Session{session("s1", "e1", 0)}}
	res, err := reconcile.NewSyncer(remote, nil).Sync(context.Background(), local, models.PendingDeletes{Sessions: []string{"x"}})
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, reconcile.Result{}, res)
}

func TestMergeSettings_RemoteKeysWin(t *testing.T) {
	local := models.DefaultSettings()
	local.DarkMode = true
	remote := map[string]json.RawMessage{
		"themeColor": json.RawMessage(`"#000000"`),
		"weekStart":  json.RawMessage(`0`),
	}
	got, err := reconcile.MergeSettings(local, remote)
	require.NoError(t, err)
	assert.Equal(t, "#000000", got.ThemeColor)
	assert.Equal(t, 0, got.WeekStart)
	assert.True(t, got.DarkMode)
	assert.Equal(t, models.StopQuick, got.StopMode)
}

func TestMergeSettings_EmptyRemoteKeepsLocal(t *testing.T) {
	local := models.DefaultSettings()
	got, err := reconcile.MergeSettings(local, nil)
	require.NoError(t, err)
	assert.Equal(t, local, got)
}

func TestDeduplicate(t *testing.T) {
	a := session("a", "e1", 0)
	dupOfA := session("b", "e1", 0)
	otherEvent := session("c", "e2", 0)
	ongoing := models.Session{ID: "d", EventID: "e1", StartTime: a.StartTime}

	got, removed := reconcile.Deduplicate([]models.Session{a, dupOfA, otherEvent, ongoing})
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"a", "c", "d"}, sessionIDs(got))

	again, removedAgain := reconcile.Deduplicate(got)
	assert.Equal(t, 0, removedAgain)
	assert.Equal(t, got, again)
}

func TestChunk(t *testing.T) {
	writes := make([]models.Write, 1201)
	chunks := reconcile.Chunk(writes, reconcile.MaxWritesPerBatch)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 500)
	assert.Len(t, chunks[1], 500)
	assert.Len(t, chunks[2], 201)
	assert.Nil(t, reconcile.Chunk(nil, 10))
}

func TestOverwrite_PurgesThenUploadsInBatches(t *testing.T) {
	var remoteSessions []models.Document[models.Session]
	for i := range 600 {
		remoteSessions = append(remoteSessions, dead(session(fmt.Sprintf("r%d", i), "e1", 0)))
	}
	remote := &mockRemote{
		FetchEventTypesFunc: func(context.Context) ([]models.Document[models.EventType], error) {
			return []models.Document[models.EventType]{live(event("old", 0))}, nil
		},
		FetchSessionsFunc: func(context.Context) ([]models.Document[models.Session], error) {
			return remoteSessions, nil
		},
	}
	local := models.Dataset{
		Settings:   models.DefaultSettings(),
		EventTypes: []models.EventType{event("e1", 0)},
		Sessions:   []models.Session{session("s1", "e1", 0)},
	}

	n, err := reconcile.NewSyncer(remote, nil).Overwrite(context.Background(), local)
	require.NoError(t, err)
	assert.Equal(t, 1+600+1+1+1, n)
	require.Len(t, remote.commits, 2)
	assert.Len(t, remote.commits[0], 500)

	last := remote.commits[1]
	assert.Equal(t, models.OpSet, last[len(last)-1].Op)
	assert.Equal(t, models.CollectionSettings, last[len(last)-1].Collection)
	assert.Equal(t, models.OpPurge, remote.commits[0][0].Op)
	assert.Equal(t, "old", remote.commits[0][0].ID)
}

func TestOverwrite_StopsOnFailedBatch(t *testing.T) {
	calls := 0
	remote := &mockRemote{
		CommitFunc: func(context.Context, []models.Write) error {
			calls++
			return errors.New("boom")
		},
	}
	n, err := reconcile.NewSyncer(remote, nil).Overwrite(context.Background(), models.Dataset{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit batch 1/1")
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, calls)
}
