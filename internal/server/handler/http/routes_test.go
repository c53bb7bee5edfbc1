package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Quaternijkon/betterfly/internal/client/reconcile"
	"github.com/Quaternijkon/betterfly/internal/client/remote"
	"github.com/Quaternijkon/betterfly/internal/models"
	"github.com/Quaternijkon/betterfly/internal/repository"
	handler "github.com/Quaternijkon/betterfly/internal/server/handler/http"
	"github.com/Quaternijkon/betterfly/internal/service"
)

// memAuthRepo and memSyncRepo stand in for PostgreSQL.
type memAuthRepo struct {
	mu    sync.Mutex
	users []models.User
}

func (m *memAuthRepo) CreateUser(ctx context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, u)
	return nil
}

func (m *memAuthRepo) find(match func(models.User) bool) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memAuthRepo) GetUserByLogin(ctx context.Context, login string) (models.User, error) {
	return m.find(func(u models.User) bool { return u.Login == login })
}

func (m *memAuthRepo) GetUserByToken(ctx context.Context, token string) (models.User, error) {
	return m.find(func(u models.User) bool { return u.Token == token })
}

type memSyncRepo struct {
	mu       sync.Mutex
	settings map[string]json.RawMessage
	docs     map[string]map[models.Collection]map[string]models.Document[json.RawMessage]
}

func newMemSyncRepo() *memSyncRepo {
	return &memSyncRepo{
		settings: map[string]json.RawMessage{},
		docs:     map[string]map[models.Collection]map[string]models.Document[json.RawMessage]{},
	}
}

func (m *memSyncRepo) GetSettings(ctx context.Context, userID string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings[userID], nil
}

func (m *memSyncRepo) GetDocuments(ctx context.Context, userID string, c models.Collection) ([]models.Document[json.RawMessage], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.docs[userID][c]))
	for id := range m.docs[userID][c] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]models.Document[json.RawMessage], 0, len(ids))
	for _, id := range ids {
		out = append(out, m.docs[userID][c][id])
	}
	return out, nil
}

func (m *memSyncRepo) ApplyWrites(ctx context.Context, userID string, writes []models.Write) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[userID] == nil {
		m.docs[userID] = map[models.Collection]map[string]models.Document[json.RawMessage]{
			models.CollectionEventTypes: {},
			models.CollectionSessions:   {},
		}
	}
	now := time.Now().UTC()
	for _, w := range writes {
		if w.Collection == models.CollectionSettings {
			m.settings[userID] = w.Data
			continue
		}
		coll := m.docs[userID][w.Collection]
		switch w.Op {
		case models.OpSet:
			coll[w.ID] = models.Document[json.RawMessage]{Data: w.Data, UpdatedAt: now}
		case models.OpTombstone:
			if d, ok := coll[w.ID]; ok {
				d.Deleted, d.UpdatedAt = true, now
				coll[w.ID] = d
			}
		case models.OpPurge:
			delete(coll, w.ID)
		}
	}
	return nil
}

func newServer(t *testing.T) (*httptest.Server, *memSyncRepo) {
	t.Helper()
	authSvc := service.NewAuthService(&memAuthRepo{})
	syncRepo := newMemSyncRepo()
	router := handler.NewRouter(
		&handler.AuthHandler{AuthService: authSvc},
		&handler.SyncHandler{SyncService: service.NewSyncService(syncRepo)},
		authSvc,
		zap.NewNop(),
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, syncRepo
}

func signIn(t *testing.T, srv *httptest.Server) *remote.Client {
	t.Helper()
	creds, err := remote.SignIn(context.Background(), srv.Client(), srv.URL, remote.ProviderAnonymous, "")
	require.NoError(t, err)
	return remote.New(srv.Client(), srv.URL, creds.Token)
}

func finished(id, eventID string, start time.Time) models.Session {
	end := start.Add(time.Hour)
	return models.Session{ID: id, EventID: eventID, StartTime: start, EndTime: &end}
}

func sessionIDs(sessions []models.Session) []string {
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestRouter_TwoDevicesConverge(t *testing.T) {
	srv, _ := newServer(t)
	client := signIn(t, srv)
	ctx := context.Background()
	day := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	deviceA := models.Dataset{
		Settings:   models.DefaultSettings(),
		EventTypes: []models.EventType{{ID: "e1", Name: "Read", CreatedAt: day}},
		Sessions: []models.Session{
			finished("s2", "e1", day.AddDate(0, 0, 1)),
			finished("s1", "e1", day),
		},
	}
	resA, err := reconcile.NewSyncer(client, nil).Sync(ctx, deviceA, models.PendingDeletes{})
	require.NoError(t, err)
	assert.Len(t, resA.Writes, 4)

	// device B starts empty, pulls everything, then deletes s1
	resB, err := reconcile.NewSyncer(client, nil).Sync(ctx, models.Dataset{Settings: models.DefaultSettings()}, models.PendingDeletes{})
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "s1"}, sessionIDs(resB.Dataset.Sessions))

	deviceB := resB.Dataset
	deviceB.Sessions = deviceB.Sessions[:1]
	_, err = reconcile.NewSyncer(client, nil).Sync(ctx, deviceB, models.PendingDeletes{Sessions: []string{"s1"}})
	require.NoError(t, err)

	// device A still holds s1 locally but the tombstone wins
	resA, err = reconcile.NewSyncer(client, nil).Sync(ctx, deviceA, models.PendingDeletes{})
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, sessionIDs(resA.Dataset.Sessions))
	assert.Len(t, resA.Dataset.EventTypes, 1)
}

func TestRouter_SyncCommitsLargeBacklogInOneBatch(t *testing.T) {
	srv, _ := newServer(t)
	client := signIn(t, srv)
	ctx := context.Background()
	day := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	offline := models.Dataset{
		Settings:   models.DefaultSettings(),
		EventTypes: []models.EventType{{ID: "e1", Name: "Read", CreatedAt: day}},
	}
	for i := 0; i < 600; i++ {
		offline.Sessions = append(offline.Sessions, finished(fmt.Sprintf("s%03d", i), "e1", day.AddDate(0, 0, i)))
	}

	res, err := reconcile.NewSyncer(client, nil).Sync(ctx, offline, models.PendingDeletes{})
	require.NoError(t, err)
	assert.Len(t, res.Writes, 602)
	assert.Len(t, res.Dataset.Sessions, 600)

	fresh, err := reconcile.NewSyncer(client, nil).Sync(ctx, models.Dataset{Settings: models.DefaultSettings()}, models.PendingDeletes{})
	require.NoError(t, err)
	assert.Len(t, fresh.Dataset.Sessions, 600)
	assert.Len(t, fresh.Dataset.EventTypes, 1)
}

func TestRouter_OverwriteReplacesRemote(t *testing.T) {
	srv, repo := newServer(t)
	client := signIn(t, srv)
	ctx := context.Background()
	day := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	old := models.Dataset{
		Settings:   models.DefaultSettings(),
		EventTypes: []models.EventType{{ID: "old", Name: "Old", CreatedAt: day}},
		Sessions:   []models.Session{finished("x", "old", day)},
	}
	_, err := reconcile.NewSyncer(client, nil).Sync(ctx, old, models.PendingDeletes{})
	require.NoError(t, err)
	_, err = reconcile.NewSyncer(client, nil).Sync(ctx, models.Dataset{Settings: models.DefaultSettings()}, models.PendingDeletes{Sessions: []string{"x"}})
	require.NoError(t, err)

	local := models.Dataset{
		Settings:   models.DefaultSettings(),
		EventTypes: []models.EventType{{ID: "new", Name: "New", CreatedAt: day}},
		Sessions:   []models.Session{finished("y", "new", day)},
	}
	n, err := reconcile.NewSyncer(client, nil).Overwrite(ctx, local)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	sessions, err := client.FetchSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "y", sessions[0].Data.ID)
	assert.False(t, sessions[0].Deleted)

	events, err := client.FetchEventTypes(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "new", events[0].Data.ID)
	assert.Len(t, repo.settings, 1)
}

func TestRouter_RequiresToken(t *testing.T) {
	srv, _ := newServer(t)

	_, err := remote.New(srv.Client(), srv.URL, "forged").FetchSettings(context.Background())
	assert.True(t, errors.Is(err, remote.ErrUnauthorized), "got %v", err)

	resp, err := srv.Client().Get(srv.URL + "/api/sessions")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_RejectsInvalidBatch(t *testing.T) {
	srv, _ := newServer(t)
	client := signIn(t, srv)

	err := client.Commit(context.Background(), []models.Write{
		{Collection: models.CollectionSessions, Op: models.OpSet, ID: "s1", Data: json.RawMessage(`{"id":"other"}`)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error: invalid write")
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := srv.Client().Post(srv.URL+"/api/auth/signin", "text/plain", strings.NewReader("provider=anonymous"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestRouter_SignInUnknownProvider(t *testing.T) {
	srv, _ := newServer(t)

	_, err := remote.SignIn(context.Background(), srv.Client(), srv.URL, "oauth", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}
