package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/digital-galaxy/internal/auth"
	"github.com/prn-tf/digital-galaxy/internal/cache/memory"
	"github.com/prn-tf/digital-galaxy/internal/config"
	"github.com/prn-tf/digital-galaxy/internal/lock"
	"github.com/prn-tf/digital-galaxy/internal/realtime"
	"github.com/prn-tf/digital-galaxy/internal/repository"
	"github.com/prn-tf/digital-galaxy/internal/repository/sqlite"
	"github.com/prn-tf/digital-galaxy/internal/service"
	"github.com/prn-tf/digital-galaxy/internal/storage"
)

const testPublicBase = "http://files.test/files"

type testEnv struct {
	t      *testing.T
	server *httptest.Server
	repos  *repository.Repositories
	users  *service.UserService
	hub    *realtime.Hub
	blobs  string
}

type envOptions struct {
	rateLimit int
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()
	dir := t.TempDir()

	store, err := sqlite.Open(ctx, config.DatabaseConfig{
		Driver:        "sqlite",
		Path:          filepath.Join(dir, "galaxy.db"),
		RetryAttempts: 3,
		RetryBackoff:  10 * time.Millisecond,
	}, logger)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { store.Database.Close() })

	blobDir := filepath.Join(dir, "blobs")
	blobs, err := storage.NewFilesystemStore(blobDir, testPublicBase, 1<<20, logger)
	require.NoError(t, err)

	locker := lock.NewMemoryLocker()
	t.Cleanup(locker.Close)
	hub := realtime.NewHub(nil, logger)
	t.Cleanup(hub.Close)

	repos := store.Repos
	tokens := auth.NewTokenManager(strings.Repeat("k", 32), "test", time.Hour)
	bus := service.NewEventBus(locker, hub, lock.Options{TTL: time.Second, MaxRetries: 500, RetryDelay: time.Millisecond}, logger)

	users := service.NewUserService(repos.User, tokens, 4, logger)
	acquisition := service.NewAcquisitionService(repos.Product, repos.PaymentRequest, blobs, nil, logger)
	api := NewAPI(APIConfig{
		Users:         users,
		Catalog:       service.NewCatalogService(repos.Product, blobs, logger),
		Acquisition:   acquisition,
		Moderation:    service.NewModerationService(repos.User, repos.Notification, acquisition, bus, service.ModerationOptions{}, logger),
		Chat:          service.NewChatService(repos.Chat, repos.Notification, bus, nil, logger),
		MaxUploadSize: 1 << 20,
		Logger:        logger,
	})

	var limiter *RateLimiter
	if opts.rateLimit > 0 {
		cache := memory.NewCache()
		t.Cleanup(cache.Stop)
		limiter = NewRateLimiter(cache, opts.rateLimit, time.Hour, logger)
	}

	router := NewRouter(RouterConfig{
		API: api,
		Realtime: NewRealtimeHandler(RealtimeConfig{
			Feed:         realtime.NewFeed(hub, realtime.NewRepositorySnapshot(repos.Chat, repos.Notification, 100)),
			PingInterval: time.Second,
			WriteTimeout: time.Second,
			Logger:       logger,
		}),
		Resolver:    auth.NewResolver(tokens, repos.User, logger),
		RateLimiter: limiter,
		Database:    store.Database,
		FilesDir:    blobDir,
		MaxBodySize: 1 << 16,
		Logger:      logger,
	})

	server := httptest.NewServer(router.Handler())
	t.Cleanup(server.Close)

	return &testEnv{t: t, server: server, repos: repos, users: users, hub: hub, blobs: blobDir}
}

// account registers a user, optionally as admin, and returns its id and token.
func (e *testEnv) account(email string, admin bool) (string, string) {
	e.t.Helper()
	ctx := context.Background()

	var err error
	if admin {
		_, err = e.users.CreateAdmin(ctx, email, "password123")
	} else {
		_, err = e.users.Register(ctx, email, "password123")
	}
	require.NoError(e.t, err)

	out, err := e.users.Login(ctx, email, "password123")
	require.NoError(e.t, err)
	return out.User.ID.String(), out.Token
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, v), string(r.body))
}

func (r response) apiError(t *testing.T) APIError {
	t.Helper()
	var body errorBody
	r.decode(t, &body)
	return body.Error
}

func (e *testEnv) do(method, path, token string, body any) response {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(e.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req, token)
}

func (e *testEnv) send(req *http.Request, token string) response {
	e.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return response{status: resp.StatusCode, header: resp.Header, body: raw}
}
