package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nyx-chain/evmsync/internal/logger"
	"github.com/nyx-chain/evmsync/internal/repository"
	"github.com/nyx-chain/evmsync/pkg/config"
	"github.com/nyx-chain/evmsync/tests/helpers"
	"github.com/stretchr/testify/require"
)

func newServerFixture(t *testing.T, dbName string, listenAddr string) *Server {
	t.Helper()

	db := helpers.NewTestDB(t, dbName)
	repo := repository.New(logger.NewNopLogger())
	chain := &fakeChainHead{head: 10}

	cfg := &config.APIConfig{Enabled: true, ListenAddress: listenAddr}
	cfg.ApplyDefaults()

	return NewServer(cfg, db, repo, chain, logger.NewNopLogger())
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	server := newServerFixture(t, "server_new.db", "127.0.0.1:0")

	require.NotNil(t, server.handler)
	require.NotNil(t, server.server)
	require.Equal(t, "127.0.0.1:0", server.server.Addr)
}

func TestNewServer_RoutesHealthzAndLatestBlock(t *testing.T) {
	t.Parallel()

	server := newServerFixture(t, "server_routes.db", "127.0.0.1:0")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/blocks/latest", nil)
	w = httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code) // empty store

	req = httptest.NewRequest(http.MethodGet, "/not-a-route", nil)
	w = httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Start_Disabled(t *testing.T) {
	t.Parallel()

	db := helpers.NewTestDB(t, "server_disabled.db")
	repo := repository.New(logger.NewNopLogger())
	chain := &fakeChainHead{}

	cfg := &config.APIConfig{Enabled: false}
	cfg.ApplyDefaults()

	server := NewServer(cfg, db, repo, chain, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, server.Start(ctx))
}

func TestServer_Start_GracefulShutdown(t *testing.T) {
	t.Parallel()

	server := newServerFixture(t, "server_shutdown.db", "127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

func TestServer_CORSDisabledByDefault(t *testing.T) {
	t.Parallel()

	server := newServerFixture(t, "server_cors_off.db", "127.0.0.1:0")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_CORSAppliedWhenEnabled(t *testing.T) {
	t.Parallel()

	db := helpers.NewTestDB(t, "server_cors_on.db")
	repo := repository.New(logger.NewNopLogger())
	chain := &fakeChainHead{head: 10}

	cfg := &config.APIConfig{
		Enabled:       true,
		ListenAddress: "127.0.0.1:0",
		CORS:          config.CORSConfig{Enabled: true, AllowedOrigins: []string{"https://example.com"}},
	}
	cfg.ApplyDefaults()

	server := NewServer(cfg, db, repo, chain, logger.NewNopLogger())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	require.Equal(t, "https://example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_Timeouts(t *testing.T) {
	t.Parallel()

	server := newServerFixture(t, "server_timeouts.db", "127.0.0.1:0")

	require.Equal(t, 5*time.Second, server.server.ReadTimeout)
	require.Equal(t, 10*time.Second, server.server.WriteTimeout)
	require.Equal(t, 60*time.Second, server.server.IdleTimeout)
}

func TestServer_ListenAddress(t *testing.T) {
	t.Parallel()

	server := newServerFixture(t, "server_listen_addr.db", "0.0.0.0:9191")
	require.Equal(t, "0.0.0.0:9191", server.config.ListenAddress)
}
