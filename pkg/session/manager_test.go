package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// authBackend is a scripted stand-in for the auth endpoints. Each handler is
// optional; hitting an endpoint with no handler fails the test.
type authBackend struct {
	t        *testing.T
	login    http.HandlerFunc
	refresh  http.HandlerFunc
	logout   http.HandlerFunc
	requests struct {
		login   atomic.Int64
		refresh atomic.Int64
		logout  atomic.Int64
	}
}

func (b *authBackend) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		b.requests.login.Add(1)
		if b.login == nil {
			b.t.Fatal("unexpected call to /auth/login")
		}
		b.login(w, r)
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.requests.refresh.Add(1)
		if b.refresh == nil {
			b.t.Fatal("unexpected call to /auth/refresh")
		}
		b.refresh(w, r)
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		b.requests.logout.Add(1)
		if b.logout == nil {
			b.t.Fatal("unexpected call to /auth/logout")
		}
		b.logout(w, r)
	})
	return httptest.NewServer(mux)
}

func sessionJSON(t *testing.T, token string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sessionPayload{
			Token:        token,
			RefreshToken: "refresh-new",
			SessionID:    "session-1",
			ExpiresAt:    time.Now().Add(15 * time.Minute),
		})
	}
}

func errorJSON(status int, msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(errorPayload{Error: msg})
	}
}

func newTestManager(t *testing.T, baseURL string) *Manager {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return NewManager(baseURL, store, nil, zap.NewNop())
}

func persistSession(t *testing.T, m *Manager, token string) {
	t.Helper()
	require.NoError(t, m.store.Set(keyToken, token, persistTTLDays))
	require.NoError(t, m.store.Set(keySessionInfo, SessionInfo{
		RefreshToken: "refresh-old",
		SessionID:    "session-1",
		ExpiresAt:    time.Now().Add(15 * time.Minute),
	}, persistTTLDays))
}

func TestLoginSuccess(t *testing.T) {
	token := signedToken(t, "user-1", time.Now().Add(time.Hour))
	backend := &authBackend{t: t, login: sessionJSON(t, token)}
	srv := backend.server()
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	require.NoError(t, m.Login(context.Background(), "rep@example.com", "hunter22"))

	assert.True(t, m.IsAuthenticated())
	require.NotNil(t, m.User())
	assert.Equal(t, "user-1", m.User().ID)
	assert.Equal(t, "rep", m.User().Role)

	var stored string
	ok, err := m.store.Get(keyToken, &stored)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, token, stored)
}

func TestLoginInvalidCredentialsSurfacesServerError(t *testing.T) {
	backend := &authBackend{t: t, login: errorJSON(http.StatusUnauthorized, "invalid email or password")}
	srv := backend.server()
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	err := m.Login(context.Background(), "rep@example.com", "wrong")

	require.Error(t, err)
	assert.Equal(t, "invalid email or password", err.Error())
	assert.Nil(t, m.User())
	assert.False(t, m.IsAuthenticated())
}

func TestLoginMalformedPayloadRejected(t *testing.T) {
	backend := &authBackend{t: t, login: func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token": ""}`))
	}}
	srv := backend.server()
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	err := m.Login(context.Background(), "rep@example.com", "hunter22")

	require.Error(t, err)
	assert.False(t, m.IsAuthenticated())
}

func TestInitializeValidTokenNoNetworkCall(t *testing.T) {
	backend := &authBackend{t: t}
	srv := backend.server()
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	persistSession(t, m, signedToken(t, "user-1", time.Now().Add(time.Hour)))

	m.Initialize(context.Background())

	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, int64(0), backend.requests.login.Load())
	assert.Equal(t, int64(0), backend.requests.refresh.Load())
	assert.Equal(t, int64(0), backend.requests.logout.Load())
}

func TestInitializeMissingEntriesNoNetworkCall(t *testing.T) {
	backend := &authBackend{t: t}
	srv := backend.server()
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	// Token present, session info missing: the pair dies together.
	require.NoError(t, m.store.Set(keyToken, signedToken(t, "user-1", time.Now().Add(time.Hour)), persistTTLDays))

	m.Initialize(context.Background())

	assert.Equal(t, StateUnauthenticated, m.State())
	assert.Nil(t, m.User())
	assert.Equal(t, int64(0), backend.requests.refresh.Load())

	var token string
	ok, _ := m.store.Get(keyToken, &token)
	assert.False(t, ok)
}

func TestInitializeExpiredTokenExactlyOneRefresh(t *testing.T) {
	fresh := signedToken(t, "user-1", time.Now().Add(time.Hour))
	backend := &authBackend{t: t, refresh: sessionJSON(t, fresh)}
	srv := backend.server()
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	persistSession(t, m, signedToken(t, "user-1", time.Now().Add(-time.Hour)))

	m.Initialize(context.Background())

	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, int64(1), backend.requests.refresh.Load())

	var info SessionInfo
	ok, err := m.store.Get(keySessionInfo, &info)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "refresh-new", info.RefreshToken)
	assert.False(t, info.LastRefresh.IsZero())
}

func TestInitializeRefreshFailureClearsEverything(t *testing.T) {
	backend := &authBackend{t: t, refresh: errorJSON(http.StatusUnauthorized, "invalid or expired refresh token")}
	srv := backend.server()
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	persistSession(t, m, signedToken(t, "user-1", time.Now().Add(-time.Hour)))

	m.Initialize(context.Background())

	assert.Equal(t, StateUnauthenticated, m.State())
	assert.Nil(t, m.User())
	assert.Equal(t, int64(1), backend.requests.refresh.Load())

	var token string
	ok, _ := m.store.Get(keyToken, &token)
	assert.False(t, ok)
	var info SessionInfo
	ok, _ = m.store.Get(keySessionInfo, &info)
	assert.False(t, ok)
}

func TestInitializeUndecodableTokenAttemptsRefresh(t *testing.T) {
	fresh := signedToken(t, "user-1", time.Now().Add(time.Hour))
	backend := &authBackend{t: t, refresh: sessionJSON(t, fresh)}
	srv := backend.server()
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	persistSession(t, m, "garbage-token")

	m.Initialize(context.Background())

	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, int64(1), backend.requests.refresh.Load())
}

func TestRefreshKeepsOriginalStoredExpiry(t *testing.T) {
	fresh := signedToken(t, "user-1", time.Now().Add(time.Hour))
	backend := &authBackend{t: t, refresh: sessionJSON(t, fresh)}
	srv := backend.server()
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	originalExpiry := time.Now().Add(36 * time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, m.store.SetUntil(keyToken, signedToken(t, "user-1", time.Now().Add(-time.Hour)), originalExpiry))
	require.NoError(t, m.store.SetUntil(keySessionInfo, SessionInfo{
		RefreshToken: "refresh-old",
		SessionID:    "session-1",
	}, originalExpiry))

	assert.True(t, m.Refresh(context.Background()))

	// The entries were rewritten but the expiry stayed anchored to login.
	got, ok := m.store.ExpiresAt(keySessionInfo)
	require.True(t, ok)
	assert.Equal(t, originalExpiry, got.UTC().Truncate(time.Second))
	got, ok = m.store.ExpiresAt(keyToken)
	require.True(t, ok)
	assert.Equal(t, originalExpiry, got.UTC().Truncate(time.Second))
}

func TestRefreshWithoutSessionInfo(t *testing.T) {
	backend := &authBackend{t: t}
	srv := backend.server()
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	assert.False(t, m.Refresh(context.Background()))
	assert.Equal(t, int64(0), backend.requests.refresh.Load())
}

func TestLogoutClearsLocalStateDespiteServerFailure(t *testing.T) {
	token := signedToken(t, "user-1", time.Now().Add(time.Hour))
	backend := &authBackend{
		t:     t,
		login: sessionJSON(t, token),
		logout: func(w http.ResponseWriter, r *http.Request) {
			// Simulate a dead connection mid-request.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Error("response writer is not a hijacker")
				return
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Error(err)
				return
			}
			conn.Close()
		},
	}
	srv := backend.server()
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	require.NoError(t, m.Login(context.Background(), "rep@example.com", "hunter22"))
	require.True(t, m.IsAuthenticated())

	m.Logout(context.Background())

	assert.Equal(t, StateUnauthenticated, m.State())
	assert.Nil(t, m.User())
	var stored string
	ok, _ := m.store.Get(keyToken, &stored)
	assert.False(t, ok)
}

func TestLogoutDiscardsInFlightRefresh(t *testing.T) {
	fresh := signedToken(t, "user-1", time.Now().Add(time.Hour))
	release := make(chan struct{})
	backend := &authBackend{
		t: t,
		refresh: func(w http.ResponseWriter, r *http.Request) {
			<-release
			sessionJSON(t, fresh)(w, r)
		},
		logout: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	}
	srv := backend.server()
	defer srv.Close()

	m := newTestManager(t, srv.URL)
	persistSession(t, m, signedToken(t, "user-1", time.Now().Add(-time.Hour)))

	refreshed := make(chan bool, 1)
	go func() {
		refreshed <- m.Refresh(context.Background())
	}()

	// Let the refresh reach the backend, then log out underneath it.
	require.Eventually(t, func() bool {
		return backend.requests.refresh.Load() == 1
	}, time.Second, 5*time.Millisecond)
	m.Logout(context.Background())
	close(release)

	assert.False(t, <-refreshed)
	assert.Equal(t, StateUnauthenticated, m.State())
	assert.Nil(t, m.User())
}
