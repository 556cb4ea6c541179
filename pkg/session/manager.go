package session

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// State is the manager's lifecycle state.
type State string

const (
	StateUninitialized   State = "uninitialized"
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// Persisted keys and their shared TTL. The TTL is anchored to the original
// login; refreshes rewrite the entries without extending it.
const (
	keyToken       = "token"
	keySessionInfo = "sessionInfo"
	persistTTLDays = 5
)

// User is the active identity, sourced from decoded token claims. Held in
// memory only; at most one User is active per Manager.
type User struct {
	ID             string
	Email          string
	Role           string
	Name           string
	SessionID      string
	TokenExpiresAt time.Time
}

// SessionInfo is the persisted refresh state.
type SessionInfo struct {
	RefreshToken string    `json:"refresh_token"`
	SessionID    string    `json:"session_id"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastRefresh  time.Time `json:"last_refresh,omitempty"`
}

// sessionPayload is the wire schema for login and refresh responses.
// Decoding is strict: a payload missing its tokens is rejected outright.
type sessionPayload struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	SessionID    string    `json:"session_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (p *sessionPayload) validate() error {
	if p.Token == "" || p.RefreshToken == "" || p.SessionID == "" {
		return errors.New("session payload missing token, refresh_token or session_id")
	}
	return nil
}

type errorPayload struct {
	Error string `json:"error"`
}

// Manager orchestrates login, logout, silent refresh and initial-load
// rehydration against the auth endpoints.
type Manager struct {
	baseURL string
	client  *http.Client
	store   *Store
	logger  *zap.Logger

	mu    sync.Mutex
	state State
	user  *User
	// generation increments on logout so a refresh that completes afterwards
	// cannot resurrect the user.
	generation uint64

	now func() time.Time
}

func NewManager(baseURL string, store *Store, client *http.Client, logger *zap.Logger) *Manager {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		baseURL: baseURL,
		client:  client,
		store:   store,
		logger:  logger,
		state:   StateUninitialized,
		now:     time.Now,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// User returns a copy of the active user, or nil.
func (m *Manager) User() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// IsAuthenticated reports whether a user is active.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// Initialize rehydrates session state from the store. A valid persisted token
// authenticates without any network call; an expired or undecodable token
// gets exactly one silent refresh attempt before local state is cleared.
func (m *Manager) Initialize(ctx context.Context) {
	m.mu.Lock()
	m.state = StateLoading
	m.mu.Unlock()

	var token string
	tokenOK, _ := m.store.Get(keyToken, &token)
	var info SessionInfo
	infoOK, _ := m.store.Get(keySessionInfo, &info)

	// Token and session info live or die together.
	if !tokenOK || !infoOK {
		m.clearLocal()
		return
	}

	claims, err := DecodeToken(token)
	if err == nil && !claims.Expired(m.now()) {
		m.setUser(claims)
		return
	}

	if m.Refresh(ctx) {
		return
	}
	m.logger.Debug("Silent refresh failed during initialization, clearing session")
	m.clearLocal()
}

// Login authenticates with the server. A non-2xx response surfaces the
// server-provided error string.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	payload, err := m.postSession(ctx, "/auth/login", body)
	if err != nil {
		return err
	}

	claims, err := DecodeToken(payload.Token)
	if err != nil {
		return err
	}

	info := SessionInfo{
		RefreshToken: payload.RefreshToken,
		SessionID:    payload.SessionID,
		ExpiresAt:    payload.ExpiresAt,
	}
	if err := m.store.Set(keyToken, payload.Token, persistTTLDays); err != nil {
		return err
	}
	if err := m.store.Set(keySessionInfo, info, persistTTLDays); err != nil {
		return err
	}

	m.setUser(claims)
	return nil
}

// Refresh exchanges the stored refresh token for a new access token. The
// persisted entries are rewritten in place: only lastRefresh changes, the
// stored expiry stays anchored to the original login.
func (m *Manager) Refresh(ctx context.Context) bool {
	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()

	var info SessionInfo
	ok, _ := m.store.Get(keySessionInfo, &info)
	if !ok || info.RefreshToken == "" {
		return false
	}

	body := map[string]string{"refresh_token": info.RefreshToken}
	payload, err := m.postSession(ctx, "/auth/refresh", body)
	if err != nil {
		m.logger.Debug("Refresh rejected", zap.Error(err))
		return false
	}

	claims, err := DecodeToken(payload.Token)
	if err != nil {
		return false
	}

	m.mu.Lock()
	if m.generation != gen {
		// Logged out while the refresh was in flight; discard the result.
		m.mu.Unlock()
		return false
	}

	expiry, ok := m.store.ExpiresAt(keySessionInfo)
	if !ok {
		expiry = m.now().AddDate(0, 0, persistTTLDays)
	}
	info.RefreshToken = payload.RefreshToken
	info.SessionID = payload.SessionID
	info.LastRefresh = m.now()
	_ = m.store.SetUntil(keyToken, payload.Token, expiry)
	_ = m.store.SetUntil(keySessionInfo, info, expiry)

	m.user = claimsToUser(claims)
	m.state = StateAuthenticated
	m.mu.Unlock()
	return true
}

// Logout invalidates the session server-side on a best-effort basis, then
// unconditionally clears local state. The client always ends up logged out.
func (m *Manager) Logout(ctx context.Context) {
	var info SessionInfo
	if ok, _ := m.store.Get(keySessionInfo, &info); ok && info.RefreshToken != "" {
		body := map[string]string{"refresh_token": info.RefreshToken}
		if err := m.post(ctx, "/auth/logout", body, nil); err != nil {
			m.logger.Debug("Server logout failed, clearing local state anyway", zap.Error(err))
		}
	}

	m.mu.Lock()
	m.generation++
	m.mu.Unlock()
	m.clearLocal()
}

func (m *Manager) setUser(claims *TokenClaims) {
	m.mu.Lock()
	m.user = claimsToUser(claims)
	m.state = StateAuthenticated
	m.mu.Unlock()
}

func (m *Manager) clearLocal() {
	m.store.Delete(keyToken)
	m.store.Delete(keySessionInfo)
	m.mu.Lock()
	m.user = nil
	m.state = StateUnauthenticated
	m.mu.Unlock()
}

func claimsToUser(claims *TokenClaims) *User {
	return &User{
		ID:             claims.UserID,
		Email:          claims.Email,
		Role:           claims.Role,
		Name:           claims.Name,
		SessionID:      claims.SessionID,
		TokenExpiresAt: claims.ExpiresAt(),
	}
}

// postSession POSTs a JSON body and decodes the shared session payload. On a
// non-2xx status the server's error string is returned as the error.
func (m *Manager) postSession(ctx context.Context, path string, body any) (*sessionPayload, error) {
	var payload sessionPayload
	if err := m.post(ctx, path, body, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (m *Manager) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encoding request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "calling %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ep errorPayload
		if err := json.NewDecoder(resp.Body).Decode(&ep); err == nil && ep.Error != "" {
			return errors.New(ep.Error)
		}
		return errors.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding %s response", path)
	}
	return nil
}
