package client

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/layer-3/vigil/core"
	"github.com/layer-3/vigil/ports"
)

// Storage keys, fixed for compatibility with the frontend's localStorage
// layout.
const (
	keyIDToken      = "idToken"
	keyAccessToken  = "accessToken"
	keyRefreshToken = "refreshToken"
	keyExpiresAt    = "expiresAt"
	keyUser         = "user"
	keyMFASession   = "mfaSession"
	keyQRCodeURL    = "qrCodeUrl"
	keyOtpauthURL   = "otpauthUrl"
	keyUsername     = "username"
)

const sessionTopic = "session.state"

// Enrollment artifacts are only needed between the login that demanded setup
// and the user's first code.
const enrollmentTTL = 10 * time.Minute

// SessionState is the snapshot delivered to watchers. It is published only
// after the underlying store is fully written, so observers never see a
// half-saved session.
type SessionState struct {
	Authenticated bool   `json:"authenticated"`
	IDToken       string `json:"idToken,omitempty"`
}

// authority is the slice of the backend API the session manager needs.
type authority interface {
	RefreshTokens(ctx context.Context, refreshToken string) (*core.RefreshedTokens, error)
	FetchUser(ctx context.Context, accessToken string) (*core.UserProfile, error)
}

// SessionManager owns the durable session cache: the token bundle, its
// absolute expiry, and the cached user profile. The stored session is either
// fully present and unexpired or absent; EnsureValid is the single funnel
// through which staleness is resolved. A mutex serializes writers since a
// timer-driven refresh and a user-driven login may fire together.
type SessionManager struct {
	kv  ports.KV
	api authority

	mu     sync.Mutex
	now    func() time.Time
	pubsub *gochannel.GoChannel
}

// NewSessionManager creates a session manager over the given store.
func NewSessionManager(kv ports.KV, api authority) *SessionManager {
	return &SessionManager{
		kv:  kv,
		api: api,
		now: time.Now,
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 16,
		}, watermill.NopLogger{}),
	}
}

// Hydrate restores state from the store after a restart. A live session is
// announced to watchers; a token whose expiry record went missing gets its
// expiry recovered from the token itself, and unreadable leftovers are
// cleared. An expired but complete session is left for EnsureValid.
func (m *SessionManager) Hydrate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idToken, err := m.get(ctx, keyIDToken)
	if err != nil {
		return err
	}
	if idToken == "" {
		return nil
	}

	expStr, err := m.get(ctx, keyExpiresAt)
	if err != nil {
		return err
	}
	if expStr == "" {
		exp, ok := tokenExpiry(idToken)
		if !ok || !m.now().Before(exp) {
			return m.clearLocked(ctx)
		}
		expStr = strconv.FormatInt(exp.UnixMilli(), 10)
		if err := m.kv.Set(ctx, keyExpiresAt, expStr, 0); err != nil {
			return err
		}
	}

	expiresAt, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return m.clearLocked(ctx)
	}
	if m.now().UnixMilli() >= expiresAt {
		return nil
	}

	m.publishLocked(SessionState{Authenticated: true, IDToken: idToken})

	if cached, _ := m.get(ctx, keyUser); cached == "" {
		// Best effort; the profile can be refetched on demand.
		_ = m.fetchProfileLocked(ctx)
	}
	return nil
}

// Save persists a full token set and computes its absolute expiry. All four
// fields are written before watchers are notified; a failed write clears the
// store so a partial session is never observable.
func (m *SessionManager) Save(ctx context.Context, tokens core.TokenSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(ctx, tokens)
}

func (m *SessionManager) saveLocked(ctx context.Context, tokens core.TokenSet) error {
	expiresAt := m.now().UnixMilli() + tokens.ExpiresIn*1000

	writes := []struct{ key, value string }{
		{keyIDToken, tokens.IDToken},
		{keyAccessToken, tokens.AccessToken},
		{keyRefreshToken, tokens.RefreshToken},
		{keyExpiresAt, strconv.FormatInt(expiresAt, 10)},
	}
	for _, w := range writes {
		if err := m.kv.Set(ctx, w.key, w.value, 0); err != nil {
			_ = m.clearLocked(ctx)
			return err
		}
	}

	m.publishLocked(SessionState{Authenticated: true, IDToken: tokens.IDToken})
	return nil
}

// IsValid reports whether a session is stored and unexpired. It never
// touches the network.
func (m *SessionManager) IsValid(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validLocked(ctx)
}

func (m *SessionManager) validLocked(ctx context.Context) bool {
	idToken, err := m.get(ctx, keyIDToken)
	if err != nil || idToken == "" {
		return false
	}
	expStr, err := m.get(ctx, keyExpiresAt)
	if err != nil || expStr == "" {
		return false
	}
	expiresAt, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return false
	}
	return m.now().UnixMilli() < expiresAt
}

// EnsureValid resolves staleness: a live session passes straight through
// with no network call, an expired one is refreshed, and a failed refresh
// leaves the store cleared. The result is a plain authenticated/not
// authenticated answer; an expired refresh token is steady state, not an
// error.
func (m *SessionManager) EnsureValid(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.validLocked(ctx) {
		return true
	}
	return m.refreshLocked(ctx)
}

// Refresh exchanges the stored refresh token for fresh tokens. The authority
// does not rotate the refresh token, so the stored one is carried over. Any
// failure clears the session.
func (m *SessionManager) Refresh(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx)
}

func (m *SessionManager) refreshLocked(ctx context.Context) bool {
	refreshToken, err := m.get(ctx, keyRefreshToken)
	if err != nil || refreshToken == "" {
		_ = m.clearLocked(ctx)
		return false
	}

	refreshed, err := m.api.RefreshTokens(ctx, refreshToken)
	if err != nil {
		_ = m.clearLocked(ctx)
		return false
	}

	err = m.saveLocked(ctx, core.TokenSet{
		IDToken:      refreshed.IDToken,
		AccessToken:  refreshed.AccessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    refreshed.ExpiresIn,
	})
	return err == nil
}

// FetchProfile resolves the stored access token to the user's profile and
// caches it alongside the session. With no session stored it is a no-op.
func (m *SessionManager) FetchProfile(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchProfileLocked(ctx)
}

func (m *SessionManager) fetchProfileLocked(ctx context.Context) error {
	accessToken, err := m.get(ctx, keyAccessToken)
	if err != nil {
		return err
	}
	if accessToken == "" {
		return nil
	}

	profile, err := m.api.FetchUser(ctx, accessToken)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return m.kv.Set(ctx, keyUser, string(payload), 0)
}

// Profile returns the cached user profile, if any.
func (m *SessionManager) Profile(ctx context.Context) (*core.UserProfile, bool) {
	cached, err := m.get(ctx, keyUser)
	if err != nil || cached == "" {
		return nil, false
	}
	var profile core.UserProfile
	if err := json.Unmarshal([]byte(cached), &profile); err != nil {
		return nil, false
	}
	return &profile, true
}

// AccessToken returns the stored access token, empty when signed out.
func (m *SessionManager) AccessToken(ctx context.Context) string {
	token, _ := m.get(ctx, keyAccessToken)
	return token
}

// Clear removes the session and the cached profile, then announces the
// signed-out state.
func (m *SessionManager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearLocked(ctx)
}

func (m *SessionManager) clearLocked(ctx context.Context) error {
	err := m.kv.Del(ctx, keyIDToken, keyAccessToken, keyRefreshToken, keyExpiresAt, keyUser)
	m.publishLocked(SessionState{})
	return err
}

// StoreEnrollment mirrors the transient MFA artifacts so an interrupted
// enrollment can resume. They expire on their own.
func (m *SessionManager) StoreEnrollment(ctx context.Context, session, qrCodeURL, otpauthURL, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	writes := []struct{ key, value string }{
		{keyMFASession, session},
		{keyQRCodeURL, qrCodeURL},
		{keyOtpauthURL, otpauthURL},
		{keyUsername, username},
	}
	for _, w := range writes {
		if w.value == "" {
			continue
		}
		if err := m.kv.Set(ctx, w.key, w.value, enrollmentTTL); err != nil {
			return err
		}
	}
	return nil
}

// PendingMFASession returns the mirrored continuation token of an
// in-progress MFA step, if one is live.
func (m *SessionManager) PendingMFASession(ctx context.Context) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.get(ctx, keyMFASession)
	if err != nil || session == "" {
		return "", false
	}
	return session, true
}

// Watch delivers session-state snapshots to the caller. Every snapshot
// corresponds to a fully applied save or clear.
func (m *SessionManager) Watch(ctx context.Context) (<-chan SessionState, error) {
	msgs, err := m.pubsub.Subscribe(ctx, sessionTopic)
	if err != nil {
		return nil, err
	}

	out := make(chan SessionState)
	go func() {
		defer close(out)
		for msg := range msgs {
			var state SessionState
			if err := json.Unmarshal(msg.Payload, &state); err == nil {
				select {
				case out <- state:
				case <-ctx.Done():
					msg.Ack()
					return
				}
			}
			msg.Ack()
		}
	}()
	return out, nil
}

// Close shuts down the watcher fan-out.
func (m *SessionManager) Close() error {
	return m.pubsub.Close()
}

func (m *SessionManager) publishLocked(state SessionState) {
	payload, err := json.Marshal(state)
	if err != nil {
		return
	}
	// Publish failures only mean no watcher is listening anymore.
	_ = m.pubsub.Publish(sessionTopic, message.NewMessage(watermill.NewUUID(), payload))
}

// get treats a missing key as an empty value.
func (m *SessionManager) get(ctx context.Context, key string) (string, error) {
	value, err := m.kv.Get(ctx, key)
	if errors.Is(err, ports.ErrNotFound) {
		return "", nil
	}
	return value, err
}
