package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/verse91/clipy/internal/models"
	"github.com/verse91/clipy/internal/shared"
)

// SessionKey is the storage key of the persisted session.
const SessionKey = "clipy-auth-token"

// Event is an auth state change.
type Event string

const (
	InitialSession Event = "INITIAL_SESSION"
	SignedIn       Event = "SIGNED_IN"
	SignedOut      Event = "SIGNED_OUT"
	TokenRefreshed Event = "TOKEN_REFRESHED"
)

// Listener receives auth events. session is nil after a sign-out or when no session was restored.
type Listener func(event Event, session *models.Session)

// Sessions is the part of [Client] the auth context needs.
type Sessions interface {
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Auth is the auth context: the current session, a loading flag and change notifications.
type Auth struct {
	client  Sessions
	storage Storage
	logger  *log.Logger

	mu      sync.RWMutex
	session *models.Session
	loading bool

	subsMu sync.Mutex
	next   int
	subs   map[int]Listener
}

// NewAuth creates an auth context in the loading state. Call [Auth.Load] to restore the session.
func NewAuth(client Sessions, storage Storage, logger *log.Logger) *Auth {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Auth{
		client:  client,
		storage: storage,
		logger:  logger,
		loading: true,
		subs:    make(map[int]Listener),
	}
}

// Load restores the persisted session, refreshing it when expired.
//
// A session that cannot be decoded or refreshed is discarded. Loading is false afterwards in every case.
func (a *Auth) Load(ctx context.Context) error {
	session, err := a.restore()
	if err != nil {
		a.logger.Warn("discarding stored session", "error", err)
		a.storage.RemoveItem(SessionKey)
		session = nil
	}

	refreshed := false
	if session != nil && !session.Valid() {
		next, err := a.refresh(ctx, session)
		if err != nil {
			a.logger.Warn("stored session expired", "error", err)
			a.storage.RemoveItem(SessionKey)
			session = nil
		} else {
			session, refreshed = next, true
		}
	}

	a.mu.Lock()
	a.session = session
	a.loading = false
	a.mu.Unlock()

	a.emit(InitialSession, session)
	if refreshed {
		a.emit(TokenRefreshed, session)
	}
	return nil
}

func (a *Auth) restore() (*models.Session, error) {
	raw, err := a.storage.GetItem(SessionKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var session models.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("invalid stored session: %w", err)
	}
	return &session, nil
}

func (a *Auth) refresh(ctx context.Context, current *models.Session) (*models.Session, error) {
	if a.client == nil {
		return nil, shared.ErrTokenExpired
	}
	next, err := a.client.Refresh(ctx, current.RefreshToken)
	if err != nil {
		return nil, err
	}
	if next.User == nil {
		next.User = current.User
	}
	next.Stamp(time.Now())
	if err := a.persist(next); err != nil {
		return nil, err
	}
	return next, nil
}

func (a *Auth) persist(s *models.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return a.storage.SetItem(SessionKey, string(data))
}

// SetSession stores a freshly exchanged session and announces the sign-in.
func (a *Auth) SetSession(s *models.Session) error {
	if s == nil || s.AccessToken == "" {
		return fmt.Errorf("%w: empty session", shared.ErrInvalidInput)
	}
	s.Stamp(time.Now())
	if err := a.persist(s); err != nil {
		return err
	}

	a.mu.Lock()
	a.session = s
	a.loading = false
	a.mu.Unlock()

	a.logger.Info("signed in", "user", s.User.DisplayName())
	a.emit(SignedIn, s)
	return nil
}

// SignOut revokes the session remotely when possible and forgets it locally.
func (a *Auth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	session := a.session
	a.session = nil
	a.mu.Unlock()

	if session != nil && a.client != nil {
		if err := a.client.SignOut(ctx, session.AccessToken); err != nil {
			a.logger.Warn("remote sign out failed", "error", err)
		}
	}
	if err := a.storage.RemoveItem(SessionKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	a.emit(SignedOut, nil)
	return nil
}

// User returns the signed-in user or nil.
func (a *Auth) User() *models.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return nil
	}
	return a.session.User
}

// Session returns the current session or nil.
func (a *Auth) Session() *models.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// Loading reports whether the initial session is still being restored.
func (a *Auth) Loading() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loading
}

// AccessToken returns a valid access token, refreshing the session when it has expired.
func (a *Auth) AccessToken(ctx context.Context) (string, error) {
	a.mu.RLock()
	session := a.session
	a.mu.RUnlock()

	if session == nil {
		return "", shared.ErrNotAuthenticated
	}
	if session.Valid() {
		return session.AccessToken, nil
	}

	next, err := a.refresh(ctx, session)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	a.session = next
	a.mu.Unlock()

	a.emit(TokenRefreshed, next)
	return next.AccessToken, nil
}

// Subscribe registers fn for auth events and returns its unsubscribe function.
func (a *Auth) Subscribe(fn Listener) func() {
	a.subsMu.Lock()
	id := a.next
	a.next++
	a.subs[id] = fn
	a.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.subsMu.Lock()
			delete(a.subs, id)
			a.subsMu.Unlock()
		})
	}
}

func (a *Auth) emit(event Event, session *models.Session) {
	a.subsMu.Lock()
	fns := make([]Listener, 0, len(a.subs))
	for _, fn := range a.subs {
		fns = append(fns, fn)
	}
	a.subsMu.Unlock()

	a.logger.Debug("auth state change", "event", event)
	for _, fn := range fns {
		fn(event, session)
	}
}
