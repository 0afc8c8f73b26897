package handshake

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/verse91/clipy/internal/models"
	"github.com/verse91/clipy/internal/shared"
)

var (
	ErrTermsNotAccepted = errors.New("terms and conditions not accepted")
	ErrUnmounted        = errors.New("sign-in modal unmounted")
	ErrNoOpener         = errors.New("no window opener configured")
)

// User-visible error strings.
const (
	TextPopupBlocked    = "Please allow popups to sign in. You can enable popups in your browser settings."
	TextUnexpectedError = "An unexpected error occurred. Please try again."
	TextAuthFailed      = "Authentication failed"
)

const (
	DefaultPollInterval = time.Second
	DefaultCloseDelay   = time.Second
)

// Screen is the size the popup is centered on.
type Screen struct {
	Width  int
	Height int
}

// State is a snapshot of the sign-in modal.
type State struct {
	Open     bool   `json:"open"`
	Loading  bool   `json:"loading"`
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
	Attempt  string `json:"attempt,omitempty"`
}

// Config wires a [Modal] to its environment. Origin is required; the rest have defaults or are optional.
type Config struct {
	Origin     string
	Opener     Opener
	Navigator  Navigator
	Authorizer Authorizer
	Bus        *Bus
	Screen     Screen

	PollInterval time.Duration
	CloseDelay   time.Duration

	Logger *log.Logger

	// OnChange receives a copy of the state after every change. It must not call back into the modal's mutators.
	OnChange func(State)
}

type attempt struct {
	token       string
	redirect    bool
	window      Window
	cancel      context.CancelFunc
	done        chan struct{}
	unsubscribe func()
}

// Modal is the sign-in dialog state machine.
type Modal struct {
	cfg Config

	mu         sync.Mutex
	state      State
	current    *attempt
	user       *models.User
	closeTimer *time.Timer

	seq uint64

	emitMu    sync.Mutex
	emitted   uint64
	unmounted atomic.Bool
}

// NewModal creates a hidden modal.
func NewModal(cfg Config) *Modal {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.CloseDelay <= 0 {
		cfg.CloseDelay = DefaultCloseDelay
	}
	if cfg.Screen.Width == 0 || cfg.Screen.Height == 0 {
		cfg.Screen = Screen{Width: 1920, Height: 1080}
	}
	if cfg.Logger == nil {
		cfg.Logger = shared.NewLogger(nil)
	}
	cfg.Origin = strings.TrimRight(cfg.Origin, "/")
	return &Modal{cfg: cfg}
}

// Snapshot returns a copy of the current state.
func (m *Modal) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Show opens the modal. An already signed-in user closes it again after the close delay.
func (m *Modal) Show() {
	m.mutate(func() {
		m.state.Open = true
		m.scheduleCloseLocked()
	})
}

// Hide closes the modal, clearing error and loading and releasing the live attempt. Terms acceptance is kept.
func (m *Modal) Hide() {
	m.mutate(m.hideLocked)
}

// Accept records whether the terms were accepted.
func (m *Modal) Accept(accepted bool) {
	m.mutate(func() { m.state.Accepted = accepted })
}

// SignIn starts a new attempt.
//
// Failures are recorded in the state and also returned. A nil return means the attempt is under way.
func (m *Modal) SignIn(ctx context.Context, userAgent string) error {
	m.mu.Lock()
	if m.unmounted.Load() {
		m.mu.Unlock()
		return ErrUnmounted
	}
	if !m.state.Accepted {
		m.mu.Unlock()
		return ErrTermsNotAccepted
	}

	m.releaseLocked()
	a := &attempt{token: shared.GenerateID(), redirect: shared.IsMobileUserAgent(userAgent)}
	m.current = a
	m.state.Loading = true
	m.state.Error = ""
	m.state.Attempt = a.token
	snapshot, seq := m.stampLocked()
	m.mu.Unlock()
	m.emit(seq, snapshot)

	logger := m.cfg.Logger.With("attempt", a.token)
	if a.redirect {
		return m.redirect(ctx, a, logger)
	}
	return m.popup(ctx, a, logger)
}

func (m *Modal) redirect(ctx context.Context, a *attempt, logger *log.Logger) error {
	if m.cfg.Authorizer == nil || m.cfg.Navigator == nil {
		return m.fail(a, ErrNoOpener, TextUnexpectedError)
	}

	target, err := m.cfg.Authorizer.AuthorizeURL(ctx, m.cfg.Origin+"/auth/callback")
	if err != nil {
		logger.Error("login error", "error", err)
		return m.fail(a, err, err.Error())
	}

	if err := m.cfg.Navigator.Navigate(ctx, target); err != nil {
		logger.Error("login error", "error", err)
		return m.fail(a, err, TextUnexpectedError)
	}

	logger.Info("mobile sign in initiated")
	return nil
}

func (m *Modal) popup(ctx context.Context, a *attempt, logger *log.Logger) error {
	if m.cfg.Opener == nil {
		return m.fail(a, ErrNoOpener, TextUnexpectedError)
	}

	features := Centered(m.cfg.Screen.Width, m.cfg.Screen.Height)
	target := m.cfg.Origin + "/auth/signin?attempt=" + url.QueryEscape(a.token)

	win, err := m.cfg.Opener.Open(ctx, target, features)
	switch {
	case errors.Is(err, ErrPopupBlocked) || (err == nil && win == nil):
		logger.Warn("popup blocked", "error", err)
		return m.fail(a, ErrPopupBlocked, TextPopupBlocked)
	case err != nil:
		logger.Error("login error", "error", err)
		return m.fail(a, err, TextUnexpectedError)
	}

	m.mu.Lock()
	if m.current != a {
		m.mu.Unlock()
		win.Close()
		return nil
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	a.window = win
	a.cancel = cancel
	a.done = make(chan struct{})
	if m.cfg.Bus != nil {
		a.unsubscribe = m.cfg.Bus.Subscribe(m.Deliver)
	}
	go m.poll(pollCtx, a)
	m.mu.Unlock()

	logger.Debug("popup opened", "features", features.String())
	return nil
}

// fail records msg for a still-live attempt and releases it.
func (m *Modal) fail(a *attempt, err error, msg string) error {
	m.mu.Lock()
	if m.current != a {
		m.mu.Unlock()
		return err
	}
	m.releaseLocked()
	m.state.Loading = false
	m.state.Error = msg
	snapshot, seq := m.stampLocked()
	m.mu.Unlock()

	m.emit(seq, snapshot)
	return err
}

func (m *Modal) poll(ctx context.Context, a *attempt) {
	defer close(a.done)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !a.window.Closed() {
				continue
			}

			m.mu.Lock()
			if m.current != a {
				m.mu.Unlock()
				return
			}
			m.releaseLocked()
			m.state.Loading = false
			snapshot, seq := m.stampLocked()
			m.mu.Unlock()

			m.cfg.Logger.Debug("popup closed by user", "attempt", a.token)
			m.emit(seq, snapshot)
			return
		}
	}
}

// Deliver handles a cross-window message.
//
// Messages are dropped unless a popup attempt is live, the origin matches and, when the message names an attempt, the token matches.
func (m *Modal) Deliver(msg Message) {
	m.mu.Lock()
	a := m.current
	if a == nil || a.window == nil || msg.Origin != m.cfg.Origin {
		m.mu.Unlock()
		return
	}
	if msg.Attempt != "" && msg.Attempt != a.token {
		m.mu.Unlock()
		return
	}

	switch msg.Type {
	case AuthSuccess:
		m.hideLocked()
	case AuthError:
		m.releaseLocked()
		m.state.Loading = false
		m.state.Error = msg.Error
		if m.state.Error == "" {
			m.state.Error = TextAuthFailed
		}
	default:
		m.mu.Unlock()
		return
	}
	snapshot, seq := m.stampLocked()
	m.mu.Unlock()

	m.cfg.Logger.Info("sign-in message received", "type", msg.Type, "attempt", a.token)
	m.emit(seq, snapshot)
}

// UserChanged reports a change of the signed-in user.
//
// A user appearing while the modal is shown closes it after the close delay. A sign-out resets terms acceptance.
func (m *Modal) UserChanged(user *models.User) {
	m.mutate(func() {
		m.user = user
		if user == nil {
			m.stopCloseTimerLocked()
			m.state.Accepted = false
			return
		}
		m.scheduleCloseLocked()
	})
}

// Unmount releases the popup, poll goroutine, subscription and timers.
//
// It returns once the poll goroutine has exited. No state changes are published afterwards.
func (m *Modal) Unmount() {
	m.mu.Lock()
	m.unmounted.Store(true)
	m.stopCloseTimerLocked()
	a := m.current
	m.releaseLocked()
	m.mu.Unlock()

	m.emitMu.Lock()
	m.emitMu.Unlock()

	if a != nil && a.done != nil {
		<-a.done
	}
}

func (m *Modal) closeAfterSignIn() {
	m.mutate(func() {
		m.closeTimer = nil
		if m.user == nil || !m.state.Open {
			return
		}
		m.hideLocked()
	})
}

func (m *Modal) scheduleCloseLocked() {
	if m.user == nil || !m.state.Open || m.closeTimer != nil {
		return
	}
	m.closeTimer = time.AfterFunc(m.cfg.CloseDelay, m.closeAfterSignIn)
}

func (m *Modal) stopCloseTimerLocked() {
	if m.closeTimer != nil {
		m.closeTimer.Stop()
		m.closeTimer = nil
	}
}

func (m *Modal) hideLocked() {
	m.state.Open = false
	m.state.Loading = false
	m.state.Error = ""
	m.stopCloseTimerLocked()
	m.releaseLocked()
}

// releaseLocked tears down the live attempt without waiting for its poll goroutine.
func (m *Modal) releaseLocked() {
	a := m.current
	if a == nil {
		return
	}
	m.current = nil
	m.state.Attempt = ""

	if a.cancel != nil {
		a.cancel()
	}
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.window != nil && !a.window.Closed() {
		if err := a.window.Close(); err != nil {
			m.cfg.Logger.Warn("failed to close popup", "error", err)
		}
	}
}

func (m *Modal) mutate(fn func()) {
	m.mu.Lock()
	if m.unmounted.Load() {
		m.mu.Unlock()
		return
	}
	fn()
	snapshot, seq := m.stampLocked()
	m.mu.Unlock()

	m.emit(seq, snapshot)
}

// stampLocked copies the state and numbers the copy so listeners never see an older state after a newer one.
func (m *Modal) stampLocked() (State, uint64) {
	m.seq++
	return m.state, m.seq
}

// emit publishes s unless a later snapshot was already published.
func (m *Modal) emit(seq uint64, s State) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	if seq <= m.emitted {
		return
	}
	m.emitted = seq
	if m.unmounted.Load() || m.cfg.OnChange == nil {
		return
	}
	m.cfg.OnChange(s)
}
