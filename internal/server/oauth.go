package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/verse91/clipy/internal/handshake"
	"github.com/verse91/clipy/internal/identity"
	"github.com/verse91/clipy/internal/models"
	"github.com/verse91/clipy/internal/shared"
)

// ErrUnknownAttempt is reported for callbacks whose attempt was never started, already completed or expired.
var ErrUnknownAttempt = errors.New("unknown or expired sign-in attempt")

// CallbackPath is the route the auth provider redirects back to.
const CallbackPath = "/auth/callback"

// Provider is the part of the auth service client used by the sign-in routes.
type Provider interface {
	AuthorizeURL(redirectTo, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*models.Session, error)
}

// SessionSink receives the session of a completed sign-in.
type SessionSink interface {
	SetSession(s *models.Session) error
}

// ProfileRecorder keeps the email of signed-in users next to their credits.
type ProfileRecorder interface {
	SetEmail(userID, email string) error
}

// CallbackResult contains the outcome of one sign-in attempt.
type CallbackResult struct {
	Attempt string
	Session *models.Session
	Message handshake.Message
	Err     error
}

// CallbackRenderer writes the page shown in the sign-in window.
type CallbackRenderer interface {
	RenderCallback(w http.ResponseWriter, r *http.Request, result CallbackResult)
}

// PlainRenderer writes a plain text callback page.
type PlainRenderer struct{}

// RenderCallback writes the outcome as text.
func (PlainRenderer) RenderCallback(w http.ResponseWriter, _ *http.Request, result CallbackResult) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if result.Err != nil {
		w.WriteHeader(statusFor(result.Err))
		fmt.Fprintf(w, "Sign in failed: %v\n", result.Err)
		return
	}
	fmt.Fprintln(w, "Sign in complete. You can close this window.")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrMissingConfig):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUnknownAttempt), errors.Is(err, shared.ErrAuthFailed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// SignInHandler starts a provider sign-in inside the popup or redirected window.
// Implements the Handler interface for registration with a Router.
type SignInHandler struct {
	provider Provider
	flows    *identity.Flows
	origin   string
	renderer CallbackRenderer
	logger   *log.Logger
}

// NewSignInHandler creates a handler redirecting to provider. A nil provider renders a configuration error.
func NewSignInHandler(provider Provider, flows *identity.Flows, origin string, renderer CallbackRenderer, logger *log.Logger) *SignInHandler {
	if renderer == nil {
		renderer = PlainRenderer{}
	}
	return &SignInHandler{
		provider: provider,
		flows:    flows,
		origin:   strings.TrimRight(origin, "/"),
		renderer: renderer,
		logger:   logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *SignInHandler) Routes() []string {
	return []string{"/auth/signin"}
}

// ServeHTTP records a PKCE verifier for the attempt named in the query (or a new one) and redirects to the provider.
func (h *SignInHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	attempt := r.URL.Query().Get("attempt")
	if attempt == "" {
		attempt = shared.GenerateID()
	}

	if h.provider == nil {
		h.logger.Error("sign in error", "attempt", attempt, "error", shared.ErrMissingConfig)
		h.renderer.RenderCallback(w, r, CallbackResult{
			Attempt: attempt,
			Err:     fmt.Errorf("%w: auth service is not configured", shared.ErrMissingConfig),
		})
		return
	}

	verifier := h.flows.Begin(attempt)
	target := h.provider.AuthorizeURL(identity.CallbackURL(h.origin+CallbackPath, attempt), verifier)

	h.logger.Debug("redirecting to provider", "attempt", attempt)
	http.Redirect(w, r, target, http.StatusFound)
}

// CallbackHandler completes sign-in attempts when the provider redirects back.
//
// Each attempt completes at most once: its verifier is taken from the flow store on first use.
// The outcome is published on the bus for the opener and rendered in the window.
type CallbackHandler struct {
	provider Provider
	flows    *identity.Flows
	sessions SessionSink
	profiles ProfileRecorder
	bus      *handshake.Bus
	origin   string
	renderer CallbackRenderer
	logger   *log.Logger
}

// CallbackConfig wires a [CallbackHandler].
type CallbackConfig struct {
	Provider Provider
	Flows    *identity.Flows
	Sessions SessionSink
	// Profiles is optional. When set, the email of each signed-in user is recorded.
	Profiles ProfileRecorder
	Bus      *handshake.Bus
	Origin   string
	Renderer CallbackRenderer
	Logger   *log.Logger
}

// NewCallbackHandler creates a new callback handler.
func NewCallbackHandler(cfg CallbackConfig) *CallbackHandler {
	if cfg.Renderer == nil {
		cfg.Renderer = PlainRenderer{}
	}
	if cfg.Logger == nil {
		cfg.Logger = shared.NewLogger(nil)
	}
	return &CallbackHandler{
		provider: cfg.Provider,
		flows:    cfg.Flows,
		sessions: cfg.Sessions,
		profiles: cfg.Profiles,
		bus:      cfg.Bus,
		origin:   strings.TrimRight(cfg.Origin, "/"),
		renderer: cfg.Renderer,
		logger:   cfg.Logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{CallbackPath}
}

// ServeHTTP handles the provider redirect.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	result := h.complete(r.Context(), r.URL.Query())
	if result.Err != nil {
		h.logger.Warn("auth callback error", "attempt", result.Attempt, "error", result.Err)
	} else {
		h.logger.Info("authentication successful", "attempt", result.Attempt, "user", result.Session.User.DisplayName())
	}
	h.renderer.RenderCallback(w, r, result)
}

func (h *CallbackHandler) complete(ctx context.Context, q url.Values) CallbackResult {
	attempt := q.Get("attempt")
	result := CallbackResult{Attempt: attempt}

	verifier, ok := h.flows.Take(attempt)
	if !ok {
		result.Err = ErrUnknownAttempt
		return result
	}

	if errParam := q.Get("error"); errParam != "" {
		desc := q.Get("error_description")
		return h.fail(result, fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, errParam, desc), desc)
	}

	code := q.Get("code")
	if code == "" {
		return h.fail(result, fmt.Errorf("%w: missing authorization code", shared.ErrAuthFailed), "")
	}

	if h.provider == nil {
		return h.fail(result, fmt.Errorf("%w: auth service is not configured", shared.ErrMissingConfig), "")
	}

	session, err := h.provider.Exchange(ctx, code, verifier)
	if err != nil {
		return h.fail(result, fmt.Errorf("token exchange failed: %w", err), "")
	}

	if h.sessions != nil {
		if err := h.sessions.SetSession(session); err != nil {
			return h.fail(result, fmt.Errorf("failed to store session: %w", err), "")
		}
	}

	if h.profiles != nil && session.User != nil && session.User.Email != "" {
		if err := h.profiles.SetEmail(session.User.ID, session.User.Email); err != nil {
			h.logger.Warn("failed to record profile email", "user", session.User.ID, "error", err)
		}
	}

	result.Session = session
	result.Message = handshake.Message{Type: handshake.AuthSuccess, Attempt: attempt, Origin: h.origin}
	h.publish(result.Message)
	return result
}

func (h *CallbackHandler) fail(result CallbackResult, err error, text string) CallbackResult {
	if text == "" {
		text = handshake.TextAuthFailed
	}
	result.Err = err
	result.Message = handshake.Message{Type: handshake.AuthError, Error: text, Attempt: result.Attempt, Origin: h.origin}
	h.publish(result.Message)
	return result
}

func (h *CallbackHandler) publish(m handshake.Message) {
	if h.bus != nil {
		h.bus.Publish(m)
	}
}
