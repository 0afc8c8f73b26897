package identity

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/verse91/clipy/internal/shared"
)

// DefaultFlowTTL is how long a pending sign-in keeps its PKCE verifier.
const DefaultFlowTTL = 10 * time.Minute

type flow struct {
	verifier string
	created  time.Time
}

// Flows holds the PKCE verifiers of sign-in attempts awaiting their callback, keyed by attempt token.
type Flows struct {
	mu    sync.Mutex
	items map[string]flow
	ttl   time.Duration
	now   func() time.Time
}

// NewFlows creates an empty store. A non-positive ttl uses [DefaultFlowTTL].
func NewFlows(ttl time.Duration) *Flows {
	if ttl <= 0 {
		ttl = DefaultFlowTTL
	}
	return &Flows{items: make(map[string]flow), ttl: ttl, now: time.Now}
}

// Begin generates and stores a fresh verifier for attempt.
func (f *Flows) Begin(attempt string) string {
	verifier := oauth2.GenerateVerifier()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweepLocked()
	f.items[attempt] = flow{verifier: verifier, created: f.now()}
	return verifier
}

// Take removes and returns the verifier for attempt. Expired or unknown attempts report false.
func (f *Flows) Take(attempt string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fl, ok := f.items[attempt]
	if !ok {
		return "", false
	}
	delete(f.items, attempt)
	if f.now().Sub(fl.created) > f.ttl {
		return "", false
	}
	return fl.verifier, true
}

// Pending reports whether attempt is waiting for its callback.
func (f *Flows) Pending(attempt string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl, ok := f.items[attempt]
	return ok && f.now().Sub(fl.created) <= f.ttl
}

func (f *Flows) sweepLocked() {
	now := f.now()
	for k, fl := range f.items {
		if now.Sub(fl.created) > f.ttl {
			delete(f.items, k)
		}
	}
}

// CallbackURL appends the attempt token to the callback route.
func CallbackURL(callback, attempt string) string {
	u, err := url.Parse(callback)
	if err != nil {
		return callback
	}
	q := u.Query()
	q.Set("attempt", attempt)
	u.RawQuery = q.Encode()
	return u.String()
}

// Redirector builds provider URLs for the same-window sign-in flow.
type Redirector struct {
	Client *Client
	Flows  *Flows
}

// AuthorizeURL starts a new attempt and returns the provider URL that redirects back to redirectTo.
func (r *Redirector) AuthorizeURL(_ context.Context, redirectTo string) (string, error) {
	attempt := shared.GenerateID()
	verifier := r.Flows.Begin(attempt)
	return r.Client.AuthorizeURL(CallbackURL(redirectTo, attempt), verifier), nil
}
