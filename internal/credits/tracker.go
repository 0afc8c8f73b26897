package credits

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Fetcher reads a credit balance. [*Client] implements it.
type Fetcher interface {
	Credits(ctx context.Context, userID, accessToken string) (int, error)
}

// State is what the credits widgets render.
type State struct {
	UserCredits int    `json:"user_credits"`
	Loading     bool   `json:"loading"`
	Error       string `json:"error,omitempty"`
}

// Tracker keeps the balance of the current user up to date.
//
// Errors are recorded in the state as display strings with the balance reset to zero.
type Tracker struct {
	fetcher  Fetcher
	logger   *log.Logger
	onChange func(State)

	mu     sync.Mutex
	state  State
	userID string
	token  string
}

// NewTracker creates a tracker with no user. onChange may be nil.
func NewTracker(fetcher Fetcher, logger *log.Logger, onChange func(State)) *Tracker {
	return &Tracker{fetcher: fetcher, logger: logger, onChange: onChange}
}

// State returns a copy of the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetUser switches the tracked user and fetches the balance when the user changed.
func (t *Tracker) SetUser(ctx context.Context, userID, accessToken string) State {
	t.mu.Lock()
	changed := userID != t.userID
	t.userID = userID
	t.token = accessToken
	t.mu.Unlock()

	if !changed {
		return t.State()
	}
	return t.Refetch(ctx)
}

// Refetch fetches the balance of the current user.
func (t *Tracker) Refetch(ctx context.Context) State {
	t.mu.Lock()
	userID, token := t.userID, t.token
	if userID == "" {
		t.state = State{}
		s := t.state
		t.mu.Unlock()
		t.notify(s)
		return s
	}
	t.state.Loading = true
	t.state.Error = ""
	s := t.state
	t.mu.Unlock()
	t.notify(s)

	n, err := t.fetcher.Credits(ctx, userID, token)

	t.mu.Lock()
	if userID != t.userID {
		s = t.state
		t.mu.Unlock()
		return s
	}
	t.state = State{UserCredits: n}
	if err != nil {
		t.state = State{Error: errorText(err)}
		if t.logger != nil {
			t.logger.Error(t.state.Error)
		}
	}
	s = t.state
	t.mu.Unlock()

	t.notify(s)
	return s
}

func errorText(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("Failed to fetch user credits: %d", se.StatusCode)
	}
	return fmt.Sprintf("Error fetching user credits: %v", err)
}

func (t *Tracker) notify(s State) {
	if t.onChange != nil {
		t.onChange(s)
	}
}
