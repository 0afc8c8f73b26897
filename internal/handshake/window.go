package handshake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/verse91/clipy/internal/shared"
)

var ErrPopupBlocked = errors.New("popup blocked")

const (
	PopupWidth  = 400
	PopupHeight = 500

	// DefaultWindowDeadline bounds how long a browser window counts as open.
	DefaultWindowDeadline = 2 * time.Minute
)

// Window is a handle to the secondary sign-in window.
type Window interface {
	Closed() bool
	Close() error
}

// Features describe the popup geometry.
type Features struct {
	Width  int
	Height int
	Left   int
	Top    int
}

// Centered returns the popup features for a window centered on a screen of the given size.
func Centered(screenWidth, screenHeight int) Features {
	return Features{
		Width:  PopupWidth,
		Height: PopupHeight,
		Left:   (screenWidth - PopupWidth) / 2,
		Top:    (screenHeight - PopupHeight) / 2,
	}
}

func (f Features) String() string {
	return fmt.Sprintf("width=%d,height=%d,left=%d,top=%d,scrollbars=yes,resizable=yes", f.Width, f.Height, f.Left, f.Top)
}

// Opener opens the secondary window. A nil window or [ErrPopupBlocked] means the popup was blocked.
type Opener interface {
	Open(ctx context.Context, url string, features Features) (Window, error)
}

// Navigator sends the current window to url.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// Authorizer builds the identity provider URL for the redirect flow.
type Authorizer interface {
	AuthorizeURL(ctx context.Context, redirectTo string) (string, error)
}

// BrowserOpener opens sign-in windows in the system browser.
//
// The browser gives no handle back, so the window reports closed once its deadline passes or [Window.Close] is called.
type BrowserOpener struct {
	Launch   func(url string) error
	Deadline time.Duration
}

// NewBrowserOpener creates a [BrowserOpener] using [shared.OpenBrowser].
func NewBrowserOpener() *BrowserOpener {
	return &BrowserOpener{Launch: shared.OpenBrowser, Deadline: DefaultWindowDeadline}
}

// Open launches the browser. A launch failure is reported as [ErrPopupBlocked].
func (o *BrowserOpener) Open(ctx context.Context, url string, _ Features) (Window, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := o.Launch(url); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPopupBlocked, err)
	}
	deadline := o.Deadline
	if deadline <= 0 {
		deadline = DefaultWindowDeadline
	}
	return &browserWindow{deadline: time.Now().Add(deadline)}, nil
}

// Navigate implements [Navigator] by opening url in the system browser.
func (o *BrowserOpener) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return o.Launch(url)
}

type browserWindow struct {
	mu       sync.Mutex
	deadline time.Time
	closed   bool
}

func (w *browserWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed || time.Now().After(w.deadline)
}

func (w *browserWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// OpenerFunc adapts a function to [Opener].
type OpenerFunc func(ctx context.Context, url string, features Features) (Window, error)

func (f OpenerFunc) Open(ctx context.Context, url string, features Features) (Window, error) {
	return f(ctx, url, features)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(ctx context.Context, url string) error

func (f NavigatorFunc) Navigate(ctx context.Context, url string) error { return f(ctx, url) }

// AuthorizerFunc adapts a function to [Authorizer].
type AuthorizerFunc func(ctx context.Context, redirectTo string) (string, error)

func (f AuthorizerFunc) AuthorizeURL(ctx context.Context, redirectTo string) (string, error) {
	return f(ctx, redirectTo)
}
