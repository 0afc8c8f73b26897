package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/verse91/clipy/internal/formatter"
	"github.com/verse91/clipy/internal/handshake"
	"github.com/verse91/clipy/internal/identity"
	"github.com/verse91/clipy/internal/models"
	"github.com/verse91/clipy/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultSignInTimeout = 2 * time.Minute

// SignIn runs the sign-in handshake against the system browser.
//
// A local copy of the web front serves /auth/signin and /auth/callback; the callback hands the result back
// over the message bus to the same modal state machine the web page drives.
func (r *Runner) SignIn(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Identity.Validate(); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := r.newFrontend(ctx, db, false)
	if err != nil {
		return err
	}
	defer f.stop()

	if user := f.auth.User(); user != nil {
		return r.writePlain("Already signed in as %s\n", describeUser(user))
	}

	accepted := cmd.Bool("accept-terms")
	if !accepted {
		if accepted, err = r.confirmTerms(); err != nil {
			return err
		}
	}
	if !accepted {
		return handshake.ErrTermsNotAccepted
	}

	addr := r.config.Server.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	serveCtx, cancelServe := context.WithCancel(ctx)
	served := make(chan error, 1)
	go func() { served <- r.run(serveCtx, ln, f) }()
	defer func() {
		cancelServe()
		if err := <-served; err != nil {
			r.logger.Warn("sign-in server stopped", "error", err)
		}
	}()

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = defaultSignInTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	user, err := r.awaitSignIn(waitCtx, f, cmd.String("user-agent"), timeout)
	if err != nil {
		return err
	}

	r.logger.Info("sign in complete", "user", user.ID)
	r.writePlainln("✓ Signed in as %s", describeUser(user))
	return nil
}

// awaitSignIn drives one sign-in attempt and waits for its outcome.
func (r *Runner) awaitSignIn(ctx context.Context, f *frontend, userAgent string, deadline time.Duration) (*models.User, error) {
	opener := handshake.NewBrowserOpener()
	opener.Launch, opener.Deadline = r.open, deadline
	states := make(chan handshake.State, 32)
	signedIn := make(chan *models.User, 1)

	modal := handshake.NewModal(handshake.Config{
		Origin:     r.config.Server.Origin,
		Opener:     opener,
		Navigator:  opener,
		Authorizer: &identity.Redirector{Client: f.client, Flows: f.flows},
		Bus:        f.bus,
		Logger:     r.logger,
		OnChange: func(s handshake.State) {
			select {
			case states <- s:
			default:
			}
		},
	})
	defer modal.Unmount()

	unsubscribe := f.auth.Subscribe(func(event identity.Event, session *models.Session) {
		var user *models.User
		if session != nil {
			user = session.User
		}
		modal.UserChanged(user)
		if event == identity.SignedIn && user != nil {
			select {
			case signedIn <- user:
			default:
			}
		}
	})
	defer unsubscribe()

	modal.Show()
	modal.Accept(true)

	r.writePlain("→ Opening browser to sign in with Google...\n")
	if err := modal.SignIn(ctx, userAgent); err != nil {
		if errors.Is(err, handshake.ErrPopupBlocked) {
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s/auth/signin\n\n", r.config.Server.Origin)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", deadline)

	started := false
	for {
		select {
		case user := <-signedIn:
			return user, nil
		case s := <-states:
			switch {
			case s.Loading:
				started = true
			case s.Error != "":
				return nil, fmt.Errorf("%w: %s", shared.ErrAuthFailed, s.Error)
			case started && s.Open:
				return nil, fmt.Errorf("%w: sign-in window closed before completing", shared.ErrAuthFailed)
			}
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, deadline)
			}
			return nil, ctx.Err()
		}
	}
}

// confirmTerms prints the terms and asks for acceptance on the runner's input.
func (r *Runner) confirmTerms() (bool, error) {
	terms, err := formatter.ExportTerms(handshake.Terms, formatter.FormatText)
	if err != nil {
		return false, err
	}
	r.writePlainHeader("Terms & Conditions")
	r.writePlain("%s\n", terms)
	r.writePlain("%s [y/N]: ", handshake.AcceptLabel)

	line, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// SignOut revokes and forgets the stored session.
func (r *Runner) SignOut(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	auth, err := r.loadAuth(ctx, db)
	if err != nil {
		return err
	}
	if auth.User() == nil {
		return r.writePlain("Not signed in\n")
	}

	if err := auth.SignOut(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

type whoami struct {
	User      *models.User `json:"user"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
}

// WhoAmI prints the signed-in user.
func (r *Runner) WhoAmI(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	auth, err := r.loadAuth(ctx, db)
	if err != nil {
		return err
	}

	session := auth.Session()
	if session == nil || session.User == nil {
		if cmd.Bool("json") {
			return r.writeJSON(whoami{}, false)
		}
		return r.writePlain("Not signed in\n")
	}

	out := whoami{User: session.User}
	if session.ExpiresAt > 0 {
		t := time.Unix(session.ExpiresAt, 0)
		out.ExpiresAt = &t
	}

	if cmd.Bool("json") {
		return r.writeJSON(out, true)
	}

	r.writePlain("User: %s\n", describeUser(session.User))
	r.writePlain("ID: %s\n", session.User.ID)
	if out.ExpiresAt != nil {
		r.writePlain("Session expires: %s\n", out.ExpiresAt.Format(time.RFC1123))
	}
	return nil
}

func describeUser(u *models.User) string {
	name := u.DisplayName()
	if u.Email != "" && name != u.Email {
		return fmt.Sprintf("%s <%s>", name, u.Email)
	}
	return name
}
