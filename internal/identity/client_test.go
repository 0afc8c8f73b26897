package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/verse91/clipy/internal/shared"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(shared.IdentityConfig{URL: srv.URL, AnonKey: "anon"}, srv.Client())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func TestNewClient(t *testing.T) {
	t.Run("Rejects Placeholders", func(t *testing.T) {
		_, err := NewClient(shared.IdentityConfig{URL: shared.PlaceholderURL, AnonKey: shared.PlaceholderAnonKey}, nil)
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Defaults Provider", func(t *testing.T) {
		c, err := NewClient(shared.IdentityConfig{URL: "https://abc.supabase.co/", AnonKey: "k"}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if c.Provider() != "google" {
			t.Errorf("expected google provider, got %s", c.Provider())
		}
	})
}

func TestAuthorizeURL(t *testing.T) {
	c, err := NewClient(shared.IdentityConfig{URL: "https://abc.supabase.co", AnonKey: "k"}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	raw := c.AuthorizeURL("http://localhost:3000/auth/callback?attempt=a1", "verifier-verifier-verifier-verifier-verifier")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid url: %v", err)
	}

	if u.Host != "abc.supabase.co" || u.Path != "/auth/v1/authorize" {
		t.Errorf("unexpected endpoint %s", raw)
	}

	q := u.Query()
	expect := map[string]string{
		"provider":              "google",
		"redirect_to":           "http://localhost:3000/auth/callback?attempt=a1",
		"access_type":           "offline",
		"prompt":                "consent",
		"code_challenge_method": "S256",
	}
	for k, v := range expect {
		if got := q.Get(k); got != v {
			t.Errorf("expected %s=%q, got %q", k, v, got)
		}
	}
	if q.Get("code_challenge") == "" {
		t.Error("expected a code challenge")
	}
	if q.Has("state") {
		t.Error("state is managed by the auth service and should not be sent")
	}
}

func TestClientExchange(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "pkce" {
				t.Errorf("unexpected request %s", r.URL)
			}
			if r.Header.Get("apikey") != "anon" {
				t.Errorf("expected apikey header")
			}

			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["auth_code"] != "code-1" || body["code_verifier"] != "v1" {
				t.Errorf("unexpected body %v", body)
			}

			w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"token_type":"bearer","user":{"id":"u1","email":"a@b.c"}}`))
		})

		s, err := c.Exchange(context.Background(), "code-1", "v1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.AccessToken != "at" || s.User == nil || s.User.ID != "u1" {
			t.Errorf("unexpected session %+v", s)
		}
	})

	t.Run("Error Body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"code verifier mismatch"}`))
		})

		_, err := c.Exchange(context.Background(), "code-1", "v1")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if err == nil || !strings.Contains(err.Error(), "code verifier mismatch") {
			t.Errorf("expected service message in error, got %v", err)
		}
	})

	t.Run("Missing Code", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})
		if _, err := c.Exchange(context.Background(), "", "v"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestClientUserAndSignOut(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		switch r.URL.Path {
		case "/auth/v1/user":
			w.Write([]byte(`{"id":"u1","email":"a@b.c","user_metadata":{"full_name":"Ada"}}`))
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	u, err := c.User(context.Background(), "at")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if u.DisplayName() != "Ada" {
		t.Errorf("expected Ada, got %s", u.DisplayName())
	}

	if err := c.SignOut(context.Background(), "at"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	_, err = c.User(context.Background(), "bad")
	if !IsUnauthorized(err) {
		t.Errorf("expected unauthorized error, got %v", err)
	}
}

func TestClientRefresh(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") != "refresh_token" {
			t.Errorf("unexpected grant type %s", r.URL.Query().Get("grant_type"))
		}
		w.Write([]byte(`{"access_token":"at2","refresh_token":"rt2","expires_in":3600}`))
	})

	if _, err := c.Refresh(context.Background(), ""); !errors.Is(err, shared.ErrNoRefreshToken) {
		t.Errorf("expected ErrNoRefreshToken, got %v", err)
	}

	s, err := c.Refresh(context.Background(), "rt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.AccessToken != "at2" {
		t.Errorf("expected at2, got %s", s.AccessToken)
	}
}
