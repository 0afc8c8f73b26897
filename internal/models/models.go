package models

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

var ErrInvalidProfile = errors.New("invalid profile")

// User is an authenticated account as reported by the auth service.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// DisplayName prefers the provider's full name, then name, then the email address.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	for _, key := range []string{"full_name", "name"} {
		if v, ok := u.UserMetadata[key].(string); ok && v != "" {
			return v
		}
	}
	return u.Email
}

// AvatarURL returns the provider avatar, if any.
func (u *User) AvatarURL() string {
	if u == nil {
		return ""
	}
	if v, ok := u.UserMetadata["avatar_url"].(string); ok {
		return v
	}
	return ""
}

// Session is the token set returned by the auth service after a code exchange or refresh.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// Token converts the session to an [oauth2.Token], filling the expiry from ExpiresAt or ExpiresIn.
func (s *Session) Token() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		RefreshToken: s.RefreshToken,
	}
	switch {
	case s.ExpiresAt > 0:
		t.Expiry = time.Unix(s.ExpiresAt, 0)
	case s.ExpiresIn > 0:
		t.Expiry = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return t
}

// Valid reports whether the session carries a non-expired access token.
func (s *Session) Valid() bool {
	return s != nil && s.Token().Valid()
}

// Stamp fills ExpiresAt from ExpiresIn when the service only sent the latter.
func (s *Session) Stamp(now time.Time) {
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = now.Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
}

// Profile is the persisted credit balance of a user.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Credits   int       `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the profile has an id and a non-negative balance.
func (p *Profile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidProfile)
	}
	if p.Credits < 0 {
		return fmt.Errorf("%w: credits cannot be negative", ErrInvalidProfile)
	}
	return nil
}
