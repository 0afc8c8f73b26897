package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verse91/clipy/internal/clip"
	"github.com/verse91/clipy/internal/credits"
	"github.com/verse91/clipy/internal/models"
	"github.com/verse91/clipy/internal/shared"
)

type fakeBalance struct {
	state    credits.State
	userID   string
	refetches int
}

func (f *fakeBalance) SetUser(_ context.Context, userID, _ string) credits.State {
	f.userID = userID
	return f.state
}

func (f *fakeBalance) Refetch(context.Context) credits.State {
	f.refetches++
	return f.state
}

func (f *fakeBalance) State() credits.State { return f.state }

func newTestModel(t *testing.T, opts Options) *Model {
	t.Helper()
	opts.Logger = shared.NewLogger(&bytes.Buffer{})
	opts.Box = func(o ...clip.BoxOption) *clip.Box {
		return clip.NewBox(append(o, clip.WithDelay(20*time.Millisecond))...)
	}
	if opts.Open == nil {
		opts.Open = func(string) error { return nil }
	}
	m := NewModel(context.Background(), opts)
	t.Cleanup(m.Close)
	return m
}

func press(m *Model, msg tea.KeyMsg) tea.Cmd {
	_, cmd := m.Update(msg)
	return cmd
}

func typeText(m *Model, s string) {
	press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// drain applies the next chat box change to the model.
func drain(t *testing.T, m *Model) {
	t.Helper()
	done := make(chan tea.Msg, 1)
	go func() { done <- m.waitForChat()() }()
	select {
	case msg := <-done:
		m.Update(msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for chat box change")
	}
}

func TestChat(t *testing.T) {
	t.Run("Typing Updates Box", func(t *testing.T) {
		m := newTestModel(t, Options{})
		typeText(m, "youtu.be/abc")

		if got := m.box.Snapshot().Value; got != "youtu.be/abc" {
			t.Errorf("expected box value youtu.be/abc, got %q", got)
		}
	})

	t.Run("Submit Accepted", func(t *testing.T) {
		m := newTestModel(t, Options{})
		typeText(m, "https://youtube.com/watch?v=abc")
		press(m, tea.KeyMsg{Type: tea.KeyEnter})
		drain(t, m)

		if !m.chat.Processing {
			t.Fatal("expected processing state")
		}
		if m.input.Focused() {
			t.Error("expected input to be blurred while processing")
		}
		if view := m.View(); !strings.Contains(view, clip.TextProcessing) {
			t.Errorf("expected processing notice in view, got %q", view)
		}

		drain(t, m)
		if m.chat.Processing || m.chat.Notice != nil {
			t.Errorf("expected processing to finish, got %+v", m.chat)
		}
		if m.input.Value() != "" {
			t.Errorf("expected input to be cleared, got %q", m.input.Value())
		}
	})

	t.Run("Submit Rejected", func(t *testing.T) {
		tc := []struct {
			name  string
			input string
			want  string
		}{
			{name: "not youtube", input: "https://vimeo.com/1", want: clip.TextNotYouTube},
			{name: "playlist", input: "youtube.com/watch?v=a&list=PL", want: clip.TextPlaylist},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				m := newTestModel(t, Options{})
				typeText(m, tt.input)
				press(m, tea.KeyMsg{Type: tea.KeyEnter})
				drain(t, m)

				if m.chat.Notice == nil || m.chat.Notice.Text != tt.want {
					t.Fatalf("expected notice %q, got %+v", tt.want, m.chat.Notice)
				}
				if m.chat.Notice.Typing {
					t.Error("rejected links must not show the typing indicator")
				}
			})
		}
	})

	t.Run("Blank Submit Ignored", func(t *testing.T) {
		m := newTestModel(t, Options{})
		press(m, tea.KeyMsg{Type: tea.KeyEnter})

		if m.box.Snapshot().Processing {
			t.Error("blank input should not start processing")
		}
	})

	t.Run("Option Toggles", func(t *testing.T) {
		m := newTestModel(t, Options{})

		press(m, tea.KeyMsg{Type: tea.KeyCtrlS})
		drain(t, m)
		if m.chat.Options.SponsorBlock {
			t.Error("expected sponsorblock to be toggled off")
		}

		press(m, tea.KeyMsg{Type: tea.KeyCtrlT})
		drain(t, m)
		if !m.chat.Options.Thumbnail {
			t.Error("expected thumbnail to be toggled on")
		}

		press(m, tea.KeyMsg{Type: tea.KeyTab})
		drain(t, m)
		if m.chat.Options.Quality != clip.QualityAudioOnly {
			t.Errorf("expected audio-only, got %s", m.chat.Options.Quality)
		}
		if m.chat.Options.Thumbnail {
			t.Error("audio only output must turn the thumbnail off")
		}
		if !strings.Contains(m.View(), "[-] Thumbnail") {
			t.Error("expected disabled thumbnail toggle")
		}
	})
}

func TestNextQuality(t *testing.T) {
	tc := []struct {
		in   clip.Quality
		want clip.Quality
	}{
		{clip.QualityAuto, clip.QualityAudioOnly},
		{clip.QualityAudioOnly, clip.QualityMute},
		{clip.QualityMute, clip.QualityAuto},
		{clip.Quality("8k"), clip.QualityAuto},
	}

	for _, tt := range tc {
		if got := nextQuality(tt.in); got != tt.want {
			t.Errorf("nextQuality(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDrawer(t *testing.T) {
	user := &models.User{ID: "u1", Email: "ada@example.com"}

	t.Run("Plans And Default", func(t *testing.T) {
		m := newTestModel(t, Options{})
		press(m, tea.KeyMsg{Type: tea.KeyCtrlO})

		if m.view != DrawerView {
			t.Fatalf("expected drawer view, got %v", m.view)
		}
		view := m.View()
		for _, want := range []string{credits.DrawerTitle, "250 credits • $14.99", "Buy 250 credits", "not signed in"} {
			if !strings.Contains(view, want) {
				t.Errorf("expected drawer to contain %q", want)
			}
		}

		press(m, tea.KeyMsg{Type: tea.KeyEsc})
		if m.view != ChatView {
			t.Errorf("expected chat view after esc, got %v", m.view)
		}
	})

	t.Run("Checkout", func(t *testing.T) {
		var opened string
		m := newTestModel(t, Options{
			CheckoutURL: "https://pay.example/checkout",
			Open:        func(u string) error { opened = u; return nil },
		})
		press(m, tea.KeyMsg{Type: tea.KeyCtrlO})
		cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
		if cmd == nil {
			t.Fatal("expected checkout command")
		}
		m.Update(cmd())

		if opened != "https://pay.example/checkout?credits=250&plan=popular" {
			t.Errorf("unexpected checkout url %q", opened)
		}
		if !strings.Contains(m.View(), "Checkout opened") {
			t.Error("expected checkout status")
		}
	})

	t.Run("Checkout Open Failure", func(t *testing.T) {
		m := newTestModel(t, Options{Open: func(string) error { return errors.New("no display") }})
		press(m, tea.KeyMsg{Type: tea.KeyCtrlO})
		m.Update(press(m, tea.KeyMsg{Type: tea.KeyEnter})())

		if !strings.Contains(m.status, credits.DefaultCheckoutURL) {
			t.Errorf("expected the link in the status, got %q", m.status)
		}
	})

	t.Run("Balance", func(t *testing.T) {
		balance := &fakeBalance{state: credits.State{UserCredits: 42}}
		m := newTestModel(t, Options{User: user, AccessToken: "tok", Balance: balance})

		m.Update(m.fetchBalance(false)())
		if balance.userID != "u1" {
			t.Errorf("expected balance for u1, got %q", balance.userID)
		}
		if !strings.Contains(m.View(), "42 credits") {
			t.Error("expected balance in header")
		}

		press(m, tea.KeyMsg{Type: tea.KeyCtrlO})
		balance.state = credits.State{Error: "Failed to fetch user credits: 500"}
		cmd := press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
		if !m.balance.Loading {
			t.Error("expected loading while refreshing")
		}
		m.Update(cmd())

		if balance.refetches != 1 {
			t.Errorf("expected 1 refetch, got %d", balance.refetches)
		}
		if !strings.Contains(m.View(), "Failed to fetch user credits: 500") {
			t.Error("expected balance error in header")
		}
	})
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, Options{})
	cmd := press(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
