package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/verse91/clipy/internal/clip"
	"github.com/verse91/clipy/internal/credits"
	"github.com/verse91/clipy/internal/handshake"
	"github.com/verse91/clipy/internal/models"
	"github.com/verse91/clipy/internal/server"
	"github.com/verse91/clipy/internal/shared"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// UserSource reports the signed-in user. [*identity.Auth] implements it.
type UserSource interface {
	User() *models.User
	Loading() bool
}

// BalanceSource reports the credit balance of the signed-in user. [*credits.Tracker] implements it.
type BalanceSource interface {
	State() credits.State
}

// SignOuter ends the current session.
type SignOuter interface {
	SignOut(ctx context.Context) error
}

// Options wires [Pages] to the rest of the application. Every source is optional.
type Options struct {
	Origin      string
	CheckoutURL string
	Users       UserSource
	Balance     BalanceSource
	SignOut     SignOuter
	Logger      *log.Logger
}

// Pages serves the HTML routes.
type Pages struct {
	opts Options
	tmpl *template.Template
	mux  chi.Router
}

var funcs = template.FuncMap{
	"checkout": credits.CheckoutURL,
	"linkify":  linkify,
}

// New parses the embedded templates.
func New(opts Options) (*Pages, error) {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.CheckoutURL == "" {
		opts.CheckoutURL = credits.DefaultCheckoutURL
	}
	opts.Origin = strings.TrimRight(opts.Origin, "/")

	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	p := &Pages{opts: opts, tmpl: tmpl}

	mux := chi.NewRouter()
	mux.Get("/", p.index)
	mux.Post("/clip", p.submit)
	mux.Get("/terms", p.terms)
	mux.Post("/auth/signout", p.signOut)
	mux.Handle("/static/*", http.FileServer(http.FS(staticFS)))
	p.mux = mux

	return p, nil
}

// Routes returns the HTTP routes this handler serves.
func (p *Pages) Routes() []string {
	return []string{"/", "/clip", "/terms", "/auth/signout", "/static/*"}
}

// ServeHTTP dispatches to the page handlers.
func (p *Pages) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mux.ServeHTTP(w, r)
}

type drawer struct {
	Title       string
	Description string
	Secondary   string
	Features    []string
	Plans       []credits.Plan
	Default     string
	CheckoutURL string
}

type indexData struct {
	Title       string
	User        *models.User
	Loading     bool
	Credits     credits.State
	Options     clip.Options
	Qualities   []clip.Quality
	Terms       []handshake.TermsSection
	AcceptLabel string
	Drawer      drawer
	Config      template.JS
}

// clientConfig is read by the page script.
type clientConfig struct {
	Origin         string `json:"origin"`
	PopupWidth     int    `json:"popupWidth"`
	PopupHeight    int    `json:"popupHeight"`
	PollMS         int64  `json:"pollMs"`
	CloseMS        int64  `json:"closeMs"`
	ProcessingMS   int64  `json:"processingMs"`
	TextBlocked    string `json:"textBlocked"`
	TextUnexpected string `json:"textUnexpected"`
	TextAuthFailed string `json:"textAuthFailed"`
	SignedIn       bool   `json:"signedIn"`
}

func (p *Pages) index(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Title:       "Clippy",
		Options:     clip.DefaultOptions(),
		Qualities:   clip.Qualities,
		Terms:       handshake.Terms,
		AcceptLabel: handshake.AcceptLabel,
		Drawer: drawer{
			Title:       credits.DrawerTitle,
			Description: credits.DrawerDescription,
			Secondary:   credits.SecondaryAction,
			Features:    credits.Features,
			Plans:       credits.Plans,
			Default:     credits.DefaultPlan().ID,
			CheckoutURL: p.opts.CheckoutURL,
		},
	}
	if p.opts.Users != nil {
		data.User = p.opts.Users.User()
		data.Loading = p.opts.Users.Loading()
	}
	if data.User != nil && p.opts.Balance != nil {
		data.Credits = p.opts.Balance.State()
	}

	cfg, err := json.Marshal(clientConfig{
		Origin:         p.opts.Origin,
		PopupWidth:     handshake.PopupWidth,
		PopupHeight:    handshake.PopupHeight,
		PollMS:         handshake.DefaultPollInterval.Milliseconds(),
		CloseMS:        handshake.DefaultCloseDelay.Milliseconds(),
		ProcessingMS:   clip.ProcessingDelay.Milliseconds(),
		TextBlocked:    handshake.TextPopupBlocked,
		TextUnexpected: handshake.TextUnexpectedError,
		TextAuthFailed: handshake.TextAuthFailed,
		SignedIn:       data.User != nil,
	})
	if err != nil {
		p.fail(w, err)
		return
	}
	data.Config = template.JS(cfg)

	p.render(w, http.StatusOK, "index.html", data)
}

type noticeData struct {
	Verdict string
	Notice  clip.Notice
	Options clip.Options
	DelayMS int64
}

// submit validates the submitted link and renders the notice fragment.
func (p *Pages) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		p.render(w, http.StatusBadRequest, "notice.html", noticeData{Notice: clip.NoticeFor(clip.NotYouTube)})
		return
	}

	value := r.PostForm.Get("url")
	if strings.TrimSpace(value) == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	opts := clip.DefaultOptions()
	if q, ok := clip.ParseQuality(r.PostForm.Get("quality")); ok {
		opts = opts.WithQuality(q)
	}
	opts.SponsorBlock = r.PostForm.Get("sponsorblock") != ""
	opts = opts.WithThumbnail(r.PostForm.Get("thumbnail") != "")

	verdict := clip.Classify(value)
	p.opts.Logger.Debug("clip submitted", "verdict", verdict, "quality", opts.Quality)

	p.render(w, http.StatusOK, "notice.html", noticeData{
		Verdict: verdict.String(),
		Notice:  clip.NoticeFor(verdict),
		Options: opts,
		DelayMS: clip.ProcessingDelay.Milliseconds(),
	})
}

func (p *Pages) terms(w http.ResponseWriter, r *http.Request) {
	p.render(w, http.StatusOK, "terms.html", indexData{
		Title:       "Terms & Conditions",
		Terms:       handshake.Terms,
		AcceptLabel: handshake.AcceptLabel,
	})
}

func (p *Pages) signOut(w http.ResponseWriter, r *http.Request) {
	if !p.sameOrigin(r) {
		p.opts.Logger.Warn("rejected cross-origin sign out", "origin", r.Header.Get("Origin"), "referer", r.Referer())
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	if p.opts.SignOut != nil {
		if err := p.opts.SignOut.SignOut(r.Context()); err != nil {
			p.opts.Logger.Error("sign out failed", "error", err)
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// sameOrigin reports whether r was sent by a page of this site.
// Origin is checked first, then Referer. Requests carrying neither are let through.
func (p *Pages) sameOrigin(r *http.Request) bool {
	if origin := r.Header.Get("Origin"); origin != "" {
		return strings.TrimRight(origin, "/") == p.opts.Origin
	}
	if ref := r.Referer(); ref != "" {
		return ref == p.opts.Origin || strings.HasPrefix(ref, p.opts.Origin+"/")
	}
	return true
}

type callbackData struct {
	Title   string
	Success bool
	Error   string
	Message template.JS
	Origin  string
}

// RenderCallback writes the page that reports the outcome to the opener window and closes itself.
//
// Without an opener the page navigates home.
func (p *Pages) RenderCallback(w http.ResponseWriter, r *http.Request, result server.CallbackResult) {
	data := callbackData{Title: "Completing sign in...", Success: result.Err == nil, Origin: p.opts.Origin}

	status := http.StatusOK
	if result.Err != nil {
		data.Error = result.Message.Error
		if data.Error == "" {
			data.Error = handshake.TextAuthFailed
		}
		status = http.StatusBadRequest
	}

	var msg []byte
	if result.Message.Type != "" {
		var err error
		if msg, err = json.Marshal(result.Message); err != nil {
			p.fail(w, err)
			return
		}
	} else {
		msg = []byte("null")
	}
	data.Message = template.JS(msg)

	p.render(w, status, "callback.html", data)
}

func (p *Pages) render(w http.ResponseWriter, status int, name string, data any) {
	var buf strings.Builder
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		p.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, buf.String())
}

func (p *Pages) fail(w http.ResponseWriter, err error) {
	p.opts.Logger.Error("failed to render page", "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// linkify escapes text and turns the support address into a mailto link.
func linkify(text string) template.HTML {
	escaped := template.HTMLEscapeString(text)
	link := fmt.Sprintf(`<a href="mailto:%[1]s">%[1]s</a>`, handshake.SupportEmail)
	return template.HTML(strings.ReplaceAll(escaped, handshake.SupportEmail, link))
}
