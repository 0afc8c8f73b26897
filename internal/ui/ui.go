package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/verse91/clipy/internal/clip"
	"github.com/verse91/clipy/internal/credits"
	"github.com/verse91/clipy/internal/models"
	"github.com/verse91/clipy/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ChatView ViewState = iota
	DrawerView
)

// Balance is the credits hook the drawer reads. [*credits.Tracker] implements it.
type Balance interface {
	SetUser(ctx context.Context, userID, accessToken string) credits.State
	Refetch(ctx context.Context) credits.State
	State() credits.State
}

// Options wires the [Model]. Every field is optional.
type Options struct {
	User        *models.User
	AccessToken string
	Balance     Balance
	CheckoutURL string
	// Open launches a URL in the system browser. Defaults to [shared.OpenBrowser].
	Open   func(url string) error
	Logger *log.Logger
	// Box replaces the chat box, mainly to shorten the processing delay.
	Box func(opts ...clip.BoxOption) *clip.Box
}

// Model represents the TUI application state.
type Model struct {
	ctx  context.Context
	opts Options
	view ViewState

	box     *clip.Box
	changed chan struct{}
	chat    clip.State
	input   textinput.Model
	spinner spinner.Model

	balance credits.State
	plans   list.Model
	status  string

	width  int
	height int
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model showing the chat view.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Open == nil {
		opts.Open = shared.OpenBrowser
	}
	if opts.CheckoutURL == "" {
		opts.CheckoutURL = credits.DefaultCheckoutURL
	}
	if opts.Box == nil {
		opts.Box = clip.NewBox
	}

	m := &Model{
		ctx:     ctx,
		opts:    opts,
		view:    ChatView,
		changed: make(chan struct{}, 1),
		help:    help.New(),
		keys:    newKeyMap(),
		plans:   newPlanList(credits.Plans),
	}

	m.box = opts.Box(clip.WithOnChange(m.signal), clip.WithLogger(opts.Logger))
	m.chat = m.box.Snapshot()

	m.input = textinput.New()
	m.input.Placeholder = "Paste a YouTube link..."
	m.input.Prompt = "› "
	m.input.CharLimit = 2048
	m.input.Focus()

	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.ok))
	return m
}

// signal coalesces box notifications. The model re-reads the snapshot when it drains the channel.
func (m *Model) signal(clip.State) {
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

// Init starts listening for chat box changes and fetches the balance of the signed-in user.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.waitForChat()}
	if m.opts.User != nil && m.opts.Balance != nil {
		cmds = append(cmds, m.fetchBalance(false))
	}
	return tea.Batch(cmds...)
}

// Close stops the chat box timer.
func (m *Model) Close() {
	m.box.Close()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-6, 10)
		m.plans.SetSize(max(msg.Width-4, 20), max(msg.Height-10, 8))
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.Close()
			return m, tea.Quit
		}
		switch m.view {
		case ChatView:
			return m.handleChatKeys(msg)
		case DrawerView:
			return m.handleDrawerKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)

	case spinner.TickMsg:
		if !m.chat.Processing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	if m.view == ChatView {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgChatChanged:
		state := msg.data.(clip.State)
		started := state.Processing && !m.chat.Processing
		m.chat = state

		cmds := []tea.Cmd{m.waitForChat()}
		if state.Processing {
			m.input.Blur()
		} else {
			if state.Value == "" && m.input.Value() != "" {
				m.input.Reset()
			}
			cmds = append(cmds, m.input.Focus())
		}
		if started {
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case MsgBalanceFetched:
		m.balance = msg.data.(credits.State)
		return m, nil

	case MsgCheckoutOpened:
		data := msg.data.(struct {
			url string
			err error
		})
		if data.err != nil {
			m.opts.Logger.Warn("failed to open checkout", "error", data.err)
			m.status = "Open this link to buy credits: " + data.url
		} else {
			m.status = "Checkout opened in your browser"
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.submit):
		m.box.Submit()
		return m, nil
	case key.Matches(msg, m.keys.quality):
		m.box.SetQuality(nextQuality(m.chat.Options.Quality))
		return m, nil
	case key.Matches(msg, m.keys.sponsorBlock):
		m.box.SetSponsorBlock(!m.chat.Options.SponsorBlock)
		return m, nil
	case key.Matches(msg, m.keys.thumbnail):
		m.box.SetThumbnail(!m.chat.Options.Thumbnail)
		return m, nil
	case key.Matches(msg, m.keys.drawer):
		m.view = DrawerView
		m.status = ""
		m.input.Blur()
		return m, nil
	}

	if m.chat.Processing {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != m.chat.Value {
		m.box.SetValue(v)
	}
	return m, cmd
}

func (m *Model) handleDrawerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back), msg.String() == "q":
		m.view = ChatView
		if m.chat.Processing {
			return m, nil
		}
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.buy):
		if item, ok := m.plans.SelectedItem().(planItem); ok {
			return m, m.openCheckout(item.plan)
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		if m.opts.User == nil || m.opts.Balance == nil {
			return m, nil
		}
		m.balance.Loading = true
		return m, m.fetchBalance(true)
	}

	var cmd tea.Cmd
	m.plans, cmd = m.plans.Update(msg)
	return m, cmd
}

func nextQuality(q clip.Quality) clip.Quality {
	for i, candidate := range clip.Qualities {
		if candidate == q {
			return clip.Qualities[(i+1)%len(clip.Qualities)]
		}
	}
	return clip.QualityAuto
}

func (m *Model) waitForChat() tea.Cmd {
	return func() tea.Msg {
		<-m.changed
		return chatChangedMsg(m.box.Snapshot())
	}
}

func (m *Model) fetchBalance(refetch bool) tea.Cmd {
	user, token, balance := m.opts.User, m.opts.AccessToken, m.opts.Balance
	return func() tea.Msg {
		if refetch {
			return balanceFetchedMsg(balance.Refetch(m.ctx))
		}
		return balanceFetchedMsg(balance.SetUser(m.ctx, user.ID, token))
	}
}

func (m *Model) openCheckout(plan credits.Plan) tea.Cmd {
	target := credits.CheckoutURL(m.opts.CheckoutURL, plan)
	open := m.opts.Open
	return func() tea.Msg {
		return checkoutOpenedMsg(target, open(target))
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ChatView:
		return m.renderChat()
	case DrawerView:
		return m.renderDrawer()
	default:
		return ""
	}
}

func (m *Model) renderHeader() string {
	right := styles.help.Render("not signed in")
	if m.opts.User != nil {
		right = fmt.Sprintf("%s • %s", m.opts.User.DisplayName(), m.renderBalance())
	}
	return fmt.Sprintf("%s  %s", styles.title.Render("Clippy"), right)
}

func (m *Model) renderBalance() string {
	switch {
	case m.balance.Loading:
		return styles.help.Render("loading credits...")
	case m.balance.Error != "":
		return styles.err.Render(m.balance.Error)
	default:
		return styles.ok.Render(fmt.Sprintf("%d credits", m.balance.UserCredits))
	}
}

func (m *Model) renderChat() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(styles.title.Render("From seconds to sensations."))
	b.WriteString("\n")
	b.WriteString(styles.help.Render("Turn raw clips into viral hits with Clippy"))
	b.WriteString("\n\n")
	b.WriteString(styles.box.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderOptions())
	b.WriteString("\n\n")

	if n := m.chat.Notice; n != nil {
		if n.Typing {
			b.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), styles.ok.Render(n.Text)))
		} else {
			b.WriteString(styles.warn.Render(n.Text))
		}
		b.WriteString("\n\n")
	}

	b.WriteString(m.help.ShortHelpView(m.keys.chatHelp()))
	return b.String()
}

func (m *Model) renderOptions() string {
	opts := m.chat.Options
	thumb := checkbox(opts.Thumbnail)
	if !opts.ThumbnailAllowed() {
		thumb = styles.help.Render("[-]")
	}
	return fmt.Sprintf("%s  %s SponsorBlock  %s Thumbnail",
		styles.warn.Render(opts.Quality.Label()), checkbox(opts.SponsorBlock), thumb)
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m *Model) renderDrawer() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(styles.help.Render(credits.DrawerDescription))
	b.WriteString("\n")
	for _, f := range credits.Features {
		b.WriteString("  • " + f + "\n")
	}
	b.WriteString("\n")
	b.WriteString(m.plans.View())
	b.WriteString("\n")

	if item, ok := m.plans.SelectedItem().(planItem); ok {
		label := styles.badge.Render(item.plan.BuyLabel())
		if off := item.plan.DiscountLabel(); off != "" {
			label += " " + styles.strike.Render(item.plan.OriginalPriceLabel()) + " " + styles.ok.Render(off)
		}
		b.WriteString(label + "\n")
	}
	if m.status != "" {
		b.WriteString(styles.warn.Render(m.status) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.drawerHelp()))
	return b.String()
}
