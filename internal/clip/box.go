package clip

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// ProcessingDelay is how long a submission stays in the processing state.
const ProcessingDelay = 2 * time.Second

// State is a snapshot of the chat box.
type State struct {
	Value      string  `json:"value"`
	Processing bool    `json:"processing"`
	Notice     *Notice `json:"notice,omitempty"`
	Options    Options `json:"options"`
}

// CanSubmit reports whether the send control is enabled.
func (s State) CanSubmit() bool {
	return !s.Processing && strings.TrimSpace(s.Value) != ""
}

// Box holds the chat box state and runs the simulated processing timer.
//
// onChange receives a copy of the state after every change and is called without the lock held.
type Box struct {
	mu       sync.Mutex
	state    State
	delay    time.Duration
	timer    *time.Timer
	closed   bool
	onChange func(State)
	logger   *log.Logger
}

// BoxOption configures a [Box].
type BoxOption func(*Box)

// WithDelay overrides [ProcessingDelay].
func WithDelay(d time.Duration) BoxOption {
	return func(b *Box) { b.delay = d }
}

// WithOnChange registers the state listener.
func WithOnChange(fn func(State)) BoxOption {
	return func(b *Box) { b.onChange = fn }
}

// WithLogger sets the logger used for submission events.
func WithLogger(l *log.Logger) BoxOption {
	return func(b *Box) { b.logger = l }
}

// NewBox creates an empty chat box with [DefaultOptions].
func NewBox(opts ...BoxOption) *Box {
	b := &Box{
		state: State{Options: DefaultOptions()},
		delay: ProcessingDelay,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Snapshot returns a copy of the current state.
func (b *Box) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.copyState()
}

// SetValue replaces the input text.
func (b *Box) SetValue(v string) {
	b.update(func(s *State) { s.Value = v })
}

// SetQuality selects an output option.
func (b *Box) SetQuality(q Quality) {
	b.update(func(s *State) { s.Options = s.Options.WithQuality(q) })
}

// SetSponsorBlock toggles automatic sponsor segment removal.
func (b *Box) SetSponsorBlock(on bool) {
	b.update(func(s *State) { s.Options.SponsorBlock = on })
}

// SetThumbnail toggles thumbnail import. Ignored for audio only output.
func (b *Box) SetThumbnail(on bool) {
	b.update(func(s *State) { s.Options = s.Options.WithThumbnail(on) })
}

// Submit validates the current value and enters the processing state.
//
// Returns false when the value is blank, the box is already processing, or the box is closed.
// After the processing delay the value is cleared and the notice dismissed.
func (b *Box) Submit() (Verdict, bool) {
	b.mu.Lock()
	if b.closed || b.state.Processing || strings.TrimSpace(b.state.Value) == "" {
		b.mu.Unlock()
		return NotYouTube, false
	}

	verdict := Classify(b.state.Value)
	notice := NoticeFor(verdict)
	b.state.Processing = true
	b.state.Notice = &notice
	b.timer = time.AfterFunc(b.delay, b.finish)
	snapshot := b.copyState()
	b.mu.Unlock()

	if b.logger != nil {
		b.logger.Debug("clip submitted", "verdict", verdict, "quality", snapshot.Options.Quality)
	}
	b.notify(snapshot)
	return verdict, true
}

func (b *Box) finish() {
	b.mu.Lock()
	if b.closed || !b.state.Processing {
		b.mu.Unlock()
		return
	}
	b.state.Processing = false
	b.state.Notice = nil
	b.state.Value = ""
	b.timer = nil
	snapshot := b.copyState()
	b.mu.Unlock()

	b.notify(snapshot)
}

// Close stops a pending timer. No further state changes are published.
func (b *Box) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func (b *Box) update(fn func(*State)) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	fn(&b.state)
	snapshot := b.copyState()
	b.mu.Unlock()

	b.notify(snapshot)
}

func (b *Box) copyState() State {
	s := b.state
	if s.Notice != nil {
		n := *s.Notice
		s.Notice = &n
	}
	return s
}

func (b *Box) notify(s State) {
	if b.onChange != nil {
		b.onChange(s)
	}
}
