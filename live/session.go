// Package live keeps a debounced, continuously re-resolved view of a pattern
// while it is being edited.
//
// A Session is fed every keystroke through Update. It waits for the input to
// settle, resolves the pattern, and publishes the result, discarding any
// evaluation whose inputs have since changed. The last good matches stay
// visible while a new evaluation is pending.
package live

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hayeah/runlens/names"
	"github.com/hayeah/runlens/resolver"
)

// DefaultDebounce is how long input must be idle before it is resolved.
const DefaultDebounce = 300 * time.Millisecond

// Status messages shown next to the matches.
const (
	MessageSearching = "Searching…"
	MessageNoMatches = "No matches"
)

// Resolver is the part of resolver.Resolver a Session needs.
type Resolver interface {
	Resolve(ctx context.Context, p resolver.Pattern, runIDs []string) resolver.Result
}

// Phase is the session's position in its evaluation cycle.
type Phase int

const (
	Idle Phase = iota
	Debouncing
	Loading
	Ready
	Invalid
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}

// State is a snapshot of a Session.
type State struct {
	Pattern resolver.Pattern
	RunIDs  []string
	Phase   Phase

	// Matches are the most recent successful results. They are kept while
	// Debouncing or Loading.
	Matches    []names.Name
	Debouncing bool
	Loading    bool
	Invalid    bool
}

// Pending reports whether a newer result is on its way.
func (s State) Pending() bool {
	return s.Debouncing || s.Loading
}

// Message is the status line for s, or "" when matches speak for themselves.
func (s State) Message() string {
	switch {
	case s.Invalid:
		return resolver.InvalidRegexMessage
	case s.Pending():
		return MessageSearching
	case s.Phase == Ready && len(s.Matches) == 0:
		return MessageNoMatches
	}
	return ""
}

type Option func(*Session)

// WithDebounce sets the settle delay. d <= 0 resolves on the next tick.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounce = d }
}

// WithTimeout bounds each evaluation. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// WithOnChange registers fn to receive every state transition, in order.
// fn runs on the session's goroutines and must not call back into the
// session.
func WithOnChange(fn func(State)) Option {
	return func(s *Session) { s.onChange = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// Session is safe for concurrent use.
type Session struct {
	resolver Resolver
	debounce time.Duration
	timeout  time.Duration
	onChange func(State)
	logger   *slog.Logger

	ctx  context.Context
	stop context.CancelFunc

	mu       sync.Mutex
	notifyMu sync.Mutex
	state    State
	key      string
	gen      uint64
	timer    *time.Timer
	cancel   context.CancelFunc
	closed   bool
}

// NewSession returns an idle session resolving through r.
func NewSession(r Resolver, opts ...Option) *Session {
	s := &Session{
		resolver: r,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		state:    State{Matches: []names.Name{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.stop = context.WithCancel(context.Background())
	return s
}

// Key identifies an evaluation's inputs. Run order does not matter.
func Key(p resolver.Pattern, runIDs []string) string {
	runs := append([]string(nil), runIDs...)
	sort.Strings(runs)
	return string(p.Mode) + "\x00" + p.Text + "\x00" + strings.Join(runs, "\x1f")
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Update sets the pattern and runs. Repeating the current inputs is a no-op.
// An empty pattern or run list clears the matches immediately.
func (s *Session) Update(p resolver.Pattern, runIDs []string) {
	key := Key(p, runIDs)

	s.mu.Lock()
	if s.closed || (key == s.key && s.state.Phase != Idle) {
		s.mu.Unlock()
		return
	}
	s.key = key
	s.gen++
	gen := s.gen
	s.abortLocked()

	s.state.Pattern = p
	s.state.RunIDs = append([]string(nil), runIDs...)
	s.state.Loading = false
	s.state.Invalid = false

	if p.Empty() || len(runIDs) == 0 {
		s.state.Phase = Idle
		s.state.Debouncing = false
		s.state.Matches = []names.Name{}
		s.publishLocked()
		return
	}

	s.state.Phase = Debouncing
	s.state.Debouncing = true
	s.timer = time.AfterFunc(s.debounce, func() { s.evaluate(gen) })
	s.publishLocked()
}

// Close stops pending work. Further updates are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.abortLocked()
	s.stop()
}

func (s *Session) evaluate(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, s.timeout)
	} else {
		ctx, cancel = context.WithCancel(s.ctx)
	}
	s.cancel = cancel
	s.timer = nil
	s.state.Phase = Loading
	s.state.Debouncing = false
	s.state.Loading = true
	p, runIDs := s.state.Pattern, s.state.RunIDs
	s.publishLocked()

	started := time.Now()
	res := s.resolver.Resolve(ctx, p, runIDs)
	cancel()

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug("discarding stale result", "pattern", p.Text, "mode", p.Mode)
		return
	}
	s.cancel = nil
	s.state.Loading = false
	if res.Invalid {
		s.state.Phase = Invalid
		s.state.Invalid = true
		s.state.Matches = []names.Name{}
	} else {
		s.state.Phase = Ready
		s.state.Matches = res.Matches
	}
	s.logger.Debug("pattern resolved",
		"pattern", p.Text, "mode", p.Mode, "runs", len(runIDs),
		"matches", len(res.Matches), "invalid", res.Invalid, "elapsed", time.Since(started))
	s.publishLocked()
}

// abortLocked stops the debounce timer and cancels the running evaluation.
// Its result is dropped by the generation check either way.
func (s *Session) abortLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) snapshot() State {
	st := s.state
	st.RunIDs = append([]string(nil), s.state.RunIDs...)
	st.Matches = append([]names.Name{}, s.state.Matches...)
	return st
}

// publishLocked releases s.mu and delivers the new state. Holding notifyMu
// across the hand-off keeps deliveries in transition order.
func (s *Session) publishLocked() {
	if s.onChange == nil {
		s.mu.Unlock()
		return
	}
	st := s.snapshot()
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	s.onChange(st)
}
