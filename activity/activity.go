// Package activity debounces user interaction events into a single
// "last accessed" ping once the user has been idle for a while.
package activity

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-session/clock"
)

// Kind is an interaction event type.
type Kind string

const (
	KindMouseDown        Kind = "mousedown"
	KindMouseMove        Kind = "mousemove"
	KindKeyPress         Kind = "keypress"
	KindScroll           Kind = "scroll"
	KindTouchStart       Kind = "touchstart"
	KindClick            Kind = "click"
	KindKeyDown          Kind = "keydown"
	KindFocus            Kind = "focus"
	KindVisibilityChange Kind = "visibilitychange"
	KindWindowFocus      Kind = "windowfocus"
)

// Kinds lists every event type the monitor listens for.
var Kinds = []Kind{
	KindMouseDown, KindMouseMove, KindKeyPress, KindScroll,
	KindTouchStart, KindClick, KindKeyDown, KindFocus,
	KindVisibilityChange, KindWindowFocus,
}

// ErrUnsupportedKind is returned by sources that cannot produce an event type.
var ErrUnsupportedKind = errors.New("unsupported activity kind")

// Event is a single interaction. Hidden is only meaningful for visibility changes.
type Event struct {
	Kind   Kind
	Hidden bool
}

// Source delivers interaction events to registered listeners.
type Source interface {
	AddListener(kind Kind, listener func(Event)) error
}

// Monitor resets one idle timer on every qualifying event and calls touch
// when it fires.
type Monitor struct {
	clock    clock.Clock
	idle     time.Duration
	isActive func() bool
	touch    func()

	mu    sync.Mutex
	timer clock.Timer
}

// NewMonitor creates a monitor. isActive gates scheduling; touch is the idle callback.
func NewMonitor(clk clock.Clock, idle time.Duration, isActive func() bool, touch func()) *Monitor {
	return &Monitor{
		clock:    clk,
		idle:     idle,
		isActive: isActive,
		touch:    touch,
	}
}

// Attach registers the monitor on every kind the source offers. Failures are
// logged and skipped; they only degrade last-accessed freshness.
func (m *Monitor) Attach(src Source) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("failed to setup activity monitoring")
		}
	}()

	attached := 0
	for _, kind := range Kinds {
		if err := src.AddListener(kind, m.Notify); err != nil {
			if !errors.Is(err, ErrUnsupportedKind) {
				log.Warn().Err(err).Str("kind", string(kind)).Msg("failed to attach activity listener")
			}
			continue
		}
		attached++
	}
	log.Debug().Int("listeners", attached).Msg("activity monitoring attached")
}

// Notify handles one event.
func (m *Monitor) Notify(e Event) {
	if e.Kind == KindVisibilityChange && e.Hidden {
		return
	}

	active := m.isActive()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
	if !active {
		return
	}
	m.timer = m.clock.AfterFunc(m.idle, m.fire)
}

// Cancel drops any pending idle timer.
func (m *Monitor) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Monitor) fire() {
	m.mu.Lock()
	m.timer = nil
	m.mu.Unlock()

	m.touch()
}

func (m *Monitor) stopLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
