// Package session keeps an authenticated session alive: it stores the token
// set, refreshes it ahead of expiry, validates the backend session, and keeps
// every peer attached to the same storage area in step.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-session/activity"
	"github.com/jrsteele09/go-auth-session/authmodel"
	"github.com/jrsteele09/go-auth-session/clock"
	"github.com/jrsteele09/go-auth-session/gateway"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/storage"
)

// Gateway is the subset of the auth gateway API the manager depends on.
type Gateway interface {
	GenerateOTP(ctx context.Context, request authmodel.OTPRequest) (*authmodel.OTPResponse, error)
	ValidateOTP(ctx context.Context, validation authmodel.OTPValidation) (*authmodel.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*authmodel.TokenResponse, error)
	Logout(ctx context.Context, accessToken string, request authmodel.LogoutRequest) error
	GetSession(ctx context.Context, accessToken, sessionID string) (*authmodel.SessionStatus, error)
}

var _ Gateway = (*gateway.Client)(nil)

// State is the lifecycle position of a manager.
type State string

const (
	StateUnauthenticated         State = "unauthenticated"
	StateAuthenticating          State = "authenticating"
	StateAuthenticated           State = "authenticated"
	StateAuthenticatedValidating State = "authenticated_validating"
	StateTerminated              State = "terminated"
)

// Timings controls the manager's timers.
type Timings struct {
	RefreshLead        time.Duration // refresh this long before expiry
	MinRefreshDelay    time.Duration // floor for any refresh delay
	ValidationInterval time.Duration
	ActivityIdle       time.Duration
	SyncMarkerTTL      time.Duration // how long a self-write marker is kept
}

// DefaultTimings returns the production timings.
func DefaultTimings() Timings {
	return Timings{
		RefreshLead:        5 * time.Minute,
		MinRefreshDelay:    10 * time.Second,
		ValidationInterval: 5 * time.Minute,
		ActivityIdle:       time.Minute,
		SyncMarkerTTL:      100 * time.Millisecond,
	}
}

// TimingsFromConfig reads the timings from the session configuration.
func TimingsFromConfig(cfg config.SessionConfig) Timings {
	return Timings{
		RefreshLead:        cfg.GetRefreshLeadTime(),
		MinRefreshDelay:    cfg.GetMinRefreshDelay(),
		ValidationInterval: cfg.GetSessionValidationInterval(),
		ActivityIdle:       cfg.GetActivityIdleTimeout(),
		SyncMarkerTTL:      cfg.GetSyncMarkerTTL(),
	}
}

// TerminateFunc is called once state has been torn down after a refresh or
// validation failure. The host is expected to start over from empty state.
type TerminateFunc func(reason error)

// Option configures a Manager in New.
type Option func(*Manager)

func WithClock(clk clock.Clock) Option {
	return func(m *Manager) {
		m.clock = clk
	}
}

func WithTimings(t Timings) Option {
	return func(m *Manager) {
		m.timings = t
	}
}

func WithTerminateHandler(fn TerminateFunc) Option {
	return func(m *Manager) {
		m.onTerminate = fn
	}
}

// WithInstanceID overrides the generated id written to sync markers.
func WithInstanceID(id string) Option {
	return func(m *Manager) {
		m.id = id
	}
}

// WithDeviceInfo sets the device payload sent with OTP validation when the
// caller does not supply one.
func WithDeviceInfo(info authmodel.DeviceInfo) Option {
	return func(m *Manager) {
		m.deviceInfo = info
	}
}

// WithActivitySources attaches activity sources when the manager starts.
func WithActivitySources(sources ...activity.Source) Option {
	return func(m *Manager) {
		m.sources = append(m.sources, sources...)
	}
}

// Manager owns the token set and session info for one peer of a storage area.
type Manager struct {
	id          string
	gateway     Gateway
	area        storage.Area
	clock       clock.Clock
	timings     Timings
	onTerminate TerminateFunc
	deviceInfo  authmodel.DeviceInfo
	sources     []activity.Source
	monitor     *activity.Monitor

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()

	mu             sync.Mutex
	tokens         *authmodel.TokenSet
	sessionInfo    *authmodel.SessionInfo
	authenticating bool
	terminated     bool
	closed         bool

	refreshTimer    clock.Timer
	refreshGen      uint64
	validationTimer clock.Timer
	validationGen   uint64
	markerTimers    map[string]clock.Timer
}

// New creates a manager, restores any persisted state from area, re-arms its
// timers and starts listening for changes made by other peers.
func New(gw Gateway, area storage.Area, options ...Option) *Manager {
	m := &Manager{
		id:           uuid.NewString(),
		gateway:      gw,
		area:         area,
		clock:        clock.Real(),
		timings:      DefaultTimings(),
		deviceInfo:   DefaultDeviceInfo(),
		markerTimers: make(map[string]clock.Timer),
	}
	for _, opt := range options {
		opt(m)
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.monitor = activity.NewMonitor(m.clock, m.timings.ActivityIdle, m.sessionActive, m.touchSession)

	m.loadTokensFromStorage()
	m.loadSessionInfoFromStorage()
	m.unsubscribe = m.area.Subscribe(m.handleStorageEvent)

	for _, src := range m.sources {
		m.monitor.Attach(src)
	}

	log.Debug().Str("instance_id", m.id).Str("state", string(m.State())).Msg("session manager started")
	return m
}

// InstanceID identifies this manager in sync markers.
func (m *Manager) InstanceID() string {
	return m.id
}

// Activity returns the monitor so hosts can attach further sources or feed events.
func (m *Manager) Activity() *activity.Monitor {
	return m.monitor
}

// State reports where the manager is in its lifecycle.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.authenticating:
		return StateAuthenticating
	case m.tokens != nil && m.sessionInfo != nil && m.sessionInfo.IsActive:
		return StateAuthenticatedValidating
	case m.tokens != nil:
		return StateAuthenticated
	case m.terminated:
		return StateTerminated
	default:
		return StateUnauthenticated
	}
}

// Close stops all timers and detaches from storage. Persisted state is kept.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.stopRefreshTimerLocked()
	m.stopValidationTimerLocked()
	for key, t := range m.markerTimers {
		t.Stop()
		delete(m.markerTimers, key)
	}
	m.mu.Unlock()

	m.monitor.Cancel()
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.cancel()
}

// terminate tears down all state and hands control to the host.
func (m *Manager) terminate(reason error) {
	m.mu.Lock()
	done := m.terminated && m.tokens == nil && m.sessionInfo == nil
	m.mu.Unlock()
	if done {
		return
	}

	m.clearTokens()
	m.clearSessionInfo()

	m.mu.Lock()
	m.terminated = true
	hook := m.onTerminate
	m.mu.Unlock()

	log.Warn().Err(reason).Msg("session terminated")
	if hook != nil {
		hook(reason)
	}
}
