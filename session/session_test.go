package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/authmodel"
	"github.com/jrsteele09/go-auth-session/clock/fakeclock"
	"github.com/jrsteele09/go-auth-session/gateway"
	"github.com/jrsteele09/go-auth-session/gateway/gatewayfake"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/storage/memstore"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

const markerTTL = 100 * time.Millisecond

type harness struct {
	clock      *fakeclock.Clock
	gateway    *gatewayfake.Gateway
	origin     *memstore.Origin
	terminated []error
}

func newHarness() *harness {
	return &harness{
		clock:   fakeclock.New(t0),
		gateway: gatewayfake.New(),
		origin:  memstore.NewOrigin(),
	}
}

func (h *harness) manager(t *testing.T, id string) (*session.Manager, storage.Area) {
	t.Helper()
	area := h.origin.Attach()
	m := session.New(h.gateway, area,
		session.WithClock(h.clock),
		session.WithTimings(session.DefaultTimings()),
		session.WithInstanceID(id),
		session.WithTerminateHandler(func(reason error) { h.terminated = append(h.terminated, reason) }),
	)
	t.Cleanup(m.Close)
	return m, area
}

// flushMarkers lets pending sync marker timers expire.
func (h *harness) flushMarkers() {
	h.clock.Advance(markerTTL)
}

func tokenResponse(access string, expiresIn int64, sessionID string) *authmodel.TokenResponse {
	resp := &authmodel.TokenResponse{
		AccessToken:  access,
		RefreshToken: "refresh-" + access,
		ExpiresIn:    &expiresIn,
		AuthUserID:   42,
		UserType:     authmodel.UserTypeCustomer,
		UserRoles:    []string{"customer"},
	}
	if sessionID != "" {
		resp.SessionID = &sessionID
	}
	return resp
}

func tokensExpiringAt(at time.Time) authmodel.TokenSet {
	return authmodel.TokenSet{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    at,
		AuthUserID:   42,
		UserType:     authmodel.UserTypeCustomer,
	}
}

func login(t *testing.T, m *session.Manager) *authmodel.TokenSet {
	t.Helper()
	ts, err := m.ValidateOTP(context.Background(), authmodel.OTPValidation{
		AreaCode:    "+91",
		PhoneNumber: "9876543210",
		UserType:    authmodel.UserTypeCustomer,
		OTPCode:     "123456",
		RequestID:   "req-1",
	})
	require.NoError(t, err)
	return ts
}

func statusErr(code int) error {
	return &gateway.StatusError{Op: "Session validation", StatusCode: code, Message: http.StatusText(code)}
}

func TestScheduleRefresh_Delay(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      time.Duration
	}{
		{name: "one hour out fires five minutes early", expiresAt: t0.Add(time.Hour), want: 55 * time.Minute},
		{name: "just past the lead fires at lead", expiresAt: t0.Add(5*time.Minute + 30*time.Second), want: 30 * time.Second},
		{name: "inside the lead uses floor", expiresAt: t0.Add(4 * time.Minute), want: 10 * time.Second},
		{name: "already expired uses floor", expiresAt: t0.Add(-time.Minute), want: 10 * time.Second},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			m, _ := h.manager(t, "tab-a")

			require.NoError(t, m.SetTokens(tokensExpiringAt(tc.expiresAt)))
			h.flushMarkers()

			require.Equal(t, []time.Duration{tc.want}, h.clock.Delays())
		})
	}
}

func TestScheduleRefresh_NeverFiresEarly(t *testing.T) {
	h := newHarness()
	h.gateway.RefreshFunc = func(string) (*authmodel.TokenResponse, error) {
		return tokenResponse("access-2", 3600, ""), nil
	}
	m, _ := h.manager(t, "tab-a")

	require.NoError(t, m.SetTokens(tokensExpiringAt(t0.Add(time.Hour))))
	h.clock.Advance(55*time.Minute - time.Second)
	require.Zero(t, h.gateway.Calls("Refresh"))

	h.clock.Advance(time.Second)
	require.Equal(t, 1, h.gateway.Calls("Refresh"))
	require.Equal(t, "access-2", m.AccessToken())
}

func TestScheduleRefresh_NoExpiry(t *testing.T) {
	h := newHarness()
	m, _ := h.manager(t, "tab-a")

	require.NoError(t, m.SetTokens(tokensExpiringAt(time.Time{})))
	h.flushMarkers()
	require.Zero(t, h.clock.Pending())

	m.ScheduleRefresh()
	require.Zero(t, h.clock.Pending())
	require.True(t, m.IsAuthenticated())
}

func TestSetTokens_SingleRefreshTimer(t *testing.T) {
	h := newHarness()
	m, _ := h.manager(t, "tab-a")

	for i := 0; i < 3; i++ {
		require.NoError(t, m.SetTokens(tokensExpiringAt(t0.Add(time.Hour))))
	}
	h.flushMarkers()

	require.Equal(t, 1, h.clock.Pending())
	// 3 refresh and 3 marker arms; each re-arm stopped its predecessor
	require.Equal(t, 6, h.clock.Armed())
	require.Equal(t, 4, h.clock.Stopped())
}

func TestRefresh_FailureTerminates(t *testing.T) {
	h := newHarness()
	h.gateway.ValidateOTPFunc = func(authmodel.OTPValidation) (*authmodel.TokenResponse, error) {
		return tokenResponse("access-1", 600, "sess-1"), nil
	}
	m, area := h.manager(t, "tab-a")
	login(t, m)
	require.Equal(t, session.StateAuthenticatedValidating, m.State())

	h.clock.Advance(5 * time.Minute)

	require.Equal(t, 1, h.gateway.Calls("Refresh"))
	require.Zero(t, h.gateway.Calls("GetSession"))
	require.Len(t, h.terminated, 1)
	require.Equal(t, session.StateTerminated, m.State())
	require.Nil(t, m.Tokens())
	require.Nil(t, m.SessionInfo())
	h.flushMarkers()
	require.Zero(t, h.clock.Pending())

	_, ok, _ := area.Get(storage.KeyAuthTokens)
	require.False(t, ok)
	_, ok, _ = area.Get(storage.KeySessionInfo)
	require.False(t, ok)
}

func TestRefreshToken_NoRefreshToken(t *testing.T) {
	h := newHarness()
	m, _ := h.manager(t, "tab-a")

	_, err := m.RefreshToken(context.Background())
	require.ErrorIs(t, err, errors.ErrNoRefreshToken)
	require.Zero(t, h.gateway.Calls("Refresh"))
}

func TestAuthHeader_RefreshesExpiredToken(t *testing.T) {
	h := newHarness()
	h.gateway.RefreshFunc = func(refreshToken string) (*authmodel.TokenResponse, error) {
		require.Equal(t, "refresh-1", refreshToken)
		return tokenResponse("access-2", 3600, ""), nil
	}
	m, _ := h.manager(t, "tab-a")

	_, err := m.AuthHeader(context.Background())
	require.ErrorIs(t, err, errors.ErrNotAuthenticated)

	require.NoError(t, m.SetTokens(tokensExpiringAt(t0.Add(-time.Minute))))
	require.True(t, m.IsAuthenticated(), "expired tokens still read as authenticated")

	header, err := m.AuthHeader(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer access-2", header)
	require.Equal(t, 1, h.gateway.Calls("Refresh"))

	header, err = m.AuthHeader(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer access-2", header)
	require.Equal(t, 1, h.gateway.Calls("Refresh"))
}

func TestAuthHeader_RefreshFailureTearsDown(t *testing.T) {
	h := newHarness()
	h.gateway.RefreshFunc = func(string) (*authmodel.TokenResponse, error) {
		return nil, errors.ErrSessionExpired
	}
	m, _ := h.manager(t, "tab-a")
	require.NoError(t, m.SetTokens(tokensExpiringAt(t0.Add(-time.Minute))))

	_, err := m.AuthHeader(context.Background())
	require.ErrorIs(t, err, errors.ErrSessionExpired)
	require.False(t, m.IsAuthenticated())
	require.Len(t, h.terminated, 1)
}

func TestValidateSession_NoSessionID(t *testing.T) {
	h := newHarness()
	m, _ := h.manager(t, "tab-a")
	require.NoError(t, m.SetTokens(tokensExpiringAt(t0.Add(time.Hour))))

	require.False(t, m.ValidateSession(context.Background()))
	require.Zero(t, h.gateway.Calls("GetSession"))
}

func activeSession() authmodel.SessionInfo {
	return authmodel.SessionInfo{
		SessionID:      "sess-1",
		AuthUserID:     42,
		DeviceType:     authmodel.DeviceTypeWeb,
		DeviceID:       "web_1_abc",
		LastAccessedAt: t0,
		IsActive:       true,
	}
}

func TestValidateSession(t *testing.T) {
	later := t0.Add(3 * time.Minute)

	tests := []struct {
		name     string
		status   *authmodel.SessionStatus
		err      error
		want     bool
		wantSeen time.Time
	}{
		{name: "non ok status", err: statusErr(http.StatusUnauthorized), want: false, wantSeen: t0},
		{name: "inactive session", status: &authmodel.SessionStatus{IsActive: utils.Ptr(false), LastAccessedAt: &later}, want: false, wantSeen: t0},
		{name: "ok updates last accessed", status: &authmodel.SessionStatus{IsActive: utils.Ptr(true), LastAccessedAt: &later}, want: true, wantSeen: later},
		{name: "ok without timestamp", status: &authmodel.SessionStatus{}, want: true, wantSeen: t0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			h.gateway.GetSessionFunc = func(accessToken, sessionID string) (*authmodel.SessionStatus, error) {
				require.Equal(t, "access-1", accessToken)
				require.Equal(t, "sess-1", sessionID)
				return tc.status, tc.err
			}
			m, _ := h.manager(t, "tab-a")
			require.NoError(t, m.SetTokens(tokensExpiringAt(t0.Add(time.Hour))))
			require.NoError(t, m.SetSessionInfo(activeSession()))

			require.Equal(t, tc.want, m.ValidateSession(context.Background()))
			require.Equal(t, 1, h.gateway.Calls("GetSession"))
			require.True(t, m.SessionInfo().LastAccessedAt.Equal(tc.wantSeen))
		})
	}
}

func TestValidator_RearmsWhileValid(t *testing.T) {
	h := newHarness()
	h.gateway.ValidateOTPFunc = func(authmodel.OTPValidation) (*authmodel.TokenResponse, error) {
		return tokenResponse("access-1", 3600, "sess-1"), nil
	}
	h.gateway.GetSessionFunc = func(string, string) (*authmodel.SessionStatus, error) {
		return &authmodel.SessionStatus{IsActive: utils.Ptr(true)}, nil
	}
	m, _ := h.manager(t, "tab-a")
	login(t, m)

	h.clock.Advance(5 * time.Minute)
	h.clock.Advance(5 * time.Minute)

	require.Equal(t, 2, h.gateway.Calls("GetSession"))
	require.Empty(t, h.terminated)
	require.Equal(t, session.StateAuthenticatedValidating, m.State())
}

func TestValidator_FailureTerminates(t *testing.T) {
	h := newHarness()
	h.gateway.ValidateOTPFunc = func(authmodel.OTPValidation) (*authmodel.TokenResponse, error) {
		return tokenResponse("access-1", 3600, "sess-1"), nil
	}
	h.gateway.GetSessionFunc = func(string, string) (*authmodel.SessionStatus, error) {
		return nil, statusErr(http.StatusNotFound)
	}
	m, _ := h.manager(t, "tab-a")
	login(t, m)

	h.clock.Advance(5 * time.Minute)

	require.Len(t, h.terminated, 1)
	require.ErrorIs(t, h.terminated[0], errors.ErrSessionInactive)
	require.Equal(t, session.StateTerminated, m.State())
	h.flushMarkers()
	require.Zero(t, h.clock.Pending())
}

func TestInactiveSession_SchedulesNoTimers(t *testing.T) {
	h := newHarness()
	m, _ := h.manager(t, "tab-a")

	info := activeSession()
	info.IsActive = false
	require.NoError(t, m.SetSessionInfo(info))
	h.flushMarkers()

	m.Activity().Notify(activityClick)
	require.Zero(t, h.clock.Pending())
	require.Equal(t, session.StateUnauthenticated, m.State())
}

func TestActivity_TouchesLastAccessedLocally(t *testing.T) {
	h := newHarness()
	m, _ := h.manager(t, "tab-a")
	require.NoError(t, m.SetTokens(tokensExpiringAt(t0.Add(time.Hour))))
	require.NoError(t, m.SetSessionInfo(activeSession()))

	h.clock.Advance(30 * time.Second)
	m.Activity().Notify(activityClick)
	h.clock.Advance(time.Minute)

	require.True(t, m.SessionInfo().LastAccessedAt.Equal(t0.Add(90*time.Second)))
	require.Zero(t, h.gateway.Calls("GetSession"))
}

func TestActivity_TouchRearmsValidator(t *testing.T) {
	h := newHarness()
	h.gateway.GetSessionFunc = func(string, string) (*authmodel.SessionStatus, error) {
		return &authmodel.SessionStatus{IsActive: utils.Ptr(true)}, nil
	}
	m, _ := h.manager(t, "tab-a")
	require.NoError(t, m.SetTokens(tokensExpiringAt(t0.Add(time.Hour))))
	require.NoError(t, m.SetSessionInfo(activeSession()))

	h.clock.Advance(3 * time.Minute)
	m.Activity().Notify(activityClick)
	h.clock.Advance(time.Minute)

	// the touch at 4m pushed validation out to 9m
	h.clock.Advance(time.Minute)
	require.Zero(t, h.gateway.Calls("GetSession"))
	h.clock.Advance(4 * time.Minute)
	require.Equal(t, 1, h.gateway.Calls("GetSession"))
}

func TestSetCustomerID(t *testing.T) {
	h := newHarness()
	m, _ := h.manager(t, "tab-a")
	require.ErrorIs(t, m.SetCustomerID(7), errors.ErrNotAuthenticated)

	require.NoError(t, m.SetTokens(tokensExpiringAt(t0.Add(time.Hour))))
	armed := h.clock.Armed()
	require.NoError(t, m.SetCustomerID(7))

	require.Equal(t, int64(7), utils.Value(m.UserInfo().CustomerID))
	require.Equal(t, int64(42), m.UserInfo().UserID)
	require.Equal(t, armed+1, h.clock.Armed(), "only the marker timer is armed")
}

func TestLogout(t *testing.T) {
	h := newHarness()
	h.gateway.ValidateOTPFunc = func(authmodel.OTPValidation) (*authmodel.TokenResponse, error) {
		return tokenResponse("access-1", 3600, "sess-1"), nil
	}
	var got authmodel.LogoutRequest
	h.gateway.LogoutFunc = func(accessToken string, request authmodel.LogoutRequest) error {
		require.Equal(t, "access-1", accessToken)
		got = request
		return statusErr(http.StatusInternalServerError)
	}
	m, _ := h.manager(t, "tab-a")
	login(t, m)

	m.Logout(context.Background())

	require.Equal(t, "sess-1", got.SessionID)
	require.Equal(t, m.DeviceID(), got.DeviceID)
	require.False(t, m.IsAuthenticated())
	require.Nil(t, m.SessionInfo())
	require.Equal(t, session.StateUnauthenticated, m.State())
	require.Empty(t, h.terminated)
}

func TestLogout_TokenOnlySkipsBackend(t *testing.T) {
	h := newHarness()
	m, _ := h.manager(t, "tab-a")
	require.NoError(t, m.SetTokens(tokensExpiringAt(t0.Add(time.Hour))))

	m.Logout(context.Background())
	require.Zero(t, h.gateway.Calls("Logout"))
	require.False(t, m.IsAuthenticated())
}

func TestDeviceID_StablePerArea(t *testing.T) {
	h := newHarness()
	a, _ := h.manager(t, "tab-a")
	b, _ := h.manager(t, "tab-b")

	id := a.DeviceID()
	require.Regexp(t, `^web_\d+_[0-9a-f]{9}$`, id)
	require.Equal(t, id, a.DeviceID())
	require.Equal(t, id, b.DeviceID())
}

func TestNew_RestoresPersistedState(t *testing.T) {
	h := newHarness()
	area := h.origin.Attach()

	data, err := json.Marshal(tokensExpiringAt(t0.Add(time.Hour)))
	require.NoError(t, err)
	require.NoError(t, area.Set(storage.KeyAuthTokens, string(data)))
	data, err = json.Marshal(activeSession())
	require.NoError(t, err)
	require.NoError(t, area.Set(storage.KeySessionInfo, string(data)))

	m, _ := h.manager(t, "tab-a")
	require.Equal(t, session.StateAuthenticatedValidating, m.State())
	require.Equal(t, []time.Duration{5 * time.Minute, 55 * time.Minute}, h.clock.Delays())
}

func TestNew_DiscardsCorruptTokens(t *testing.T) {
	h := newHarness()
	area := h.origin.Attach()
	require.NoError(t, area.Set(storage.KeyAuthTokens, "{not json"))

	m, _ := h.manager(t, "tab-a")
	require.False(t, m.IsAuthenticated())
	_, ok, _ := area.Get(storage.KeyAuthTokens)
	require.False(t, ok)
}

func TestGenerateOTP_RequiresPhoneAndType(t *testing.T) {
	h := newHarness()
	m, _ := h.manager(t, "tab-a")

	_, err := m.GenerateOTP(context.Background(), authmodel.OTPRequest{PhoneNumber: "9876543210", UserType: "admin"})
	require.ErrorIs(t, err, errors.ErrInvalidRequest)
	require.Zero(t, h.gateway.Calls("GenerateOTP"))
}

func TestValidateOTP_ErrorLeavesUnauthenticated(t *testing.T) {
	h := newHarness()
	h.gateway.ValidateOTPFunc = func(authmodel.OTPValidation) (*authmodel.TokenResponse, error) {
		return nil, &gateway.StatusError{Op: "OTP validation", StatusCode: http.StatusBadRequest, Message: "Invalid OTP"}
	}
	m, _ := h.manager(t, "tab-a")

	_, err := m.ValidateOTP(context.Background(), authmodel.OTPValidation{PhoneNumber: "9876543210", OTPCode: "000000"})
	require.EqualError(t, err, "Invalid OTP")
	require.Equal(t, session.StateUnauthenticated, m.State())
}
