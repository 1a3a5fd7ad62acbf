package commands

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-session/auth"
	"github.com/jrsteele09/go-auth-session/gateway"
	"github.com/jrsteele09/go-auth-session/internal/config"
	fakeotprepo "github.com/jrsteele09/go-auth-session/otps/repofake"
	"github.com/jrsteele09/go-auth-session/server"
	fakesessionrepo "github.com/jrsteele09/go-auth-session/sessions/repofakes"
	refreshrepofake "github.com/jrsteele09/go-auth-session/token/refresh/repofake"
	fakeuserrepo "github.com/jrsteele09/go-auth-session/users/repofake"
)

const testCode = "135790"

type testConfig struct {
	config.Config
}

func (testConfig) GetEnv() string        { return "TEST" }
func (testConfig) GetDevOTPCode() string { return testCode }

func newGlobals(t *testing.T) *Globals {
	t.Helper()
	cfg := testConfig{config.New()}
	srv, err := server.New(cfg, auth.Repos{
		Users:         fakeuserrepo.NewFakeUserRepo(),
		Sessions:      fakesessionrepo.NewFakeSessionRepo(),
		OTPs:          fakeotprepo.NewFakeOTPRepo(),
		RefreshTokens: refreshrepofake.NewFakeRefreshTokenRepo(),
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &Globals{
		Version:    "test",
		GatewayURL: ts.URL,
		StorageDir: t.TempDir(),
		Config:     cfg,
	}
}

func TestLoginStatusLogout(t *testing.T) {
	ctx := context.Background()
	globals := newGlobals(t)
	phone := PhoneFlags{AreaCode: "+91", Phone: "9000000001", UserType: "customer"}

	otp, err := gateway.New(globals.GatewayURL).GenerateOTP(ctx, requestFor(phone))
	require.NoError(t, err)

	login := &LoginCmd{PhoneFlags: phone, Code: testCode, RequestID: otp.RequestID}
	require.NoError(t, login.Run(ctx, globals))

	// A second process sharing the directory sees the stored session.
	c, err := globals.open(openOptions{})
	require.NoError(t, err)
	require.True(t, c.manager.IsAuthenticated())
	require.NotNil(t, c.manager.SessionInfo())
	c.Close()

	require.NoError(t, (&StatusCmd{Validate: true}).Run(ctx, globals))
	require.NoError(t, (&LogoutCmd{}).Run(ctx, globals))

	c, err = globals.open(openOptions{})
	require.NoError(t, err)
	defer c.Close()
	require.False(t, c.manager.IsAuthenticated())
	require.Nil(t, c.manager.SessionInfo())
}

func TestLoginCmd_WrongCode(t *testing.T) {
	ctx := context.Background()
	globals := newGlobals(t)
	phone := PhoneFlags{AreaCode: "+91", Phone: "9000000002", UserType: "guide"}

	otp, err := gateway.New(globals.GatewayURL).GenerateOTP(ctx, requestFor(phone))
	require.NoError(t, err)

	err = (&LoginCmd{PhoneFlags: phone, Code: "000000", RequestID: otp.RequestID}).Run(ctx, globals)
	require.ErrorContains(t, err, "Invalid OTP code")
}

func TestWatchCmd_RequiresLogin(t *testing.T) {
	globals := newGlobals(t)
	err := (&WatchCmd{}).Run(context.Background(), globals)
	require.ErrorContains(t, err, "not logged in")
}

func TestCliDeviceInfo(t *testing.T) {
	info := cliDeviceInfo("1.2.3")
	require.Equal(t, "authsession cli", info.DeviceName)
	require.Equal(t, "1.2.3", info.AppVersion)
	require.NotEmpty(t, info.DeviceType)
}
