package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/go-auth-session/activity"
	"github.com/jrsteele09/go-auth-session/authmodel"
	"github.com/jrsteele09/go-auth-session/gateway"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/logger"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/storage/filestore"
)

type Globals struct {
	Debug       bool
	Version     string
	GatewayURL  string
	CustomerURL string
	StorageDir  string
	Config      config.Config
}

// client is a session manager bound to the shared storage directory.
type client struct {
	manager *session.Manager
	store   *filestore.Store
}

func (c *client) Close() {
	c.manager.Close()
	if err := c.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close storage: %v\n", err)
	}
}

type openOptions struct {
	onTerminate session.TerminateFunc
	sources     []activity.Source
}

func (g *Globals) open(opts openOptions) (*client, error) {
	logger.Setup(g.Debug)

	store, err := filestore.New(g.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}

	options := []session.Option{
		session.WithTimings(session.TimingsFromConfig(g.Config)),
		session.WithDeviceInfo(cliDeviceInfo(g.Version)),
		session.WithActivitySources(opts.sources...),
	}
	if opts.onTerminate != nil {
		options = append(options, session.WithTerminateHandler(opts.onTerminate))
	}

	return &client{
		manager: session.New(gateway.New(g.GatewayURL), store, options...),
		store:   store,
	}, nil
}

func cliDeviceInfo(version string) authmodel.DeviceInfo {
	info := session.DefaultDeviceInfo()
	info.DeviceName = "authsession cli"
	info.AppVersion = version
	return info
}

// PhoneFlags identify the account a code is sent to.
type PhoneFlags struct {
	AreaCode string `help:"Phone area code" default:"+91"`
	Phone    string `help:"Phone number" required:""`
	UserType string `help:"Account type" default:"customer" enum:"customer,guide"`
}

func printSession(mgr *session.Manager) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "STATE\t%s\n", mgr.State())
	tokens := mgr.Tokens()
	if tokens == nil {
		return
	}
	fmt.Fprintf(w, "USER ID\t%d\n", tokens.AuthUserID)
	fmt.Fprintf(w, "USER TYPE\t%s\n", tokens.UserType)
	if tokens.CustomerID != nil {
		fmt.Fprintf(w, "CUSTOMER ID\t%d\n", *tokens.CustomerID)
	}
	fmt.Fprintf(w, "EXPIRES\t%s (%s)\n", tokens.ExpiresAt.Local().Format(time.RFC3339), time.Until(tokens.ExpiresAt).Round(time.Second))

	if info := mgr.SessionInfo(); info != nil {
		fmt.Fprintf(w, "SESSION ID\t%s\n", info.SessionID)
		fmt.Fprintf(w, "ACTIVE\t%t\n", info.IsActive)
		fmt.Fprintf(w, "LAST ACCESSED\t%s\n", info.LastAccessedAt.Local().Format(time.RFC3339))
	}
}
