package main

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/jrsteele09/go-auth-session/cmd/authsession/internal/commands"
	"github.com/jrsteele09/go-auth-session/internal/config"
)

var (
	version = "dev"
	cli     struct {
		OTP      commands.OTPCmd      `cmd:"" name:"otp" help:"Request a one time code"`
		Login    commands.LoginCmd    `cmd:"" help:"Log in with a one time code"`
		Status   commands.StatusCmd   `cmd:"" help:"Show the stored session"`
		Logout   commands.LogoutCmd   `cmd:"" help:"End the session"`
		Watch    commands.WatchCmd    `cmd:"" help:"Keep the session alive, counting input lines as activity"`
		Customer commands.CustomerCmd `cmd:"" help:"Customer profile commands"`
		Wallet   commands.WalletCmd   `cmd:"" help:"Show the customer wallet balance"`

		GatewayURL  string `help:"Auth gateway base URL" default:"${gateway_url}" env:"AUTH_GATEWAY_URL"`
		CustomerURL string `help:"Customer API base URL" default:"${customer_url}" env:"CUSTOMER_API_URL"`
		StorageDir  string `help:"Directory shared by every process of this session" default:"${storage_dir}" env:"STORAGE_DIR" type:"path"`
		Debug       bool   `help:"Enable debug mode."`
		Version     kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	c := config.New()
	cmd := kong.Parse(&cli,
		kong.Name("authsession"),
		kong.Description("OTP login and session lifecycle client."),
		kong.Vars{
			"version":      version,
			"gateway_url":  c.GetAuthGatewayURL(),
			"customer_url": c.GetCustomerAPIURL(),
			"storage_dir":  c.GetStorageDir(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Debug:       cli.Debug,
		Version:     version,
		GatewayURL:  cli.GatewayURL,
		CustomerURL: cli.CustomerURL,
		StorageDir:  cli.StorageDir,
		Config:      c,
	})
	cmd.FatalIfErrorf(err)
}
