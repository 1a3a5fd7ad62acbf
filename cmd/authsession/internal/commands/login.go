package commands

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-auth-session/authmodel"
)

type OTPCmd struct {
	PhoneFlags
	Purpose string `help:"Why the code is requested" default:"login"`
}

func (o *OTPCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := globals.open(openOptions{})
	if err != nil {
		return err
	}
	defer c.Close()

	request := requestFor(o.PhoneFlags)
	request.Purpose = o.Purpose
	resp, err := c.manager.GenerateOTP(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to request otp: %w", err)
	}

	fmt.Println(resp.RequestID)
	return nil
}

type LoginCmd struct {
	PhoneFlags
	Code      string `help:"One time code" required:""`
	RequestID string `help:"Request id printed by the otp command" required:""`
}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := globals.open(openOptions{})
	if err != nil {
		return err
	}
	defer c.Close()

	_, err = c.manager.ValidateOTP(ctx, authmodel.OTPValidation{
		AreaCode:    l.AreaCode,
		PhoneNumber: l.Phone,
		UserType:    authmodel.UserType(l.UserType),
		OTPCode:     l.Code,
		RequestID:   l.RequestID,
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	printSession(c.manager)
	return nil
}

type LogoutCmd struct{}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := globals.open(openOptions{})
	if err != nil {
		return err
	}
	defer c.Close()

	if !c.manager.IsAuthenticated() {
		fmt.Println("not logged in")
		return nil
	}
	c.manager.Logout(ctx)
	fmt.Println("logged out")
	return nil
}

type StatusCmd struct {
	Validate bool `help:"Check the session with the gateway" default:"false"`
}

func (s *StatusCmd) Run(ctx context.Context, globals *Globals) error {
	var terminated error
	c, err := globals.open(openOptions{onTerminate: func(reason error) { terminated = reason }})
	if err != nil {
		return err
	}
	defer c.Close()

	if s.Validate && c.manager.SessionInfo() != nil {
		valid := c.manager.ValidateSession(ctx)
		fmt.Printf("valid: %t\n", valid)
	}
	printSession(c.manager)

	if terminated != nil {
		return fmt.Errorf("session terminated: %w", terminated)
	}
	return nil
}

func requestFor(p PhoneFlags) authmodel.OTPRequest {
	return authmodel.OTPRequest{
		AreaCode:    p.AreaCode,
		PhoneNumber: p.Phone,
		UserType:    authmodel.UserType(p.UserType),
		Purpose:     "login",
	}
}
