package commands

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-auth-session/customers"
)

type CustomerCmd struct {
	Ensure CustomerEnsureCmd `cmd:"" help:"Create the customer profile unless one is already linked"`
}

type CustomerEnsureCmd struct {
	Phone string `help:"Phone number for the profile" required:""`
}

func (e *CustomerEnsureCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := globals.open(openOptions{})
	if err != nil {
		return err
	}
	defer c.Close()

	customer, err := customers.New(globals.CustomerURL, c.manager).EnsureCustomerExists(ctx, e.Phone)
	if err != nil {
		return err
	}
	if customer.CustomerID != nil {
		fmt.Printf("customer id: %d\n", *customer.CustomerID)
	}
	return nil
}

type WalletCmd struct{}

func (w *WalletCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := globals.open(openOptions{})
	if err != nil {
		return err
	}
	defer c.Close()

	balance, err := customers.New(globals.CustomerURL, c.manager).WalletBalance(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("real cash:      %s\n", balance.RealCash)
	fmt.Printf("virtual cash:   %s\n", balance.VirtualCash)
	fmt.Printf("cumulative sum: %s\n", balance.CumulativeSum)
	fmt.Printf("recharges:      %d\n", balance.RechargeCount)
	return nil
}
