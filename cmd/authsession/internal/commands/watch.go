package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-session/activity"
)

// errTerminated is the cancel cause used when the manager tears down.
var errTerminated = errors.New("session terminated")

type WatchCmd struct{}

func (w *WatchCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	input := activity.NewLineSource(os.Stdin)
	c, err := globals.open(openOptions{
		sources: []activity.Source{input},
		onTerminate: func(reason error) {
			cancel(fmt.Errorf("%w: %w", errTerminated, reason))
		},
	})
	if err != nil {
		return err
	}
	defer c.Close()

	if !c.manager.IsAuthenticated() {
		return errors.New("not logged in, run the login command first")
	}

	fmt.Println("Watching session (type 'status' for details, Ctrl+C to stop)...")
	err = input.Run(ctx, func(line string) {
		switch strings.TrimSpace(line) {
		case "status":
			printSession(c.manager)
		case "validate":
			fmt.Printf("valid: %t\n", c.manager.ValidateSession(ctx))
		}
	})

	if cause := context.Cause(ctx); errors.Is(cause, errTerminated) {
		return cause
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed reading input: %w", err)
	}
	log.Debug().Msg("watch stopped")
	return nil
}
