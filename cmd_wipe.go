package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/sadopc/worklog/internal/guard"
	"github.com/sadopc/worklog/internal/record"
)

var (
	wipeKey  string
	wipeTick = time.Second
)

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete every record",
	Long: `Deletes every record after a countdown. The secret key must match the
one stored on this machine and the one the backend holds.`,
	Args: cobra.NoArgs,
	RunE: runWipe,
}

func init() {
	wipeCmd.Flags().StringVar(&wipeKey, "key", "", "Secret key (prompted after the countdown when empty)")
}

// countdown ticks g down to zero, printing the seconds left.
func countdown(ctx context.Context, g *guard.Guard, tick <-chan time.Time, out io.Writer) error {
	for g.Remaining() > 0 {
		fmt.Fprintf(out, "\r%2d ", g.Remaining())
		select {
		case <-ctx.Done():
			g.Cancel()
			fmt.Fprintln(out)
			return ctx.Err()
		case <-tick:
			g.Tick()
		}
	}
	fmt.Fprintln(out, "\r 0 ")
	return nil
}

func runWipe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	kf, err := guard.DefaultKeyFile()
	if err != nil {
		return fmt.Errorf("locate key file: %w", err)
	}
	stored, err := kf.Load()
	if err != nil {
		return err
	}
	g := guard.New(stored)
	if err := g.Arm(); err != nil {
		if errors.Is(err, record.ErrNoSecret) {
			return errors.New("no secret key on this machine; run `worklog secret set` first")
		}
		return err
	}

	fmt.Fprintf(out, "This deletes every record and cannot be undone. Press ctrl+c to abort.\n")
	ticker := time.NewTicker(wipeTick)
	err = countdown(ctx, &g, ticker.C, out)
	ticker.Stop()
	if err != nil {
		return err
	}

	key := wipeKey
	if key == "" {
		prompt := huh.NewInput().Title("Secret key").EchoMode(huh.EchoModePassword).Value(&key)
		if err := prompt.Run(); err != nil {
			return err
		}
	}
	g.SetCandidate(key)

	b, release, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := g.Destroy(ctx, newSyncer(b)); err != nil {
		switch {
		case errors.Is(err, guard.ErrKeyMismatch), errors.Is(err, record.ErrSecretMismatch):
			return errors.New("secret key does not match; nothing was deleted")
		case errors.Is(err, guard.ErrNotReady):
			return errors.New("no secret key entered; nothing was deleted")
		}
		return fmt.Errorf("delete all: %w", err)
	}
	logger.Warn("all records deleted")
	fmt.Fprintln(out, "All records deleted.")
	return nil
}
