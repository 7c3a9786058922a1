package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/sadopc/worklog/internal/guard"
	"github.com/sadopc/worklog/internal/record"
)

var secretKeyFlag string

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage the secret key that guards deleting all records",
}

var secretSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the secret key on the backend and on this machine",
	Args:  cobra.NoArgs,
	RunE:  runSecretSet,
}

var secretStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a secret key is configured",
	Args:  cobra.NoArgs,
	RunE:  runSecretStatus,
}

func init() {
	secretSetCmd.Flags().StringVar(&secretKeyFlag, "key", "", "Secret key (prompted when empty)")
	secretCmd.AddCommand(secretSetCmd)
	secretCmd.AddCommand(secretStatusCmd)
}

func promptSecret() (string, error) {
	var key, again string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Secret key").
			EchoMode(huh.EchoModePassword).
			Value(&key).
			Validate(record.ValidateSecret),
		huh.NewInput().Title("Repeat secret key").
			EchoMode(huh.EchoModePassword).
			Value(&again).
			Validate(func(v string) error {
				if v != key {
					return fmt.Errorf("keys do not match")
				}
				return nil
			}),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return key, nil
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	key := secretKeyFlag
	if key == "" {
		var err error
		if key, err = promptSecret(); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	b, release, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := newSyncer(b).SetSecret(ctx, key); err != nil {
		return fmt.Errorf("set secret key: %w", err)
	}
	kf, err := guard.DefaultKeyFile()
	if err != nil {
		return fmt.Errorf("locate key file: %w", err)
	}
	if err := kf.Save(key); err != nil {
		return err
	}
	logger.Info("secret key updated")
	fmt.Fprintf(cmd.OutOrStdout(), "Secret key saved (local copy in %s)\n", kf.Path)
	return nil
}

func runSecretStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	b, release, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer release()

	u, err := b.GetUser(ctx)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	kf, err := guard.DefaultKeyFile()
	if err != nil {
		return fmt.Errorf("locate key file: %w", err)
	}
	local, err := kf.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	server := "not set"
	if u != nil && u.HasSecret {
		server = "set"
	}
	machine := "not set"
	if local != "" {
		machine = "set (" + kf.Path + ")"
	}
	fmt.Fprintf(out, "backend: %s\nthis machine: %s\n", server, machine)
	return nil
}
