package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dcc-ufrj/alumnic/internal/directory"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd <uid>",
	Short: "Change a student's password",
	Long: `Prompts for a new password twice and replaces the account's
credential attributes. The candidate is checked against local policy
before anything is sent to the directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid := args[0]

		candidate, err := promptPassword()
		if err != nil {
			return err
		}

		cfg, client, log, err := setup()
		if err != nil {
			return err
		}
		defer client.Close()

		manager := directory.NewManager(client, cfg.BaseDN, cfg.Policy, log)
		result, err := manager.ChangePassword(context.Background(), uid, candidate)
		if err != nil {
			return err
		}

		fmt.Printf("Password changed for %s (operation %s)\n", uid, result.OperationID)
		return nil
	},
}

// promptPassword reads the new password twice without echo. Runs
// before any directory connection so a typo costs nothing.
func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "New password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Fprint(os.Stderr, "Retype new password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}
