package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dcc-ufrj/alumnic/internal/directory"
)

var registerCmd = &cobra.Command{
	Use:   "register <dre> <name>",
	Short: "Check registration status for a student",
	Long: `Looks up whether the student registry number already has an
account. Prints the existing username if it does, or the username a
new account would get if it does not.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dre, ok := directory.ProcessDRE(args[0])
		if !ok {
			return fmt.Errorf("invalid registry number %q: must be nine digits", args[0])
		}
		name, ok := directory.ProcessName(args[1])
		if !ok {
			return fmt.Errorf("invalid name %q", args[1])
		}

		cfg, client, log, err := setup()
		if err != nil {
			return err
		}
		defer client.Close()

		registrar := directory.NewRegistrar(client, cfg.BaseDN, cfg.Account, log)
		result, err := registrar.Lookup(context.Background(), dre, name)
		if err != nil {
			return err
		}

		if result.Exists {
			fmt.Printf("Already registered as %s\n", result.UID)
		} else {
			fmt.Printf("Available for registration as %s\n", result.UID)
		}
		return nil
	},
}
