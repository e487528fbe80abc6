package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dcc-ufrj/alumnic/internal/directory"
)

var newStudentCmd = &cobra.Command{
	Use:   "new-student <username> <dre> <name> <email> <phone>",
	Short: "Create a student account",
	Long: `Creates a new student account with the given username. The
username normally comes from a prior "register" lookup. Prompts for
the initial password, which must satisfy the registration policy:
8 to 25 characters with a lowercase letter, an uppercase letter and
a digit.`,
	Args: cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		dre, ok := directory.ProcessDRE(args[1])
		if !ok {
			return fmt.Errorf("invalid registry number %q: must be nine digits", args[1])
		}
		name, ok := directory.ProcessName(args[2])
		if !ok {
			return fmt.Errorf("invalid name %q", args[2])
		}
		email, ok := directory.ProcessEmail(args[3])
		if !ok {
			return fmt.Errorf("invalid email %q", args[3])
		}
		phone, ok := directory.ProcessPhone(args[4])
		if !ok {
			return fmt.Errorf("invalid phone number %q", args[4])
		}

		password, err := promptPassword()
		if err != nil {
			return err
		}

		cfg, client, log, err := setup()
		if err != nil {
			return err
		}
		defer client.Close()

		registrar := directory.NewRegistrar(client, cfg.BaseDN, cfg.Account, log)
		err = registrar.Register(context.Background(), username, &directory.Registration{
			DRE:      dre,
			Name:     name,
			Email:    email,
			Phone:    phone,
			Password: password,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Account %s created\n", username)
		return nil
	},
}
