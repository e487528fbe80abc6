package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dcc-ufrj/alumnic/internal/config"
	ldapc "github.com/dcc-ufrj/alumnic/internal/ldap"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "alumnic",
	Short: "Student account management for the DCC directory",
	Long: `alumnic manages student accounts in the institute's LDAP
directory: password changes, registration lookups and new account
creation. Connection settings come from LDAP_URL, LDAP_BIND_DN and
LDAP_BIND_PW, optionally supplemented by a YAML config file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(passwdCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(newStudentCmd)
}

// setup loads configuration, builds the logger and connects the LDAP
// client. Every subcommand starts here.
func setup() (*config.Config, ldapc.Client, ldapc.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	var zl *zap.Logger
	if verbose {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building logger: %w", err)
	}
	log := ldapc.NewZapLogger(zl)

	client, err := ldapc.NewClient(cfg.ConnectionConfig(), log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, client, log, nil
}
