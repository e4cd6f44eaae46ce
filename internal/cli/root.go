// Package cli implements ledgerctl, a command-line client for the ledger
// server's Connect API.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	server    string
	tokenFile string
	json      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "ledgerctl",
		Short:        "Command-line client for the shared-expense ledger",
		SilenceUsage: true,
	}

	server := os.Getenv("TRIPLEDGER_SERVER")
	if server == "" {
		server = defaultServer
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", server, "ledger server base URL (env TRIPLEDGER_SERVER)")
	cmd.PersistentFlags().StringVar(&opts.tokenFile, "token-file", defaultTokenFile(), "where login stores the session token")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print responses as JSON")

	cmd.AddCommand(
		registerCmd(opts),
		loginCmd(opts),
		whoamiCmd(opts),
		groupsCmd(opts),
		balancesCmd(opts),
		settlementsCmd(opts),
		expenseCmd(opts),
	)
	return cmd
}
