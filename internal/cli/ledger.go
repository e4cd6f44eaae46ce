package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmynk/tripledger/pkg/api"
)

func windowFlags(cmd *cobra.Command, w *api.Window) {
	cmd.Flags().StringVar(&w.From, "from", "", "only expenses created at or after this RFC 3339 time")
	cmd.Flags().StringVar(&w.To, "to", "", "only expenses created before this RFC 3339 time")
}

func balancesCmd(opts *options) *cobra.Command {
	var window api.Window

	cmd := &cobra.Command{
		Use:   "balances <group-id>",
		Short: "Show each member's net balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := authenticated(opts)
			if err != nil {
				return err
			}
			resp, err := s.groups.GetBalances(cmd.Context(), request(s, &api.GetBalancesRequest{GroupID: args[0], Window: window}))
			if err != nil {
				return explain(err)
			}
			if ok, err := s.printJSON(cmd.OutOrStdout(), resp.Msg); ok {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintf(w, "MEMBER\tPAID\tOWED\tBALANCE (%s)\t\n", resp.Msg.Currency)
			for _, b := range resp.Msg.Balances {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", b.Username, b.Paid, b.Owed, b.Balance)
			}
			return w.Flush()
		},
	}

	windowFlags(cmd, &window)
	return cmd
}

func settlementsCmd(opts *options) *cobra.Command {
	var window api.Window

	cmd := &cobra.Command{
		Use:   "settlements <group-id>",
		Short: "Show the transfers that settle the group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := authenticated(opts)
			if err != nil {
				return err
			}
			resp, err := s.groups.GetSettlements(cmd.Context(), request(s, &api.GetSettlementsRequest{GroupID: args[0], Window: window}))
			if err != nil {
				return explain(err)
			}
			if ok, err := s.printJSON(cmd.OutOrStdout(), resp.Msg); ok {
				return err
			}
			if len(resp.Msg.Settlements) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "All settled up.")
				return nil
			}
			for _, t := range resp.Msg.Settlements {
				fmt.Fprintf(cmd.OutOrStdout(), "%s pays %s %s %s\n", t.FromUsername, t.ToUsername, t.Amount, resp.Msg.Currency)
			}
			return nil
		},
	}

	windowFlags(cmd, &window)
	return cmd
}
