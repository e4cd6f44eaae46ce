package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmynk/tripledger/pkg/api"
)

func expenseCmd(opts *options) *cobra.Command {
	c := &cobra.Command{
		Use:   "expense",
		Short: "Record and inspect expenses",
	}

	c.AddCommand(expenseAddCmd(opts), expenseListCmd(opts), expenseRemoveCmd(opts))
	return c
}

// parseSplits reads "user=amount" pairs. A bare "user" leaves the amount
// empty for the server to fill in on an even split.
func parseSplits(args []string) ([]splitArg, error) {
	out := make([]splitArg, 0, len(args))
	for _, a := range args {
		user, amount, _ := strings.Cut(a, "=")
		user = strings.TrimSpace(user)
		if user == "" {
			return nil, fmt.Errorf("bad split %q: want user=amount", a)
		}
		out = append(out, splitArg{user: user, amount: strings.TrimSpace(amount)})
	}
	return out, nil
}

type splitArg struct {
	user   string
	amount string
}

func expenseAddCmd(opts *options) *cobra.Command {
	var (
		total       string
		description string
		payer       string
		even        bool
		splits      []string
	)

	cmd := &cobra.Command{
		Use:   "add <group-id>",
		Short: "Record an expense",
		Long: `Record an expense paid by one member.

  ledgerctl expense add GROUP --total 90 --even
  ledgerctl expense add GROUP --total 90 --even --split alice --split bob
  ledgerctl expense add GROUP --total 30 --split alice=10 --split bob=20 --payer bob`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if total == "" {
				return errors.New("--total is required")
			}
			parsed, err := parseSplits(splits)
			if err != nil {
				return err
			}

			s, err := authenticated(opts)
			if err != nil {
				return err
			}
			ids, err := s.memberIDs(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			req := &api.CreateExpenseRequest{
				GroupID:     args[0],
				Description: description,
				TotalAmount: api.Amount(total),
				SplitType:   "MANUALLY",
			}
			if even {
				req.SplitType = "EVENLY"
			}
			if payer != "" {
				if req.PayerID, err = lookup(ids, payer); err != nil {
					return err
				}
			}
			for _, sp := range parsed {
				id, err := lookup(ids, sp.user)
				if err != nil {
					return err
				}
				req.Splits = append(req.Splits, &api.Split{UserOwedID: id, AmountOwed: api.Amount(sp.amount)})
			}

			resp, err := s.expenses.CreateExpense(cmd.Context(), request(s, req))
			if err != nil {
				return explain(err)
			}
			if ok, err := s.printJSON(cmd.OutOrStdout(), resp.Msg.Expense); ok {
				return err
			}
			e := resp.Msg.Expense
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s paid by %s (%s)\n", e.TotalAmount, e.Currency, e.PayerUsername, e.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&total, "total", "", "total amount paid")
	cmd.Flags().StringVarP(&description, "description", "d", "", "what the expense was for")
	cmd.Flags().StringVar(&payer, "payer", "", "username of the payer (defaults to you)")
	cmd.Flags().BoolVar(&even, "even", false, "split evenly; without --split, across every member")
	cmd.Flags().StringArrayVar(&splits, "split", nil, "user=amount, or user with --even (repeatable)")
	return cmd
}

func expenseListCmd(opts *options) *cobra.Command {
	var window api.Window

	cmd := &cobra.Command{
		Use:   "list <group-id>",
		Short: "List a group's expenses, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := authenticated(opts)
			if err != nil {
				return err
			}
			resp, err := s.expenses.ListExpenses(cmd.Context(), request(s, &api.ListExpensesRequest{GroupID: args[0], Window: window}))
			if err != nil {
				return explain(err)
			}
			if ok, err := s.printJSON(cmd.OutOrStdout(), resp.Msg.Expenses); ok {
				return err
			}
			return printExpenses(cmd.OutOrStdout(), resp.Msg.Expenses)
		},
	}

	windowFlags(cmd, &window)
	return cmd
}

func expenseRemoveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <expense-id>",
		Aliases: []string{"delete"},
		Short:   "Delete an expense and its splits",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := authenticated(opts)
			if err != nil {
				return err
			}
			if _, err := s.expenses.DeleteExpense(cmd.Context(), request(s, &api.DeleteExpenseRequest{ExpenseID: args[0]})); err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

// memberIDs maps the group's member usernames to user IDs.
func (s *session) memberIDs(ctx context.Context, groupID string) (map[string]string, error) {
	resp, err := s.groups.GetGroup(ctx, request(s, &api.GetGroupRequest{GroupID: groupID}))
	if err != nil {
		return nil, explain(err)
	}
	ids := make(map[string]string, len(resp.Msg.Group.Members))
	for _, m := range resp.Msg.Group.Members {
		ids[m.Username] = m.ID
	}
	return ids, nil
}

func lookup(ids map[string]string, username string) (string, error) {
	if id, ok := ids[strings.ToLower(username)]; ok {
		return id, nil
	}
	return "", fmt.Errorf("%s is not a member of this group", username)
}
