package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmynk/tripledger/pkg/api"
)

func groupsCmd(opts *options) *cobra.Command {
	c := &cobra.Command{
		Use:   "groups",
		Short: "List and manage your groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := authenticated(opts)
			if err != nil {
				return err
			}
			resp, err := s.groups.ListGroups(cmd.Context(), request(s, &api.ListGroupsRequest{}))
			if err != nil {
				return explain(err)
			}
			if ok, err := s.printJSON(cmd.OutOrStdout(), resp.Msg.Groups); ok {
				return err
			}
			if len(resp.Msg.Groups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(no groups)")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCURRENCY\tMEMBERS")
			for _, g := range resp.Msg.Groups {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", g.ID, g.Name, g.Currency, memberNames(g))
			}
			return w.Flush()
		},
	}

	c.AddCommand(groupCreateCmd(opts), groupAddCmd(opts), groupShowCmd(opts))
	return c
}

func groupCreateCmd(opts *options) *cobra.Command {
	var currency string
	var members []string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a group; you are always a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := authenticated(opts)
			if err != nil {
				return err
			}
			resp, err := s.groups.CreateGroup(cmd.Context(), request(s, &api.CreateGroupRequest{
				Name:     args[0],
				Currency: currency,
			}))
			if err != nil {
				return explain(err)
			}
			group := resp.Msg.Group
			if len(members) > 0 {
				if group, err = s.addMembers(cmd.Context(), group.ID, members); err != nil {
					return err
				}
			}
			if ok, err := s.printJSON(cmd.OutOrStdout(), group); ok {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created group %s (%s) with %s\n", group.Name, group.ID, memberNames(group))
			return nil
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "", "ISO-4217 currency (server default if empty)")
	cmd.Flags().StringSliceVar(&members, "member", nil, "usernames to add (repeatable)")
	return cmd
}

func groupAddCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add <group-id> <username>...",
		Short: "Add members to a group by username",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := authenticated(opts)
			if err != nil {
				return err
			}
			group, err := s.addMembers(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Members of %s: %s\n", group.Name, memberNames(group))
			return nil
		},
	}
}

func groupShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <group-id>",
		Short: "Show a group and its expenses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := authenticated(opts)
			if err != nil {
				return err
			}
			resp, err := s.groups.GetGroup(cmd.Context(), request(s, &api.GetGroupRequest{GroupID: args[0]}))
			if err != nil {
				return explain(err)
			}
			if ok, err := s.printJSON(cmd.OutOrStdout(), resp.Msg); ok {
				return err
			}
			g := resp.Msg.Group
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s)\nMembers: %s\n\n", g.Name, g.ID, g.Currency, memberNames(g))
			return printExpenses(cmd.OutOrStdout(), resp.Msg.Expenses)
		},
	}
}

func (s *session) addMembers(ctx context.Context, groupID string, usernames []string) (*api.Group, error) {
	resp, err := s.groups.AddMembers(ctx, request(s, &api.AddMembersRequest{GroupID: groupID, Usernames: usernames}))
	if err != nil {
		return nil, explain(err)
	}
	return resp.Msg.Group, nil
}

func memberNames(g *api.Group) string {
	names := make([]string, len(g.Members))
	for i, m := range g.Members {
		names[i] = m.Username
	}
	return strings.Join(names, ", ")
}

func printExpenses(out io.Writer, expenses []*api.Expense) error {
	if len(expenses) == 0 {
		fmt.Fprintln(out, "(no expenses)")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDESCRIPTION\tPAID BY\tAMOUNT\tTYPE\tSPLITS")
	for _, e := range expenses {
		splits := make([]string, len(e.Splits))
		for i, sp := range e.Splits {
			splits[i] = sp.Username + "=" + sp.AmountOwed.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s %s\t%s\t%s\n",
			e.ID, e.Description, e.PayerUsername, e.TotalAmount, e.Currency, e.SplitType, strings.Join(splits, " "))
	}
	return w.Flush()
}
