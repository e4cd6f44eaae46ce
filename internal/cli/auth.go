package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmynk/tripledger/pkg/api"
)

func passwordFrom(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if p := os.Getenv("TRIPLEDGER_PASSWORD"); p != "" {
		return p, nil
	}
	return "", errors.New("password required: pass --password or set TRIPLEDGER_PASSWORD")
}

func registerCmd(opts *options) *cobra.Command {
	var password, displayName string

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFrom(password)
			if err != nil {
				return err
			}
			s := newSession(opts)
			resp, err := s.auth.Register(cmd.Context(), request(s, &api.RegisterRequest{
				Username:    args[0],
				Password:    pw,
				DisplayName: displayName,
			}))
			if err != nil {
				return explain(err)
			}
			if err := s.saveToken(resp.Msg.Token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", resp.Msg.User.Username, resp.Msg.User.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "account password (env TRIPLEDGER_PASSWORD)")
	cmd.Flags().StringVar(&displayName, "display-name", "", "optional display name")
	return cmd
}

func loginCmd(opts *options) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and save the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFrom(password)
			if err != nil {
				return err
			}
			s := newSession(opts)
			resp, err := s.auth.Login(cmd.Context(), request(s, &api.LoginRequest{Username: args[0], Password: pw}))
			if err != nil {
				return explain(err)
			}
			if err := s.saveToken(resp.Msg.Token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", resp.Msg.User.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "account password (env TRIPLEDGER_PASSWORD)")
	return cmd
}

func whoamiCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := authenticated(opts)
			if err != nil {
				return err
			}
			resp, err := s.auth.GetCurrentUser(cmd.Context(), request(s, &api.GetCurrentUserRequest{}))
			if err != nil {
				return explain(err)
			}
			if ok, err := s.printJSON(cmd.OutOrStdout(), resp.Msg.User); ok {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", resp.Msg.User.Username, resp.Msg.User.ID)
			return nil
		},
	}
}
