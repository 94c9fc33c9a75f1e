package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopneo/console/internal/core/session"
	"github.com/shopneo/console/internal/transport"
)

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange admin credentials for a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			err = a.sessions.Login(cmd.Context(), &session.LoginRequest{Email: email, Password: password})
			if err != nil {
				return fmt.Errorf("%s", transport.PublicMessage(err, "Login failed"))
			}
			st := a.sessions.State()
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", email, st.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Admin email")
	cmd.Flags().StringVar(&password, "password", "", "Admin password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.sessions.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}
