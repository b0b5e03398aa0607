package cli

import (
	"github.com/spf13/cobra"

	"github.com/fabricstore/storefront/pkg/session"
)

func (rt *runtime) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := rt.app.Session.Current()
			if id == nil {
				rt.printer.Warning("Not signed in")
				return nil
			}
			rt.printIdentity(id)
			return nil
		},
	}
}

func (rt *runtime) printIdentity(id *session.Identity) {
	rt.printer.Print("%s", rt.printer.Bold(id.DisplayName()))
	if id.Email != "" {
		rt.printer.Print("  email: %s", id.Email)
	}
	if id.ID != "" {
		rt.printer.Print("  id:    %s", rt.printer.Dim(id.ID))
	}
}

func (rt *runtime) loginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := rt.app.Session.LoginWithPassword(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			rt.printer.Success("Signed in as %s", id.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	cmd.AddCommand(rt.loginGoogleCommand())
	return cmd
}

func (rt *runtime) loginGoogleCommand() *cobra.Command {
	var credential string
	cmd := &cobra.Command{
		Use:   "google",
		Short: "Sign in with a Google ID token",
		Long: `Sign in with a Google ID token obtained from Google Sign-In.

The token is exchanged with the backend for a session; it is not stored.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := rt.app.Session.LoginWithFederatedCredential(cmd.Context(), credential)
			if err != nil {
				return err
			}
			rt.printer.Success("Signed in as %s", id.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&credential, "credential", "", "Google ID token")
	_ = cmd.MarkFlagRequired("credential")
	return cmd
}

func (rt *runtime) registerCommand() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := rt.app.Session.Register(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			rt.printer.Success("Welcome, %s", id.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (rt *runtime) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !rt.signedIn() {
				rt.printer.Info("Already signed out")
				return nil
			}
			if err := rt.app.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			rt.printer.Success("Signed out")
			return nil
		},
	}
}
