package main

import (
	"fmt"

	"github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"
	"github.com/shelfmark/client-go/identity"
	"github.com/shelfmark/client-go/internal/config"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "shelfmark",
		Short:         "Terminal client for the Shelfmark book-library tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newLoginCommand(),
		newRegisterCommand(),
		newLogoutCommand(),
		newStatusCommand(),
		newTokenCommand(),
	)
	return root
}

func newLoginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and cache a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.cleanup()

			profile, err := app.manager.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Printf("Logged in as %s\n", profile.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCommand() *cobra.Command {
	var registration identity.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.cleanup()

			outcome, err := app.manager.Register(cmd.Context(), registration)
			if err != nil {
				return err
			}
			if outcome.RequiresVerification {
				fmt.Println("Account created, check your email to verify it")
				return nil
			}
			fmt.Println("Account created, you can log in now")
			return nil
		},
	}
	cmd.Flags().StringVar(&registration.Email, "email", "", "account email")
	cmd.Flags().StringVar(&registration.Password, "password", "", "account password")
	cmd.Flags().StringVar(&registration.Name, "name", "", "first name")
	cmd.Flags().StringVar(&registration.Surname, "surname", "", "last name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear cached credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.cleanup()

			app.manager.Logout(cmd.Context())
			fmt.Println("Logged out")
			return nil
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session, refreshing expired tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.cleanup()

			displayAppName(app.cfg)

			state := app.manager.AuthState(cmd.Context())
			if !state.Authenticated {
				fmt.Println("Not logged in")
				return nil
			}
			fmt.Printf("Logged in as %s (%s)\n", state.Profile.DisplayName(), state.Profile.Email)
			if state.Profile.IsAdmin() {
				fmt.Println("Role: admin")
			}
			return nil
		},
	}
}

func newTokenCommand() *cobra.Command {
	var id bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a usable access token, refreshing an expired one first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.cleanup()

			var token string
			var ok bool
			if id {
				token, ok = app.manager.IDToken(cmd.Context())
			} else {
				token, ok = app.manager.AccessToken(cmd.Context())
			}
			if !ok {
				return errors.New("no usable session, log in first")
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().BoolVar(&id, "id", false, "print the identity token instead")
	return cmd
}

func displayAppName(cfg config.Config) {
	myFigure := figure.NewFigure(cfg.GetAppName(), "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
