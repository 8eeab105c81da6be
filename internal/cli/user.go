package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User account commands",
	}

	cmd.AddCommand(newUserRegisterCmd())
	cmd.AddCommand(newUserTokenCmd())
	cmd.AddCommand(newUserMeCmd())
	cmd.AddCommand(newUserGamesCmd())

	return cmd
}

func newUserRegisterCmd() *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new user and save the issued token",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"full_name": name, "email": email}

			var result AuthResult
			if err := client.Post("/users", req, &result); err != nil {
				return err
			}
			return saveAndPrint(result)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newUserTokenCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a fresh token for an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result AuthResult
			if err := client.Post("/users/token", map[string]string{"email": email}, &result); err != nil {
				return err
			}
			return saveAndPrint(result)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func saveAndPrint(result AuthResult) error {
	if err := cfg.SaveToken(result.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	NewOutput(cfg.Output).Print(result)
	return nil
}

func newUserMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := currentUser()
			if err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(me)
			return nil
		},
	}
}

func newUserGamesCmd() *cobra.Command {
	var active bool
	var limit int

	cmd := &cobra.Command{
		Use:   "games",
		Short: "List games the authenticated user plays in",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/users/me/games?active=%t", active)
			if limit > 0 {
				path += fmt.Sprintf("&limit=%d", limit)
			}

			var result GameList
			if err := client.Get(path, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&active, "active", false, "Only list active games")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of games")

	return cmd
}

func currentUser() (User, error) {
	var me User
	err := client.Get("/users/me", &me)
	return me, err
}
