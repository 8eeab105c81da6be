package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newOrgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Organization commands",
	}

	cmd.AddCommand(newOrgCreateCmd())
	cmd.AddCommand(newOrgGetCmd())
	cmd.AddCommand(newOrgAddAdminCmd())
	cmd.AddCommand(newOrgGameCmd())

	return cmd
}

func orgPath(orgID string, parts ...string) string {
	p := "/orgs/" + url.PathEscape(orgID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func printOrg(o *Organization, err error) error {
	if err != nil {
		return err
	}
	NewOutput(cfg.Output).Print(*o)
	return nil
}

func newOrgCreateCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an organization administered by the authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Organization
			return printOrg(&result, client.Post("/orgs", map[string]string{"name": name}, &result))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Organization name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newOrgGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <org>",
		Short: "Show an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Organization
			return printOrg(&result, client.Get(orgPath(args[0]), &result))
		},
	}
}

func newOrgAddAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-admin <org> <user>",
		Short: "Grant a user admin rights on an organization",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Organization
			err := client.Post(orgPath(args[0], "admins"), map[string]string{"user_id": args[1]}, &result)
			return printOrg(&result, err)
		},
	}
}

func newOrgGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Manage an organization's active game",
	}

	var name string
	var ozMaxTags int
	create := &cobra.Command{
		Use:   "create <org>",
		Short: "Create the organization's active game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"name": name, "oz_max_tags": ozMaxTags}
			var result Game
			return printGame(&result, client.Post(orgPath(args[0], "game"), req, &result))
		},
	}
	create.Flags().StringVar(&name, "name", "", "Game name (required)")
	create.Flags().IntVar(&ozMaxTags, "oz-max-tags", 0, "Tags before an OZ is demoted (0 uses the server default)")
	_ = create.MarkFlagRequired("name")

	get := &cobra.Command{
		Use:   "get <org>",
		Short: "Show the organization's active game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game
			return printGame(&result, client.Get(orgPath(args[0], "game"), &result))
		},
	}

	end := &cobra.Command{
		Use:   "end <org>",
		Short: "End the organization's active game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game
			return printGame(&result, client.Delete(orgPath(args[0], "game"), &result))
		},
	}

	cmd.AddCommand(create, get, end)
	return cmd
}
