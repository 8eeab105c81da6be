package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newOzCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oz",
		Short: "OZ pool and settings commands",
	}

	cmd.AddCommand(newOzJoinCmd())
	cmd.AddCommand(newOzAddCmd())
	cmd.AddCommand(newOzRemoveCmd())
	cmd.AddCommand(newOzDrawCmd())
	cmd.AddCommand(newOzPasscodeCmd())
	cmd.AddCommand(newOzMaxTagsCmd())
	cmd.AddCommand(newOzDefaultRoleCmd())

	return cmd
}

func newOzJoinCmd() *cobra.Command {
	var passcode string

	cmd := &cobra.Command{
		Use:   "join <game>",
		Short: "Volunteer for the OZ pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game
			err := client.Post(gamePath(args[0], "oz-pool"), map[string]string{"passcode": passcode}, &result)
			return printGame(&result, err)
		},
	}

	cmd.Flags().StringVar(&passcode, "passcode", "", "OZ pool passcode (required)")
	_ = cmd.MarkFlagRequired("passcode")

	return cmd
}

func newOzAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <game> <user>",
		Short: "Add a player to the OZ pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game
			return printGame(&result, client.Put(gamePath(args[0], "oz-pool", args[1]), nil, &result))
		},
	}
}

func newOzRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <game> <user>",
		Short: "Remove a player from the OZ pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game
			return printGame(&result, client.Delete(gamePath(args[0], "oz-pool", args[1]), &result))
		},
	}
}

func newOzDrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "draw <game> <count>",
		Short: "Draw random OZs from the pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid count %q", args[1])
			}
			var result Game
			err = client.Post(gamePath(args[0], "oz-pool", "draw"), map[string]int{"count": count}, &result)
			return printGame(&result, err)
		},
	}
}

func newOzPasscodeCmd() *cobra.Command {
	var clearPasscode bool

	cmd := &cobra.Command{
		Use:   "passcode <game> [passcode]",
		Short: "Set or clear the OZ pool passcode",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := gamePath(args[0], "settings", "oz-passcode")
			var result Game
			if clearPasscode {
				return printGame(&result, client.Delete(path, &result))
			}
			if len(args) < 2 {
				return fmt.Errorf("a passcode is required unless --clear is set")
			}
			return printGame(&result, client.Put(path, map[string]string{"passcode": args[1]}, &result))
		},
	}

	cmd.Flags().BoolVar(&clearPasscode, "clear", false, "Clear the passcode")

	return cmd
}

func newOzMaxTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "max-tags <game> [count]",
		Short: "Show or set the number of tags before an OZ is demoted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := gamePath(args[0], "settings", "oz-max-tags")
			if len(args) == 1 {
				var result OzTagCount
				if err := client.Get(path, &result); err != nil {
					return err
				}
				NewOutput(cfg.Output).Print(result)
				return nil
			}

			count, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid count %q", args[1])
			}
			var result Game
			return printGame(&result, client.Put(path, map[string]int{"oz_max_tags": count}, &result))
		},
	}
}

func newOzDefaultRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "default-role <game> <human|zombie|oz>",
		Short: "Set the role new players join with",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game
			err := client.Put(gamePath(args[0], "settings", "default-role"), map[string]string{"role": args[1]}, &result)
			return printGame(&result, err)
		},
	}
}
