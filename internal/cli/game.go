package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game commands",
	}

	cmd.AddCommand(newGameCreateCmd())
	cmd.AddCommand(newGameGetCmd())
	cmd.AddCommand(newGameJoinCmd())
	cmd.AddCommand(newGameLeaveCmd())
	cmd.AddCommand(newGamePlayerCmd())
	cmd.AddCommand(gameActionCmd("start", "Start a new game"))
	cmd.AddCommand(gameActionCmd("pause", "Pause an active game"))
	cmd.AddCommand(gameActionCmd("resume", "Resume a paused game"))
	cmd.AddCommand(gameActionCmd("end", "End a game"))
	cmd.AddCommand(newGameStatusCmd())
	cmd.AddCommand(newGameActiveCmd())
	cmd.AddCommand(newGameRoleCmd())
	cmd.AddCommand(newGameTagCmd())
	cmd.AddCommand(newGameLogCmd())
	cmd.AddCommand(newOzCmd())

	return cmd
}

func gamePath(gameID string, parts ...string) string {
	p := "/games/" + url.PathEscape(gameID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func printGame(g *Game, err error) error {
	if err != nil {
		return err
	}
	NewOutput(cfg.Output).Print(*g)
	return nil
}

func newGameCreateCmd() *cobra.Command {
	var name string
	var ozMaxTags int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new game",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"name": name, "oz_max_tags": ozMaxTags}
			var result Game
			return printGame(&result, client.Post("/games", req, &result))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Game name (required)")
	cmd.Flags().IntVar(&ozMaxTags, "oz-max-tags", 0, "Tags before an OZ is demoted (0 uses the server default)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newGameGetCmd() *cobra.Command {
	var byName bool

	cmd := &cobra.Command{
		Use:   "get <game>",
		Short: "Show a game by ID, or by name with --name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := gamePath(args[0])
			if byName {
				path = "/games/by-name/" + url.PathEscape(args[0])
			}
			var result Game
			return printGame(&result, client.Get(path, &result))
		},
	}

	cmd.Flags().BoolVar(&byName, "name", false, "Look the game up by name")

	return cmd
}

func newGameJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <game>",
		Short: "Join a game as the authenticated user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game
			return printGame(&result, client.Post(gamePath(args[0], "players"), nil, &result))
		},
	}
}

func newGameLeaveCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "leave <game>",
		Short: "Leave a game, or remove another player with --user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				me, err := currentUser()
				if err != nil {
					return err
				}
				userID = me.ID
			}
			var result Game
			return printGame(&result, client.Delete(gamePath(args[0], "players", userID), &result))
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID to remove (defaults to yourself)")

	return cmd
}

func newGamePlayerCmd() *cobra.Command {
	var byGameID bool

	cmd := &cobra.Command{
		Use:   "player <game> <user>",
		Short: "Show a player by user ID, or by player game ID with --game-id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := gamePath(args[0], "players", args[1])
			if byGameID {
				path = gamePath(args[0], "players", "by-game-id", args[1])
			}
			var result Player
			if err := client.Get(path, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&byGameID, "game-id", false, "Look the player up by player game ID")

	return cmd
}

func gameActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <game>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game
			return printGame(&result, client.Post(gamePath(args[0], action), nil, &result))
		},
	}
}

func newGameStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <game> <new|active|paused|ended>",
		Short: "Set a game's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game
			err := client.Put(gamePath(args[0], "status"), map[string]string{"status": args[1]}, &result)
			return printGame(&result, err)
		},
	}
}

func newGameActiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "active <game> <true|false>",
		Short: "Activate or deactivate a game",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			active, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("invalid active flag %q", args[1])
			}
			var result Game
			err = client.Put(gamePath(args[0], "active"), map[string]bool{"active": active}, &result)
			return printGame(&result, err)
		},
	}
}

func newGameRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "role <game> <user> <human|zombie|oz>",
		Short: "Set a player's role as a moderator",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game
			err := client.Put(gamePath(args[0], "players", args[1], "role"), map[string]string{"role": args[2]}, &result)
			return printGame(&result, err)
		},
	}
}

func newGameTagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag <game> <receiver-player-game-id>",
		Short: "Log a tag of another player as the authenticated user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game
			err := client.Post(gamePath(args[0], "tags"), map[string]string{"receiver_player_game_id": args[1]}, &result)
			return printGame(&result, err)
		},
	}
}

func newGameLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log <game>",
		Short: "Show a game's event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result EventLog
			if err := client.Get(gamePath(args[0], "log"), &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}
