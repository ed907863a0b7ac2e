package cli

import (
	"fmt"
	"time"

	"pad-sync-server/internal/cliconfig"
	"pad-sync-server/internal/domain"

	"github.com/spf13/cobra"
)

func newRoomCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Create, inspect and manage rooms",
	}

	cmd.AddCommand(newRoomCreateCmd(app))
	cmd.AddCommand(newRoomShowCmd(app))
	cmd.AddCommand(newRoomRenameCmd(app))
	cmd.AddCommand(newRoomThemeCmd(app))
	cmd.AddCommand(newRoomDeleteCmd(app))

	return cmd
}

func newRoomCreateCmd(app *App) *cobra.Command {
	var (
		theme string
		key   string
		use   bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room with a generated or custom key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := app.context(cmd)
			defer cancel()

			room, err := app.client.CreateRoom(ctx, &domain.CreateRoomRequest{
				Theme:     domain.Theme(theme),
				CustomKey: key,
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			if use {
				// flag overrides stay out of the saved file
				saved, err := cliconfig.Load(app.ConfigPath)
				if err != nil {
					return writeErr(cmd, err)
				}
				saved.LastRoom = room.Key
				if err := cliconfig.Save(app.ConfigPath, saved); err != nil {
					return writeErr(cmd, err)
				}
				app.cfg.LastRoom = room.Key
			}

			if app.JSON {
				return writeJSON(cmd, room)
			}
			st := newStyles(app.NoColor)
			fmt.Fprintf(cmd.OutOrStdout(), "Created room %s (expires in %s)\n",
				st.key.Render(room.Key), room.TimeRemaining(time.Now()).Round(time.Minute))
			return nil
		},
	}

	cmd.Flags().StringVar(&theme, "theme", "", "Room theme (dark|light)")
	cmd.Flags().StringVar(&key, "key", "", "Custom 10 character room key")
	cmd.Flags().BoolVar(&use, "use", false, "Remember this room as the default for later commands")

	return cmd
}

func newRoomShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show [KEY]",
		Short: "Print a room and its items",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := app.resolveKey(args)
			if err != nil {
				return writeErr(cmd, err)
			}

			ctx, cancel := app.context(cmd)
			defer cancel()

			s, err := app.openSession(ctx, key)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			room := s.Snapshot().Room
			if app.JSON {
				return writeJSON(cmd, room)
			}
			return renderRoom(cmd.OutOrStdout(), room, time.Now(), newStyles(app.NoColor), app.cfg.Style, !app.NoColor)
		},
	}
}

func newRoomRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename KEY NAME",
		Short: "Set the display name of a room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[1]
			return app.updateRoom(cmd, args[0], &domain.UpdateRoomRequest{Name: &name})
		},
	}
}

func newRoomThemeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "theme KEY dark|light",
		Short:     "Switch the theme of a room",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(domain.ThemeDark), string(domain.ThemeLight)},
		RunE: func(cmd *cobra.Command, args []string) error {
			theme := domain.Theme(args[1])
			return app.updateRoom(cmd, args[0], &domain.UpdateRoomRequest{Theme: &theme})
		},
	}
}

func (app *App) updateRoom(cmd *cobra.Command, key string, req *domain.UpdateRoomRequest) error {
	ctx, cancel := app.context(cmd)
	defer cancel()

	room, err := app.client.UpdateRoom(ctx, key, req)
	if err != nil {
		return writeErr(cmd, err)
	}
	if app.JSON {
		return writeJSON(cmd, room)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated room %s (name %q, theme %s)\n", room.Key, room.Name, room.Theme)
	return nil
}

func newRoomDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete KEY",
		Short: "Delete a room and all of its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := app.context(cmd)
			defer cancel()

			if err := app.client.DeleteRoom(ctx, args[0]); err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted room %s\n", args[0])
			return nil
		},
	}
}
