package cli

import (
	"errors"
	"fmt"
	"time"

	"pad-sync-server/pkg/jwt"

	"github.com/spf13/cobra"
)

var errNoAdminSecret = errors.New("admin secret not configured (set admin_secret in the config file or pass --admin-secret)")

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how many rooms and items are live",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := app.context(cmd)
			defer cancel()

			stats, err := app.client.GetStats(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			if app.JSON {
				return writeJSON(cmd, stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rooms: %d\nitems: %d\n", stats.TotalRooms, stats.TotalItems)
			return nil
		},
	}
}

func newCleanupCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired rooms now (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := app.adminToken(5 * time.Minute)
			if err != nil {
				return writeErr(cmd, err)
			}

			ctx, cancel := app.context(cmd)
			defer cancel()

			resp, err := app.client.Cleanup(ctx, token)
			if err != nil {
				return writeErr(cmd, err)
			}
			if app.JSON {
				return writeJSON(cmd, resp)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}
}

func newTokenCmd(app *App) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin token for the cleanup endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := app.adminToken(ttl)
			if err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")

	return cmd
}

func (app *App) adminToken(ttl time.Duration) (string, error) {
	if app.cfg.AdminSecret == "" {
		return "", errNoAdminSecret
	}
	return jwt.GenerateAdminToken("padctl", ttl, app.cfg.AdminSecret)
}
