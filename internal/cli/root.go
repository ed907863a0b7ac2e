package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"pad-sync-server/internal/cliconfig"
	"pad-sync-server/internal/remote"
	"pad-sync-server/internal/session"

	"github.com/spf13/cobra"
)

type App struct {
	ConfigPath  string
	Server      string
	SyncMode    string
	AdminSecret string
	JSON        bool
	NoColor     bool
	Timeout     time.Duration

	cfg    cliconfig.Config
	client *remote.Client
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "padctl",
		Short:        "Command line client for shared scratchpad rooms",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Create a room and remember it
  padctl room create --use

  # Paste text from stdin, or push files
  echo "hello" | padctl push ABCDE12345
  padctl push ABCDE12345 main.go diagram.png

  # Look at a room
  padctl room show ABCDE12345
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.init(cmd)
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("PADCTL_CONFIG", cliconfig.DefaultPath()), "Path to the padctl config file")
	cmd.PersistentFlags().StringVar(&app.Server, "server", os.Getenv("PADCTL_SERVER"), "Server address (overrides config)")
	cmd.PersistentFlags().StringVar(&app.SyncMode, "sync-mode", "", "Sync mode: auto or manual (overrides config)")
	cmd.PersistentFlags().StringVar(&app.AdminSecret, "admin-secret", os.Getenv("PADCTL_ADMIN_SECRET"), "Admin JWT secret (overrides config)")
	cmd.PersistentFlags().BoolVar(&app.JSON, "json", false, "Print JSON instead of formatted output")
	cmd.PersistentFlags().BoolVar(&app.NoColor, "no-color", os.Getenv("NO_COLOR") != "", "Disable colors and syntax highlighting")
	cmd.PersistentFlags().DurationVar(&app.Timeout, "timeout", 30*time.Second, "Overall timeout for network calls")

	cmd.AddCommand(newRoomCmd(app))
	cmd.AddCommand(newPushCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newRemoveCmd(app))
	cmd.AddCommand(newClearCmd(app))
	cmd.AddCommand(newStatsCmd(app))
	cmd.AddCommand(newCleanupCmd(app))
	cmd.AddCommand(newTokenCmd(app))

	return cmd
}

func (app *App) init(cmd *cobra.Command) error {
	cfg, err := cliconfig.Load(app.ConfigPath)
	if err != nil {
		return writeErr(cmd, err)
	}
	if app.Server != "" {
		cfg.Server = app.Server
	}
	if app.SyncMode != "" {
		cfg.SyncMode = app.SyncMode
	}
	if app.AdminSecret != "" {
		cfg.AdminSecret = app.AdminSecret
	}
	app.cfg = cfg

	client, err := remote.NewClient(cfg.Server)
	if err != nil {
		return writeErr(cmd, err)
	}
	app.client = client
	return nil
}

func (app *App) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if app.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, app.Timeout)
}

// openSession loads key into a fresh sync session. Callers must Close it.
func (app *App) openSession(ctx context.Context, key string) (*session.Session, error) {
	mode, err := session.ParseMode(app.cfg.SyncMode)
	if err != nil {
		return nil, err
	}

	cfg := session.DefaultConfig()
	cfg.Mode = mode

	s := session.New(app.client, cfg)
	if err := s.Load(ctx, key); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// resolveKey falls back to the remembered room when args is empty.
func (app *App) resolveKey(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	if app.cfg.LastRoom != "" {
		return app.cfg.LastRoom, nil
	}
	return "", fmt.Errorf("room key required (no remembered room; use 'padctl room create --use')")
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), "error:", err.Error())
	return err
}
