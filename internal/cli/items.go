package cli

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sync"

	"pad-sync-server/internal/domain"
	"pad-sync-server/internal/filetype"
	"pad-sync-server/internal/session"

	"github.com/spf13/cobra"
)

func newPushCmd(app *App) *cobra.Command {
	var x, y float64

	cmd := &cobra.Command{
		Use:   "push KEY [FILES...]",
		Short: "Add files, or text read from stdin, to a room",
		Long: `Add one item per file to the room. With no files, stdin is read and
classified: image URLs become images, <code> blocks become code and
anything else is plain text. All new items are sent in a single batch.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, files := args[0], args[1:]

			pos := domain.Position{X: x, Y: y}
			if !cmd.Flags().Changed("x") {
				pos.X = float64(50 + rand.IntN(100))
			}
			if !cmd.Flags().Changed("y") {
				pos.Y = float64(50 + rand.IntN(100))
			}

			drafts, err := readDrafts(cmd.InOrStdin(), files, pos)
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

			for _, draft := range drafts {
				if _, err := s.Add(draft); err != nil {
					return writeErr(cmd, err)
				}
			}

			report, err := s.SyncNow(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.finishReport(cmd, s, report)
		},
	}

	cmd.Flags().Float64Var(&x, "x", 0, "Canvas x position of the first item")
	cmd.Flags().Float64Var(&y, "y", 0, "Canvas y position of the first item")

	return cmd
}

// readDrafts builds one draft per file, cascading positions so the items do
// not stack exactly on top of each other.
func readDrafts(stdin io.Reader, files []string, pos domain.Position) ([]*domain.CreateItemRequest, error) {
	if len(files) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		draft := filetype.Classify(string(data), pos)
		if draft == nil {
			return nil, errors.New("nothing to push: stdin is empty")
		}
		return []*domain.CreateItemRequest{draft}, nil
	}

	drafts := make([]*domain.CreateItemRequest, 0, len(files))
	for i, name := range files {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		at := domain.Position{X: pos.X + float64(i*30), Y: pos.Y + float64(i*30)}
		draft, err := filetype.FromFile(name, data, at)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

func newEditCmd(app *App) *cobra.Command {
	var (
		content  string
		language string
		x, y     float64
		width    float64
		height   float64
	)

	cmd := &cobra.Command{
		Use:   "edit KEY ITEM_ID",
		Short: "Change the content, position or size of an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := &domain.UpdateItemRequest{}
			flags := cmd.Flags()

			if flags.Changed("content") {
				patch.Content = &content
			}
			if flags.Changed("language") {
				patch.Language = &language
			}
			if flags.Changed("x") || flags.Changed("y") {
				patch.Position = &domain.Position{X: x, Y: y}
			}
			if flags.Changed("width") || flags.Changed("height") {
				patch.Dimensions = &domain.Dimensions{Width: width, Height: height}
			}
			if patch.IsEmpty() {
				return writeErr(cmd, errors.New("nothing to change: pass at least one of --content, --language, --x/--y, --width/--height"))
			}

			ctx, cancel := app.context(cmd)
			defer cancel()

			s, err := app.openSession(ctx, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			// unchanged coordinates keep their current values
			current := findItem(s.Items(), args[1])
			if current == nil {
				return writeErr(cmd, domain.ItemNotFound(args[1]))
			}
			if patch.Position != nil {
				if !flags.Changed("x") {
					patch.Position.X = current.Position.X
				}
				if !flags.Changed("y") {
					patch.Position.Y = current.Position.Y
				}
			}
			if patch.Dimensions != nil {
				if !flags.Changed("width") {
					patch.Dimensions.Width = current.Dimensions.Width
				}
				if !flags.Changed("height") {
					patch.Dimensions.Height = current.Dimensions.Height
				}
			}

			if _, err := s.Update(args[1], patch); err != nil {
				return writeErr(cmd, err)
			}

			report, err := s.SyncNow(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.finishReport(cmd, s, report)
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "New content")
	cmd.Flags().StringVar(&language, "language", "", "New highlighting language for code items")
	cmd.Flags().Float64Var(&x, "x", 0, "New x position")
	cmd.Flags().Float64Var(&y, "y", 0, "New y position")
	cmd.Flags().Float64Var(&width, "width", 0, "New width")
	cmd.Flags().Float64Var(&height, "height", 0, "New height")

	return cmd
}

func findItem(items []*domain.Item, id string) *domain.Item {
	for _, item := range items {
		if item.Matches(id) {
			return item
		}
	}
	return nil
}

func newRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm KEY ITEM_ID...",
		Aliases: []string{"remove"},
		Short:   "Remove items from a room",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := app.context(cmd)
			defer cancel()

			s, err := app.openSession(ctx, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			failures := collectFailures(s, session.EventRemoveFailed)
			for _, id := range args[1:] {
				if err := s.Remove(id); err != nil {
					return writeErr(cmd, err)
				}
			}
			s.Wait()

			if errs := failures(); len(errs) > 0 {
				return writeErr(cmd, errors.Join(errs...))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d item(s) from %s\n", len(args)-1, args[0])
			return nil
		},
	}
}

func newClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear KEY",
		Short: "Remove every item from a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := app.context(cmd)
			defer cancel()

			s, err := app.openSession(ctx, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			failures := collectFailures(s, session.EventClearFailed)
			if err := s.Clear(); err != nil {
				return writeErr(cmd, err)
			}
			s.Wait()

			if errs := failures(); len(errs) > 0 {
				return writeErr(cmd, errors.Join(errs...))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared room %s\n", args[0])
			return nil
		},
	}
}

// collectFailures records the errors of events of type t until the returned
// func is called.
func collectFailures(s *session.Session, t session.EventType) func() []error {
	var (
		mu   sync.Mutex
		errs []error
	)
	s.OnEvent(func(ev session.Event) {
		if ev.Type != t {
			return
		}
		mu.Lock()
		errs = append(errs, ev.Err)
		mu.Unlock()
	})
	return func() []error {
		mu.Lock()
		defer mu.Unlock()
		return errs
	}
}

func (app *App) finishReport(cmd *cobra.Command, s *session.Session, report session.SyncReport) error {
	if app.JSON {
		if err := writeJSON(cmd, s.Items()); err != nil {
			return err
		}
	} else {
		renderReport(cmd.OutOrStdout(), report, newStyles(app.NoColor))
	}
	if len(report.Failed) > 0 {
		errs := make([]error, len(report.Failed))
		for i, f := range report.Failed {
			errs[i] = f
		}
		return errors.Join(errs...)
	}
	return nil
}
