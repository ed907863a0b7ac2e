package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"pad-sync-server/internal/domain"
	"pad-sync-server/internal/filetype"
	"pad-sync-server/internal/session"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
)

const (
	colorAccent  = "#BD93F9"
	colorMuted   = "#6272A4"
	colorSuccess = "#50FA7B"
	colorWarning = "#F1FA8C"
	colorDanger  = "#FF5555"
)

type styles struct {
	title   lipgloss.Style
	key     lipgloss.Style
	muted   lipgloss.Style
	card    lipgloss.Style
	status  map[domain.SyncStatus]lipgloss.Style
	failure lipgloss.Style
}

func newStyles(noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{
			title: plain.Bold(true),
			key:   plain,
			muted: plain,
			card:  plain.PaddingLeft(2),
			status: map[domain.SyncStatus]lipgloss.Style{
				domain.SyncStatusSynced:  plain,
				domain.SyncStatusSyncing: plain,
				domain.SyncStatusLocal:   plain,
				domain.SyncStatusFailed:  plain,
			},
			failure: plain,
		}
	}
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		key:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorWarning)),
		muted: lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted)),
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorMuted)).
			Padding(0, 1),
		status: map[domain.SyncStatus]lipgloss.Style{
			domain.SyncStatusSynced:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorSuccess)),
			domain.SyncStatusSyncing: lipgloss.NewStyle().Foreground(lipgloss.Color(colorWarning)),
			domain.SyncStatusLocal:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted)),
			domain.SyncStatusFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorDanger)),
		},
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color(colorDanger)),
	}
}

func (s styles) renderStatus(status domain.SyncStatus) string {
	if status == "" {
		return ""
	}
	if st, ok := s.status[status]; ok {
		return st.Render(string(status))
	}
	return string(status)
}

// renderRoom writes the room header followed by one card per item.
func renderRoom(w io.Writer, room *domain.Room, now time.Time, st styles, codeStyle string, highlight bool) error {
	name := room.Name
	if name == "" {
		name = "Untitled room"
	}
	header := fmt.Sprintf("%s  %s  %s",
		st.title.Render(name),
		st.key.Render(room.Key),
		st.muted.Render(fmt.Sprintf("theme %s · expires in %s", room.Theme, filetype.TimeRemaining(room.ExpiresAt, now))),
	)
	fmt.Fprintln(w, header)

	if len(room.Items) == 0 {
		fmt.Fprintln(w, st.muted.Render("(no items)"))
		return nil
	}

	for _, item := range room.Items {
		body, err := renderBody(item, codeStyle, highlight)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, st.card.Render(itemTitle(item, st)+"\n"+body))
	}
	return nil
}

func itemTitle(item *domain.Item, st styles) string {
	parts := []string{st.title.Render(string(item.Type)), st.muted.Render(item.Key())}
	if item.Filename != "" {
		parts = append(parts, item.Filename)
	}
	if item.Language != "" && item.Type == domain.ItemTypeCode {
		parts = append(parts, st.muted.Render(item.Language))
	}
	if item.Size > 0 {
		parts = append(parts, st.muted.Render(filetype.FormatFileSize(item.Size)))
	}
	parts = append(parts, st.muted.Render(fmt.Sprintf("@%g,%g", item.Position.X, item.Position.Y)))
	if status := st.renderStatus(item.SyncStatus); status != "" {
		parts = append(parts, status)
	}
	return strings.Join(parts, " ")
}

func renderBody(item *domain.Item, codeStyle string, highlight bool) (string, error) {
	switch item.Type {
	case domain.ItemTypeCode:
		if !highlight {
			return item.Content, nil
		}
		var b strings.Builder
		if err := quick.Highlight(&b, item.Content, item.Language, "terminal256", codeStyle); err != nil {
			return "", fmt.Errorf("highlight %s: %w", item.Key(), err)
		}
		return strings.TrimRight(b.String(), "\n"), nil
	case domain.ItemTypeImage, domain.ItemTypeFile:
		if strings.HasPrefix(item.Content, "data:") {
			mediaType := strings.SplitN(strings.TrimPrefix(item.Content, "data:"), ";", 2)[0]
			return fmt.Sprintf("[embedded %s]", mediaType), nil
		}
		return item.Content, nil
	default:
		return item.Content, nil
	}
}

func renderReport(w io.Writer, report session.SyncReport, st styles) {
	fmt.Fprintln(w, st.status[domain.SyncStatusSynced].Render(fmt.Sprintf("%d synced", report.Synced)))
	for _, f := range report.Failed {
		fmt.Fprintln(w, st.failure.Render("failed: "+f.Error()))
	}
}
