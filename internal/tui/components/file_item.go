package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/docker/go-units"

	"github.com/NamanBalaji/resumable/internal/tui/styles"
)

// State is the display state of a file in the upload list.
type State int

const (
	Queued State = iota
	Uploading
	Paused
	Completed
	Failed
)

// FileInfo is a point-in-time view of one file of an upload.
type FileInfo struct {
	ID       string
	Name     string
	Size     int64
	Progress float64
	Chunks   int
	State    State
}

const maxNameLen = 30

// FileItem renders a single file entry given its info, the available width, and selection state.
func FileItem(info FileInfo, width int, selected bool) string {
	name := info.Name
	if len(name) > maxNameLen {
		name = name[:maxNameLen-3] + "..."
	}

	progress := info.Progress
	if info.State == Completed {
		progress = 1
	}

	statusLabel := stateLabel(info.State)

	percentStyle := lipgloss.NewStyle().Width(10).Align(lipgloss.Right)
	formattedPercent := percentStyle.Render(fmt.Sprintf("%.1f%%", progress*100))

	remainingSpace := width - maxNameLen - lipgloss.Width(statusLabel) - lipgloss.Width(formattedPercent) - 3
	if remainingSpace < 2 {
		remainingSpace = 2
	}

	line1 := fmt.Sprintf("%-*s %s%s%s",
		maxNameLen,
		name,
		statusLabel,
		strings.Repeat(" ", remainingSpace),
		formattedPercent)

	barWidth := max(width-2, 10)
	line2 := styles.ListItemStyle.Render(ProgressBar(barWidth, progress, info.State))

	sent := int64(float64(info.Size) * progress)
	info3 := fmt.Sprintf("%s / %s  %d chunks", units.HumanSize(float64(sent)), units.HumanSize(float64(info.Size)), info.Chunks)
	line3 := styles.ListItemStyle.Faint(true).Render(info3)

	item := lipgloss.JoinVertical(lipgloss.Left, line1, line2, line3)
	if selected {
		return styles.SelectedItemStyle.Width(width).Render(item)
	}

	return styles.ListItemStyle.Width(width).Render(item)
}

func stateLabel(s State) string {
	switch s {
	case Uploading:
		return styles.StatusUploading.Render("● uploading")
	case Queued:
		return styles.StatusQueued.Render("○ queued")
	case Paused:
		return styles.StatusPaused.Render("❚❚ paused")
	case Completed:
		return styles.StatusCompleted.Render("✔ completed")
	case Failed:
		return styles.StatusFailed.Render("✖ failed")
	default:
		return styles.StatusFailed.Render("unknown")
	}
}
