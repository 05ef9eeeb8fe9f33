package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/NamanBalaji/resumable/internal/tui/styles"
)

// ProgressBar returns a styled progress bar.
func ProgressBar(width int, percent float64, s State) string {
	if width <= 0 {
		return ""
	}

	percent = min(max(percent, 0), 1)

	filledWidth := int(float64(width) * percent)
	emptyWidth := width - filledWidth

	filledStr := strings.Repeat("█", filledWidth)
	emptyStr := strings.Repeat("░", emptyWidth)

	var color lipgloss.Color

	switch s {
	case Uploading:
		color = styles.Teal
	case Paused:
		color = styles.Peach
	case Completed:
		color = styles.Green
	case Failed:
		color = styles.Red
	default:
		color = styles.Yellow
	}

	return lipgloss.NewStyle().Foreground(color).Render(filledStr) + styles.ProgressBarEmptyStyle.Render(emptyStr)
}
