package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/NamanBalaji/resumable/internal/tui/styles"
)

// RenderFileList renders the window of files around selected that fits in height.
func RenderFileList(files []FileInfo, selected int, width, height int) string {
	if len(files) == 0 {
		return renderEmptyView(width, height)
	}

	if height <= 0 {
		return lipgloss.NewStyle().Width(width).Height(height).Render("")
	}

	var rows []string

	itemHeight := 4

	visibleCount := height / itemHeight
	start := max(selected-visibleCount/2, 0)

	end := start + visibleCount
	if end > len(files) {
		end = len(files)
		start = max(end-visibleCount, 0)
	}

	for i := start; i < end; i++ {
		rows = append(rows, FileItem(files[i], width, i == selected))
	}

	listContent := lipgloss.JoinVertical(lipgloss.Left, rows...)

	return lipgloss.NewStyle().Width(width).Height(height).Render(listContent)
}

func renderEmptyView(width, height int) string {
	title := lipgloss.NewStyle().Foreground(styles.Mauve).Bold(true).Render("resumable")
	subtitle := lipgloss.NewStyle().Foreground(styles.Text).Italic(true).Render("Chunked, resumable uploads")
	instruction := lipgloss.NewStyle().Foreground(styles.Subtext0).Render("Waiting for files, press 'q' to quit")

	content := lipgloss.JoinVertical(lipgloss.Center, title, "", subtitle, "", instruction)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
