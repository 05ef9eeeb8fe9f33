package components_test

import (
	"strings"
	"testing"

	"github.com/NamanBalaji/resumable/internal/tui/components"
)

func TestFileItem(t *testing.T) {
	testCases := []struct {
		name           string
		info           components.FileInfo
		width          int
		selected       bool
		expectedChecks []string
	}{
		{
			name:           "Uploading file",
			info:           components.FileInfo{Name: "file.txt", Size: 1000, Progress: 0.5, Chunks: 2, State: components.Uploading},
			width:          80,
			expectedChecks: []string{"file.txt", "uploading", "50.0%", "500B / 1kB", "2 chunks"},
		},
		{
			name:           "Selected paused file",
			info:           components.FileInfo{Name: "file.txt", Size: 2000, Progress: 0.25, Chunks: 4, State: components.Paused},
			width:          80,
			selected:       true,
			expectedChecks: []string{"paused", "25.0%", "500B / 2kB"},
		},
		{
			name:           "Completed file shows full progress",
			info:           components.FileInfo{Name: "done.iso", Size: 5000000, Progress: 0.9, State: components.Completed},
			width:          100,
			expectedChecks: []string{"done.iso", "completed", "100.0%", "5MB / 5MB"},
		},
		{
			name:           "Failed file",
			info:           components.FileInfo{Name: "broken.bin", Size: 1000, Progress: 1, State: components.Failed},
			width:          80,
			expectedChecks: []string{"broken.bin", "failed"},
		},
		{
			name:           "Queued file",
			info:           components.FileInfo{Name: "later.bin", Size: 5000, State: components.Queued},
			width:          80,
			expectedChecks: []string{"later.bin", "queued", "0.0%", "0B / 5kB"},
		},
		{
			name:           "Long name truncation",
			info:           components.FileInfo{Name: "this-is-a-very-long-filename-that-will-definitely-be-truncated.zip", Size: 10, State: components.Uploading},
			width:          80,
			expectedChecks: []string{"..."},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			output := components.FileItem(tc.info, tc.width, tc.selected)
			for _, check := range tc.expectedChecks {
				if !strings.Contains(output, check) {
					t.Errorf("expected output to contain %q, but it did not.\nOutput:\n%s", check, output)
				}
			}
		})
	}
}
