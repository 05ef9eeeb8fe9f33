package main

import (
	"os"

	"github.com/NamanBalaji/resumable/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
