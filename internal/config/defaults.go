package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

const (
	target              = "http://localhost:8080/upload"
	chunkSize           = "1MiB"
	simultaneousUploads = 3
	method              = "multipart"
	maxChunkRetries     = 100
	chunkRetryInterval  = time.Second
	dropSettle          = 500 * time.Millisecond

	serverAddr         = ":8080"
	serverPath         = "/upload"
	serverMaxChunkSize = "64MiB"
)

var (
	serverDir = filepath.Join(xdg.DataHome, configFileName, "uploads")
	stateDB   = filepath.Join(xdg.StateHome, configFileName, "state.db")
	logFile   = filepath.Join(xdg.StateHome, configFileName, "resumable.log")
)
