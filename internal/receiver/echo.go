package receiver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/NamanBalaji/resumable/internal/logger"
	"github.com/NamanBalaji/resumable/internal/validator"
)

const (
	defaultPath          = "/upload"
	defaultFileParameter = "file"
	defaultMaxChunkSize  = 64 * 1024 * 1024
)

// Config describes where the receiver listens for chunks and where files end up.
type Config struct {
	Dir               string
	Path              string
	FileParameterName string
	MaxChunkSize      int64

	// OnComplete is called after a file has been assembled.
	OnComplete func(File)
}

// NewEcho returns an echo instance serving the receiving side of the upload protocol.
func NewEcho(cfg Config) (*echo.Echo, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	if cfg.Path == "" {
		cfg.Path = defaultPath
	}

	if cfg.FileParameterName == "" {
		cfg.FileParameterName = defaultFileParameter
	}

	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = defaultMaxChunkSize
	}

	store, err := newChunkStore(cfg.Dir)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Warnf("%s %s -> %d: %v", v.Method, v.URI, v.Status, v.Error)
				return nil
			}

			logger.Debugf("%s %s -> %d", v.Method, v.URI, v.Status)

			return nil
		},
	}))

	customVal, err := validator.New()
	if err != nil {
		return nil, err
	}
	e.Validator = customVal

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	setupRoute(e, cfg, store)

	return e, nil
}
