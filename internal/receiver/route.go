package receiver

import (
	"github.com/labstack/echo/v4"
)

type Handler struct {
	cfg   Config
	store *chunkStore
}

func setupRoute(e *echo.Echo, cfg Config, store *chunkStore) {
	h := &Handler{cfg: cfg, store: store}

	e.GET(cfg.Path, h.Test)
	e.POST(cfg.Path, h.Upload)
	e.PUT(cfg.Path, h.Upload)
	e.PATCH(cfg.Path, h.Upload)
}
