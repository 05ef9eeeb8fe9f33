package receiver

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/zeebo/blake3"

	"github.com/NamanBalaji/resumable/internal/logger"
)

var (
	errSizeMismatch     = errors.New("chunk size does not match resumableCurrentChunkSize")
	errChecksumMismatch = errors.New("chunk checksum mismatch")
	errChunkTooLarge    = errors.New("chunk exceeds the maximum chunk size")
)

// ChunkRequest holds the protocol parameters of a test or upload request.
type ChunkRequest struct {
	ChunkNumber      int    `query:"resumableChunkNumber" form:"resumableChunkNumber" validate:"required,min=1,ltefield=TotalChunks"`
	ChunkSize        int64  `query:"resumableChunkSize" form:"resumableChunkSize" validate:"required,min=1"`
	CurrentChunkSize int64  `query:"resumableCurrentChunkSize" form:"resumableCurrentChunkSize" validate:"min=0"`
	TotalSize        int64  `query:"resumableTotalSize" form:"resumableTotalSize" validate:"min=0"`
	Type             string `query:"resumableType" form:"resumableType"`
	Identifier       string `query:"resumableIdentifier" form:"resumableIdentifier" validate:"required,max=512"`
	FileName         string `query:"resumableFilename" form:"resumableFilename" validate:"required"`
	RelativePath     string `query:"resumableRelativePath" form:"resumableRelativePath"`
	TotalChunks      int    `query:"resumableTotalChunks" form:"resumableTotalChunks" validate:"required,min=1"`
	Checksum         string `query:"resumableChunkChecksum" form:"resumableChunkChecksum" validate:"omitempty,len=64,hexadecimal"`
}

func (r *ChunkRequest) path() string {
	if r.RelativePath != "" {
		return r.RelativePath
	}

	return r.FileName
}

// bind reads parameters from the multipart form, or from the query string
// for test requests and raw bodies.
func bind(c echo.Context, req *ChunkRequest) error {
	b := &echo.DefaultBinder{}

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		if err := b.BindBody(c, req); err != nil {
			return err
		}
	} else if err := b.BindQueryParams(c, req); err != nil {
		return err
	}

	return c.Validate(req)
}

// Test answers 200 when the chunk is already stored.
func (h *Handler) Test(c echo.Context) error {
	var req ChunkRequest
	if err := bind(c, &req); err != nil {
		return fromError(c, http.StatusBadRequest, err)
	}

	if h.store.hasChunk(req.Identifier, req.ChunkNumber, req.CurrentChunkSize) {
		return message(c, http.StatusOK, "found")
	}

	return c.NoContent(http.StatusNoContent)
}

// Upload stores one chunk and assembles the file when it was the last one missing.
func (h *Handler) Upload(c echo.Context) error {
	var req ChunkRequest
	if err := bind(c, &req); err != nil {
		return fromError(c, http.StatusBadRequest, err)
	}

	if req.CurrentChunkSize > h.cfg.MaxChunkSize {
		return fromError(c, http.StatusRequestEntityTooLarge, errChunkTooLarge)
	}

	data, err := h.readChunk(c, req.CurrentChunkSize)
	if err != nil {
		return fromError(c, http.StatusBadRequest, err)
	}

	if int64(len(data)) != req.CurrentChunkSize {
		return fromError(c, http.StatusBadRequest, fmt.Errorf("%w: got %d bytes, want %d", errSizeMismatch, len(data), req.CurrentChunkSize))
	}

	// 422 leaves the chunk retryable
	if req.Checksum != "" {
		sum := blake3.Sum256(data)
		if !strings.EqualFold(hex.EncodeToString(sum[:]), req.Checksum) {
			return fromError(c, http.StatusUnprocessableEntity, errChecksumMismatch)
		}
	}

	if err := h.store.put(req.Identifier, req.ChunkNumber, data); err != nil {
		logger.Errorf("Failed to store chunk %d of %s: %v", req.ChunkNumber, req.Identifier, err)
		return fromError(c, http.StatusInternalServerError, err)
	}

	file, err := h.store.assemble(req.Identifier, req.path(), req.TotalChunks)
	if err != nil {
		logger.Errorf("Failed to assemble %s: %v", req.Identifier, err)
		return fromError(c, http.StatusInternalServerError, err)
	}

	if file == nil {
		return message(c, http.StatusOK, fmt.Sprintf("chunk %d of %d stored", req.ChunkNumber, req.TotalChunks))
	}

	logger.Infof("Assembled %s (%d bytes) at %s", file.Identifier, file.Size, file.Path)

	if h.cfg.OnComplete != nil {
		h.cfg.OnComplete(*file)
	}

	return message(c, http.StatusCreated, "file assembled")
}

func (h *Handler) readChunk(c echo.Context, size int64) ([]byte, error) {
	limit := size + 1

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile(h.cfg.FileParameterName)
		if err != nil {
			return nil, err
		}

		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()

		return readLimited(f, limit)
	}

	return readLimited(c.Request().Body, limit)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(r, limit)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
