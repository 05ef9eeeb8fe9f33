package resumable

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/zeebo/blake3"

	"github.com/NamanBalaji/resumable/internal/logger"
)

const (
	maxMessageSize   = 64 * 1024
	progressInterval = 100 * time.Millisecond
)

// transport sends chunk requests. Retries of a single chunk happen inside
// the retryable client; the scheduler only sees the final outcome.
type transport struct {
	opts   *Options
	client *retryablehttp.Client
}

func newTransport(opts *Options) *transport {
	t := &transport{opts: opts}

	client := retryablehttp.NewClient()
	if opts.HTTPClient != nil {
		hc := *opts.HTTPClient
		client.HTTPClient = &hc
	}

	if opts.RequestTimeout > 0 {
		client.HTTPClient.Timeout = opts.RequestTimeout
	}

	client.Logger = logger.Leveled()
	client.RetryMax = opts.MaxChunkRetries
	client.RetryWaitMin = opts.ChunkRetryInterval
	client.RetryWaitMax = opts.ChunkRetryInterval
	client.Backoff = t.backoff
	client.CheckRetry = t.checkRetry
	client.RequestLogHook = t.requestHook
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	t.client = client

	return t
}

func (t *transport) backoff(_, _ time.Duration, _ int, _ *http.Response) time.Duration {
	return t.opts.ChunkRetryInterval
}

func (t *transport) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		retry, rerr := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		if retry {
			t.markRetrying(ctx)
		}

		return retry, rerr
	}

	if successful(resp.StatusCode) || slices.Contains(t.opts.PermanentErrors, resp.StatusCode) {
		return false, nil
	}

	t.markRetrying(ctx)

	return true, nil
}

func (t *transport) markRetrying(ctx context.Context) {
	if c := chunkFrom(ctx); c != nil {
		c.retrying()
	}
}

// requestHook runs before every attempt; attempt 0 is the first send.
func (t *transport) requestHook(_ retryablehttp.Logger, req *http.Request, attempt int) {
	if attempt == 0 {
		return
	}

	if c := chunkFrom(req.Context()); c != nil {
		logger.Debugf("Retrying chunk %d of %s (attempt %d)", c.Number(), c.file.UniqueIdentifier, attempt)
		c.retried()
	}
}

func successful(code int) bool {
	return code == http.StatusOK || code == http.StatusCreated
}

// params returns the protocol parameters describing c.
func (t *transport) params(c *Chunk) url.Values {
	f := c.file
	p := t.opts.Params
	total := len(f.Chunks())
	if total == 0 {
		total = 1
	}

	v := url.Values{}
	for k, val := range t.opts.Query {
		v.Set(k, val)
	}

	v.Set(p.ChunkNumber, strconv.Itoa(c.Number()))
	v.Set(p.ChunkSize, strconv.FormatInt(t.opts.ChunkSize, 10))
	v.Set(p.CurrentChunkSize, strconv.FormatInt(c.Size(), 10))
	v.Set(p.TotalSize, strconv.FormatInt(f.Size, 10))
	v.Set(p.Type, f.Type())
	v.Set(p.Identifier, f.UniqueIdentifier)
	v.Set(p.FileName, f.FileName)
	v.Set(p.RelativePath, f.RelativePath)
	v.Set(p.TotalChunks, strconv.Itoa(total))

	return v
}

func (t *transport) targetURL(query url.Values) (string, error) {
	u, err := url.Parse(t.opts.Target)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for k, vals := range query {
		q[k] = vals
	}

	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (t *transport) applyHeaders(h http.Header) {
	for k, v := range t.opts.Headers {
		h.Set(k, v)
	}
}

// test asks the server whether it already has the chunk.
func (t *transport) test(ctx context.Context, c *Chunk) (bool, string, error) {
	target, err := t.targetURL(t.params(c))
	if err != nil {
		return false, "", err
	}

	req, err := http.NewRequestWithContext(ctx, t.opts.TestMethod, target, nil)
	if err != nil {
		return false, "", err
	}

	t.applyHeaders(req.Header)

	resp, err := t.client.HTTPClient.Do(req)
	if err != nil {
		return false, "", err
	}
	defer resp.Body.Close()

	return successful(resp.StatusCode), readMessage(resp.Body), nil
}

// send uploads the chunk and reports the final status after retries.
func (t *transport) send(ctx context.Context, c *Chunk) (Status, string, error) {
	data, err := readChunk(c)
	if err != nil {
		return Error, err.Error(), err
	}

	params := t.params(c)
	if t.opts.ChunkChecksum {
		sum := blake3.Sum256(data)
		params.Set(t.opts.Params.Checksum, hex.EncodeToString(sum[:]))
	}

	var (
		body        []byte
		contentType string
		query       url.Values
	)

	switch t.opts.Method {
	case MethodOctet:
		body = data
		query = params
		contentType = "application/octet-stream"
		if t.opts.SetChunkTypeFromFile && c.file.Type() != "" {
			contentType = c.file.Type()
		}
	default:
		body, contentType, err = t.multipartBody(c, params, data)
		if err != nil {
			return Error, err.Error(), err
		}
	}

	target, err := t.targetURL(query)
	if err != nil {
		return Error, err.Error(), err
	}

	reader := func() (io.Reader, error) {
		return &progressReader{r: bytes.NewReader(body), chunk: c}, nil
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, t.opts.UploadMethod, target, retryablehttp.ReaderFunc(reader))
	if err != nil {
		return Error, err.Error(), err
	}

	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", contentType)
	t.applyHeaders(req.Header)

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Pending, "", ctx.Err()
		}

		return Error, err.Error(), err
	}
	defer resp.Body.Close()

	msg := readMessage(resp.Body)
	if successful(resp.StatusCode) {
		return Success, msg, nil
	}

	return Error, msg, fmt.Errorf("%w: status %d", ErrChunkRejected, resp.StatusCode)
}

func (t *transport) multipartBody(c *Chunk, params url.Values, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)
	for k, vals := range params {
		for _, v := range vals {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
	}

	partType := "application/octet-stream"
	if t.opts.SetChunkTypeFromFile && c.file.Type() != "" {
		partType = c.file.Type()
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, t.opts.FileParameterName, c.file.FileName))
	h.Set("Content-Type", partType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}

	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

func readChunk(c *Chunk) ([]byte, error) {
	data := make([]byte, c.Size())
	if len(data) == 0 {
		return data, nil
	}

	n, err := c.file.src.ReadAt(data, c.StartByte)
	if n == len(data) {
		return data, nil
	}

	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}

	return nil, fmt.Errorf("failed to read chunk %d of %s: %w", c.Number(), c.file.FileName, err)
}

func readMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxMessageSize))
	return string(b)
}

// progressReader counts bytes of the current attempt as they leave.
type progressReader struct {
	r     *bytes.Reader
	chunk *Chunk
	last  atomic.Int64
}

func (p *progressReader) Len() int {
	return p.r.Len()
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n <= 0 {
		return n, err
	}

	c := p.chunk
	c.loaded.Store(min(c.loaded.Load()+int64(n), c.Size()))

	now := time.Now().UnixNano()
	if now-p.last.Load() >= int64(progressInterval) || p.r.Len() == 0 {
		p.last.Store(now)
		c.file.owner.Fire(Event{Name: EventFileProgress, File: c.file, Chunk: c})
	}

	return n, err
}
