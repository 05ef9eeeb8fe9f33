package receiver_test

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/NamanBalaji/resumable/internal/receiver"
	"github.com/NamanBalaji/resumable/internal/repository"
	"github.com/NamanBalaji/resumable/pkg/resumable"
)

func newServer(t *testing.T, cfg receiver.Config) *httptest.Server {
	t.Helper()

	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}

	e, err := receiver.NewEcho(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return srv
}

func chunkParams(n, total int, data []byte, totalSize int) url.Values {
	return url.Values{
		"resumableChunkNumber":      {strconv.Itoa(n)},
		"resumableChunkSize":        {"4"},
		"resumableCurrentChunkSize": {strconv.Itoa(len(data))},
		"resumableTotalSize":        {strconv.Itoa(totalSize)},
		"resumableIdentifier":       {"8-notestxt"},
		"resumableFilename":         {"notes.txt"},
		"resumableRelativePath":     {"docs/notes.txt"},
		"resumableTotalChunks":      {strconv.Itoa(total)},
	}
}

func postOctet(t *testing.T, srv *httptest.Server, params url.Values, data []byte) *http.Response {
	t.Helper()

	resp, err := http.Post(srv.URL+"/upload?"+params.Encode(), "application/octet-stream", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func postMultipart(t *testing.T, srv *httptest.Server, params url.Values, data []byte) *http.Response {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, vals := range params {
		for _, v := range vals {
			require.NoError(t, w.WriteField(k, v))
		}
	}

	part, err := w.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, err := http.Post(srv.URL+"/upload", w.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func testChunk(t *testing.T, srv *httptest.Server, params url.Values) int {
	t.Helper()

	resp, err := http.Get(srv.URL + "/upload?" + params.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()

	return resp.StatusCode
}

func readMessage(t *testing.T, resp *http.Response) string {
	t.Helper()

	var body receiver.MessageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body.Message
}

func TestHealth(t *testing.T) {
	srv := newServer(t, receiver.Config{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestNewEchoRequiresDir(t *testing.T) {
	_, err := receiver.NewEcho(receiver.Config{})
	assert.Error(t, err)
}

func TestUploadAndAssemble(t *testing.T) {
	tests := []struct {
		name string
		post func(*testing.T, *httptest.Server, url.Values, []byte) *http.Response
	}{
		{name: "octet", post: postOctet},
		{name: "multipart", post: postMultipart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()

			var (
				mu        sync.Mutex
				assembled []receiver.File
			)

			srv := newServer(t, receiver.Config{Dir: dir, OnComplete: func(f receiver.File) {
				mu.Lock()
				defer mu.Unlock()
				assembled = append(assembled, f)
			}})

			first, second := []byte("abcd"), []byte("efgh")

			assert.Equal(t, http.StatusNoContent, testChunk(t, srv, chunkParams(2, 2, second, 8)))

			resp := tt.post(t, srv, chunkParams(2, 2, second, 8), second)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "chunk 2 of 2 stored", readMessage(t, resp))

			assert.Equal(t, http.StatusOK, testChunk(t, srv, chunkParams(2, 2, second, 8)))

			resp = tt.post(t, srv, chunkParams(1, 2, first, 8), first)
			assert.Equal(t, http.StatusCreated, resp.StatusCode)

			got, err := os.ReadFile(filepath.Join(dir, "docs", "notes.txt"))
			require.NoError(t, err)
			assert.Equal(t, "abcdefgh", string(got))

			// chunks are gone after assembly, so a new upload of the same path is sent again
			assert.Equal(t, http.StatusNoContent, testChunk(t, srv, chunkParams(1, 2, first, 8)))

			mu.Lock()
			defer mu.Unlock()
			require.Len(t, assembled, 1)
			assert.Equal(t, int64(8), assembled[0].Size)
			assert.Equal(t, "8-notestxt", assembled[0].Identifier)
		})
	}
}

func TestUploadRejects(t *testing.T) {
	data := []byte("abcd")

	tests := []struct {
		name   string
		params func() url.Values
		data   []byte
		want   int
	}{
		{
			name: "missing identifier",
			params: func() url.Values {
				p := chunkParams(1, 1, data, 4)
				p.Del("resumableIdentifier")
				return p
			},
			data: data,
			want: http.StatusBadRequest,
		},
		{
			name: "chunk number above total",
			params: func() url.Values {
				return chunkParams(3, 2, data, 8)
			},
			data: data,
			want: http.StatusBadRequest,
		},
		{
			name: "size mismatch",
			params: func() url.Values {
				return chunkParams(1, 1, data, 4)
			},
			data: []byte("abc"),
			want: http.StatusBadRequest,
		},
		{
			name: "checksum mismatch",
			params: func() url.Values {
				p := chunkParams(1, 1, data, 4)
				sum := blake3.Sum256([]byte("other"))
				p.Set("resumableChunkChecksum", hex.EncodeToString(sum[:]))
				return p
			},
			data: data,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "malformed checksum",
			params: func() url.Values {
				p := chunkParams(1, 1, data, 4)
				p.Set("resumableChunkChecksum", "xyz")
				return p
			},
			data: data,
			want: http.StatusBadRequest,
		},
		{
			name: "valid checksum",
			params: func() url.Values {
				p := chunkParams(1, 1, data, 4)
				sum := blake3.Sum256(data)
				p.Set("resumableChunkChecksum", hex.EncodeToString(sum[:]))
				return p
			},
			data: data,
			want: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, receiver.Config{})

			resp := postOctet(t, srv, tt.params(), tt.data)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, readMessage(t, resp))
		})
	}
}

func TestUploadTooLarge(t *testing.T) {
	srv := newServer(t, receiver.Config{MaxChunkSize: 2})

	data := []byte("abcd")
	resp := postOctet(t, srv, chunkParams(1, 1, data, 4), data)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestRelativePathStaysInsideDir(t *testing.T) {
	dir := t.TempDir()
	srv := newServer(t, receiver.Config{Dir: filepath.Join(dir, "out")})

	data := []byte("abcd")
	params := chunkParams(1, 1, data, 4)
	params.Set("resumableRelativePath", "../../escape.txt")

	resp := postOctet(t, srv, params, data)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_, err := os.Stat(filepath.Join(dir, "out", "escape.txt"))
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func uploadAll(t *testing.T, r *resumable.Resumable) {
	t.Helper()

	done := make(chan struct{})

	var once sync.Once
	r.On(resumable.EventComplete, func(resumable.Event) { once.Do(func() { close(done) }) })

	r.Upload()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for upload")
	}
}

func randomData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*31 + i/7)
	}

	return data
}

func TestClientRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		opts []resumable.Option
	}{
		{name: "multipart", opts: nil},
		{name: "octet", opts: []resumable.Option{resumable.WithMethod(resumable.MethodOctet)}},
		{name: "checksums", opts: []resumable.Option{resumable.WithChunkChecksum(true)}},
		{name: "forced chunk size", opts: []resumable.Option{resumable.WithForceChunkSize(true), resumable.WithPrioritizeFirstAndLastChunk(true)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			srv := newServer(t, receiver.Config{Dir: dir})

			opts := append([]resumable.Option{
				resumable.WithTarget(srv.URL + "/upload"),
				resumable.WithChunkSize(1000),
			}, tt.opts...)

			r, err := resumable.New(opts...)
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, r.Close()) })

			data := randomData(4321)
			require.NoError(t, r.AddFiles([]resumable.Source{
				resumable.NewBytesSource("big.bin", data),
				resumable.NewBytesSource("small.txt", []byte("tiny")),
			}, nil))

			uploadAll(t, r)

			got, err := os.ReadFile(filepath.Join(dir, "big.bin"))
			require.NoError(t, err)
			assert.Equal(t, data, got)

			got, err = os.ReadFile(filepath.Join(dir, "small.txt"))
			require.NoError(t, err)
			assert.Equal(t, "tiny", string(got))

			assert.InDelta(t, 1.0, r.Progress(), 0)
		})
	}
}

func TestClientReuploadsChangedFile(t *testing.T) {
	dir := t.TempDir()
	srv := newServer(t, receiver.Config{Dir: dir})

	first := randomData(2500)
	second := make([]byte, len(first))
	for i, b := range first {
		second[i] = ^b
	}

	for _, data := range [][]byte{first, second} {
		r, err := resumable.New(
			resumable.WithTarget(srv.URL+"/upload"),
			resumable.WithChunkSize(1000),
		)
		require.NoError(t, err)

		require.NoError(t, r.AddFile(resumable.NewBytesSource("report.bin", data), nil))
		uploadAll(t, r)
		require.NoError(t, r.Close())

		got, err := os.ReadFile(filepath.Join(dir, "report.bin"))
		require.NoError(t, err)
		assert.Equal(t, data, got)
	}
}

func TestClientResumesWithStateStore(t *testing.T) {
	dir := t.TempDir()
	srcDir := t.TempDir()

	var posts sync.Map

	e, err := receiver.NewEcho(receiver.Config{Dir: dir})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodPost {
			posts.Store(req.URL.Query().Get("resumableChunkNumber"), true)
		}

		e.ServeHTTP(w, req)
	}))
	t.Cleanup(srv.Close)

	repo, err := repository.NewBboltRepository(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, repo.Close()) })

	path := filepath.Join(srcDir, "photo.raw")
	data := randomData(3000)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	src, err := resumable.NewFileSource(path)
	require.NoError(t, err)

	// a previous run got chunks 1 and 2 through
	for n, part := range [][]byte{data[:1000], data[1000:2000]} {
		params := url.Values{
			"resumableChunkNumber":      {strconv.Itoa(n + 1)},
			"resumableChunkSize":        {"1000"},
			"resumableCurrentChunkSize": {"1000"},
			"resumableTotalSize":        {"3000"},
			"resumableIdentifier":       {"3000-photoraw"},
			"resumableFilename":         {"photo.raw"},
			"resumableRelativePath":     {"photo.raw"},
			"resumableTotalChunks":      {"3"},
		}
		resp := postOctet(t, srv, params, part)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		require.NoError(t, repo.MarkChunk(resumable.UploadState{
			Identifier: "3000-photoraw",
			Size:       3000,
			ChunkSize:  1000,
		}, n+1))
	}

	posts.Range(func(k, _ any) bool {
		posts.Delete(k)
		return true
	})

	r, err := resumable.New(
		resumable.WithTarget(srv.URL+"/upload"),
		resumable.WithChunkSize(1000),
		resumable.WithMethod(resumable.MethodOctet),
		resumable.WithStateStore(repo),
	)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, r.Close()) })

	require.NoError(t, r.AddFile(src, nil))
	uploadAll(t, r)

	got, err := os.ReadFile(filepath.Join(dir, "photo.raw"))
	require.NoError(t, err)
	assert.Equal(t, data, got)

	var numbers []string
	posts.Range(func(k, _ any) bool {
		numbers = append(numbers, k.(string))
		return true
	})
	assert.Equal(t, []string{"3"}, numbers)

	_, err = repo.Find("3000-photoraw")
	assert.ErrorIs(t, err, resumable.ErrStateNotFound)
}
