package server

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pixelgrid/assetcache"
	"pixelgrid/web"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	return startServer(t, Config{
		AllowedOrigin: "*",
		Fetch:         assetcache.FetchFunc(web.Fetch),
	})
}

func startServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()

	cache, err := assetcache.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	srv := New(cfg, cache, discard)
	require.NoError(t, srv.Prepare(context.Background()))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readReply(t *testing.T, ws *websocket.Conn) Reply {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var r Reply
	require.NoError(t, ws.ReadJSON(&r))
	return r
}

func request(t *testing.T, ws *websocket.Conn, msg Message) Reply {
	t.Helper()
	require.NoError(t, ws.WriteJSON(msg))
	return readReply(t, ws)
}

func TestSessionFlow(t *testing.T) {
	_, ts := newTestServer(t)
	ws := dial(t, ts)

	r := readReply(t, ws)
	require.Equal(t, "state", r.Type)
	require.NotNil(t, r.State)
	assert.NotEmpty(t, r.State.ID)
	assert.Equal(t, 20, r.State.Size)
	assert.Equal(t, "#ff1744", r.State.Selected)

	r = request(t, ws, Message{Type: "paint", X: 0, Y: 0})
	require.Equal(t, "state", r.Type)
	assert.Equal(t, "#ff1744", r.State.Cells[0][0])
	assert.Equal(t, "", r.State.Cells[0][1])

	r = request(t, ws, Message{Type: "select", Color: "#00b0ff"})
	require.Equal(t, "state", r.Type)
	assert.Equal(t, "#00b0ff", r.State.Selected)

	r = request(t, ws, Message{Type: "paint", X: 19, Y: 19})
	assert.Equal(t, "#00b0ff", r.State.Cells[19][19])

	// Out of range paints are ignored.
	r = request(t, ws, Message{Type: "paint", X: 20, Y: 0})
	assert.Equal(t, "state", r.Type)

	r = request(t, ws, Message{Type: "select", Color: "#123456"})
	assert.Equal(t, "error", r.Type)
	assert.Contains(t, r.Content, "not in the palette")

	r = request(t, ws, Message{Type: "resize", Size: 60})
	assert.Equal(t, 60, r.State.Size)
	assert.Equal(t, "", r.State.Cells[0][0])

	r = request(t, ws, Message{Type: "resize", Size: 55})
	assert.Equal(t, 20, r.State.Size)

	r = request(t, ws, Message{Type: "launch"})
	assert.Equal(t, "error", r.Type)
}

func TestImport(t *testing.T) {
	_, ts := newTestServer(t)
	ws := dial(t, ts)
	readReply(t, ws)

	src := image.NewRGBA(image.Rect(0, 0, 20, 20))
	draw.Draw(src, src.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, buf.Bytes()))
	r := readReply(t, ws)
	require.Equal(t, "state", r.Type)
	for _, row := range r.State.Cells {
		for _, c := range row {
			require.Equal(t, "#ffffff", c)
		}
	}

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte("definitely not a picture")))
	r = readReply(t, ws)
	assert.Equal(t, "error", r.Type)
	assert.Contains(t, r.Content, "not an image")
}

func TestOversizedUpload(t *testing.T) {
	_, ts := startServer(t, Config{
		AllowedOrigin: "*",
		MaxUpload:     1024,
	})
	ws := dial(t, ts)
	readReply(t, ws)

	r := request(t, ws, Message{Type: "paint", X: 3, Y: 3})
	require.Equal(t, "#ff1744", r.State.Cells[3][3])

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, bytes.Repeat([]byte{0x89}, 3000)))
	r = readReply(t, ws)
	assert.Equal(t, "error", r.Type)
	assert.Contains(t, r.Content, "too large")

	// The session survives the rejected upload.
	r = request(t, ws, Message{Type: "paint", X: 4, Y: 4})
	require.Equal(t, "state", r.Type)
	assert.Equal(t, "#ff1744", r.State.Cells[3][3])
	assert.Equal(t, "#ff1744", r.State.Cells[4][4])
}

func TestPrepareUsesCachedCopy(t *testing.T) {
	cache, err := assetcache.Open(":memory:")
	require.NoError(t, err)
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, New(Config{Fetch: assetcache.FetchFunc(web.Fetch)}, cache, discard).Prepare(ctx))

	offline := assetcache.FetchFunc(func(context.Context, string) (assetcache.Asset, error) {
		return assetcache.Asset{}, errors.New("network unreachable")
	})
	srv := New(Config{Fetch: offline}, cache, discard)
	require.NoError(t, srv.Prepare(ctx))

	a, err := cache.Match(ctx, assetcache.DefaultVersion, assetcache.OfflinePage)
	require.NoError(t, err)
	assert.Contains(t, string(a.Body), "app.js")

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A new version has nothing to fall back on.
	err = New(Config{Fetch: offline, CacheVersion: "pixelgrid-cache-v2"}, cache, discard).Prepare(ctx)
	assert.Error(t, err)

	fresh, err := assetcache.Open(":memory:")
	require.NoError(t, err)
	defer fresh.Close()
	assert.Error(t, New(Config{Fetch: offline}, fresh, discard).Prepare(ctx))
}

func TestExport(t *testing.T) {
	_, ts := newTestServer(t)
	ws := dial(t, ts)
	id := readReply(t, ws).State.ID
	request(t, ws, Message{Type: "paint", X: 1, Y: 1})

	resp, err := http.Get(ts.URL + "/export/" + id + ".png?scale=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	_, _, _, a := img.At(0, 0).RGBA()
	assert.Zero(t, a)
	r, _, _, _ := img.At(2, 2).RGBA()
	assert.Equal(t, uint32(0xffff), r)

	for _, target := range []string{"/export/nope.png", "/export/" + id + ".bmp", "/export/" + id + ".png?scale=0"} {
		resp, err := http.Get(ts.URL + target)
		require.NoError(t, err)
		resp.Body.Close()
		assert.NotEqual(t, http.StatusOK, resp.StatusCode, target)
	}
}

func TestAssets(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hit", resp.Header.Get("X-Cache"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "app.js")
}

func TestOriginCheck(t *testing.T) {
	cache, err := assetcache.Open(":memory:")
	require.NoError(t, err)
	defer cache.Close()

	srv := New(Config{AllowedOrigin: "https://paint.example", Fetch: assetcache.FetchFunc(web.Fetch)}, cache, discard)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
