package assetcache

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"
)

// Handler answers GET requests cache first. Misses go to Fetch without being
// stored; if Fetch fails for any reason other than ErrNotFound the cached
// Offline page is served instead.
type Handler struct {
	Cache   *Cache
	Version string
	Fetch   Fetcher
	// Offline defaults to OfflinePage.
	Offline string
	// Next receives every non-GET request. Without it they get 405.
	Next   http.Handler
	Logger *slog.Logger
}

// AssetName maps a request path onto the names used in the cache.
func AssetName(p string) string {
	p = path.Clean("/" + p)
	if p == "/" {
		return "./"
	}
	return strings.TrimPrefix(p, "/")
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		if h.Next != nil {
			h.Next.ServeHTTP(w, r)
			return
		}
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	name := AssetName(r.URL.Path)
	logger := h.logger().With("asset", name, "version", h.Version)

	a, err := h.Cache.Match(ctx, h.Version, name)
	if err == nil {
		serve(w, r, a, "hit")
		return
	} else if !errors.Is(err, ErrNotCached) {
		logger.Error("could not read cache", "error", err)
	}

	a, err = h.Fetch.Fetch(ctx, name)
	if err == nil {
		serve(w, r, a, "miss")
		return
	} else if errors.Is(err, ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	logger.Warn("network fetch failed, falling back to offline page", "error", err)

	offline := h.Offline
	if offline == "" {
		offline = OfflinePage
	}
	a, err = h.Cache.Match(ctx, h.Version, offline)
	if err != nil {
		logger.Error("offline page unavailable", "page", offline, "error", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	serve(w, r, a, "offline")
}

func serve(w http.ResponseWriter, r *http.Request, a Asset, source string) {
	if a.ContentType != "" {
		w.Header().Set("Content-Type", a.ContentType)
	}
	w.Header().Set("X-Cache", source)
	http.ServeContent(w, r, a.Name, time.Time{}, bytes.NewReader(a.Body))
}
