package server

import (
	"bytes"
	"image/gif"
	"image/png"
	"net/http"
	"path"
	"strconv"
	"strings"
)

// handleExport renders a live session as /export/{id}.png or
// /export/{id}.gif. ?scale=N sets the pixels per cell.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	ext := path.Ext(file)
	id := strings.TrimSuffix(file, ext)

	c := s.client(id)
	if c == nil {
		http.NotFound(w, r)
		return
	}

	scale := 0
	if v := r.URL.Query().Get("scale"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 64 {
			http.Error(w, "invalid scale", http.StatusBadRequest)
			return
		}
		scale = n
	}

	c.mu.Lock()
	img := c.sess.Image(scale)
	c.mu.Unlock()

	var buf bytes.Buffer
	var err error
	switch ext {
	case ".png":
		w.Header().Set("Content-Type", "image/png")
		err = png.Encode(&buf, img)
	case ".gif":
		w.Header().Set("Content-Type", "image/gif")
		err = gif.Encode(&buf, img, nil)
	default:
		http.Error(w, "unsupported format", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.logger.Error("could not encode export", "session", id, "format", ext, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	buf.WriteTo(w)
}
