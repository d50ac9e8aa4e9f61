/*
Package server is the browser front end: it serves the page through the asset
cache and keeps one painting session per WebSocket connection.
*/
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"pixelgrid/assetcache"
	"pixelgrid/importer"
	"pixelgrid/palette"
	"pixelgrid/quantize"
	"pixelgrid/session"
	"pixelgrid/web"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pingPeriod   = 30 * time.Second
	pongWait     = 40 * time.Second
	writeWait    = 10 * time.Second
	shutdownWait = 5 * time.Second
)

type Config struct {
	Listen string
	// AllowedOrigin is compared with the Origin header of WebSocket
	// handshakes; "*" accepts any origin.
	AllowedOrigin string
	CacheVersion  string
	// Fetch is where assets come from when they are not cached. Defaults
	// to the bundled page.
	Fetch     assetcache.Fetcher
	MaxUpload int64
	MaxPixels int
	Crop      bool
}

// client couples a session with its connection. mu guards the session, which
// is read by export requests while the connection goroutine mutates it.
type client struct {
	mu   sync.Mutex
	sess *session.Session
	conn *websocket.Conn
}

type Server struct {
	cfg    Config
	cache  *assetcache.Cache
	logger *slog.Logger

	q        *quantize.Quantizer
	imp      *importer.Importer
	upgrader websocket.Upgrader

	clientMtx sync.Mutex
	clients   map[string]*client
}

func New(cfg Config, cache *assetcache.Cache, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CacheVersion == "" {
		cfg.CacheVersion = assetcache.DefaultVersion
	}
	if cfg.Fetch == nil {
		cfg.Fetch = assetcache.FetchFunc(web.Fetch)
	}
	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = 16 << 20
	}

	q := quantize.New(palette.Fixed())
	s := &Server{
		cfg:     cfg,
		cache:   cache,
		logger:  logger,
		q:       q,
		imp:     importer.New(q, importer.WithCrop(cfg.Crop)),
		clients: make(map[string]*client),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return cfg.AllowedOrigin == "*" || origin == "" || origin == cfg.AllowedOrigin
		},
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("GET /export/{file}", s.handleExport)
	mux.Handle("/", &assetcache.Handler{
		Cache:   s.cache,
		Version: s.cfg.CacheVersion,
		Fetch:   s.cfg.Fetch,
		Logger:  s.logger.With("component", "assets"),
	})
	return mux
}

// Prepare installs the page assets under the configured cache version and
// drops every other version. Failing to reach the network is not fatal as
// long as an earlier install of the same version is still around.
func (s *Server) Prepare(ctx context.Context) error {
	logger := s.logger.With("version", s.cfg.CacheVersion)

	if err := s.cache.Install(ctx, s.cfg.CacheVersion, assetcache.DefaultAssets, s.cfg.Fetch); err != nil {
		if _, merr := s.cache.Match(ctx, s.cfg.CacheVersion, assetcache.OfflinePage); merr != nil {
			return err
		}
		logger.Warn("could not refresh asset cache, using cached copy", "error", err)
	}

	removed, err := s.cache.Activate(ctx, s.cfg.CacheVersion)
	if err != nil {
		return err
	}
	logger.Info("asset cache ready", "removed", removed)
	return nil
}

// ListenAndServe runs until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.logger.Info("listening", "addr", s.cfg.Listen)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.closeClients()

	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) addClient(conn *websocket.Conn) *client {
	c := &client{
		sess: session.New(uuid.New().String(), s.q, s.imp),
		conn: conn,
	}

	s.clientMtx.Lock()
	s.clients[c.sess.ID] = c
	s.clientMtx.Unlock()

	return c
}

func (s *Server) removeClient(c *client) {
	s.clientMtx.Lock()
	delete(s.clients, c.sess.ID)
	s.clientMtx.Unlock()
}

func (s *Server) client(id string) *client {
	s.clientMtx.Lock()
	defer s.clientMtx.Unlock()
	return s.clients[id]
}

// Shutdown does not touch hijacked connections.
func (s *Server) closeClients() {
	s.clientMtx.Lock()
	defer s.clientMtx.Unlock()
	for _, c := range s.clients {
		c.conn.Close()
	}
}
