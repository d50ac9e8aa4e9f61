package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"pixelgrid/grid"
	"pixelgrid/importer"
	"pixelgrid/session"

	"github.com/gorilla/websocket"
)

// Message is a request from the browser. Binary frames carry image uploads
// and have no Message.
type Message struct {
	Type  string `json:"type"`
	Color string `json:"color,omitempty"`
	Size  int    `json:"size,omitempty"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
}

// Reply is sent after every request: the full state, or an error.
type Reply struct {
	Type    string         `json:"type"`
	Content string         `json:"content,omitempty"`
	State   *session.State `json:"state,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	c := s.addClient(conn)
	defer s.removeClient(c)

	logger := s.logger.With("session", c.sess.ID)
	logger.Info("client connected", "remote", r.RemoteAddr)
	defer logger.Info("client disconnected")

	done := make(chan struct{})
	defer close(done)
	go s.sendPings(logger, conn, done)

	// Frames between MaxUpload and the socket limit are drained and answered
	// with an error; only larger ones drop the connection.
	conn.SetReadLimit(s.cfg.MaxUpload * 4)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.mu.Lock()
	reply := stateReply(c.sess)
	c.mu.Unlock()
	if err := write(conn, reply); err != nil {
		logger.Warn("could not send initial state", "error", err)
		return
	}

	for {
		mt, data, err := s.readFrame(conn)
		if errors.Is(err, importer.ErrTooLarge) {
			logger.Info("upload rejected", "error", err)
			if err := write(conn, errorReply(err)); err != nil {
				logger.Warn("write failed", "error", err)
				return
			}
			continue
		}
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("read failed", "error", err)
			}
			return
		}

		c.mu.Lock()
		reply := s.dispatch(logger, c.sess, mt, data)
		c.mu.Unlock()

		if err := write(conn, reply); err != nil {
			logger.Warn("write failed", "error", err)
			return
		}
	}
}

// readFrame reads the next message, refusing bodies over MaxUpload with
// importer.ErrTooLarge after draining them.
func (s *Server) readFrame(conn *websocket.Conn) (int, []byte, error) {
	mt, r, err := conn.NextReader()
	if err != nil {
		return mt, nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxUpload+1))
	if err != nil {
		return mt, nil, err
	}
	if int64(len(data)) > s.cfg.MaxUpload {
		if _, err := io.Copy(io.Discard, r); err != nil {
			return mt, nil, err
		}
		return mt, nil, fmt.Errorf("%w: upload exceeds %d bytes", importer.ErrTooLarge, s.cfg.MaxUpload)
	}
	return mt, data, nil
}

func write(conn *websocket.Conn, reply Reply) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(reply)
}

func (s *Server) sendPings(logger *slog.Logger, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

func stateReply(sess *session.Session) Reply {
	st := sess.State()
	return Reply{Type: "state", State: &st}
}

func errorReply(err error) Reply {
	return Reply{Type: "error", Content: err.Error()}
}

// dispatch applies one request to sess. The caller holds the session lock.
func (s *Server) dispatch(logger *slog.Logger, sess *session.Session, mt int, data []byte) Reply {
	if mt == websocket.BinaryMessage {
		if err := s.importImage(sess, data); err != nil {
			logger.Info("import rejected", "error", err)
			return errorReply(err)
		}
		logger.Debug("imported image", "bytes", len(data), "size", sess.Store().Dimension())
		return stateReply(sess)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Info("invalid message", "error", err)
		return errorReply(fmt.Errorf("invalid message: %w", err))
	}

	switch msg.Type {
	case "state":
	case "select":
		if err := sess.Select(msg.Color); err != nil {
			return errorReply(err)
		}
	case "resize":
		if size := sess.SetSize(msg.Size); size != msg.Size {
			logger.Debug("unsupported grid size", "requested", msg.Size, "size", size)
		}
	case "paint":
		// Cells come from the rendered grid, so a miss means a stale
		// page; the fresh state below corrects it.
		if err := sess.PaintAt(msg.X, msg.Y); err != nil {
			if !errors.Is(err, grid.ErrOutOfRange) {
				return errorReply(err)
			}
			logger.Debug("paint ignored", "error", err)
		}
	default:
		return errorReply(fmt.Errorf("unknown message type %q", msg.Type))
	}

	return stateReply(sess)
}

func (s *Server) importImage(sess *session.Session, data []byte) error {
	if err := importer.CheckMediaType(importer.Sniff(data)); err != nil {
		return err
	}

	img, _, err := importer.Decode(bytes.NewReader(data), s.cfg.MaxPixels)
	if err != nil {
		return err
	}

	sess.Import(img)
	return nil
}
