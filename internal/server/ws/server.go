package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/soren/sotto/internal/stream"
	"github.com/soren/sotto/internal/stt"
)

// Server accepts websocket transcription streams. Every connection
// gets its own engine and audio buffer; the loaded model is shared and
// decodes one clip at a time.
type Server struct {
	backend  stt.Transcriber
	baseCfg  stream.Config
	log      *slog.Logger
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// New creates a server over a backend. The backend is serialized here;
// callers can pass the raw model.
func New(backend stt.Transcriber, baseCfg stream.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		backend: stt.Serialize(backend),
		baseCfg: baseCfg,
		log:     logger.With("component", "ws.server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			// Streaming clients are local tools, not browsers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler: the stream endpoint plus a health
// probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/stream", s.handleStream)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "ok backend=%s\n", s.backend.Name())
	})
	return mux
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	id := uuid.NewString()
	s.log.Info("client connected", "conn", id, "remote", r.RemoteAddr)
	sess := newSession(id, conn, s.backend, s.baseCfg, s.log)
	sess.run(r.Context())
	s.log.Info("client disconnected", "conn", id)
}

// ListenAndServe blocks serving addr until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("listening", "addr", addr, "backend", s.backend.Name())
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains connections and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
