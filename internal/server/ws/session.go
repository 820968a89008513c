package ws

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soren/sotto/internal/audio"
	"github.com/soren/sotto/internal/stream"
	"github.com/soren/sotto/internal/stt"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// session owns one websocket connection: a read loop for control and
// audio frames, an event pump relaying engine updates, and the engine
// itself. The backend is shared across sessions and already serialized.
type session struct {
	id      string
	conn    *websocket.Conn
	backend stt.Transcriber
	baseCfg stream.Config
	log     *slog.Logger

	writeMu sync.Mutex

	source *audio.Source
	engine *stream.Engine
	pump   context.CancelFunc
}

func newSession(id string, conn *websocket.Conn, backend stt.Transcriber, baseCfg stream.Config, log *slog.Logger) *session {
	return &session{
		id:      id,
		conn:    conn,
		backend: backend,
		baseCfg: baseCfg,
		log:     log.With("conn", id),
	}
}

// run drives the connection until the client goes away. It owns the
// read side; all writes go through write().
func (s *session) run(ctx context.Context) {
	defer s.teardown()

	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go s.pingLoop(pingCtx)

	s.write(ServerMessage{Type: ServerReady, Session: s.id})

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("read ended", "error", err)
			}
			return
		}

		switch msgType {
		case websocket.TextMessage:
			if err := s.handleControl(ctx, data); err != nil {
				s.writeError(stt.KindUnknown, err)
			}
		case websocket.BinaryMessage:
			s.handleAudio(data)
		}
	}
}

func (s *session) handleControl(ctx context.Context, data []byte) error {
	msg, err := parseClientMessage(data)
	if err != nil {
		return err
	}

	switch msg.Type {
	case ClientStart:
		return s.start(ctx, msg.Config)
	case ClientStop:
		return s.stop()
	case ClientReset:
		if s.engine == nil {
			return fmt.Errorf("reset before any session")
		}
		return s.engine.Reset(msg.PreserveText)
	default:
		return fmt.Errorf("unknown control type %q", msg.Type)
	}
}

func (s *session) start(ctx context.Context, overrides *SessionConfig) error {
	if s.engine != nil && s.engine.Status() != stream.StatusIdle {
		return fmt.Errorf("session already running")
	}
	if s.pump != nil {
		s.pump()
	}

	cfg := overrides.apply(s.baseCfg)
	s.source = audio.NewSource(stt.SampleRate)

	engine, err := stream.New(cfg, s.source, s.backend, s.log)
	if err != nil {
		return err
	}
	s.engine = engine

	pumpCtx, cancel := context.WithCancel(ctx)
	s.pump = cancel
	go s.eventPump(pumpCtx, engine)

	if err := engine.Start(ctx); err != nil {
		cancel()
		return err
	}
	s.log.Info("stream started", "mode", string(engine.Mode()))
	return nil
}

func (s *session) stop() error {
	if s.engine == nil {
		return fmt.Errorf("stop before start")
	}
	if err := s.engine.Stop(); err != nil {
		return err
	}

	// The final transcript goes out explicitly so the client can rely
	// on receiving it even if the event pump dropped frames.
	s.write(ServerMessage{
		Type:     ServerTranscript,
		Session:  s.engine.SessionID(),
		Snapshot: s.engine.Snapshot(),
		Final:    true,
	})
	return nil
}

func (s *session) handleAudio(data []byte) {
	if s.source == nil {
		// Audio before start; nothing to attach it to.
		return
	}
	s.source.Append(audio.DecodePCM16(data))
}

// eventPump relays engine events to the client until the session ends.
func (s *session) eventPump(ctx context.Context, engine *stream.Engine) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-engine.Events():
			switch ev.Type {
			case stream.EventStatus:
				s.write(ServerMessage{Type: ServerStatus, Session: engine.SessionID(), Status: string(ev.Status)})
			case stream.EventPartial:
				s.write(ServerMessage{Type: ServerPartial, Session: engine.SessionID(), Text: ev.Partial})
			case stream.EventTranscript:
				s.write(ServerMessage{Type: ServerTranscript, Session: engine.SessionID(), Snapshot: ev.Snapshot})
			case stream.EventError:
				s.writeError(ev.Kind, ev.Err)
			}
		}
	}
}

func (s *session) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *session) write(msg ServerMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.log.Debug("write failed", "type", msg.Type, "error", err)
	}
}

func (s *session) writeError(kind stt.Kind, err error) {
	s.write(ServerMessage{
		Type:    ServerError,
		Kind:    kind.String(),
		Message: err.Error(),
	})
}

// teardown stops whatever the session left running and closes the
// connection.
func (s *session) teardown() {
	if s.pump != nil {
		s.pump()
	}
	if s.engine != nil {
		s.engine.Stop()
	}
	s.conn.Close()
	s.log.Debug("connection closed")
}
