package syncclient

import (
	"context"
	"errors"
	"time"

	"satupapan/internal/canvas"
	"satupapan/internal/protocol"
	"satupapan/pkg/logger"

	"github.com/google/uuid"
)

var ErrSessionClosed = errors.New("session is closed")

const loadTimeout = 10 * time.Second

type Config struct {
	DocumentID string
	Identity   protocol.Identity
	// CanEdit is the permission the client believes it has until the join is answered. The
	// whiteboard-state reply carries the server's grant, which replaces it.
	CanEdit   bool
	Token     string
	Policy    RetryPolicy
	Bridge    canvas.Bridge
	SaveDelay time.Duration
	// OnEvent observes every remote event after the engine applied it. It runs on the session
	// goroutine.
	OnEvent func(protocol.Event)
}

// Session owns a canvas engine and feeds it from one goroutine: user actions queued with Do,
// remote events from the connection, and connectivity changes.
type Session struct {
	docID      string
	instanceID string
	engine     *canvas.Engine
	conn       *Conn
	bridge     canvas.Bridge
	persister  *canvas.Persister
	onEvent    func(protocol.Event)

	actions chan func(*canvas.Engine)
	done    chan struct{}
}

func NewSession(cfg Config) *Session {
	instanceID := uuid.NewString()
	join := protocol.JoinWhiteboard{
		Route:    protocol.Route{DocumentID: cfg.DocumentID, InstanceID: instanceID},
		Identity: cfg.Identity,
		CanEdit:  cfg.CanEdit,
	}

	s := &Session{
		docID:      cfg.DocumentID,
		instanceID: instanceID,
		conn:       NewConn(cfg.Policy, cfg.Token, join),
		bridge:     cfg.Bridge,
		onEvent:    cfg.OnEvent,
		actions:    make(chan func(*canvas.Engine)),
		done:       make(chan struct{}),
	}

	var saver canvas.Saver
	if cfg.Bridge != nil {
		s.persister = canvas.NewPersister(cfg.Bridge, cfg.DocumentID, cfg.SaveDelay)
		// Nothing is persisted until the first join.
		s.persister.Pause()
		saver = s.persister
	}
	s.engine = canvas.New(canvas.Config{
		DocumentID: cfg.DocumentID,
		InstanceID: instanceID,
		Identity:   cfg.Identity,
		CanEdit:    cfg.CanEdit,
		Emitter:    s.conn,
		Saver:      saver,
	})
	return s
}

func (s *Session) InstanceID() string { return s.instanceID }
func (s *Session) Online() bool       { return s.conn.Online() }

// Run loads the stored shapes, then serves the engine until ctx is cancelled or the connection
// gives up. A pending save is flushed on the way out, except after an eviction: the newer
// instance owns the document then, and Run returns ErrEvicted.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	if s.bridge != nil {
		loadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
		shapes, err := s.bridge.LoadShapes(loadCtx, s.docID)
		cancel()
		if err != nil {
			logger.Sugar.Warnf("Failed to load whiteboard %s, starting empty: %v", s.docID, err)
		} else {
			s.engine.Load(shapes)
		}
	}

	errc := make(chan error, 1)
	go func() { errc <- s.conn.Run(ctx) }()

	for {
		select {
		case fn := <-s.actions:
			fn(s.engine)
		case ev := <-s.conn.Events():
			s.engine.Apply(ev)
			if s.onEvent != nil {
				s.onEvent(ev)
			}
		case online := <-s.conn.Status():
			s.setOnline(online)
		case err := <-errc:
			if errors.Is(err, ErrEvicted) {
				if s.persister != nil {
					s.persister.Pause()
				}
				return err
			}
			if s.persister != nil {
				s.persister.Flush()
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// setOnline pauses persistence while offline. Whatever was scheduled during the outage is
// discarded on reconnect; the room's whiteboard-state replaces the local collection.
func (s *Session) setOnline(online bool) {
	if s.persister == nil {
		return
	}
	if online {
		s.persister.Resume(true)
		return
	}
	logger.Sugar.Infof("Offline from %s, holding saves", s.docID)
	s.persister.Pause()
}

// Do runs fn on the session goroutine and waits for it to return.
func (s *Session) Do(ctx context.Context, fn func(*canvas.Engine)) error {
	finished := make(chan struct{})
	wrapped := func(e *canvas.Engine) {
		defer close(finished)
		fn(e)
	}

	select {
	case s.actions <- wrapped:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
