// Command headless joins a whiteboard without a UI: it logs remote traffic and can draw a
// rectangle to check that a room relays and persists edits.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"satupapan/internal/canvas"
	"satupapan/internal/protocol"
	"satupapan/internal/shape"
	"satupapan/internal/syncclient"
	"satupapan/pkg/logger"
)

func main() {
	endpoints := flag.String("ws", "ws://localhost:8080/ws", "comma-separated websocket endpoints, tried in order")
	apiURL := flag.String("api", "http://localhost:8080", "REST base URL used to load and save shapes; empty disables persistence")
	docID := flag.String("doc", "", "whiteboard id to join")
	token := flag.String("token", os.Getenv("SATUPAPAN_TOKEN"), "JWT sent with every request")
	userID := flag.String("user", "headless", "user id announced in the join")
	name := flag.String("name", "Headless", "display name announced in the join")
	draw := flag.Bool("draw", false, "draw a rectangle once joined")
	attempts := flag.Int("attempts", 10, "reconnect attempts before giving up, 0 retries forever")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger.Init(*level)
	defer logger.Sync()

	if *docID == "" {
		logger.Sugar.Fatal("-doc is required")
	}

	policy := syncclient.DefaultRetryPolicy(strings.Split(*endpoints, ",")...)
	policy.MaxAttempts = *attempts

	cfg := syncclient.Config{
		DocumentID: *docID,
		Identity:   protocol.Identity{ID: *userID, Name: *name},
		CanEdit:    true,
		Token:      *token,
		Policy:     policy,
		OnEvent:    logEvent,
	}
	if *apiURL != "" {
		cfg.Bridge = syncclient.NewHTTPBridge(*apiURL, *token)
	}
	session := syncclient.NewSession(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *draw {
		go drawOnce(ctx, session)
	}

	logger.Sugar.Infof("Joining %s as %s (instance %s)", *docID, *userID, session.InstanceID())
	if err := session.Run(ctx); err != nil {
		logger.Sugar.Errorf("Session ended: %v", err)
		os.Exit(1)
	}
	logger.Sugar.Info("Bye")
}

func drawOnce(ctx context.Context, session *syncclient.Session) {
	for !session.Online() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
	}

	err := session.Do(ctx, func(e *canvas.Engine) {
		if err := e.SetTool(shape.Rectangle); err != nil {
			logger.Sugar.Warnf("Cannot draw: %v", err)
			return
		}
		if err := e.PointerDown(shape.Point{X: 100, Y: 100}); err != nil {
			logger.Sugar.Warnf("Cannot draw: %v", err)
			return
		}
		e.PointerMove(shape.Point{X: 200, Y: 160})
		e.PointerUp(shape.Point{X: 200, Y: 160})
		logger.Sugar.Infof("Drew a rectangle, %d shapes on the board", len(e.Shapes()))
	})
	if err != nil {
		logger.Sugar.Warnf("Draw skipped: %v", err)
	}
}

func logEvent(ev protocol.Event) {
	switch ev := ev.(type) {
	case protocol.CursorUpdate, protocol.DrawProgressed:
		logger.Sugar.Debugf("<- %s", ev.Name())
	case protocol.UserJoined:
		logger.Sugar.Infof("<- %s: %s (edit=%t) collaborators=%d viewers=%d", ev.Name(), ev.Identity.ID, ev.CanEdit, ev.Counts.Collaborators, ev.Counts.Viewers)
	case protocol.UserLeft:
		logger.Sugar.Infof("<- %s: %s collaborators=%d viewers=%d", ev.Name(), ev.Identity.ID, ev.Counts.Collaborators, ev.Counts.Viewers)
	case protocol.WhiteboardState:
		logger.Sugar.Infof("<- %s: %d shapes, canEdit=%t", ev.Name(), len(ev.Shapes), ev.CanEdit)
	default:
		logger.Sugar.Infof("<- %s", ev.Name())
	}
}
