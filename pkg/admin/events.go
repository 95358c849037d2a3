package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/content"
	"github.com/adfharrison1/go-tours/pkg/domain"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 54 * time.Second
	// eventBuffer is how many changes may queue for a slow client before
	// newer ones are dropped
	eventBuffer = 64
)

// Event is the message pushed to admin pages for every store change
type Event struct {
	Type  string    `json:"type"`
	Kind  string    `json:"kind"`
	ID    string    `json:"id"`
	Title string    `json:"title,omitempty"`
	URL   string    `json:"url,omitempty"`
	LSN   int64     `json:"lsn"`
	At    time.Time `json:"at"`
}

func newEvent(change domain.ChangeEvent) Event {
	event := Event{
		Type: string(change.Type),
		Kind: change.Collection,
		ID:   change.DocumentID,
		LSN:  change.LSN,
		At:   change.Timestamp,
	}
	if kind, ok := content.ByCollection(change.Collection); ok {
		event.Kind = kind.Name
		if change.Document != nil {
			event.Title = titleOf(kind, change.Document)
		}
		if change.Type != domain.ChangeDelete {
			event.URL = editURL(kind, change.DocumentID)
		}
	}
	return event
}

// HandleEvents upgrades to a websocket and streams change events until the
// client goes away or the server shuts down
func (a *Admin) HandleEvents(w http.ResponseWriter, r *http.Request) {
	// The server's read and write timeouts would otherwise cut the
	// connection
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		a.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	changes, unsubscribe := a.store.DB().Subscribe(eventBuffer)
	defer unsubscribe()

	// The feed is one way; CloseRead handles control frames and cancels
	// ctx once the client disconnects
	ctx := conn.CloseRead(r.Context())

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	a.logger.Debug("Events client connected", zap.String("username", sessionFrom(r).Username))
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := a.send(ctx, conn, newEvent(change)); err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (a *Admin) send(ctx context.Context, conn *websocket.Conn, event Event) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	err := wsjson.Write(writeCtx, conn, event)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Debug("Events write failed", zap.Error(err))
	}
	return err
}
