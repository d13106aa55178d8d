package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/tradesignal/internal/events"
)

const (
	eventBufferSize   = 64
	heartbeatInterval = 30 * time.Second
	writeTimeout      = 5 * time.Second
)

// EventsSocketHandler streams bus events to websocket clients.
type EventsSocketHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventsSocketHandler creates the events websocket handler.
func NewEventsSocketHandler(bus *events.Bus, log zerolog.Logger) *EventsSocketHandler {
	return &EventsSocketHandler{
		bus: bus,
		log: log.With().Str("handler", "events_ws").Logger(),
	}
}

// ServeHTTP upgrades the connection and forwards events until the client goes away.
// ?types=SIGNAL_FIRED,RISK_ACTION_ISSUED restricts the stream.
// GET /api/events/ws
func (h *EventsSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	types := parseEventTypes(r.URL.Query().Get("types"))

	// The server's WriteTimeout would otherwise end the stream.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.log.Debug().Err(err).Msg("Could not clear write deadline")
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to accept websocket")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// Client messages are ignored; CloseRead cancels ctx when the peer closes.
	ctx := conn.CloseRead(r.Context())

	ch := make(chan events.Event, eventBufferSize)
	unsubscribe := h.bus.Subscribe(func(e events.Event) {
		select {
		case ch <- e:
		default:
			// slow client, drop
		}
	}, types...)
	defer unsubscribe()

	h.log.Debug().Int("types", len(types)).Msg("Events client connected")

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case e := <-ch:
			if err := h.write(ctx, conn, e); err != nil {
				h.log.Debug().Err(err).Msg("Events client write failed")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Events client ping failed")
				return
			}
		}
	}
}

func (h *EventsSocketHandler) write(ctx context.Context, conn *websocket.Conn, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		h.log.Error().Err(err).Str("type", string(e.Type)).Msg("Failed to encode event")
		return nil
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

func parseEventTypes(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	var types []events.EventType
	for _, t := range strings.Split(raw, ",") {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			types = append(types, events.EventType(t))
		}
	}
	return types
}
