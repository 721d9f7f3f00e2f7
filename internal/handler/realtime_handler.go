package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/prn-tf/digital-galaxy/internal/auth"
	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/realtime"
)

// maxClientMessage bounds frames read from subscribers, which only send control frames.
const maxClientMessage = 512

// RealtimeHandler streams channel events over websockets.
type RealtimeHandler struct {
	feed         *realtime.Feed
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeTimeout time.Duration
	logger       zerolog.Logger
}

// RealtimeConfig contains websocket settings.
type RealtimeConfig struct {
	Feed         *realtime.Feed
	PingInterval time.Duration
	WriteTimeout time.Duration

	// CheckOrigin overrides the same-origin check of the upgrader when set.
	CheckOrigin func(r *http.Request) bool

	Logger zerolog.Logger
}

// NewRealtimeHandler creates a new RealtimeHandler.
func NewRealtimeHandler(cfg RealtimeConfig) *RealtimeHandler {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &RealtimeHandler{
		feed: cfg.Feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
		pingInterval: cfg.PingInterval,
		writeTimeout: cfg.WriteTimeout,
		logger:       cfg.Logger.With().Str("handler", "realtime").Logger(),
	}
}

// ServeHTTP upgrades GET /realtime/{channel} and writes one JSON text frame
// per event: the snapshot first, then live events.
func (h *RealtimeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r.Context())
	if !principal.IsAuthenticated() {
		writeError(w, r, h.logger, domain.ErrNotAuthenticated)
		return
	}
	channel, err := realtime.ParseChannel(chi.URLParam(r, "channel"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied.
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// The request context is not cancelled when a hijacked client goes away;
	// the read loop cancels ctx instead.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	stream, err := h.feed.Open(ctx, channel)
	if err != nil {
		h.logger.Error().Err(err).Str("channel", string(channel)).Msg("failed to open feed")
		h.close(conn, websocket.CloseInternalServerErr, "snapshot unavailable")
		return
	}
	defer stream.Close()

	log := h.logger.With().
		Str("channel", string(channel)).
		Str("user_id", principal.ID.String()).
		Logger()
	log.Debug().Int("snapshot", stream.SnapshotLen()).Msg("subscriber connected")

	go h.readLoop(conn, cancel)
	go h.pingLoop(ctx, conn, cancel)

	for {
		ev, err := stream.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, realtime.ErrSubscriptionClosed) && ctx.Err() == nil:
				h.close(conn, websocket.CloseGoingAway, "server shutting down")
			case ctx.Err() != nil:
				// Client went away.
			default:
				log.Warn().Err(err).Msg("subscription ended")
			}
			log.Debug().Msg("subscriber disconnected")
			return
		}

		if err := conn.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
			return
		}
		if err := conn.WriteJSON(ev); err != nil {
			log.Debug().Err(err).Msg("failed to write event")
			return
		}
	}
}

// readLoop discards client frames and handles pongs. Any read error ends the subscription.
func (h *RealtimeHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	pongWait := 2 * h.pingInterval
	conn.SetReadLimit(maxClientMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// pingLoop keeps the connection alive. WriteControl may run concurrently with WriteJSON.
func (h *RealtimeHandler) pingLoop(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout)); err != nil {
				cancel()
				return
			}
		}
	}
}

func (h *RealtimeHandler) close(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(h.writeTimeout))
}
