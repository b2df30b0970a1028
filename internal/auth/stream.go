// AngelaMos | 2026
// stream.go

package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tapinfi/cardhub/internal/core"
	"github.com/tapinfi/cardhub/internal/middleware"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		userID string,
	) (<-chan Event, func() error, error)
}

// StreamHandler pushes the caller's session events over a websocket.
// Each connection holds exactly one pub/sub subscription.
type StreamHandler struct {
	events   EventSubscriber
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewStreamHandler(
	events EventSubscriber,
	allowedOrigins []string,
	logger *slog.Logger,
) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &StreamHandler{
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func (h *StreamHandler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.With(authenticator).Get("/auth/events", h.Stream)
}

func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe, err := h.events.Subscribe(ctx, userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	defer func() {
		//nolint:errcheck // subscription teardown
		_ = unsubscribe()
	}()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close() //nolint:errcheck // connection teardown

	go h.readLoop(conn, cancel)
	h.writeLoop(ctx, conn, events)
}

// readLoop discards client frames and cancels the stream once the peer
// goes away or stops answering pings.
func (h *StreamHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(512)
	//nolint:errcheck // deadline errors surface on the next read
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) {
				h.logger.Debug("websocket closed", "error", err)
			}
			return
		}
	}
}

func (h *StreamHandler) writeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	events <-chan Event,
) {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			//nolint:errcheck // best-effort close frame
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(streamWriteWait),
			)
			return

		case evt, ok := <-events:
			if !ok {
				return
			}
			//nolint:errcheck // write errors surface on WriteJSON
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}

		case <-ticker.C:
			//nolint:errcheck // write errors surface on WriteMessage
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// originChecker allows requests without an Origin header (non-browser
// clients) and browser requests from a configured origin. A "*" entry
// allows every origin.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.ToLower(o), "/")] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}

		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}
