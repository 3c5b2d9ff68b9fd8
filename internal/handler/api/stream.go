package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"RapWatch/internal/domain/models"
	domsvc "RapWatch/internal/domain/service"
	"RapWatch/internal/service/metrics"
	xhttp "RapWatch/pkg/http"
	"RapWatch/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// StreamHandler pushes an item's market report over a WebSocket every
// interval until the client goes away.
type StreamHandler struct {
	log      *logger.Logger
	svc      domsvc.MarketAnalyzer
	interval time.Duration
	upgrader websocket.Upgrader
}

func NewStreamHandler(log *logger.Logger, svc domsvc.MarketAnalyzer, interval time.Duration, origins []string) *StreamHandler {
	return &StreamHandler{
		log:      log,
		svc:      svc,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(origins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		_, wildcard := set["*"]
		return ok || wildcard
	}
}

// streamMessage is one frame on the socket.
type streamMessage struct {
	Type   string               `json:"type"` // report or error
	Report *models.MarketReport `json:"report,omitempty"`
	Error  string               `json:"error,omitempty"`
}

func (h *StreamHandler) Stream(c echo.Context) error {
	req := &models.ItemRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the error response
		h.log.Warn("api.stream upgrade failed", logger.Error(err))
		return nil
	}
	defer conn.Close()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	go h.readPump(conn, cancel)

	h.log.Debug("api.stream opened", logger.String("item_id", req.ItemID))
	if !h.push(ctx, conn, req.ItemID) {
		return nil
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !h.push(ctx, conn, req.ItemID) {
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed.
func (h *StreamHandler) readPump(conn *websocket.Conn, done context.CancelFunc) {
	defer done()
	conn.SetReadLimit(512)
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

func (h *StreamHandler) push(ctx context.Context, conn *websocket.Conn, itemID string) bool {
	msg := streamMessage{Type: "report"}
	report, _, err := h.svc.CachedReport(ctx, itemID)
	if err != nil {
		msg = streamMessage{Type: "error", Error: err.Error()}
	} else {
		msg.Report = report
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.log.Debug("api.stream closed", logger.String("item_id", itemID), logger.Error(err))
		return false
	}
	return true
}
