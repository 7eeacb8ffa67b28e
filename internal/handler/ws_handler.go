package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lumenlms/progression-backend/internal/middleware"
	"github.com/lumenlms/progression-backend/internal/service"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// timerTick is one frame of the attempt countdown stream.
type timerTick struct {
	RemainingSeconds float64 `json:"remaining_seconds"`
	IsExpired        bool    `json:"is_expired"`
}

// wsError is the error frame sent before closing a stream.
type wsError struct {
	Error string `json:"error"`
}

// WSHandler streams attempt countdowns over WebSocket so clients do not
// poll the timing endpoint during an attempt.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptTimerStream godoc
// WS /ws/v1/student/contents/:content_id/timer
// Streams the remaining attempt time once per second until the attempt
// expires or the client disconnects. The server clock is authoritative.
func (h *WSHandler) AttemptTimerStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	contentID, err := uuid.Parse(c.Param("content_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("student_id", claims.StudentID.String()).
		Str("content_id", contentID.String()).
		Logger()

	timing, err := h.attemptService.Timing(c.Request.Context(), claims.StudentID, contentID)
	if err != nil {
		_ = conn.WriteJSON(wsError{Error: "no active attempt for this content"})
		return
	}
	wsLog.Info().Msg("Timer stream connected")

	// Untimed attempts get a single frame; there is nothing to count down.
	if timing.DurationMinutes == 0 {
		_ = conn.WriteJSON(timerTick{})
		return
	}

	// Detect client disconnects while this goroutine only writes.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		tick := timerTick{RemainingSeconds: timing.RemainingSeconds, IsExpired: timing.IsExpired}
		if err := conn.WriteJSON(tick); err != nil {
			wsLog.Debug().Msg("Timer stream closed")
			return
		}
		if timing.IsExpired {
			wsLog.Info().Msg("Attempt expired, closing timer stream")
			return
		}

		select {
		case <-done:
			wsLog.Debug().Msg("Client disconnected")
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
		}

		timing, err = h.attemptService.Timing(c.Request.Context(), claims.StudentID, contentID)
		if err != nil {
			_ = conn.WriteJSON(wsError{Error: "attempt is no longer active"})
			return
		}
	}
}
