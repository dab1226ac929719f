package engagementHandler

import (
	"errors"
	"time"

	"classlens/internal/middleware"
	contextPkg "classlens/pkg/context"
	"classlens/pkg/log"
	"classlens/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
)

type streamError struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// handleStream scores a live feed. Binary messages carry encoded frames, text
// messages carry base64 or data URL frames. Each frame is answered in order.
func (h *EngagementHandler) handleStream(c *websocket.Conn) {
	sessionID := c.Query("session_id")
	requestID, _ := c.Locals(middleware.RequestIDKey).(string)
	base := contextPkg.WithRequestID(context.Background(), requestID)

	fields := log.Fields{
		"request_id": requestID,
		"session_id": sessionID,
	}
	h.log.WithFields(fields).Info("Engagement stream connected")
	defer h.log.WithFields(fields).Info("Engagement stream disconnected")

	if sessionID != "" {
		if err := h.engagementService.ResetSession(base, sessionID); err != nil {
			h.log.WithFields(fields).Warnf("Failed to reset session state: %v", err)
		}
	}

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	maxReadTimeout := 60 * time.Second

	for {
		if err := c.SetReadDeadline(time.Now().Add(maxReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithFields(fields).Errorf("Engagement stream error: %v", err)
			}
			break
		}

		var frame []byte
		switch messageType {
		case websocket.BinaryMessage:
			frame = message
		case websocket.TextMessage:
			frame, err = h.utils.DecodeBase64Image(string(message))
			if err != nil {
				if !h.writeStreamError(c, err) {
					return
				}
				continue
			}
		default:
			h.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		ctx, cancel := context.WithTimeout(base, requestTimeout)
		result, err := h.engagementService.Analyze(ctx, sessionID, frame)
		cancel()
		if err != nil {
			if !h.writeStreamError(c, err) {
				return
			}
			continue
		}

		if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			h.log.Errorf("Error setting write deadline: %v", err)
			break
		}

		if err := c.WriteJSON(toAnalyzeResponse(result)); err != nil {
			h.log.Errorf("Error writing JSON response: %v", err)
			break
		}
	}
}

func (h *EngagementHandler) writeStreamError(c *websocket.Conn, err error) bool {
	msg := streamError{Error: "invalid frame", Code: response.StatusOf(err, fiber.StatusBadRequest)}
	var respErr *response.Error
	if errors.As(err, &respErr) {
		msg.Error = respErr.Error()
	}

	if writeErr := c.WriteJSON(msg); writeErr != nil {
		h.log.Errorf("Error sending error response: %v", writeErr)
		return false
	}
	return true
}
