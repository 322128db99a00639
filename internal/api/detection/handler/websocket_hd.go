package detectionHandler

import (
	"context"
	"errors"
	"time"

	"PanoGuard/internal/entity"
	"PanoGuard/pkg/dicom"
	jwtPkg "PanoGuard/pkg/jwt"
	"PanoGuard/pkg/log"
	"PanoGuard/pkg/pipeline"

	fasthttpws "github.com/fasthttp/websocket"
	"github.com/gofiber/websocket/v2"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// handleClassifyWebSocket classifies every frame it receives. Binary frames
// carry raw image bytes, text frames carry base64 (optionally a data URL).
// Results are not persisted.
func (h *DetectionHandler) handleClassifyWebSocket(c *websocket.Conn) {
	profileID := ""
	if data, ok := c.Locals(jwtPkg.LocalsKey).(entity.ProfileLoginData); ok {
		profileID = data.ID
	}
	fileName := c.Query("file_name")

	logger := h.log.WithFields(log.Fields{
		"profile_id": profileID,
		"remote":     c.RemoteAddr().String(),
	})
	logger.Info("Classification WebSocket client connected")
	defer logger.Info("Classification WebSocket client disconnected")
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Classification WebSocket handler panic: %v", r)
		}
	}()

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			logger.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	// Frames may carry base64 text, which is a third larger than the bytes.
	c.SetReadLimit(wsReadLimit(h.utils.MaxFileSize()))

	for {
		if err := c.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
			logger.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if errors.Is(err, fasthttpws.ErrReadLimit) {
				logger.Warnf("Classification frame exceeds %d bytes, closing", wsReadLimit(h.utils.MaxFileSize()))
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Errorf("Classification WebSocket error: %v", err)
			}
			break
		}

		var result pipeline.Result
		switch messageType {
		case websocket.BinaryMessage:
			result = h.classify(fileName, message)
		case websocket.TextMessage:
			data, err := dicom.DecodeBase64(string(message))
			if err != nil {
				result = pipeline.Result{Error: "invalid base64 image: " + err.Error()}
				break
			}
			result = h.classify(fileName, data)
		default:
			logger.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		if err := h.writeResult(c, result); err != nil {
			logger.Errorf("Error writing JSON response: %v", err)
			break
		}
	}
}

func wsReadLimit(maxFileSize int64) int64 {
	return maxFileSize + maxFileSize/3 + 1024
}

func (h *DetectionHandler) classify(fileName string, data []byte) pipeline.Result {
	ctx, cancel := context.WithTimeout(context.Background(), detectTimeout)
	defer cancel()
	return h.detectionService.Classify(ctx, fileName, data)
}

func (h *DetectionHandler) writeResult(c *websocket.Conn, result pipeline.Result) error {
	if err := c.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	if err := c.WriteJSON(result); err != nil {
		return err
	}
	return c.SetWriteDeadline(time.Time{})
}
