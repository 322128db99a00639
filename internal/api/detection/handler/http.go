package detectionHandler

import (
	detectionService "PanoGuard/internal/api/detection/service"
	"PanoGuard/internal/middleware"
	"PanoGuard/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type DetectionHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	detectionService detectionService.IDetectionService
	utils            utils.IUtils
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
	utils utils.IUtils,
) *DetectionHandler {
	return &DetectionHandler{
		detectionService: ds,
		log:              log,
		validator:        validator,
		middleware:       middleware,
		utils:            utils,
	}
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	detections := srv.Group("/detections", h.middleware.NewTokenMiddleware)
	detections.Use("/ws", wsMiddleware)
	detections.Get("/ws", h.middleware.NewRateLimiter, websocket.New(h.handleClassifyWebSocket))

	detections.Post("", h.middleware.NewRateLimiter, h.HandleDetect)
	detections.Get("", h.HandleListDetections)
	detections.Get("/:id", h.HandleGetDetection)
	detections.Get("/:id/image", h.HandleGetDetectionImage)
	detections.Get("/:id/archive", h.HandleGetArchiveURL)
	detections.Patch("/:id", h.HandleUpdateNote)
	detections.Delete("/:id", h.HandleDeleteDetection)

	models := srv.Group("/models", h.middleware.NewTokenMiddleware)
	models.Get("", h.HandleModelStatus)
	models.Post("/reload", h.HandleReloadModel)
}
