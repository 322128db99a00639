package feedbackHandler

import (
	feedbackService "PanoGuard/internal/api/feedback/service"
	"PanoGuard/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type FeedbackHandler struct {
	log             *logrus.Logger
	validator       *validator.Validate
	middleware      middleware.Middleware
	feedbackService feedbackService.IFeedbackService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	fs feedbackService.IFeedbackService,
) *FeedbackHandler {
	return &FeedbackHandler{
		log:             log,
		validator:       validate,
		middleware:      middleware,
		feedbackService: fs,
	}
}

func (h *FeedbackHandler) Start(srv fiber.Router) {
	srv.Post("/detections/:id/feedback", h.middleware.NewTokenMiddleware, h.HandleCreateFeedback)
	srv.Get("/detections/:id/feedback", h.middleware.NewTokenMiddleware, h.HandleListFeedback)

	fb := srv.Group("/feedback", h.middleware.NewTokenMiddleware)
	fb.Get("/summary", h.HandleSummary)
	fb.Put("/:id", h.HandleUpdateFeedback)
	fb.Delete("/:id", h.HandleDeleteFeedback)
}
