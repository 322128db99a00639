package profileHandler

import (
	profileService "PanoGuard/internal/api/profile/service"
	"PanoGuard/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ProfileHandler struct {
	log            *logrus.Logger
	validator      *validator.Validate
	middleware     middleware.Middleware
	profileService profileService.IProfileService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	ps profileService.IProfileService,
) *ProfileHandler {
	return &ProfileHandler{
		log:            log,
		validator:      validate,
		middleware:     middleware,
		profileService: ps,
	}
}

func (h *ProfileHandler) Start(srv fiber.Router) {
	profiles := srv.Group("/profiles")

	profiles.Post("", h.middleware.NewRateLimiter, h.HandleRegister)
	profiles.Post("/login", h.middleware.NewRateLimiter, h.HandleLogin)
	profiles.Get("/me", h.middleware.NewTokenMiddleware, h.HandleGetMe)
	profiles.Patch("/me", h.middleware.NewTokenMiddleware, h.HandleUpdateMe)
}
