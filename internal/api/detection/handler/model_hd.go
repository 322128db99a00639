package detectionHandler

import (
	"time"

	"PanoGuard/internal/api/detection"
	contextPkg "PanoGuard/pkg/context"
	"PanoGuard/pkg/handlerUtil"
	"PanoGuard/pkg/log"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *DetectionHandler) HandleModelStatus(ctx *fiber.Ctx) error {
	return handlerUtil.New(h.log).HandleSuccess(ctx, fiber.StatusOK, h.detectionService.ModelStatus())
}

func (h *DetectionHandler) HandleReloadModel(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 2*time.Minute)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req detection.ReloadModelRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_request_body")
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"model":      req.Name,
	}).Info("Reloading model")

	res, err := h.detectionService.ReloadModel(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "reload_model")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}
