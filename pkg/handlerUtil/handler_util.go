package handlerUtil

import (
	"errors"

	"PanoGuard/internal/api/detection"
	"PanoGuard/internal/api/feedback"
	"PanoGuard/internal/api/profile"
	"PanoGuard/pkg/dicom"
	"PanoGuard/pkg/inference"
	"PanoGuard/pkg/log"
	"PanoGuard/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type domainCode struct {
	err  error
	code string
}

var domainCodes = []domainCode{
	// Detection
	{detection.ErrDetectionNotFound, "DETECTION_NOT_FOUND"},
	{detection.ErrDetectionNotOwned, "DETECTION_NOT_OWNED"},
	{detection.ErrInvalidImage, "INVALID_IMAGE"},
	{detection.ErrImageTooLarge, "IMAGE_TOO_LARGE"},
	{detection.ErrPipelineFailed, "PIPELINE_FAILED"},
	{detection.ErrModelUnavailable, "MODEL_UNAVAILABLE"},
	{detection.ErrUnknownModel, "UNKNOWN_MODEL"},
	{detection.ErrCreateDetection, "CREATE_DETECTION_FAILED"},
	{detection.ErrImageNotStored, "IMAGE_NOT_STORED"},

	// Feedback
	{feedback.ErrFeedbackNotFound, "FEEDBACK_NOT_FOUND"},
	{feedback.ErrFeedbackNotOwned, "FEEDBACK_NOT_OWNED"},
	{feedback.ErrInvalidLabel, "INVALID_LABEL"},
	{feedback.ErrDuplicateFeedback, "DUPLICATE_FEEDBACK"},

	// Profile
	{profile.ErrEmailAlreadyInUse, "EMAIL_ALREADY_IN_USE"},
	{profile.ErrInvalidCredentials, "INVALID_CREDENTIALS"},
	{profile.ErrProfileNotFound, "PROFILE_NOT_FOUND"},
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) fields(requestID string, err error, path, operation string) log.Fields {
	return log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}
}

// Handle writes the JSON error for err. Domain errors keep their status,
// pipeline errors are classified by type, anything else is a 500 with a
// trace id.
func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	for _, dc := range domainCodes {
		if errors.Is(err, dc.err) {
			status := response.StatusCode(dc.err)
			entry := h.logger.WithFields(h.fields(requestID, err, path, operation))
			if status >= fiber.StatusInternalServerError {
				entry.Error("Operation failed")
			} else {
				entry.Warn("Operation rejected")
			}
			return c.Status(status).JSON(ErrorResponse{
				Error: dc.err.Error(),
				Code:  dc.code,
			})
		}
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		h.logger.WithFields(h.fields(requestID, err, path, operation)).
			WithField("code", respErr.Code).
			Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(ErrorResponse{Error: err.Error()})
	}

	var decodeErr *dicom.DecodeError
	if errors.As(err, &decodeErr) {
		h.logger.WithFields(h.fields(requestID, err, path, operation)).
			WithField("reason", decodeErr.Reason.String()).
			Warn("Image could not be decoded")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Error:   "Image could not be decoded",
			Code:    "DECODE_" + decodeErr.Reason.String(),
			Details: err.Error(),
		})
	}

	var initErr *dicom.CodecInitError
	if errors.As(err, &initErr) || errors.Is(err, inference.ErrNotLoaded) {
		h.logger.WithFields(h.fields(requestID, err, path, operation)).Error("Required component unavailable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "Service temporarily unavailable",
			Code:    "COMPONENT_UNAVAILABLE",
			Details: err.Error(),
		})
	}

	if errors.Is(err, fiber.ErrUnprocessableEntity) || errors.Is(err, fiber.ErrBadRequest) {
		h.logger.WithFields(h.fields(requestID, err, path, operation)).Warn("Malformed request body")
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Malformed request body",
			Code:  "BAD_REQUEST",
		})
	}

	traceID := log.ErrorWithTraceID(h.fields(requestID, err, path, operation), "Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "An unexpected error occurred",
		TraceID: traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: "Validation failed: " + err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(utils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"message":    message,
	}).Warn("Unauthorized access")

	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error: message,
		Code:  "UNAUTHORIZED",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
