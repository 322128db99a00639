package detection

import (
	"net/http"

	"PanoGuard/pkg/response"
)

var (
	ErrDetectionNotFound = response.NewError(http.StatusNotFound, "detection not found")
	ErrDetectionNotOwned = response.NewError(http.StatusForbidden, "detection does not belong to this profile")
	ErrInvalidImage      = response.NewError(http.StatusBadRequest, "image is missing or not a supported radiograph")
	ErrImageTooLarge     = response.NewError(http.StatusRequestEntityTooLarge, "image exceeds the upload limit")
	ErrPipelineFailed    = response.NewError(http.StatusUnprocessableEntity, "radiograph could not be classified")
	ErrModelUnavailable  = response.NewError(http.StatusServiceUnavailable, "model is not available")
	ErrUnknownModel      = response.NewError(http.StatusNotFound, "model is not in the registry")
	ErrCreateDetection   = response.NewError(http.StatusInternalServerError, "failed to save detection")
	ErrImageNotStored    = response.NewError(http.StatusNotFound, "image is not stored for this detection")
)
