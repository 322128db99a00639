package feedback

import (
	"net/http"

	"PanoGuard/pkg/response"
)

var (
	ErrFeedbackNotFound  = response.NewError(http.StatusNotFound, "feedback not found")
	ErrFeedbackNotOwned  = response.NewError(http.StatusForbidden, "feedback does not belong to this profile")
	ErrInvalidLabel      = response.NewError(http.StatusBadRequest, "label is not a known positioning error")
	ErrDuplicateFeedback = response.NewError(http.StatusConflict, "feedback for this label already exists")
	ErrMissingVerdict    = response.NewError(http.StatusBadRequest, "agree must be true or false")
	ErrCreateFeedback    = response.NewError(http.StatusInternalServerError, "failed to save feedback")
	ErrUpdateFeedback    = response.NewError(http.StatusInternalServerError, "failed to update feedback")
)
