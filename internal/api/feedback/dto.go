package feedback

import (
	"time"

	"PanoGuard/internal/entity"
)

// CreateFeedbackRequest records a verdict on one label of a detection. An
// empty label is the verdict on the detection as a whole.
type CreateFeedbackRequest struct {
	DetectionID string `json:"-"`
	ProfileID   string `json:"-"`
	Label       string `json:"label" validate:"poslabel"`
	Agree       *bool  `json:"agree" validate:"required"`
	Comment     string `json:"comment" validate:"omitempty,max=2000"`
}

type UpdateFeedbackRequest struct {
	ID        string `json:"-"`
	ProfileID string `json:"-"`
	Agree     *bool  `json:"agree" validate:"required"`
	Comment   string `json:"comment" validate:"omitempty,max=2000"`
}

type FeedbackResponse struct {
	ID          string `json:"id"`
	DetectionID string `json:"detection_id"`
	Label       string `json:"label"`
	Agree       bool   `json:"agree"`
	Comment     string `json:"comment,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type ListFeedbackResponse struct {
	Items []FeedbackResponse `json:"items"`
}

type SummaryResponse struct {
	Labels   []entity.LabelAgreement `json:"labels"`
	Agree    int                     `json:"agree"`
	Disagree int                     `json:"disagree"`
}

func ToResponse(f entity.Feedback) FeedbackResponse {
	return FeedbackResponse{
		ID:          f.ID,
		DetectionID: f.DetectionID,
		Label:       f.Label,
		Agree:       f.Agree,
		Comment:     f.Comment,
		CreatedAt:   f.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   f.UpdatedAt.Format(time.RFC3339),
	}
}
