package detection

import (
	"time"

	"PanoGuard/internal/entity"
	"PanoGuard/pkg/pipeline"
)

type DetectRequest struct {
	ProfileID   string `json:"-"`
	FileName    string `json:"file_name" validate:"omitempty,max=255"`
	ImageBase64 string `json:"image_base64"`
	Note        string `json:"note" validate:"omitempty,max=2000"`
	Data        []byte `json:"-"`
	ContentType string `json:"-"`
}

type DetectionResponse struct {
	Success     bool               `json:"success"`
	ID          string             `json:"id"`
	FileName    string             `json:"file_name,omitempty"`
	IsDicom     bool               `json:"is_dicom"`
	Model       string             `json:"model"`
	Predictions map[string]float32 `json:"predictions"`
	TopLabel    string             `json:"top_label"`
	TopScore    float32            `json:"top_score"`
	Flagged     []string           `json:"flagged"`
	Mock        bool               `json:"mock"`
	HasImage    bool               `json:"has_image"`
	Archived    bool               `json:"archived"`
	Note        string             `json:"note,omitempty"`
	CreatedAt   string             `json:"created_at"`
	UpdatedAt   string             `json:"updated_at"`
}

type ListDetectionsQuery struct {
	ProfileID string `query:"-"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset    int    `query:"offset" validate:"omitempty,min=0"`
}

type ListDetectionsResponse struct {
	Items  []DetectionResponse `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

type UpdateNoteRequest struct {
	ID        string `json:"-"`
	ProfileID string `json:"-"`
	Note      string `json:"note" validate:"max=2000"`
}

type ArchiveURLResponse struct {
	URL string `json:"url"`
}

type ReloadModelRequest struct {
	Name string `json:"name" validate:"omitempty,max=64"`
}

// ModelInfo is a registry entry as the detection layer sees it.
type ModelInfo struct {
	Name string
	Path string
	Spec pipeline.ModelSpec
}

type ModelSummary struct {
	Name      string   `json:"name"`
	Path      string   `json:"path"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	Channels  int      `json:"channels"`
	Threshold float32  `json:"threshold"`
	Labels    []string `json:"labels"`
	Active    bool     `json:"active"`
}

type ModelStatusResponse struct {
	Active string         `json:"active"`
	Mode   string         `json:"mode"`
	State  string         `json:"state"`
	Path   string         `json:"path,omitempty"`
	Codec  string         `json:"codec"`
	Models []ModelSummary `json:"models"`
}

const DefaultListLimit = 20

func ToResponse(d entity.Detection) DetectionResponse {
	flagged := d.Flagged
	if flagged == nil {
		flagged = []string{}
	}
	return DetectionResponse{
		Success:     true,
		ID:          d.ID,
		FileName:    d.FileName,
		IsDicom:     d.IsDicom,
		Model:       d.Model,
		Predictions: d.Predictions,
		TopLabel:    d.TopLabel,
		TopScore:    d.TopScore,
		Flagged:     flagged,
		Mock:        d.Mock,
		HasImage:    d.ImagePath != "",
		Archived:    d.ArchiveURL != "",
		Note:        d.Note,
		CreatedAt:   d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   d.UpdatedAt.Format(time.RFC3339),
	}
}
