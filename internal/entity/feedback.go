package entity

import "time"

type Feedback struct {
	ID          string    `db:"id"`
	DetectionID string    `db:"detection_id"`
	ProfileID   string    `db:"profile_id"`
	Label       string    `db:"label"`
	Agree       bool      `db:"agree"`
	Comment     string    `db:"comment"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// LabelAgreement counts clinician verdicts for one label. An empty label is
// the overall verdict on a detection.
type LabelAgreement struct {
	Label    string `db:"label" json:"label"`
	Agree    int    `db:"agree" json:"agree"`
	Disagree int    `db:"disagree" json:"disagree"`
}
