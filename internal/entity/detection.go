package entity

import "time"

type Detection struct {
	ID          string             `db:"id"`
	ProfileID   string             `db:"profile_id"`
	FileName    string             `db:"file_name"`
	ImagePath   string             `db:"image_path"`
	ImageHash   string             `db:"image_hash"`
	ArchiveURL  string             `db:"archive_url"`
	IsDicom     bool               `db:"is_dicom"`
	Model       string             `db:"model"`
	Predictions map[string]float32 `db:"-"`
	TopLabel    string             `db:"top_label"`
	TopScore    float32            `db:"top_score"`
	Flagged     []string           `db:"-"`
	Mock        bool               `db:"mock"`
	Note        string             `db:"note"`
	CreatedAt   time.Time          `db:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at"`
}

// HasFlags reports whether any positioning error crossed the model threshold.
func (d Detection) HasFlags() bool {
	return len(d.Flagged) > 0
}
