package detectionRepository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"PanoGuard/internal/api/detection"
	"PanoGuard/internal/entity"
	contextPkg "PanoGuard/pkg/context"

	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type DetectionDB struct {
	ID          sql.NullString  `db:"id"`
	ProfileID   sql.NullString  `db:"profile_id"`
	FileName    sql.NullString  `db:"file_name"`
	ImagePath   sql.NullString  `db:"image_path"`
	ImageHash   sql.NullString  `db:"image_hash"`
	ArchiveURL  sql.NullString  `db:"archive_url"`
	IsDicom     bool            `db:"is_dicom"`
	Model       sql.NullString  `db:"model"`
	Predictions sql.NullString  `db:"predictions"`
	TopLabel    sql.NullString  `db:"top_label"`
	TopScore    sql.NullFloat64 `db:"top_score"`
	Flagged     sql.NullString  `db:"flagged"`
	Mock        bool            `db:"mock"`
	Note        sql.NullString  `db:"note"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (r *detectionRepository) CreateDetection(c context.Context, d entity.Detection) error {
	requestID := contextPkg.GetRequestID(c)

	predictions, err := json.MarshalToString(d.Predictions)
	if err != nil {
		return err
	}
	flagged := d.Flagged
	if flagged == nil {
		flagged = []string{}
	}
	flaggedJSON, err := json.MarshalToString(flagged)
	if err != nil {
		return err
	}

	argsKV := map[string]interface{}{
		"id":          d.ID,
		"profile_id":  d.ProfileID,
		"file_name":   d.FileName,
		"image_path":  d.ImagePath,
		"image_hash":  d.ImageHash,
		"archive_url": d.ArchiveURL,
		"is_dicom":    d.IsDicom,
		"model":       d.Model,
		"predictions": predictions,
		"top_label":   d.TopLabel,
		"top_score":   float64(d.TopScore),
		"flagged":     flaggedJSON,
		"mock":        d.Mock,
		"note":        d.Note,
		"created_at":  d.CreatedAt,
		"updated_at":  d.UpdatedAt,
	}

	query, args, err := sqlx.Named(queryCreateDetection, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateDetection")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id":   requestID,
			"detection_id": d.ID,
			"error":        err.Error(),
		}).Error("Database error when creating detection")
		return err
	}

	return nil
}

func (r *detectionRepository) GetDetectionByID(c context.Context, id string) (entity.Detection, error) {
	requestID := contextPkg.GetRequestID(c)
	var row DetectionDB

	query, args, err := sqlx.Named(queryGetDetectionByID, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetDetectionByID named query preparation err")
		return entity.Detection{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id":   requestID,
				"detection_id": id,
			}).Debug("GetDetectionByID no rows found")
			return entity.Detection{}, detection.ErrDetectionNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetDetectionByID execution err")
		return entity.Detection{}, err
	}

	return r.makeDetection(row)
}

func (r *detectionRepository) GetDetectionsByProfileID(c context.Context, profileID string, limit, offset int) ([]entity.Detection, error) {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"profile_id": profileID,
		"limit":      limit,
		"offset":     offset,
	}

	query, args, err := sqlx.Named(queryGetDetectionsByProfileID, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetDetectionsByProfileID named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	var rows []DetectionDB
	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"profile_id": profileID,
			"error":      err.Error(),
		}).Error("GetDetectionsByProfileID execution err")
		return nil, err
	}

	detections := make([]entity.Detection, 0, len(rows))
	for _, row := range rows {
		d, err := r.makeDetection(row)
		if err != nil {
			return nil, err
		}
		detections = append(detections, d)
	}

	return detections, nil
}

func (r *detectionRepository) CountDetectionsByProfileID(c context.Context, profileID string) (int, error) {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(queryCountDetectionsByProfileID, map[string]interface{}{"profile_id": profileID})
	if err != nil {
		return 0, err
	}
	query = r.q.Rebind(query)

	var total int
	if err := r.q.QueryRowxContext(c, query, args...).Scan(&total); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountDetectionsByProfileID execution err")
		return 0, err
	}

	return total, nil
}

func (r *detectionRepository) UpdateNote(c context.Context, id, note string, updatedAt time.Time) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":         id,
		"note":       note,
		"updated_at": updatedAt,
	}

	query, args, err := sqlx.Named(queryUpdateDetectionNote, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateNote named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateNote execution err")
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return detection.ErrDetectionNotFound
	}

	return nil
}

func (r *detectionRepository) DeleteDetection(c context.Context, id string) error {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(queryDeleteDetection, map[string]interface{}{"id": id})
	if err != nil {
		return err
	}
	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id":   requestID,
			"detection_id": id,
			"error":        err.Error(),
		}).Error("DeleteDetection execution err")
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return detection.ErrDetectionNotFound
	}

	return nil
}

func (r *detectionRepository) makeDetection(d DetectionDB) (entity.Detection, error) {
	predictions := map[string]float32{}
	if d.Predictions.Valid && d.Predictions.String != "" {
		if err := json.UnmarshalFromString(d.Predictions.String, &predictions); err != nil {
			r.log.WithFields(logrus.Fields{
				"detection_id": d.ID.String,
				"error":        err.Error(),
			}).Error("Stored predictions are not valid JSON")
			return entity.Detection{}, err
		}
	}

	flagged := []string{}
	if d.Flagged.Valid && d.Flagged.String != "" {
		if err := json.UnmarshalFromString(d.Flagged.String, &flagged); err != nil {
			return entity.Detection{}, err
		}
	}

	return entity.Detection{
		ID:          d.ID.String,
		ProfileID:   d.ProfileID.String,
		FileName:    d.FileName.String,
		ImagePath:   d.ImagePath.String,
		ImageHash:   d.ImageHash.String,
		ArchiveURL:  d.ArchiveURL.String,
		IsDicom:     d.IsDicom,
		Model:       d.Model.String,
		Predictions: predictions,
		TopLabel:    d.TopLabel.String,
		TopScore:    float32(d.TopScore.Float64),
		Flagged:     flagged,
		Mock:        d.Mock,
		Note:        d.Note.String,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}
