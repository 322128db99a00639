package feedbackRepository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"PanoGuard/internal/api/detection"
	"PanoGuard/internal/api/feedback"
	"PanoGuard/internal/entity"
	contextPkg "PanoGuard/pkg/context"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type FeedbackDB struct {
	ID          sql.NullString `db:"id"`
	DetectionID sql.NullString `db:"detection_id"`
	ProfileID   sql.NullString `db:"profile_id"`
	Label       sql.NullString `db:"label"`
	Agree       bool           `db:"agree"`
	Comment     sql.NullString `db:"comment"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r *feedbackRepository) named(c context.Context, namedQuery string, argsKV map[string]interface{}, op string) (string, []interface{}, error) {
	query, args, err := sqlx.Named(namedQuery, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(c),
			"error":      err.Error(),
		}).Error(op + " named query preparation err")
		return "", nil, err
	}
	return r.q.Rebind(query), args, nil
}

func (r *feedbackRepository) CreateFeedback(c context.Context, f entity.Feedback) error {
	argsKV := map[string]interface{}{
		"id":           f.ID,
		"detection_id": f.DetectionID,
		"profile_id":   f.ProfileID,
		"label":        f.Label,
		"agree":        f.Agree,
		"comment":      f.Comment,
		"created_at":   f.CreatedAt,
		"updated_at":   f.UpdatedAt,
	}

	query, args, err := r.named(c, queryCreateFeedback, argsKV, "CreateFeedback")
	if err != nil {
		return err
	}

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id":   contextPkg.GetRequestID(c),
			"detection_id": f.DetectionID,
			"error":        err.Error(),
		}).Error("Database error when creating feedback")
		return err
	}

	return nil
}

func (r *feedbackRepository) GetFeedbackByID(c context.Context, id string) (entity.Feedback, error) {
	query, args, err := r.named(c, queryGetFeedbackByID, map[string]interface{}{"id": id}, "GetFeedbackByID")
	if err != nil {
		return entity.Feedback{}, err
	}

	var row FeedbackDB
	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Feedback{}, feedback.ErrFeedbackNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(c),
			"error":      err.Error(),
		}).Error("GetFeedbackByID execution err")
		return entity.Feedback{}, err
	}

	return makeFeedback(row), nil
}

func (r *feedbackRepository) GetFeedbackByDetectionID(c context.Context, detectionID string) ([]entity.Feedback, error) {
	query, args, err := r.named(c, queryGetFeedbackByDetectionID, map[string]interface{}{"detection_id": detectionID}, "GetFeedbackByDetectionID")
	if err != nil {
		return nil, err
	}

	var rows []FeedbackDB
	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(c),
			"error":      err.Error(),
		}).Error("GetFeedbackByDetectionID execution err")
		return nil, err
	}

	items := make([]entity.Feedback, 0, len(rows))
	for _, row := range rows {
		items = append(items, makeFeedback(row))
	}
	return items, nil
}

func (r *feedbackRepository) ExistsForLabel(c context.Context, detectionID, profileID, label string) (bool, error) {
	argsKV := map[string]interface{}{
		"detection_id": detectionID,
		"profile_id":   profileID,
		"label":        label,
	}

	query, args, err := r.named(c, queryCountFeedbackByLabel, argsKV, "ExistsForLabel")
	if err != nil {
		return false, err
	}

	var count int
	if err := r.q.QueryRowxContext(c, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *feedbackRepository) UpdateFeedback(c context.Context, id string, agree bool, comment string, updatedAt time.Time) error {
	argsKV := map[string]interface{}{
		"id":         id,
		"agree":      agree,
		"comment":    comment,
		"updated_at": updatedAt,
	}

	query, args, err := r.named(c, queryUpdateFeedback, argsKV, "UpdateFeedback")
	if err != nil {
		return err
	}

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id":  contextPkg.GetRequestID(c),
			"feedback_id": id,
			"error":       err.Error(),
		}).Error("UpdateFeedback execution err")
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return feedback.ErrFeedbackNotFound
	}
	return nil
}

func (r *feedbackRepository) DeleteFeedback(c context.Context, id string) error {
	query, args, err := r.named(c, queryDeleteFeedback, map[string]interface{}{"id": id}, "DeleteFeedback")
	if err != nil {
		return err
	}

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return feedback.ErrFeedbackNotFound
	}
	return nil
}

func (r *feedbackRepository) GetDetectionOwner(c context.Context, detectionID string) (string, error) {
	query, args, err := r.named(c, queryGetDetectionOwner, map[string]interface{}{"id": detectionID}, "GetDetectionOwner")
	if err != nil {
		return "", err
	}

	var owner string
	if err := r.q.QueryRowxContext(c, query, args...).Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", detection.ErrDetectionNotFound
		}
		return "", err
	}
	return owner, nil
}

func (r *feedbackRepository) SummaryByProfileID(c context.Context, profileID string) ([]entity.LabelAgreement, error) {
	query, args, err := r.named(c, querySummaryByProfileID, map[string]interface{}{"profile_id": profileID}, "SummaryByProfileID")
	if err != nil {
		return nil, err
	}

	var rows []entity.LabelAgreement
	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(c),
			"error":      err.Error(),
		}).Error("SummaryByProfileID execution err")
		return nil, err
	}
	return rows, nil
}

func makeFeedback(f FeedbackDB) entity.Feedback {
	return entity.Feedback{
		ID:          f.ID.String,
		DetectionID: f.DetectionID.String,
		ProfileID:   f.ProfileID.String,
		Label:       f.Label.String,
		Agree:       f.Agree,
		Comment:     f.Comment.String,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}
