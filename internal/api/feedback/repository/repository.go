package feedbackRepository

import (
	"time"

	"PanoGuard/internal/entity"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var sqlExecutor SQLExecutor = r.DB
	commitFunc := func() error { return nil }
	rollbackFunc := func() error { return nil }

	if tx {
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	}

	return Client{
		Feedback: &feedbackRepository{q: sqlExecutor, log: r.log},
		Commit:   commitFunc,
		Rollback: rollbackFunc,
	}, nil
}

type Client struct {
	Feedback interface {
		CreateFeedback(c context.Context, f entity.Feedback) error
		GetFeedbackByID(c context.Context, id string) (entity.Feedback, error)
		GetFeedbackByDetectionID(c context.Context, detectionID string) ([]entity.Feedback, error)
		ExistsForLabel(c context.Context, detectionID, profileID, label string) (bool, error)
		UpdateFeedback(c context.Context, id string, agree bool, comment string, updatedAt time.Time) error
		DeleteFeedback(c context.Context, id string) error
		GetDetectionOwner(c context.Context, detectionID string) (string, error)
		SummaryByProfileID(c context.Context, profileID string) ([]entity.LabelAgreement, error)
	}

	Commit   func() error
	Rollback func() error
}

type feedbackRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
