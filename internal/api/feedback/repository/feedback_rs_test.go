package feedbackRepository

import (
	"context"
	"io"
	"testing"
	"time"

	"PanoGuard/database"
	"PanoGuard/internal/api/detection"
	"PanoGuard/internal/api/feedback"
	"PanoGuard/internal/entity"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const (
	profileID   = "01HZZPROFILE0000000000000A"
	detectionID = "01HZZDETECTION00000000000A"
)

func newTestRepository(t *testing.T) Repository {
	t.Helper()
	db, err := database.New(database.DriverSQLite, "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	seed(t, db)

	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(db, log)
}

func seed(t *testing.T, db *sqlx.DB) {
	t.Helper()
	now := time.Now().UTC()
	_, err := db.Exec(db.Rebind(`INSERT INTO profiles (id, name, email, password, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`),
		profileID, "Dr. Test", "dr@clinic.test", "hash", now, now)
	require.NoError(t, err)
	_, err = db.Exec(db.Rebind(`INSERT INTO detections (id, profile_id, model, predictions, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`),
		detectionID, profileID, "panorama-224", "{}", now, now)
	require.NoError(t, err)
}

func sampleFeedback(id, label string, agree bool) entity.Feedback {
	now := time.Now().UTC().Truncate(time.Second)
	return entity.Feedback{
		ID:          id,
		DetectionID: detectionID,
		ProfileID:   profileID,
		Label:       label,
		Agree:       agree,
		Comment:     "checked on film",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestCreateAndGetFeedback(t *testing.T) {
	repo, err := newTestRepository(t).NewClient(false)
	require.NoError(t, err)
	ctx := context.Background()

	f := sampleFeedback("01HZZFEEDBACK000000000000A", "chin_high", true)
	require.NoError(t, repo.Feedback.CreateFeedback(ctx, f))

	got, err := repo.Feedback.GetFeedbackByID(ctx, f.ID)
	require.NoError(t, err)
	require.Equal(t, "chin_high", got.Label)
	require.True(t, got.Agree)
	require.Equal(t, "checked on film", got.Comment)

	exists, err := repo.Feedback.ExistsForLabel(ctx, detectionID, profileID, "chin_high")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = repo.Feedback.ExistsForLabel(ctx, detectionID, profileID, "")
	require.NoError(t, err)
	require.False(t, exists)

	_, err = repo.Feedback.GetFeedbackByID(ctx, "missing")
	require.ErrorIs(t, err, feedback.ErrFeedbackNotFound)
}

func TestDuplicateLabelViolatesConstraint(t *testing.T) {
	repo, err := newTestRepository(t).NewClient(false)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.Feedback.CreateFeedback(ctx, sampleFeedback("01HZZFEEDBACK000000000000A", "", true)))
	require.Error(t, repo.Feedback.CreateFeedback(ctx, sampleFeedback("01HZZFEEDBACK000000000000B", "", false)))
}

func TestListUpdateDeleteFeedback(t *testing.T) {
	repo, err := newTestRepository(t).NewClient(false)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.Feedback.CreateFeedback(ctx, sampleFeedback("01HZZFEEDBACK000000000000A", "head_tilt", true)))
	require.NoError(t, repo.Feedback.CreateFeedback(ctx, sampleFeedback("01HZZFEEDBACK000000000000B", "chin_low", false)))

	items, err := repo.Feedback.GetFeedbackByDetectionID(ctx, detectionID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "chin_low", items[0].Label)

	require.NoError(t, repo.Feedback.UpdateFeedback(ctx, "01HZZFEEDBACK000000000000B", true, "on second look", time.Now().UTC()))
	got, err := repo.Feedback.GetFeedbackByID(ctx, "01HZZFEEDBACK000000000000B")
	require.NoError(t, err)
	require.True(t, got.Agree)
	require.Equal(t, "on second look", got.Comment)

	require.ErrorIs(t, repo.Feedback.UpdateFeedback(ctx, "missing", true, "", time.Now().UTC()), feedback.ErrFeedbackNotFound)

	require.NoError(t, repo.Feedback.DeleteFeedback(ctx, "01HZZFEEDBACK000000000000A"))
	require.ErrorIs(t, repo.Feedback.DeleteFeedback(ctx, "01HZZFEEDBACK000000000000A"), feedback.ErrFeedbackNotFound)
}

func TestGetDetectionOwner(t *testing.T) {
	repo, err := newTestRepository(t).NewClient(false)
	require.NoError(t, err)

	owner, err := repo.Feedback.GetDetectionOwner(context.Background(), detectionID)
	require.NoError(t, err)
	require.Equal(t, profileID, owner)

	_, err = repo.Feedback.GetDetectionOwner(context.Background(), "missing")
	require.ErrorIs(t, err, detection.ErrDetectionNotFound)
}

func TestSummaryByProfileID(t *testing.T) {
	r := newTestRepository(t)
	repo, err := r.NewClient(false)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.Feedback.CreateFeedback(ctx, sampleFeedback("01HZZFEEDBACK000000000000A", "chin_high", true)))
	require.NoError(t, repo.Feedback.CreateFeedback(ctx, sampleFeedback("01HZZFEEDBACK000000000000B", "head_tilt", false)))
	require.NoError(t, repo.Feedback.CreateFeedback(ctx, sampleFeedback("01HZZFEEDBACK000000000000C", "", true)))

	summary, err := repo.Feedback.SummaryByProfileID(ctx, profileID)
	require.NoError(t, err)
	require.Equal(t, []entity.LabelAgreement{
		{Label: "", Agree: 1, Disagree: 0},
		{Label: "chin_high", Agree: 1, Disagree: 0},
		{Label: "head_tilt", Agree: 0, Disagree: 1},
	}, summary)

	empty, err := repo.Feedback.SummaryByProfileID(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, empty)
}
