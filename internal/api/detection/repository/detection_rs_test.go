package detectionRepository

import (
	"context"
	"io"
	"testing"
	"time"

	"PanoGuard/database"
	"PanoGuard/internal/api/detection"
	"PanoGuard/internal/entity"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const testProfileID = "01HZZPROFILE0000000000000A"

func newTestRepository(t *testing.T) Repository {
	t.Helper()
	db, err := database.New(database.DriverSQLite, "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	insertProfile(t, db, testProfileID)

	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(db, log)
}

func insertProfile(t *testing.T, db *sqlx.DB, id string) {
	t.Helper()
	now := time.Now().UTC()
	_, err := db.Exec(db.Rebind(`INSERT INTO profiles (id, name, email, password, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`),
		id, "Dr. Test", id+"@clinic.test", "hash", now, now)
	require.NoError(t, err)
}

func sampleDetection(id string, createdAt time.Time) entity.Detection {
	return entity.Detection{
		ID:        id,
		ProfileID: testProfileID,
		FileName:  "pano.dcm",
		ImagePath: "/tmp/" + id + ".png",
		ImageHash: "abc123",
		IsDicom:   true,
		Model:     "panorama-224",
		Predictions: map[string]float32{
			"chin_high": 0.75,
			"chin_low":  0.125,
		},
		TopLabel:  "chin_high",
		TopScore:  0.75,
		Flagged:   []string{"chin_high"},
		Note:      "first visit",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestCreateAndGetDetection(t *testing.T) {
	repo, err := newTestRepository(t).NewClient(false)
	require.NoError(t, err)
	ctx := context.Background()

	d := sampleDetection("01HZZDETECTION00000000000A", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, repo.Detections.CreateDetection(ctx, d))

	got, err := repo.Detections.GetDetectionByID(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, d.ProfileID, got.ProfileID)
	require.Equal(t, d.Predictions, got.Predictions)
	require.Equal(t, d.Flagged, got.Flagged)
	require.Equal(t, float32(0.75), got.TopScore)
	require.True(t, got.IsDicom)
	require.False(t, got.Mock)
	require.Equal(t, "first visit", got.Note)
	require.Empty(t, got.ArchiveURL)
}

func TestCreateDetectionWithoutFlags(t *testing.T) {
	repo, err := newTestRepository(t).NewClient(false)
	require.NoError(t, err)
	ctx := context.Background()

	d := sampleDetection("01HZZDETECTION00000000000B", time.Now().UTC())
	d.Flagged = nil
	d.Mock = true
	require.NoError(t, repo.Detections.CreateDetection(ctx, d))

	got, err := repo.Detections.GetDetectionByID(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Flagged)
	require.Empty(t, got.Flagged)
	require.True(t, got.Mock)
}

func TestCreateDetectionUnknownProfile(t *testing.T) {
	repo, err := newTestRepository(t).NewClient(false)
	require.NoError(t, err)

	d := sampleDetection("01HZZDETECTION00000000000C", time.Now().UTC())
	d.ProfileID = "missing"
	require.Error(t, repo.Detections.CreateDetection(context.Background(), d))
}

func TestGetDetectionNotFound(t *testing.T) {
	repo, err := newTestRepository(t).NewClient(false)
	require.NoError(t, err)

	_, err = repo.Detections.GetDetectionByID(context.Background(), "missing")
	require.ErrorIs(t, err, detection.ErrDetectionNotFound)
}

func TestListAndCountDetections(t *testing.T) {
	repo, err := newTestRepository(t).NewClient(false)
	require.NoError(t, err)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	ids := []string{
		"01HZZDETECTION00000000001A",
		"01HZZDETECTION00000000001B",
		"01HZZDETECTION00000000001C",
	}
	for i, id := range ids {
		require.NoError(t, repo.Detections.CreateDetection(ctx, sampleDetection(id, base.Add(time.Duration(i)*time.Minute))))
	}

	total, err := repo.Detections.CountDetectionsByProfileID(ctx, testProfileID)
	require.NoError(t, err)
	require.Equal(t, 3, total)

	page, err := repo.Detections.GetDetectionsByProfileID(ctx, testProfileID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, ids[2], page[0].ID)
	require.Equal(t, ids[1], page[1].ID)

	rest, err := repo.Detections.GetDetectionsByProfileID(ctx, testProfileID, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, ids[0], rest[0].ID)

	none, err := repo.Detections.GetDetectionsByProfileID(ctx, "someone-else", 10, 0)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestUpdateNoteAndDelete(t *testing.T) {
	repo, err := newTestRepository(t).NewClient(false)
	require.NoError(t, err)
	ctx := context.Background()

	d := sampleDetection("01HZZDETECTION00000000002A", time.Now().UTC())
	require.NoError(t, repo.Detections.CreateDetection(ctx, d))

	require.NoError(t, repo.Detections.UpdateNote(ctx, d.ID, "retake advised", time.Now().UTC()))
	got, err := repo.Detections.GetDetectionByID(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, "retake advised", got.Note)

	require.ErrorIs(t, repo.Detections.UpdateNote(ctx, "missing", "x", time.Now().UTC()), detection.ErrDetectionNotFound)

	require.NoError(t, repo.Detections.DeleteDetection(ctx, d.ID))
	_, err = repo.Detections.GetDetectionByID(ctx, d.ID)
	require.ErrorIs(t, err, detection.ErrDetectionNotFound)
	require.ErrorIs(t, repo.Detections.DeleteDetection(ctx, d.ID), detection.ErrDetectionNotFound)
}

func TestTransactionRollback(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	tx, err := r.NewClient(true)
	require.NoError(t, err)
	d := sampleDetection("01HZZDETECTION00000000003A", time.Now().UTC())
	require.NoError(t, tx.Detections.CreateDetection(ctx, d))
	require.NoError(t, tx.Rollback())

	repo, err := r.NewClient(false)
	require.NoError(t, err)
	_, err = repo.Detections.GetDetectionByID(ctx, d.ID)
	require.ErrorIs(t, err, detection.ErrDetectionNotFound)
}
