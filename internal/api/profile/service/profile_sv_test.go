package profileService

import (
	"context"
	"io"
	"testing"

	"PanoGuard/database"
	"PanoGuard/internal/api/profile"
	profileRepository "PanoGuard/internal/api/profile/repository"
	"PanoGuard/pkg/bcrypt"
	jwtPkg "PanoGuard/pkg/jwt"
	"PanoGuard/pkg/utils"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	cryptoBcrypt "golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) IProfileService {
	t.Helper()
	t.Setenv(jwtPkg.AccessTokenSecret, "profile-test-secret")

	db, err := database.New(database.DriverSQLite, "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	log := logrus.New()
	log.SetOutput(io.Discard)

	return New(log, profileRepository.New(db, log), bcrypt.NewWithCost(cryptoBcrypt.MinCost), utils.New())
}

func register(t *testing.T, s IProfileService) profile.ProfileResponse {
	t.Helper()
	p, err := s.Register(context.Background(), profile.RegisterRequest{
		Name:     "Dr. Rahma",
		Email:    "Rahma@Clinic.test",
		Password: "correct-horse",
		Clinic:   "Sentosa Dental",
	})
	require.NoError(t, err)
	return p
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestService(t)
	p := register(t, s)
	require.Equal(t, "rahma@clinic.test", p.Email)
	require.Len(t, p.ID, 26)

	res, err := s.Login(context.Background(), profile.LoginRequest{Email: "rahma@clinic.test", Password: "correct-horse"})
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	require.Equal(t, p.ID, res.Profile.ID)

	token, err := jwtPkg.Parse(res.AccessToken, jwtPkg.AccessTokenSecret)
	require.NoError(t, err)
	require.True(t, token.Valid)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestService(t)
	register(t, s)

	_, err := s.Register(context.Background(), profile.RegisterRequest{
		Name: "Other", Email: "rahma@clinic.test", Password: "another-pass",
	})
	require.ErrorIs(t, err, profile.ErrEmailAlreadyInUse)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestService(t)
	register(t, s)

	_, err := s.Login(context.Background(), profile.LoginRequest{Email: "rahma@clinic.test", Password: "wrong-pass"})
	require.ErrorIs(t, err, profile.ErrInvalidCredentials)

	_, err = s.Login(context.Background(), profile.LoginRequest{Email: "ghost@clinic.test", Password: "correct-horse"})
	require.ErrorIs(t, err, profile.ErrInvalidCredentials)
}

func TestUpdateProfile(t *testing.T) {
	s := newTestService(t)
	p := register(t, s)
	ctx := context.Background()

	updated, err := s.UpdateProfile(ctx, profile.UpdateProfileRequest{ID: p.ID, Clinic: "Harapan Dental", LicenseNumber: "DRG-77"})
	require.NoError(t, err)
	require.Equal(t, "Harapan Dental", updated.Clinic)
	require.Equal(t, "Dr. Rahma", updated.Name)

	_, err = s.UpdateProfile(ctx, profile.UpdateProfileRequest{ID: p.ID, OldPassword: "nope-nope", NewPassword: "brand-new-pass"})
	require.ErrorIs(t, err, profile.ErrInvalidCredentials)

	_, err = s.UpdateProfile(ctx, profile.UpdateProfileRequest{ID: p.ID, OldPassword: "correct-horse", NewPassword: "brand-new-pass"})
	require.NoError(t, err)
	_, err = s.Login(ctx, profile.LoginRequest{Email: p.Email, Password: "brand-new-pass"})
	require.NoError(t, err)

	_, err = s.GetProfile(ctx, "missing")
	require.ErrorIs(t, err, profile.ErrProfileNotFound)
}

func TestUpdateProfileEmailConflict(t *testing.T) {
	s := newTestService(t)
	p := register(t, s)
	other, err := s.Register(context.Background(), profile.RegisterRequest{
		Name: "Dr. Budi", Email: "budi@clinic.test", Password: "another-pass",
	})
	require.NoError(t, err)

	_, err = s.UpdateProfile(context.Background(), profile.UpdateProfileRequest{ID: other.ID, Email: p.Email})
	require.ErrorIs(t, err, profile.ErrEmailAlreadyInUse)
}
