package profileService

import (
	"errors"
	"strings"
	"time"

	"PanoGuard/internal/api/profile"
	"PanoGuard/internal/entity"
	contextPkg "PanoGuard/pkg/context"
	jwtPkg "PanoGuard/pkg/jwt"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (s *profileService) Register(ctx context.Context, req profile.RegisterRequest) (profile.ProfileResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.profileRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return profile.ProfileResponse{}, err
	}

	_, err = repo.Profiles.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
		}).Warn("Register with an email that is already in use")
		return profile.ProfileResponse{}, profile.ErrEmailAlreadyInUse
	case !errors.Is(err, profile.ErrProfileNotFound):
		return profile.ProfileResponse{}, err
	}

	hashed, err := s.bcrypt.HashPassword(req.Password)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to hash password")
		return profile.ProfileResponse{}, err
	}

	id, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate ULID")
		return profile.ProfileResponse{}, err
	}

	now := time.Now().UTC()
	p := entity.Profile{
		ID:            id,
		Name:          strings.TrimSpace(req.Name),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Password:      hashed,
		Clinic:        strings.TrimSpace(req.Clinic),
		LicenseNumber: strings.TrimSpace(req.LicenseNumber),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := repo.Profiles.CreateProfile(ctx, p); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create profile")
		return profile.ProfileResponse{}, profile.ErrCreateProfile
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"profile_id": p.ID,
	}).Info("Profile registered")

	return toResponse(p), nil
}

func (s *profileService) Login(ctx context.Context, req profile.LoginRequest) (profile.LoginResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.profileRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return profile.LoginResponse{}, err
	}

	p, err := repo.Profiles.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
			}).Warn("Login for unknown email")
			return profile.LoginResponse{}, profile.ErrInvalidCredentials
		}
		return profile.LoginResponse{}, err
	}

	if err := s.bcrypt.ComparePassword(p.Password, req.Password); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"profile_id": p.ID,
		}).Warn("Login with wrong password")
		return profile.LoginResponse{}, profile.ErrInvalidCredentials
	}

	token, expiresAt, err := jwtPkg.Sign(map[string]interface{}{
		"id":    p.ID,
		"email": p.Email,
		"name":  p.Name,
	}, jwtPkg.TTLFromEnv())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to sign access token")
		return profile.LoginResponse{}, err
	}

	return profile.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		Profile:     toResponse(p),
	}, nil
}

func (s *profileService) GetProfile(ctx context.Context, id string) (profile.ProfileResponse, error) {
	repo, err := s.profileRepository.NewClient(false)
	if err != nil {
		return profile.ProfileResponse{}, err
	}

	p, err := repo.Profiles.GetByID(ctx, id)
	if err != nil {
		return profile.ProfileResponse{}, err
	}

	return toResponse(p), nil
}

func (s *profileService) UpdateProfile(ctx context.Context, req profile.UpdateProfileRequest) (profile.ProfileResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.profileRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return profile.ProfileResponse{}, err
	}

	p, err := repo.Profiles.GetByID(ctx, req.ID)
	if err != nil {
		return profile.ProfileResponse{}, err
	}

	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" && email != p.Email {
		other, err := repo.Profiles.GetByEmail(ctx, email)
		if err == nil && other.ID != p.ID {
			return profile.ProfileResponse{}, profile.ErrEmailAlreadyInUse
		}
		if err != nil && !errors.Is(err, profile.ErrProfileNotFound) {
			return profile.ProfileResponse{}, err
		}
		p.Email = email
	}

	if req.NewPassword != "" {
		if err := s.bcrypt.ComparePassword(p.Password, req.OldPassword); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"profile_id": p.ID,
			}).Warn("Password change with wrong current password")
			return profile.ProfileResponse{}, profile.ErrInvalidCredentials
		}
		hashed, err := s.bcrypt.HashPassword(req.NewPassword)
		if err != nil {
			return profile.ProfileResponse{}, err
		}
		p.Password = hashed
	}

	if req.Name != "" {
		p.Name = strings.TrimSpace(req.Name)
	}
	if req.Clinic != "" {
		p.Clinic = strings.TrimSpace(req.Clinic)
	}
	if req.LicenseNumber != "" {
		p.LicenseNumber = strings.TrimSpace(req.LicenseNumber)
	}
	p.UpdatedAt = time.Now().UTC()

	if err := repo.Profiles.UpdateProfile(ctx, p); err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			return profile.ProfileResponse{}, err
		}
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to update profile")
		return profile.ProfileResponse{}, profile.ErrUpdateProfile
	}

	return toResponse(p), nil
}

func toResponse(p entity.Profile) profile.ProfileResponse {
	return profile.ProfileResponse{
		ID:            p.ID,
		Name:          p.Name,
		Email:         p.Email,
		Clinic:        p.Clinic,
		LicenseNumber: p.LicenseNumber,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
}
