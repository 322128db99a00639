package profileService

import (
	"PanoGuard/internal/api/profile"
	profileRepository "PanoGuard/internal/api/profile/repository"
	"PanoGuard/pkg/bcrypt"
	"PanoGuard/pkg/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IProfileService interface {
	Register(ctx context.Context, req profile.RegisterRequest) (profile.ProfileResponse, error)
	Login(ctx context.Context, req profile.LoginRequest) (profile.LoginResponse, error)
	GetProfile(ctx context.Context, id string) (profile.ProfileResponse, error)
	UpdateProfile(ctx context.Context, req profile.UpdateProfileRequest) (profile.ProfileResponse, error)
}

type profileService struct {
	log               *logrus.Logger
	profileRepository profileRepository.Repository
	bcrypt            bcrypt.IBcrypt
	utils             utils.IUtils
}

func New(log *logrus.Logger, pr profileRepository.Repository, bcrypt bcrypt.IBcrypt, utils utils.IUtils) IProfileService {
	return &profileService{
		log:               log,
		profileRepository: pr,
		bcrypt:            bcrypt,
		utils:             utils,
	}
}
