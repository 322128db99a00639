package feedbackService

import (
	"time"

	"PanoGuard/internal/api/feedback"
	feedbackRepository "PanoGuard/internal/api/feedback/repository"
	"PanoGuard/pkg/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IFeedbackService interface {
	CreateFeedback(ctx context.Context, req feedback.CreateFeedbackRequest) (feedback.FeedbackResponse, error)
	ListFeedback(ctx context.Context, profileID, detectionID string) (feedback.ListFeedbackResponse, error)
	UpdateFeedback(ctx context.Context, req feedback.UpdateFeedbackRequest) (feedback.FeedbackResponse, error)
	DeleteFeedback(ctx context.Context, profileID, id string) error
	Summary(ctx context.Context, profileID string) (feedback.SummaryResponse, error)
}

type feedbackService struct {
	log                *logrus.Logger
	feedbackRepository feedbackRepository.Repository
	utils              utils.IUtils
	now                func() time.Time
}

func New(log *logrus.Logger, fr feedbackRepository.Repository, utils utils.IUtils) IFeedbackService {
	return &feedbackService{
		log:                log,
		feedbackRepository: fr,
		utils:              utils,
		now:                func() time.Time { return time.Now().UTC() },
	}
}
