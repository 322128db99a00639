package feedbackService

import (
	"errors"
	"sort"
	"strings"

	"PanoGuard/internal/api/detection"
	"PanoGuard/internal/api/feedback"
	feedbackRepository "PanoGuard/internal/api/feedback/repository"
	"PanoGuard/internal/entity"
	contextPkg "PanoGuard/pkg/context"
	"PanoGuard/pkg/postprocess"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (s *feedbackService) CreateFeedback(ctx context.Context, req feedback.CreateFeedbackRequest) (feedback.FeedbackResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if req.Label != "" && !postprocess.IsLabel(req.Label) {
		return feedback.FeedbackResponse{}, feedback.ErrInvalidLabel
	}
	if req.Agree == nil {
		return feedback.FeedbackResponse{}, feedback.ErrMissingVerdict
	}

	repo, err := s.newClient(requestID)
	if err != nil {
		return feedback.FeedbackResponse{}, err
	}

	if err := s.checkDetectionOwner(ctx, repo, req.ProfileID, req.DetectionID); err != nil {
		return feedback.FeedbackResponse{}, err
	}

	exists, err := repo.Feedback.ExistsForLabel(ctx, req.DetectionID, req.ProfileID, req.Label)
	if err != nil {
		return feedback.FeedbackResponse{}, err
	}
	if exists {
		return feedback.FeedbackResponse{}, feedback.ErrDuplicateFeedback
	}

	id, err := s.utils.NewULIDFromTimestamp(s.now())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate ULID")
		return feedback.FeedbackResponse{}, err
	}

	now := s.now()
	f := entity.Feedback{
		ID:          id,
		DetectionID: req.DetectionID,
		ProfileID:   req.ProfileID,
		Label:       req.Label,
		Agree:       *req.Agree,
		Comment:     strings.TrimSpace(req.Comment),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := repo.Feedback.CreateFeedback(ctx, f); err != nil {
		return feedback.FeedbackResponse{}, feedback.ErrCreateFeedback
	}

	s.log.WithFields(logrus.Fields{
		"request_id":   requestID,
		"detection_id": f.DetectionID,
		"label":        f.Label,
		"agree":        f.Agree,
	}).Info("Feedback recorded")

	return feedback.ToResponse(f), nil
}

func (s *feedbackService) ListFeedback(ctx context.Context, profileID, detectionID string) (feedback.ListFeedbackResponse, error) {
	repo, err := s.newClient(contextPkg.GetRequestID(ctx))
	if err != nil {
		return feedback.ListFeedbackResponse{}, err
	}

	if err := s.checkDetectionOwner(ctx, repo, profileID, detectionID); err != nil {
		return feedback.ListFeedbackResponse{}, err
	}

	rows, err := repo.Feedback.GetFeedbackByDetectionID(ctx, detectionID)
	if err != nil {
		return feedback.ListFeedbackResponse{}, err
	}

	items := make([]feedback.FeedbackResponse, 0, len(rows))
	for _, f := range rows {
		items = append(items, feedback.ToResponse(f))
	}
	return feedback.ListFeedbackResponse{Items: items}, nil
}

func (s *feedbackService) UpdateFeedback(ctx context.Context, req feedback.UpdateFeedbackRequest) (feedback.FeedbackResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.newClient(requestID)
	if err != nil {
		return feedback.FeedbackResponse{}, err
	}

	f, err := s.ownedFeedback(ctx, repo, req.ProfileID, req.ID)
	if err != nil {
		return feedback.FeedbackResponse{}, err
	}

	if req.Agree != nil {
		f.Agree = *req.Agree
	}
	f.Comment = strings.TrimSpace(req.Comment)
	f.UpdatedAt = s.now()

	if err := repo.Feedback.UpdateFeedback(ctx, f.ID, f.Agree, f.Comment, f.UpdatedAt); err != nil {
		if errors.Is(err, feedback.ErrFeedbackNotFound) {
			return feedback.FeedbackResponse{}, err
		}
		s.log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"feedback_id": f.ID,
			"error":       err.Error(),
		}).Error("Failed to update feedback")
		return feedback.FeedbackResponse{}, feedback.ErrUpdateFeedback
	}

	return feedback.ToResponse(f), nil
}

func (s *feedbackService) DeleteFeedback(ctx context.Context, profileID, id string) error {
	repo, err := s.newClient(contextPkg.GetRequestID(ctx))
	if err != nil {
		return err
	}

	if _, err := s.ownedFeedback(ctx, repo, profileID, id); err != nil {
		return err
	}

	return repo.Feedback.DeleteFeedback(ctx, id)
}

// Summary returns the clinician's agreement counts per label, the overall
// verdict first and then in classifier output order.
func (s *feedbackService) Summary(ctx context.Context, profileID string) (feedback.SummaryResponse, error) {
	repo, err := s.newClient(contextPkg.GetRequestID(ctx))
	if err != nil {
		return feedback.SummaryResponse{}, err
	}

	rows, err := repo.Feedback.SummaryByProfileID(ctx, profileID)
	if err != nil {
		return feedback.SummaryResponse{}, err
	}

	order := make(map[string]int, len(postprocess.Labels)+1)
	order[""] = -1
	for i, l := range postprocess.Labels {
		order[l] = i
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return order[rows[i].Label] < order[rows[j].Label]
	})

	res := feedback.SummaryResponse{Labels: rows}
	if res.Labels == nil {
		res.Labels = []entity.LabelAgreement{}
	}
	for _, r := range rows {
		res.Agree += r.Agree
		res.Disagree += r.Disagree
	}
	return res, nil
}

func (s *feedbackService) newClient(requestID string) (feedbackRepository.Client, error) {
	repo, err := s.feedbackRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return feedbackRepository.Client{}, err
	}
	return repo, nil
}

func (s *feedbackService) checkDetectionOwner(ctx context.Context, repo feedbackRepository.Client, profileID, detectionID string) error {
	owner, err := repo.Feedback.GetDetectionOwner(ctx, detectionID)
	if err != nil {
		return err
	}
	if owner != profileID {
		s.log.WithFields(logrus.Fields{
			"request_id":   contextPkg.GetRequestID(ctx),
			"detection_id": detectionID,
			"profile_id":   profileID,
		}).Warn("Feedback on another profile's detection")
		return detection.ErrDetectionNotOwned
	}
	return nil
}

func (s *feedbackService) ownedFeedback(ctx context.Context, repo feedbackRepository.Client, profileID, id string) (entity.Feedback, error) {
	f, err := repo.Feedback.GetFeedbackByID(ctx, id)
	if err != nil {
		return entity.Feedback{}, err
	}
	if f.ProfileID != profileID {
		return entity.Feedback{}, feedback.ErrFeedbackNotOwned
	}
	return f, nil
}
