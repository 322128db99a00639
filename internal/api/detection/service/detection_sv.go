package detectionService

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"PanoGuard/internal/api/detection"
	"PanoGuard/internal/entity"
	contextPkg "PanoGuard/pkg/context"
	"PanoGuard/pkg/dicom"
	"PanoGuard/pkg/inference"
	"PanoGuard/pkg/pipeline"
	"PanoGuard/pkg/s3"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (s *detectionService) Detect(ctx context.Context, req detection.DetectRequest) (detection.DetectionResponse, pipeline.Result, error) {
	requestID := contextPkg.GetRequestID(ctx)

	data, err := s.imageBytes(req)
	if err != nil {
		return detection.DetectionResponse{}, pipeline.Result{}, err
	}

	p := s.models.Pipeline()
	if p == nil {
		return detection.DetectionResponse{}, pipeline.Result{}, detection.ErrModelUnavailable
	}

	res := p.Run(ctx, pipeline.Input{
		FileName:  req.FileName,
		Data:      data,
		KeepImage: true,
	})
	if !res.Success {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"profile_id": req.ProfileID,
			"error":      res.Error,
		}).Warn("Detection pipeline failed")
		return detection.DetectionResponse{}, res, pipelineError(res)
	}

	hash := s.utils.HashImage(data)
	s.storeCached(ctx, cacheKey(res.Model, hash), res)

	id, err := s.utils.NewULIDFromTimestamp(s.now())
	if err != nil {
		s.discardImage(requestID, res.ImagePath)
		return detection.DetectionResponse{}, res, err
	}

	now := s.now()
	d := entity.Detection{
		ID:          id,
		ProfileID:   req.ProfileID,
		FileName:    req.FileName,
		ImagePath:   res.ImagePath,
		ImageHash:   hash,
		ArchiveURL:  s.archiveUpload(requestID, req, id, data, res.IsDicom),
		IsDicom:     res.IsDicom,
		Model:       res.Model,
		Predictions: res.Predictions,
		TopLabel:    res.TopLabel,
		TopScore:    res.TopScore,
		Flagged:     res.Flagged,
		Mock:        res.Mock,
		Note:        strings.TrimSpace(req.Note),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	repo, err := s.detectionRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		s.discardDetection(requestID, d)
		return detection.DetectionResponse{}, res, err
	}

	if err := repo.Detections.CreateDetection(ctx, d); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":   requestID,
			"detection_id": d.ID,
			"error":        err.Error(),
		}).Error("Failed to save detection")
		s.discardDetection(requestID, d)
		return detection.DetectionResponse{}, res, detection.ErrCreateDetection
	}

	s.log.WithFields(logrus.Fields{
		"request_id":   requestID,
		"detection_id": d.ID,
		"profile_id":   d.ProfileID,
		"top_label":    d.TopLabel,
		"flagged":      len(d.Flagged),
		"mock":         d.Mock,
	}).Info("Detection saved")

	return detection.ToResponse(d), res, nil
}

// Classify runs one image without persisting it. Successful results are
// cached by model and image hash.
func (s *detectionService) Classify(ctx context.Context, fileName string, data []byte) pipeline.Result {
	p := s.models.Pipeline()
	if p == nil {
		return pipeline.Result{Error: detection.ErrModelUnavailable.Error(), Err: detection.ErrModelUnavailable}
	}
	if int64(len(data)) > s.utils.MaxFileSize() {
		return pipeline.Result{Model: p.Model().Name, Error: detection.ErrImageTooLarge.Error(), Err: detection.ErrImageTooLarge}
	}

	key := cacheKey(p.Model().Name, s.utils.HashImage(data))
	if s.cacheEnabled() {
		var cached pipeline.Result
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"key":   key,
				"error": err.Error(),
			}).Warn("Prediction cache read failed")
		}
		if hit && cached.Success {
			s.log.WithField("key", key).Debug("Prediction cache hit")
			return cached
		}
	}

	res := p.Run(ctx, pipeline.Input{FileName: fileName, Data: data})
	if res.Success {
		s.storeCached(ctx, key, res)
	}
	return res
}

func (s *detectionService) ListDetections(ctx context.Context, q detection.ListDetectionsQuery) (detection.ListDetectionsResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if q.Limit <= 0 {
		q.Limit = detection.DefaultListLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	repo, err := s.detectionRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return detection.ListDetectionsResponse{}, err
	}

	total, err := repo.Detections.CountDetectionsByProfileID(ctx, q.ProfileID)
	if err != nil {
		return detection.ListDetectionsResponse{}, err
	}

	rows, err := repo.Detections.GetDetectionsByProfileID(ctx, q.ProfileID, q.Limit, q.Offset)
	if err != nil {
		return detection.ListDetectionsResponse{}, err
	}

	items := make([]detection.DetectionResponse, 0, len(rows))
	for _, d := range rows {
		items = append(items, detection.ToResponse(d))
	}

	return detection.ListDetectionsResponse{
		Items:  items,
		Total:  total,
		Limit:  q.Limit,
		Offset: q.Offset,
	}, nil
}

func (s *detectionService) GetDetection(ctx context.Context, profileID, id string) (detection.DetectionResponse, error) {
	d, err := s.ownedDetection(ctx, profileID, id)
	if err != nil {
		return detection.DetectionResponse{}, err
	}
	return detection.ToResponse(d), nil
}

func (s *detectionService) OpenDetectionImage(ctx context.Context, profileID, id string) (io.ReadCloser, error) {
	d, err := s.ownedDetection(ctx, profileID, id)
	if err != nil {
		return nil, err
	}
	if d.ImagePath == "" {
		return nil, detection.ErrImageNotStored
	}

	rc, err := s.store.Open(d.ImagePath)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":   contextPkg.GetRequestID(ctx),
			"detection_id": id,
			"error":        err.Error(),
		}).Warn("Stored image could not be opened")
		if errors.Is(err, os.ErrNotExist) {
			return nil, detection.ErrImageNotStored
		}
		return nil, err
	}
	return rc, nil
}

func (s *detectionService) GetArchiveURL(ctx context.Context, profileID, id string) (detection.ArchiveURLResponse, error) {
	d, err := s.ownedDetection(ctx, profileID, id)
	if err != nil {
		return detection.ArchiveURLResponse{}, err
	}
	if s.archive == nil || d.ArchiveURL == "" {
		return detection.ArchiveURLResponse{}, detection.ErrImageNotStored
	}

	url, err := s.archive.PresignUrl(d.ArchiveURL)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":   contextPkg.GetRequestID(ctx),
			"detection_id": id,
			"error":        err.Error(),
		}).Error("Failed to presign archive url")
		return detection.ArchiveURLResponse{}, err
	}
	return detection.ArchiveURLResponse{URL: url}, nil
}

func (s *detectionService) UpdateNote(ctx context.Context, req detection.UpdateNoteRequest) (detection.DetectionResponse, error) {
	d, err := s.ownedDetection(ctx, req.ProfileID, req.ID)
	if err != nil {
		return detection.DetectionResponse{}, err
	}

	repo, err := s.detectionRepository.NewClient(false)
	if err != nil {
		return detection.DetectionResponse{}, err
	}

	d.Note = strings.TrimSpace(req.Note)
	d.UpdatedAt = s.now()
	if err := repo.Detections.UpdateNote(ctx, d.ID, d.Note, d.UpdatedAt); err != nil {
		return detection.DetectionResponse{}, err
	}

	return detection.ToResponse(d), nil
}

func (s *detectionService) DeleteDetection(ctx context.Context, profileID, id string) error {
	requestID := contextPkg.GetRequestID(ctx)

	d, err := s.ownedDetection(ctx, profileID, id)
	if err != nil {
		return err
	}

	repo, err := s.detectionRepository.NewClient(false)
	if err != nil {
		return err
	}
	if err := repo.Detections.DeleteDetection(ctx, d.ID); err != nil {
		return err
	}

	s.discardDetection(requestID, d)

	s.log.WithFields(logrus.Fields{
		"request_id":   requestID,
		"detection_id": d.ID,
	}).Info("Detection deleted")
	return nil
}

func (s *detectionService) ModelStatus() detection.ModelStatusResponse {
	return s.models.Status()
}

func (s *detectionService) ReloadModel(ctx context.Context, req detection.ReloadModelRequest) (detection.ModelStatusResponse, error) {
	if err := s.models.Activate(ctx, req.Name); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"model":      req.Name,
			"error":      err.Error(),
		}).Error("Model reload failed")
		return s.models.Status(), err
	}
	return s.models.Status(), nil
}

func (s *detectionService) ownedDetection(ctx context.Context, profileID, id string) (entity.Detection, error) {
	repo, err := s.detectionRepository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return entity.Detection{}, err
	}

	d, err := repo.Detections.GetDetectionByID(ctx, id)
	if err != nil {
		return entity.Detection{}, err
	}
	if d.ProfileID != profileID {
		s.log.WithFields(logrus.Fields{
			"request_id":   contextPkg.GetRequestID(ctx),
			"detection_id": id,
			"profile_id":   profileID,
		}).Warn("Detection accessed by another profile")
		return entity.Detection{}, detection.ErrDetectionNotOwned
	}
	return d, nil
}

func (s *detectionService) imageBytes(req detection.DetectRequest) ([]byte, error) {
	data := req.Data
	if len(data) == 0 {
		if strings.TrimSpace(req.ImageBase64) == "" {
			return nil, detection.ErrInvalidImage
		}
		decoded, err := dicom.DecodeBase64(req.ImageBase64)
		if err != nil || len(decoded) == 0 {
			return nil, detection.ErrInvalidImage
		}
		data = decoded
	}

	if int64(len(data)) > s.utils.MaxFileSize() {
		return nil, detection.ErrImageTooLarge
	}
	return data, nil
}

func (s *detectionService) archiveUpload(requestID string, req detection.DetectRequest, id string, data []byte, isDicom bool) string {
	if s.archive == nil {
		return ""
	}

	contentType := req.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		if isDicom {
			contentType = "application/dicom"
		} else {
			contentType = http.DetectContentType(data)
		}
	}

	location, err := s.archive.UploadObject(s3.ObjectKey(req.ProfileID, id, req.FileName), bytes.NewReader(data), contentType)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":   requestID,
			"detection_id": id,
			"error":        err.Error(),
		}).Warn("Failed to archive radiograph")
		return ""
	}
	return location
}

func (s *detectionService) discardImage(requestID, path string) {
	if err := s.store.Remove(path); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"path":       path,
			"error":      err.Error(),
		}).Warn("Failed to remove stored image")
	}
}

func (s *detectionService) discardDetection(requestID string, d entity.Detection) {
	s.discardImage(requestID, d.ImagePath)

	if s.archive == nil || d.ArchiveURL == "" {
		return
	}
	if err := s.archive.DeleteFile(d.ArchiveURL); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":   requestID,
			"detection_id": d.ID,
			"error":        err.Error(),
		}).Warn("Failed to delete archived radiograph")
	}
}

func (s *detectionService) cacheEnabled() bool {
	return s.cache != nil && s.cache.Enabled()
}

// storeCached skips mock results so they never outlive a model reload.
func (s *detectionService) storeCached(ctx context.Context, key string, res pipeline.Result) {
	if !s.cacheEnabled() || res.Mock {
		return
	}
	res.ImagePath = ""
	if err := s.cache.SetJSON(ctx, key, res, s.cacheTTL); err != nil {
		s.log.WithFields(logrus.Fields{
			"key":   key,
			"error": err.Error(),
		}).Warn("Prediction cache write failed")
	}
}

func cacheKey(model, hash string) string {
	return "prediction:" + model + ":" + hash
}

// pipelineError turns a failed Result into the error the handler reports.
func pipelineError(res pipeline.Result) error {
	var initErr *dicom.CodecInitError
	if errors.Is(res.Err, inference.ErrNotLoaded) || errors.As(res.Err, &initErr) {
		return fmt.Errorf("%w: %s", detection.ErrModelUnavailable, res.Error)
	}
	return fmt.Errorf("%w: %s", detection.ErrPipelineFailed, res.Error)
}
