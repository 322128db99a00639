package detectionService

import (
	"io"
	"time"

	"PanoGuard/internal/api/detection"
	detectionRepository "PanoGuard/internal/api/detection/repository"
	"PanoGuard/pkg/pipeline"
	"PanoGuard/pkg/redis"
	"PanoGuard/pkg/s3"
	"PanoGuard/pkg/storage"
	"PanoGuard/pkg/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IDetectionService interface {
	Detect(ctx context.Context, req detection.DetectRequest) (detection.DetectionResponse, pipeline.Result, error)
	Classify(ctx context.Context, fileName string, data []byte) pipeline.Result
	ListDetections(ctx context.Context, q detection.ListDetectionsQuery) (detection.ListDetectionsResponse, error)
	GetDetection(ctx context.Context, profileID, id string) (detection.DetectionResponse, error)
	OpenDetectionImage(ctx context.Context, profileID, id string) (io.ReadCloser, error)
	GetArchiveURL(ctx context.Context, profileID, id string) (detection.ArchiveURLResponse, error)
	UpdateNote(ctx context.Context, req detection.UpdateNoteRequest) (detection.DetectionResponse, error)
	DeleteDetection(ctx context.Context, profileID, id string) error
	ModelStatus() detection.ModelStatusResponse
	ReloadModel(ctx context.Context, req detection.ReloadModelRequest) (detection.ModelStatusResponse, error)
}

// Models is what the service needs from *ModelHost.
type Models interface {
	Pipeline() *pipeline.Pipeline
	Status() detection.ModelStatusResponse
	Activate(ctx context.Context, name string) error
}

type detectionService struct {
	log                 *logrus.Logger
	detectionRepository detectionRepository.Repository
	models              Models
	store               storage.ImageStore
	cache               redis.IRedis
	cacheTTL            time.Duration
	archive             s3.ItfS3
	utils               utils.IUtils
	now                 func() time.Time
}

// New wires the detection service. cache and archive may be nil.
func New(
	log *logrus.Logger,
	dr detectionRepository.Repository,
	models Models,
	store storage.ImageStore,
	cache redis.IRedis,
	cacheTTL time.Duration,
	archive s3.ItfS3,
	utils utils.IUtils,
) IDetectionService {
	return &detectionService{
		log:                 log,
		detectionRepository: dr,
		models:              models,
		store:               store,
		cache:               cache,
		cacheTTL:            cacheTTL,
		archive:             archive,
		utils:               utils,
		now:                 func() time.Time { return time.Now().UTC() },
	}
}
