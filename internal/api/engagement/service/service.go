package engagementService

import (
	"classlens/internal/api/engagement"
	engagementRepository "classlens/internal/api/engagement/repository"
	"classlens/internal/entity"
	"classlens/pkg/attention"
	"classlens/pkg/broadcast"
	"classlens/pkg/headpose"
	"classlens/pkg/landmark"
	"classlens/pkg/scoring"
	"classlens/pkg/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IEngagementService interface {
	Analyze(ctx context.Context, sessionID string, image []byte) (*scoring.Result, error)
	ResetSession(ctx context.Context, sessionID string) error
	RecordEngagement(ctx context.Context, req engagement.RecordRequest, user entity.UserLoginData) (entity.EngagementRecord, error)
	GetSessionRecords(ctx context.Context, sessionID string) ([]entity.EngagementRecord, error)
	GetSessionReport(ctx context.Context, sessionID string) (entity.SessionReport, error)
	Health(ctx context.Context) error
}

type engagementService struct {
	log        *logrus.Logger
	repository engagementRepository.Repository
	scorer     *scoring.Scorer
	provider   landmark.Provider
	estimator  headpose.Estimator
	attention  *attention.Manager
	publisher  broadcast.Publisher
	utils      utils.IUtils
}

func NewEngagementService(
	log *logrus.Logger,
	er engagementRepository.Repository,
	scorer *scoring.Scorer,
	provider landmark.Provider,
	estimator headpose.Estimator,
	manager *attention.Manager,
	publisher broadcast.Publisher,
	utils utils.IUtils,
) IEngagementService {
	if publisher == nil {
		publisher = broadcast.Noop{}
	}
	return &engagementService{
		log:        log,
		repository: er,
		scorer:     scorer,
		provider:   provider,
		estimator:  estimator,
		attention:  manager,
		publisher:  publisher,
		utils:      utils,
	}
}
