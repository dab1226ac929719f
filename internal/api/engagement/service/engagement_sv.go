package engagementService

import (
	"errors"
	"math"
	"strings"
	"time"

	"classlens/internal/api/engagement"
	"classlens/internal/entity"
	"classlens/pkg/broadcast"
	contextPkg "classlens/pkg/context"
	"classlens/pkg/landmark"
	"classlens/pkg/scoring"
	"classlens/pkg/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const publishTimeout = 3 * time.Second

func (s *engagementService) Analyze(ctx context.Context, sessionID string, image []byte) (*scoring.Result, error) {
	requestID := contextPkg.GetRequestID(ctx)
	sessionID = strings.TrimSpace(sessionID)

	info, err := s.utils.InspectFrame(image)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"size":       len(image),
			"error":      err.Error(),
		}).Warn("Rejected frame")
		if errors.Is(err, utils.ErrNoFile) {
			return nil, engagement.ErrMissingImage
		}
		return nil, engagement.ErrInvalidImage
	}

	detection, err := s.provider.Detect(ctx, image)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Landmark detection failed")
		if errors.Is(err, landmark.ErrRejected) {
			return nil, engagement.ErrInvalidImage
		}
		return nil, engagement.ErrProviderUnavailable
	}

	frame := scoring.Frame{
		Width:     info.Width,
		Height:    info.Height,
		Landmarks: detection.Landmarks,
		Pose:      detection.Pose,
	}

	if frame.Landmarks != nil && frame.Pose == nil && s.estimator != nil {
		pose, err := s.estimator.Estimate(frame.Landmarks, frame.Width, frame.Height)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Debug("Head pose unavailable, scoring without it")
		} else {
			frame.Pose = pose
		}
	}

	result := scoring.NoFaceResult()
	if frame.Landmarks.Len() > 0 {
		scored := false
		err = s.attention.Update(ctx, sessionID, func(prev scoring.AttentionState) (scoring.AttentionState, error) {
			var next scoring.AttentionState
			result, next = s.scorer.Score(frame, prev)
			scored = true
			return next, nil
		})
		switch {
		case err != nil && scored:
			// The score already used the stored history; only the save was lost.
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": sessionID,
				"error":      err.Error(),
			}).Warn("Failed to save attention state")
		case err != nil:
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": sessionID,
				"error":      err.Error(),
			}).Warn("Attention state unavailable, scoring against baseline")
			result, _ = s.scorer.Score(frame, scoring.NewAttentionState(s.scorer.Config()))
		}
	}

	s.log.WithFields(logrus.Fields{
		"request_id":   requestID,
		"session_id":   sessionID,
		"score":        result.Score,
		"face_present": result.Details.FacePresent,
		"eye_state":    result.Details.EyeState,
	}).Debug("Frame scored")

	if sessionID != "" {
		s.publishAsync(requestID, broadcast.Update{
			SessionID: sessionID,
			Score:     result.Score,
			Level:     string(scoring.LevelOf(result.Score)),
			Timestamp: time.Now().UTC(),
		})
	}

	return &result, nil
}

func (s *engagementService) ResetSession(ctx context.Context, sessionID string) error {
	requestID := contextPkg.GetRequestID(ctx)

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return engagement.ErrInvalidSession
	}

	if err := s.attention.Reset(ctx, sessionID); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"error":      err.Error(),
		}).Error("Failed to reset attention state")
		return engagement.ErrInternalServerError
	}
	return nil
}

func (s *engagementService) RecordEngagement(ctx context.Context, req engagement.RecordRequest, user entity.UserLoginData) (entity.EngagementRecord, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.repository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return entity.EngagementRecord{}, engagement.ErrInternalServerError
	}

	now := time.Now().UTC()
	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate ULID")
		return entity.EngagementRecord{}, engagement.ErrInternalServerError
	}

	score := *req.Score
	record := entity.EngagementRecord{
		ID:          id,
		SessionID:   strings.TrimSpace(req.SessionID),
		StudentID:   user.ID,
		StudentName: user.Username,
		AgoraUID:    req.AgoraUID,
		Score:       score,
		Level:       scoring.LevelOf(score),
		Details:     req.Details,
		CreatedAt:   now,
	}

	if err := repo.Engagement.CreateRecord(ctx, record); err != nil {
		return entity.EngagementRecord{}, engagement.ErrInternalServerError
	}

	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pctx, broadcast.Update{
		SessionID:   record.SessionID,
		StudentID:   record.StudentID,
		StudentName: record.StudentName,
		AgoraUID:    record.AgoraUID,
		Score:       record.Score,
		Level:       string(record.Level),
		Timestamp:   record.CreatedAt,
	}); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": record.SessionID,
			"error":      err.Error(),
		}).Warn("Engagement recorded but broadcast failed")
	}

	return record, nil
}

func (s *engagementService) GetSessionRecords(ctx context.Context, sessionID string) ([]entity.EngagementRecord, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.repository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return nil, engagement.ErrInternalServerError
	}

	records, err := repo.Engagement.GetRecordsBySession(ctx, sessionID)
	if err != nil {
		return nil, engagement.ErrInternalServerError
	}
	return records, nil
}

func (s *engagementService) GetSessionReport(ctx context.Context, sessionID string) (entity.SessionReport, error) {
	records, err := s.GetSessionRecords(ctx, sessionID)
	if err != nil {
		return entity.SessionReport{}, err
	}
	if len(records) == 0 {
		return entity.SessionReport{}, engagement.ErrSessionNotFound
	}
	return buildReport(sessionID, records), nil
}

func (s *engagementService) Health(ctx context.Context) error {
	return s.provider.Health(ctx)
}

func (s *engagementService) publishAsync(requestID string, u broadcast.Update) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.publisher.Publish(ctx, u); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": u.SessionID,
				"error":      err.Error(),
			}).Warn("Failed to broadcast live score")
		}
	}()
}

type studentTally struct {
	summary entity.StudentSummary
	sum     int
}

// buildReport expects records in chronological order.
func buildReport(sessionID string, records []entity.EngagementRecord) entity.SessionReport {
	report := entity.SessionReport{
		SessionID:     sessionID,
		TotalRecords:  len(records),
		FirstRecordAt: records[0].CreatedAt,
		LastRecordAt:  records[len(records)-1].CreatedAt,
	}

	var sum int
	order := make([]string, 0)
	tallies := make(map[string]*studentTally)

	for _, r := range records {
		sum += r.Score
		if r.Score > report.PeakScore {
			report.PeakScore = r.Score
		}

		switch scoring.LevelOf(r.Score) {
		case scoring.LevelFocused:
			report.FocusedCount++
		case scoring.LevelNeutral:
			report.NeutralCount++
		default:
			report.DistractedCount++
		}

		t, ok := tallies[r.StudentID]
		if !ok {
			t = &studentTally{summary: entity.StudentSummary{StudentID: r.StudentID}}
			tallies[r.StudentID] = t
			order = append(order, r.StudentID)
		}
		t.summary.StudentName = r.StudentName
		t.summary.Records++
		t.sum += r.Score
		if r.Score > t.summary.PeakScore {
			t.summary.PeakScore = r.Score
		}
	}

	report.AverageScore = roundAverage(sum, len(records))
	report.Students = make([]entity.StudentSummary, 0, len(order))
	for _, id := range order {
		t := tallies[id]
		t.summary.AverageScore = roundAverage(t.sum, t.summary.Records)
		report.Students = append(report.Students, t.summary)
	}

	return report
}

func roundAverage(sum, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}
