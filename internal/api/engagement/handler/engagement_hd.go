package engagementHandler

import (
	"time"

	"classlens/internal/api/engagement"
	"classlens/internal/entity"
	contextPkg "classlens/pkg/context"
	"classlens/pkg/handlerUtil"
	jwtPkg "classlens/pkg/jwt"
	"classlens/pkg/log"
	"classlens/pkg/scoring"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

const requestTimeout = 10 * time.Second

func (h *EngagementHandler) Analyze(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var (
		frame     []byte
		sessionID string
	)

	file, err := ctx.FormFile("image")
	if err == nil {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"file_name":  file.Filename,
			"file_size":  file.Size,
		}).Debug("Processing frame upload")

		if err := h.utils.ValidateImageFile(file); err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "validate_image_file")
		}

		frame, err = h.utils.ReadFile(file)
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_file")
		}
		sessionID = ctx.FormValue("session_id")
	} else {
		var req engagement.AnalyzeRequest
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.Handle(ctx, requestID, engagement.ErrMissingImage, ctx.Path(), "parse_request_body")
		}

		if err := h.validator.Struct(req); err != nil {
			return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
		}

		frame, err = h.utils.DecodeBase64Image(req.ImageBase64)
		if err != nil {
			return errHandler.Handle(ctx, requestID, engagement.ErrInvalidImage, ctx.Path(), "decode_base64")
		}
		sessionID = req.SessionID
	}

	if sessionID == "" {
		sessionID = ctx.Query("session_id")
	}

	result, err := h.engagementService.Analyze(c, sessionID, frame)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "analyze")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, toAnalyzeResponse(result))
	}
}

func (h *EngagementHandler) ResetSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	if err := h.engagementService.ResetSession(c, ctx.Params("id")); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "reset_session")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusNoContent, nil)
	}
}

func (h *EngagementHandler) RecordEngagement(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	user, err := jwtPkg.GetUserLoginData(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Unauthorized, access token invalid or expired")
	}

	var req engagement.RecordRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	record, err := h.engagementService.RecordEngagement(c, req, user)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "record_engagement")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"session_id": record.SessionID,
			"student_id": record.StudentID,
			"score":      record.Score,
		}).Info("Engagement recorded")
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, toRecordResponse(record))
	}
}

func (h *EngagementHandler) GetSessionRecords(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	records, err := h.engagementService.GetSessionRecords(c, ctx.Params("sessionId"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_session_records")
	}

	resp := engagement.RecordsResponse{Data: make([]engagement.RecordResponse, 0, len(records))}
	for _, r := range records {
		resp.Data = append(resp.Data, toRecordResponse(r))
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, resp)
	}
}

func (h *EngagementHandler) GetSessionReport(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	report, err := h.engagementService.GetSessionReport(c, ctx.Params("sessionId"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_session_report")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, toReportResponse(report))
	}
}

// Health reports readiness, including whether the landmark provider answers.
func (h *EngagementHandler) Health(ctx *fiber.Ctx) error {
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 3*time.Second)
	defer cancel()

	if err := h.engagementService.Health(c); err != nil {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(engagement.HealthResponse{
			Status:   "degraded",
			Landmark: "unreachable",
			Error:    err.Error(),
		})
	}
	return ctx.JSON(engagement.HealthResponse{Status: "ok", Landmark: "ok"})
}

func toAnalyzeResponse(r *scoring.Result) engagement.AnalyzeResponse {
	return engagement.AnalyzeResponse{
		Score:   r.Score,
		Level:   scoring.LevelOf(r.Score),
		Details: r.Details,
	}
}

func toRecordResponse(r entity.EngagementRecord) engagement.RecordResponse {
	return engagement.RecordResponse{
		ID:          r.ID,
		SessionID:   r.SessionID,
		StudentID:   r.StudentID,
		StudentName: r.StudentName,
		AgoraUID:    r.AgoraUID,
		Score:       r.Score,
		Level:       r.Level,
		Details:     r.Details,
		Timestamp:   r.CreatedAt,
	}
}

func toReportResponse(r entity.SessionReport) engagement.ReportResponse {
	students := make([]engagement.StudentReport, 0, len(r.Students))
	for _, s := range r.Students {
		students = append(students, engagement.StudentReport{
			StudentID:    s.StudentID,
			StudentName:  s.StudentName,
			AverageScore: s.AverageScore,
			PeakScore:    s.PeakScore,
			Records:      s.Records,
		})
	}
	return engagement.ReportResponse{
		SessionID:       r.SessionID,
		AverageScore:    r.AverageScore,
		PeakScore:       r.PeakScore,
		TotalRecords:    r.TotalRecords,
		FocusedCount:    r.FocusedCount,
		NeutralCount:    r.NeutralCount,
		DistractedCount: r.DistractedCount,
		StartedAt:       r.FirstRecordAt,
		EndedAt:         r.LastRecordAt,
		Students:        students,
	}
}
