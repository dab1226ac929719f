package engagementHandler

import (
	engagementService "classlens/internal/api/engagement/service"
	"classlens/internal/middleware"
	"classlens/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type EngagementHandler struct {
	log               *logrus.Logger
	validator         *validator.Validate
	middleware        middleware.Middleware
	engagementService engagementService.IEngagementService
	utils             utils.IUtils
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	es engagementService.IEngagementService,
	utils utils.IUtils,
) *EngagementHandler {
	return &EngagementHandler{
		engagementService: es,
		log:               log,
		validator:         validator,
		middleware:        middleware,
		utils:             utils,
	}
}

func (h *EngagementHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	srv.Post("/engagement", h.middleware.NewTokenMiddleware, h.RecordEngagement)

	engagement := srv.Group("/engagement")
	engagement.Post("/analyze", h.middleware.NewRateLimiter, h.Analyze)
	engagement.Use("/ws", wsMiddleware)
	engagement.Get("/ws", websocket.New(h.handleStream))
	engagement.Delete("/sessions/:id/state", h.middleware.NewRateLimiter, h.middleware.NewTokenMiddleware, h.ResetSession)
	engagement.Get("/:sessionId/report", h.middleware.NewTokenMiddleware, h.GetSessionReport)
	engagement.Get("/:sessionId", h.middleware.NewTokenMiddleware, h.GetSessionRecords)
}
