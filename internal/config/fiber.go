package config

import (
	"errors"

	"classlens/pkg/env"
	"classlens/pkg/handlerUtil"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

func NewFiber(logger *logrus.Logger) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:           "ClassLens Engagement",
			BodyLimit:         env.GetEnvInt("BODY_LIMIT_MB", 50) * 1024 * 1024,
			ReadTimeout:       env.GetEnvDuration("HTTP_READ_TIMEOUT", 0),
			StrictRouting:     true,
			CaseSensitive:     true,
			EnablePrintRoutes: logger.IsLevelEnabled(logrus.DebugLevel),
			JSONEncoder:       jsoniter.Marshal,
			JSONDecoder:       jsoniter.Unmarshal,
			ErrorHandler:      errorHandler(logger),
		})

	return app
}

// errorHandler renders errors that escape the handlers, such as unknown routes
// or refused websocket upgrades, in the same shape as handlerUtil responses.
func errorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "An unexpected error occurred"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			logger.WithFields(logrus.Fields{
				"path":  c.Path(),
				"error": err.Error(),
			}).Error("Unhandled error")
		}

		return c.Status(code).JSON(handlerUtil.ErrorResponse{Error: message})
	}
}
