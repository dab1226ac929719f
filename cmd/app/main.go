package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classlens/internal/config"
	"classlens/internal/middleware"
	"classlens/pkg/broadcast"
	"classlens/pkg/env"
	"classlens/pkg/headpose"
	"classlens/pkg/landmark"
	"classlens/pkg/log"
	"classlens/pkg/redis"

	"golang.org/x/time/rate"
)

func main() {
	env.Load()
	logger := log.NewLogger()

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()

	estimator, err := headpose.NewGeometric(headpose.DefaultModel)
	if err != nil {
		logger.Fatal(err)
	}

	landmarkTimeout := env.GetEnvDuration("LANDMARK_TIMEOUT", 5*time.Second)
	var provider landmark.Provider
	switch env.GetEnv("LANDMARK_TRANSPORT", "http") {
	case "ws":
		provider = landmark.NewWSProvider(env.GetEnv("LANDMARK_WS_URL", "ws://localhost:8000/ws"), landmarkTimeout, logger)
	default:
		provider = landmark.NewHTTPProvider(env.GetEnv("LANDMARK_URL", "http://localhost:8000"), landmarkTimeout)
	}

	options := []config.ServerOption{
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithDatabase(),
		config.WithMiddleware(middleware.Config{
			RateLimit: rate.Limit(env.GetEnvFloat("RATE_LIMIT_RPS", 50)),
			Burst:     env.GetEnvInt("RATE_LIMIT_BURST", 100),
		}),
		config.WithScoringConfig(env.GetEnv("SCORING_CONFIG", "")),
		config.WithLandmarkProvider(provider),
		config.WithHeadPoseEstimator(estimator),
		config.WithUtils(),
	}

	storeKind := env.GetEnv("ATTENTION_STORE", "memory")
	if storeKind == "redis" {
		redisServer := redis.New(redis.Config{
			Address:  env.GetEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: env.GetEnv("REDIS_PASSWORD", ""),
			DB:       env.GetEnvInt("REDIS_DB", 0),
		})
		options = append(options, config.WithRedisServer(redisServer))
	}
	options = append(options, config.WithAttentionStore(storeKind, env.GetEnvDuration("ATTENTION_TTL", 30*time.Minute)))

	if broker := env.GetEnv("MQTT_BROKER", ""); broker != "" {
		publisher, err := broadcast.NewMQTTPublisher(broadcast.Config{
			Broker:   broker,
			ClientID: env.GetEnv("MQTT_CLIENT_ID", "classlens-engagement"),
			Username: env.GetEnv("MQTT_USERNAME", ""),
			Password: env.GetEnv("MQTT_PASSWORD", ""),
			Topic:    env.GetEnv("MQTT_TOPIC", broadcast.DefaultTopic),
			QoS:      byte(env.GetEnvInt("MQTT_QOS", 1)),
		}, logger)
		if err != nil {
			logger.Fatalf("Error connecting to MQTT broker: %v", err)
		}
		options = append(options, config.WithPublisher(publisher))
	}

	server, err := config.NewServer(options...)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
