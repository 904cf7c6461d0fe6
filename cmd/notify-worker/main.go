package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/meridian-health/hms/pkg/common/config"
	"github.com/meridian-health/hms/pkg/common/database"
	"github.com/meridian-health/hms/pkg/common/kafka"
	"github.com/meridian-health/hms/pkg/common/logger"
	"github.com/meridian-health/hms/pkg/notify"
)

func main() {
	logger.Init()
	cfg := config.Load()

	redisClient := database.GetRedis()
	taskStore := notify.NewTaskStore(redisClient, cfg.TaskStatusTTL)

	mailer := notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPSender, cfg.SMTPPassword)
	worker := notify.NewWorker(mailer, taskStore)

	consumer := kafka.NewConsumer(cfg.KafkaNotifyTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Log.Info("Shutting down notify worker...")
		cancel()
	}()

	logger.Log.WithField("topic", cfg.KafkaNotifyTopic).Info("Notify worker consuming")
	if err := consumer.Consume(ctx, worker.Handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.WithError(err).Fatal("consumer stopped")
	}
	logger.Log.Info("Notify worker stopped")
}
