// Command mailworker consumes queued notification jobs from RabbitMQ and
// delivers them through the configured email providers.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"uplora/internal/config"
	"uplora/internal/notify"
	"uplora/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	envFilePath           = ".env"
	providerVerifyTimeout = 10 * time.Second
)

func main() {
	if err := godotenv.Load(envFilePath); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	logCfg := config.LoadLog()
	zl, err := logger.New(logger.Config(logCfg))
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	mailCfg := config.LoadMail()
	if mailCfg.AMQPURL == "" {
		zl.Fatal("AMQP_URL must be set for the mail worker")
	}

	mail, err := notify.NewMailer(mailCfg)
	if err != nil {
		zl.Fatal("failed to configure email providers", zap.Error(err))
	}

	verifyCtx, cancelVerify := context.WithTimeout(context.Background(), providerVerifyTimeout)
	for name, verr := range mail.Verify(verifyCtx) {
		if verr != nil {
			zl.Warn("email provider failed credential check", zap.String("provider", name), zap.Error(verr))
		}
	}
	cancelVerify()

	notifier, err := notify.NewEmailNotifier(mail, config.LoadApp(), nil, zl)
	if err != nil {
		zl.Fatal("failed to load email templates", zap.Error(err))
	}

	broker, err := notify.DialBroker(mailCfg.AMQPURL, mailCfg.AMQPQueue, zl)
	if err != nil {
		zl.Fatal("failed to connect to broker", zap.Error(err))
	}
	defer broker.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zl.Info("mail worker started", zap.String("queue", mailCfg.AMQPQueue))
	if err := broker.Consume(ctx, notifier.Deliver); err != nil {
		zl.Fatal("mail worker stopped", zap.Error(err))
	}
	zl.Info("mail worker exited")
}
