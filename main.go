package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	interactiondb "Loopline.com/cmd/interaction/dal/db"
	"Loopline.com/cmd/interaction/infras/redis"
	"Loopline.com/cmd/interaction/service"
	"Loopline.com/cmd/model"
	relationdb "Loopline.com/cmd/relation/dal/db"
	relationservice "Loopline.com/cmd/relation/service"
	"Loopline.com/config"
	"Loopline.com/pkg/constants"
	"Loopline.com/pkg/mq"
	"Loopline.com/pkg/oss"
)

func main() {
	config.Init()
	interactiondb.Init()
	relationdb.Init()
	redis.Init()
	defer redis.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rabbitURL := fmt.Sprintf("amqp://%s:%s@%s/",
		config.ConfigInfo.RabbitMq.Username,
		config.ConfigInfo.RabbitMq.Password,
		config.ConfigInfo.RabbitMq.Addr,
	)

	var producer *mq.Producer
	producer, err := mq.NewProducer(rabbitURL)
	if err != nil {
		logrus.Errorf("notification producer unavailable, events disabled: %v", err)
		producer = nil
	} else {
		defer producer.Close()
	}

	if producer != nil {
		consumer, err := mq.NewConsumer(rabbitURL, persistNotification)
		if err != nil {
			logrus.Errorf("notification consumer unavailable: %v", err)
		} else {
			defer consumer.Close()
			if err := consumer.Start(ctx); err != nil {
				logrus.Errorf("failed to start notification consumer: %v", err)
			}
		}
	}

	signer := oss.Init()

	interval := time.Duration(config.ConfigInfo.Verifier.CheckIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	verifier := service.NewCounterVerifyService(ctx, interval,
		config.ConfigInfo.Verifier.Limit, config.ConfigInfo.Verifier.AutoFix)
	verifier.Start()
	defer verifier.Stop()

	// services are constructed here so a transport layer can be bolted on
	// without touching the wiring
	_ = service.NewLikeService(ctx, producerOrNil(producer))
	_ = service.NewBookmarkService(ctx)
	_ = service.NewCommentService(ctx, producerOrNil(producer), signerOrNil(signer))
	_ = relationservice.NewRelationService(ctx, producerOrNil(producer), signerOrNil(signer))
	logrus.Infof("interaction services ready, verifier interval %s, batch limit %d",
		interval, constants.CounterVerifyDefaultLimit)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down")
}

// persistNotification is the consumer handler: one row per delivered
// event.
func persistNotification(ctx context.Context, event *mq.NotificationEvent) error {
	return interactiondb.CreateNotification(ctx, &model.Notification{
		UserId:     event.UserID,
		FromUserId: event.FromUserID,
		Type:       event.Type,
		TargetType: event.TargetType,
		TargetId:   event.TargetID,
		Content:    event.Content,
	})
}

// producerOrNil keeps the nil interface nil: a typed nil *mq.Producer
// stored in the interface would defeat the producers' nil checks.
func producerOrNil(p *mq.Producer) mq.NotificationProducer {
	if p == nil {
		return nil
	}
	return p
}

func signerOrNil(s *oss.MinioSigner) oss.URLSigner {
	if s == nil {
		return nil
	}
	return s
}
