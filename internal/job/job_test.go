package job

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"rewardpoints/internal/config"
	"rewardpoints/internal/infrastructure/database"
	"rewardpoints/internal/infrastructure/lock"
	"rewardpoints/internal/infrastructure/mq"
	"rewardpoints/internal/model"
	"rewardpoints/internal/service"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     filepath.Join(t.TempDir(), "points.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{Topic: config.KafkaTopicConfig{PointsEvents: "points.events"}},
		Business: config.BusinessConfig{
			MaxRetryCount: 2,
			ReminderSpec:  "@every 1h",
			ReminderAfter: 24 * time.Hour,
		},
	}
}

func seedOutbox(t *testing.T, db *gorm.DB, keys ...string) {
	t.Helper()
	for _, key := range keys {
		require.NoError(t, db.Create(&model.OutboxMessage{
			MessageKey: key,
			EventType:  service.EventPointsAdjusted,
			Topic:      "points.events",
			Payload:    `{"child_id":1}`,
			Status:     model.OutboxStatusPending,
		}).Error)
	}
}

func outboxStatuses(t *testing.T, db *gorm.DB) map[string]model.OutboxMessage {
	t.Helper()
	var msgs []model.OutboxMessage
	require.NoError(t, db.Find(&msgs).Error)
	out := make(map[string]model.OutboxMessage, len(msgs))
	for _, m := range msgs {
		out[m.MessageKey] = m
	}
	return out
}

func TestOutboxSenderPublishesPending(t *testing.T) {
	db := openTestDB(t)
	seedOutbox(t, db, "1", "2")

	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "points.events" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		return nil
	})
	producer.ExpectSendMessageAndSucceed()

	sender := NewOutboxSender(db, mq.NewKafkaPublisher(producer), testConfig())
	assert.Equal(t, 2, sender.processPendingMessages(context.Background()))

	for key, msg := range outboxStatuses(t, db) {
		assert.Equal(t, model.OutboxStatusSent, msg.Status, key)
	}
	assert.Equal(t, 0, sender.processPendingMessages(context.Background()), "nothing left to send")
	require.NoError(t, producer.Close())
}

func TestOutboxSenderMarksFailedAfterMaxRetries(t *testing.T) {
	db := openTestDB(t)
	seedOutbox(t, db, "1")

	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	sender := NewOutboxSender(db, mq.NewKafkaPublisher(producer), testConfig())

	assert.Equal(t, 0, sender.processPendingMessages(context.Background()))
	msg := outboxStatuses(t, db)["1"]
	assert.Equal(t, model.OutboxStatusPending, msg.Status)
	assert.Equal(t, 1, msg.RetryCount)

	assert.Equal(t, 0, sender.processPendingMessages(context.Background()))
	msg = outboxStatuses(t, db)["1"]
	assert.Equal(t, model.OutboxStatusFailed, msg.Status)
	assert.Equal(t, 2, msg.RetryCount)

	assert.Equal(t, 0, sender.processPendingMessages(context.Background()), "failed messages are not retried")
	require.NoError(t, producer.Close())
}

func TestOutboxSenderStops(t *testing.T) {
	db := openTestDB(t)
	producer := mocks.NewSyncProducer(t, nil)
	cfg := testConfig()
	cfg.Business.OutboxInterval = 10 * time.Millisecond
	sender := NewOutboxSender(db, mq.NewKafkaPublisher(producer), cfg)

	done := make(chan struct{})
	go func() {
		sender.Start(context.Background())
		close(done)
	}()
	sender.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sender did not stop")
	}
}

func TestRequestReminderRunOnce(t *testing.T) {
	db := openTestDB(t)
	cfg := testConfig()

	child := &model.User{Username: "kid", PasswordHash: "x", Role: model.RoleChild}
	parent := &model.User{Username: "mom", PasswordHash: "x", Role: model.RoleParent}
	require.NoError(t, db.Create(child).Error)
	require.NoError(t, db.Create(parent).Error)
	require.NoError(t, db.Create(&model.FamilyLink{ParentID: parent.ID, ChildID: child.ID}).Error)
	reward := &model.Reward{Name: "Movie night", Cost: 80}
	require.NoError(t, db.Create(reward).Error)

	now := time.Now()
	stale := &model.RewardRequest{ChildID: child.ID, RewardID: reward.ID, Status: model.RequestStatusPending, RequestedAt: now.Add(-48 * time.Hour)}
	fresh := &model.RewardRequest{ChildID: child.ID, RewardID: reward.ID, Status: model.RequestStatusPending, RequestedAt: now.Add(-time.Hour)}
	require.NoError(t, db.Create(stale).Error)
	require.NoError(t, db.Create(fresh).Error)

	requests := service.NewRequestService(db, service.NewLedgerService(db, lock.NewLocalLocker(), cfg), cfg)
	job := NewRequestReminderJob(requests, cfg)
	job.now = func() time.Time { return now }

	assert.Equal(t, 1, job.runOnce(context.Background()))
	assert.Equal(t, 0, job.runOnce(context.Background()), "already reminded")

	var reminders int64
	require.NoError(t, db.Model(&model.OutboxMessage{}).
		Where("event_type = ?", service.EventRequestReminder).Count(&reminders).Error)
	assert.Equal(t, int64(1), reminders)

	job.now = func() time.Time { return now.Add(48 * time.Hour) }
	assert.Equal(t, 2, job.runOnce(context.Background()), "both requests are stale two days later")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, 0, job.runOnce(ctx))
}

func TestRequestReminderStart(t *testing.T) {
	db := openTestDB(t)
	cfg := testConfig()
	requests := service.NewRequestService(db, service.NewLedgerService(db, lock.NewLocalLocker(), cfg), cfg)

	job := NewRequestReminderJob(requests, cfg)
	require.NoError(t, job.Start(context.Background()))
	job.Stop()

	cfg.Business.ReminderSpec = "not a schedule"
	assert.Error(t, NewRequestReminderJob(requests, cfg).Start(context.Background()))
}
