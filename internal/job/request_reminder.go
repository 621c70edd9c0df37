package job

import (
	"context"
	"time"

	"rewardpoints/internal/config"
	"rewardpoints/internal/service"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// RequestReminderJob periodically queues reminders for reward requests
// that have waited longer than the configured age.
type RequestReminderJob struct {
	requests  *service.RequestService
	cron      *cron.Cron
	spec      string
	after     time.Duration
	batchSize int
	now       func() time.Time
}

func NewRequestReminderJob(requests *service.RequestService, cfg *config.Config) *RequestReminderJob {
	return &RequestReminderJob{
		requests:  requests,
		cron:      cron.New(),
		spec:      cfg.Business.ReminderSpec,
		after:     cfg.Business.ReminderAfter,
		batchSize: 100,
		now:       time.Now,
	}
}

// Start registers the schedule and starts the cron runner in the
// background. Runs use ctx so they stop with the server.
func (j *RequestReminderJob) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc(j.spec, func() { j.runOnce(ctx) }); err != nil {
		return err
	}
	j.cron.Start()
	log.WithFields(log.Fields{"spec": j.spec, "after": j.after}).Info("request reminder job started")
	return nil
}

// Stop stops scheduling and waits for a running reminder pass to finish.
func (j *RequestReminderJob) Stop() {
	<-j.cron.Stop().Done()
	log.Info("request reminder job stopped")
}

func (j *RequestReminderJob) runOnce(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	n, err := j.requests.RemindPending(ctx, j.now().Add(-j.after), j.batchSize)
	if err != nil {
		log.WithError(err).Error("request reminder job")
	}
	return n
}
