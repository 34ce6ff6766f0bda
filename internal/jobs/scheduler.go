package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"cataloghub/pkg/logger"
	"cataloghub/pkg/models"
)

// Scheduler emits heartbeat jobs on a clock independent of request traffic.
// Every firing is just an Enqueue, so scheduled work rides the same queue
// and worker pool as on-demand jobs.
type Scheduler struct {
	cron  *cron.Cron
	queue *Queue
	log   *logger.Logger
}

// NewScheduler registers one heartbeat per spec. Specs take cron syntax,
// both intervals ("@every 3m") and wall-clock lines ("30 9 * * *").
func NewScheduler(queue *Queue, baseLog *logger.Logger, specs map[string]string) (*Scheduler, error) {
	s := &Scheduler{
		cron:  cron.New(),
		queue: queue,
		log:   baseLog.With("component", "Scheduler"),
	}

	for name, spec := range specs {
		name := name
		_, err := s.cron.AddFunc(spec, func() {
			id, err := s.queue.Enqueue(context.Background(), models.JobTypeHeartbeat, HeartbeatPayload{Name: name})
			if err != nil {
				s.log.Warn("heartbeat enqueue failed", "name", name, "error", err)
				return
			}
			s.log.Info("heartbeat enqueued", "name", name, "job_id", id)
		})
		if err != nil {
			return nil, fmt.Errorf("add schedule %q (%s): %w", name, spec, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts firing; already-enqueued heartbeats still run.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
