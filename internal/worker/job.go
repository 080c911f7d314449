package worker

import (
	"fmt"
	"time"
)

type JobType string

const (
	JobTypeWelcomeEmail JobType = "welcome_email"
	JobTypeTaskSMS      JobType = "task_sms"
	JobTypeTokenCleanup JobType = "token_cleanup"
)

const (
	QueueNotifications = "notifications"
	QueueMaintenance   = "maintenance"
	QueueRetry         = "retry_queue"
	QueueDead          = "dead_queue"
)

type Job struct {
	ID        string                 `json:"id"`
	Type      JobType                `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Attempts  int                    `json:"attempts"`
	MaxTries  int                    `json:"max_tries"`
	CreatedAt time.Time              `json:"created_at"`
	ProcessAt time.Time              `json:"process_at"`
}

// DeadJob is what lands on the dead queue once a job runs out of attempts.
type DeadJob struct {
	Job      *Job      `json:"original_job"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// String reads a string payload field. Missing or non-string values are an
// error so a malformed job goes through the retry path instead of panicking.
func (j *Job) String(key string) (string, error) {
	raw, ok := j.Payload[key]
	if !ok {
		return "", fmt.Errorf("job %s: missing payload field %q", j.ID, key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("job %s: payload field %q is %T, not string", j.ID, key, raw)
	}
	return s, nil
}
