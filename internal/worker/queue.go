package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultMaxTries = 3

// JobQueue pushes JSON jobs onto Redis lists. It also satisfies
// services.NotificationQueue.
type JobQueue struct {
	client   *redis.Client
	maxTries int
	now      func() time.Time
}

func NewJobQueue(client *redis.Client, maxTries int) *JobQueue {
	if maxTries <= 0 {
		maxTries = defaultMaxTries
	}
	return &JobQueue{client: client, maxTries: maxTries, now: time.Now}
}

func (q *JobQueue) Enqueue(ctx context.Context, queue string, jobType JobType, payload map[string]interface{}) (*Job, error) {
	return q.EnqueueAt(ctx, queue, jobType, payload, q.now())
}

func (q *JobQueue) EnqueueAt(ctx context.Context, queue string, jobType JobType, payload map[string]interface{}, processAt time.Time) (*Job, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generate job id: %w", err)
	}

	job := &Job{
		ID:        id.String(),
		Type:      jobType,
		Payload:   payload,
		MaxTries:  q.maxTries,
		CreatedAt: q.now(),
		ProcessAt: processAt,
	}
	if err := push(ctx, q.client, queue, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (q *JobQueue) EnqueueWelcomeEmail(ctx context.Context, email, firstName string) error {
	_, err := q.Enqueue(ctx, QueueNotifications, JobTypeWelcomeEmail, map[string]interface{}{
		"email":      email,
		"first_name": firstName,
	})
	return err
}

func (q *JobQueue) EnqueueTaskSMS(ctx context.Context, phoneNumber, message string) error {
	_, err := q.Enqueue(ctx, QueueNotifications, JobTypeTaskSMS, map[string]interface{}{
		"phone_number": phoneNumber,
		"message":      message,
	})
	return err
}

func (q *JobQueue) EnqueueTokenCleanup(ctx context.Context) error {
	_, err := q.Enqueue(ctx, QueueMaintenance, JobTypeTokenCleanup, map[string]interface{}{})
	return err
}

func (q *JobQueue) Size(ctx context.Context, queue string) (int64, error) {
	return q.client.LLen(ctx, queue).Result()
}

func push(ctx context.Context, client *redis.Client, queue string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := client.RPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("push to %s: %w", queue, err)
	}
	return nil
}
