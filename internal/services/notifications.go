package services

import "context"

// NotificationQueue hands notifications to the background worker. Enqueue
// failures are logged by callers and never fail the request.
type NotificationQueue interface {
	EnqueueWelcomeEmail(ctx context.Context, email, firstName string) error
	EnqueueTaskSMS(ctx context.Context, phoneNumber, message string) error
}

type noopQueue struct{}

func (noopQueue) EnqueueWelcomeEmail(context.Context, string, string) error { return nil }
func (noopQueue) EnqueueTaskSMS(context.Context, string, string) error      { return nil }

// NoopNotifications discards every notification. It is used when Redis is
// disabled.
func NoopNotifications() NotificationQueue {
	return noopQueue{}
}
