package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Notifier delivers notifications. The default implementation only logs.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, to, body string) error
}

type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendEmail(_ context.Context, to, subject, body string) error {
	n.log.Info().Str("to", to).Str("subject", subject).Str("body", body).Msg("Email notification")
	return nil
}

func (n *LogNotifier) SendSMS(_ context.Context, to, body string) error {
	n.log.Info().Str("to", to).Str("body", body).Msg("SMS notification")
	return nil
}

// TokenPurger removes token records that expired before cutoff.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// RegisterDefaultHandlers wires the three job types the API produces.
func RegisterDefaultHandlers(w *Worker, notifier Notifier, purger TokenPurger) {
	w.RegisterHandler(JobTypeWelcomeEmail, WelcomeEmailHandler(notifier))
	w.RegisterHandler(JobTypeTaskSMS, TaskSMSHandler(notifier))
	if purger != nil {
		w.RegisterHandler(JobTypeTokenCleanup, TokenCleanupHandler(purger, w.log, w.now))
	}
}

func WelcomeEmailHandler(notifier Notifier) JobHandler {
	return func(ctx context.Context, job *Job) error {
		email, err := job.String("email")
		if err != nil {
			return err
		}
		firstName, err := job.String("first_name")
		if err != nil {
			return err
		}
		body := fmt.Sprintf("Hi %s, welcome to Taskify!", firstName)
		return notifier.SendEmail(ctx, email, "Welcome to Taskify", body)
	}
}

func TaskSMSHandler(notifier Notifier) JobHandler {
	return func(ctx context.Context, job *Job) error {
		phone, err := job.String("phone_number")
		if err != nil {
			return err
		}
		message, err := job.String("message")
		if err != nil {
			return err
		}
		return notifier.SendSMS(ctx, phone, message)
	}
}

func TokenCleanupHandler(purger TokenPurger, log zerolog.Logger, now func() time.Time) JobHandler {
	return func(ctx context.Context, job *Job) error {
		n, err := purger.PurgeExpired(ctx, now())
		if err != nil {
			return err
		}
		log.Info().Int64("purged", n).Msg("Expired tokens purged")
		return nil
	}
}

// ScheduleTokenCleanup enqueues a token_cleanup job every interval until ctx
// is done.
func ScheduleTokenCleanup(ctx context.Context, queue *JobQueue, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := queue.EnqueueTokenCleanup(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to schedule token cleanup")
			}
		}
	}
}
