package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/pkg/logger"
	"github.com/jwalitptl/scheduler-api/pkg/messaging"
)

// Notifier turns published scheduling events into plain-text emails for the
// front-desk inbox. Channels match the outbox event types, so anything the
// outbox processor relays is a candidate subscription.
type Notifier struct {
	broker messaging.MessageBroker
	mailer Mailer
	to     string
	logger *logger.Logger
}

func New(broker messaging.MessageBroker, mailer Mailer, to string, logger *logger.Logger) *Notifier {
	return &Notifier{
		broker: broker,
		mailer: mailer,
		to:     to,
		logger: logger,
	}
}

// Start subscribes to the notification-worthy channels and blocks until the
// context is cancelled.
func (n *Notifier) Start(ctx context.Context) error {
	channels := []string{
		model.EventWaitlistNotified,
		model.EventCommitmentCancelled,
		model.EventCommitmentRescheduled,
	}

	for _, channel := range channels {
		channel := channel
		err := n.broker.Subscribe(ctx, channel, func(payload []byte) error {
			if err := n.handle(ctx, channel, payload); err != nil {
				n.logger.Error(err, "failed to send notification", "channel", channel)
				return err
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", channel, err)
		}
	}

	<-ctx.Done()
	return ctx.Err()
}

func (n *Notifier) handle(ctx context.Context, channel string, payload []byte) error {
	subject, body, err := render(channel, payload)
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, n.to, subject, body)
}

func render(channel string, payload []byte) (subject, body string, err error) {
	switch channel {
	case model.EventWaitlistNotified:
		var entry model.WaitlistEntry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return "", "", fmt.Errorf("decode waitlist entry: %w", err)
		}
		subject = "Waitlist slot available"
		body = fmt.Sprintf(
			"Patient %s has been offered a %s slot with clinician %s.\nThe offer expires at %s.",
			entry.PatientID, entry.AppointmentType, entry.ClinicianID,
			entry.ExpiresAt.Format(time.RFC1123),
		)
	case model.EventCommitmentCancelled:
		var c model.Commitment
		if err := json.Unmarshal(payload, &c); err != nil {
			return "", "", fmt.Errorf("decode commitment: %w", err)
		}
		reason := ""
		if c.CancelReason != nil {
			reason = *c.CancelReason
		}
		subject = "Appointment cancelled"
		body = fmt.Sprintf(
			"The %s appointment for patient %s with clinician %s on %s was cancelled.\nReason: %s",
			c.Type, c.SubjectID, c.ClinicianID,
			c.StartTime.Format(time.RFC1123), reason,
		)
	case model.EventCommitmentRescheduled:
		var c model.Commitment
		if err := json.Unmarshal(payload, &c); err != nil {
			return "", "", fmt.Errorf("decode commitment: %w", err)
		}
		subject = "Appointment rescheduled"
		body = fmt.Sprintf(
			"The %s appointment for patient %s with clinician %s now runs %s to %s.",
			c.Type, c.SubjectID, c.ClinicianID,
			c.StartTime.Format(time.RFC1123), c.EndTime.Format(time.RFC1123),
		)
	default:
		return "", "", fmt.Errorf("unhandled channel %s", channel)
	}
	return subject, body, nil
}
