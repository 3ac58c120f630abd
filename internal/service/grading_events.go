package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/123123123123Sitar/dpotdquicktest/internal/models"
)

// Grading event types, appended to the subject prefix.
const (
	GradingEventAssigned    = "assigned"
	GradingEventAIGraded    = "ai_graded"
	GradingEventHumanGraded = "human_graded"
)

// GradingEvent is published whenever a submission's grade or assignment changes.
type GradingEvent struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	SubmissionID uint      `json:"submission_id"`
	StudentEmail string    `json:"student_email"`
	Day          string    `json:"day"`
	Score        *int      `json:"score"`
	Total        int       `json:"total"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewGradingEvent snapshots a submission into an event of the given type.
func NewGradingEvent(eventType string, submission models.Submission, occurredAt time.Time) GradingEvent {
	return GradingEvent{
		ID:           uuid.NewString(),
		Type:         eventType,
		SubmissionID: submission.ID,
		StudentEmail: submission.StudentEmail,
		Day:          submission.Day,
		Score:        submission.Q3Score,
		Total:        submission.TotalScore(),
		Status:       string(submission.Status()),
		OccurredAt:   occurredAt.UTC(),
	}
}

// GradingEventPublisher fans grading events out to downstream consumers.
type GradingEventPublisher interface {
	Publish(ctx context.Context, event GradingEvent) error
}

type natsGradingEvents struct {
	conn   *nats.Conn
	prefix string
	logger zerolog.Logger
}

// NewNATSGradingEvents publishes on "<prefix>.grading.<type>". A nil connection makes Publish a no-op.
func NewNATSGradingEvents(conn *nats.Conn, prefix string, logger zerolog.Logger) GradingEventPublisher {
	prefix = strings.Trim(strings.ReplaceAll(strings.TrimSpace(prefix), ":", "."), ".")
	if prefix == "" {
		prefix = "dpotd"
	}
	return &natsGradingEvents{
		conn:   conn,
		prefix: prefix,
		logger: logger.With().Str("component", "grading_events").Logger(),
	}
}

// Subject returns the NATS subject for an event type.
func (p *natsGradingEvents) Subject(eventType string) string {
	return p.prefix + ".grading." + eventType
}

func (p *natsGradingEvents) Publish(_ context.Context, event GradingEvent) error {
	if p.conn == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	subject := p.Subject(event.Type)
	if err := p.conn.Publish(subject, payload); err != nil {
		return err
	}

	p.logger.Debug().Str("subject", subject).Uint("submission_id", event.SubmissionID).Msg("grading event published")
	return nil
}
