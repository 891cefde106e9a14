package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/incubatehub/compliance-api/internal/models"
	appErrors "github.com/incubatehub/compliance-api/pkg/errors"
	"github.com/incubatehub/compliance-api/pkg/queue"
	"github.com/incubatehub/compliance-api/pkg/scheduler"
)

const reminderSweepJob = "compliance-reminders"

type reminderBuilder interface {
	Reminders(ctx context.Context, companyCode string) ([]models.ReminderPayload, error)
}

// ReminderMessage is the envelope published to the notifier queue.
type ReminderMessage struct {
	CompanyCode string                 `json:"companyCode"`
	Reminder    models.ReminderPayload `json:"reminder"`
}

// ReminderService publishes reminder payloads to the downstream notifier.
type ReminderService struct {
	builder   reminderBuilder
	publisher queue.Publisher
	queueName string
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewReminderService constructs a ReminderService.
func NewReminderService(builder reminderBuilder, publisher queue.Publisher, queueName string, metrics *MetricsService, logger *zap.Logger) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueName == "" {
		queueName = "compliance_reminders"
	}
	return &ReminderService{
		builder:   builder,
		publisher: publisher,
		queueName: queueName,
		metrics:   metrics,
		logger:    logger,
	}
}

// Dispatch publishes one message per reminder payload and returns how many were sent.
// Publishing stops at the first failure.
func (s *ReminderService) Dispatch(ctx context.Context, companyCode string) (int, error) {
	if s.publisher == nil {
		return 0, appErrors.Clone(appErrors.ErrStoreUnavailable, "reminder publisher is not configured")
	}
	companyCode = strings.TrimSpace(companyCode)
	reminders, err := s.builder.Reminders(ctx, companyCode)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, reminder := range reminders {
		msg := ReminderMessage{CompanyCode: companyCode, Reminder: reminder}
		if err := s.publisher.Publish(ctx, s.queueName, msg); err != nil {
			s.metrics.RecordRemindersPublished(companyCode, sent)
			s.logger.Error("failed to publish reminder",
				zap.String("company_code", companyCode),
				zap.String("participant_id", reminder.ParticipantID),
				zap.Int("sent", sent),
				zap.Error(err))
			return sent, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish reminders")
		}
		sent++
	}
	s.metrics.RecordRemindersPublished(companyCode, sent)
	s.logger.Info("compliance reminders dispatched", zap.String("company_code", companyCode), zap.Int("sent", sent))
	return sent, nil
}

// ScheduleSweep registers a cron task dispatching reminders for every company code.
func (s *ReminderService) ScheduleSweep(sched *scheduler.Scheduler, schedule string, companyCodes []string) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}
	if len(companyCodes) == 0 {
		return fmt.Errorf("no company codes configured for reminder sweep")
	}
	codes := append([]string(nil), companyCodes...)
	return sched.Add(reminderSweepJob, schedule, func(ctx context.Context) error {
		return s.sweep(ctx, codes)
	})
}

func (s *ReminderService) sweep(ctx context.Context, companyCodes []string) error {
	var failed []string
	for _, code := range companyCodes {
		if _, err := s.Dispatch(ctx, code); err != nil {
			failed = append(failed, code)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("reminder sweep failed for %s", strings.Join(failed, ", "))
	}
	return nil
}
