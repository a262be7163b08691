package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
	"github.com/noah-isme/sma-report-card/pkg/jobs"
	"github.com/noah-isme/sma-report-card/pkg/mailer"
)

const deliveryJobType = "report_email"

// DeliveryStatus is the lifecycle state of one report email.
type DeliveryStatus string

const (
	DeliveryStatusQueued DeliveryStatus = "queued"
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// DeliveryOutcome records what happened to a queued report email. JobID also
// serves as the tracking ID embedded in the message.
type DeliveryOutcome struct {
	JobID      string         `json:"job_id"`
	StudentID  string         `json:"student_id"`
	Recipient  string         `json:"recipient"`
	Status     DeliveryStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
	Attempts   int            `json:"attempts"`
	QueuedAt   time.Time      `json:"queued_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

// DeliveryConfig tunes the delivery worker pool and tracking links.
type DeliveryConfig struct {
	Workers         int
	Retries         int
	RetryDelay      time.Duration
	TrackingEnabled bool
	TrackingBaseURL string
}

// DeliveryService emails rendered reports in the background so sending never
// blocks or invalidates report computation.
type DeliveryService struct {
	sender  mailer.Sender
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
	cfg     DeliveryConfig

	mu       sync.RWMutex
	outcomes map[string]*DeliveryOutcome
}

// NewDeliveryService constructs the service and its queue. Call Start before
// Deliver.
func NewDeliveryService(sender mailer.Sender, metrics *MetricsService, logger *zap.Logger, cfg DeliveryConfig) *DeliveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DeliveryService{
		sender:   sender,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		outcomes: make(map[string]*DeliveryOutcome),
	}
	s.queue = jobs.NewQueue("report-delivery", s.process, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		OnDone:     s.finish,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers. The workers outlive ctx cancellation;
// they end with Shutdown or Stop so a signal does not cut queued deliveries.
func (s *DeliveryService) Start(ctx context.Context) {
	s.queue.Start(context.WithoutCancel(ctx))
}

// Stop halts the workers. Deliveries still queued are recorded as failed.
func (s *DeliveryService) Stop() {
	s.queue.Stop()
}

// Drain waits for every queued delivery to finish or ctx to end.
func (s *DeliveryService) Drain(ctx context.Context) error {
	return s.queue.Drain(ctx)
}

// Shutdown lets queued deliveries finish until ctx ends, then stops the
// workers. The returned error is the drain timeout, if any.
func (s *DeliveryService) Shutdown(ctx context.Context) error {
	err := s.Drain(ctx)
	s.Stop()
	return err
}

// Deliver queues the report for recipient. The returned error covers only
// problems preparing or queueing the email, never the send itself.
func (s *DeliveryService) Deliver(ctx context.Context, report *GeneratedReport, recipient string) (*DeliveryOutcome, error) {
	if report == nil {
		return nil, fmt.Errorf("report nil")
	}
	jobID := uuid.NewString()

	draft := mailer.ReportMessage{
		StudentName: report.Data.StudentName,
		To:          recipient,
		Body:        report.Text,
	}
	if s.cfg.TrackingEnabled {
		draft.TrackingBaseURL = s.cfg.TrackingBaseURL
		draft.TrackingID = jobID
	}
	msg, err := draft.Build()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recipient address")
	}

	outcome := &DeliveryOutcome{
		JobID:     jobID,
		StudentID: report.Data.StudentID,
		Recipient: recipient,
		Status:    DeliveryStatusQueued,
		QueuedAt:  time.Now().UTC(),
	}
	queued := *outcome
	s.mu.Lock()
	s.outcomes[jobID] = outcome
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: jobID, Type: deliveryJobType, Payload: msg}); err != nil {
		s.mu.Lock()
		delete(s.outcomes, jobID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue report delivery")
	}

	s.logger.Info("report delivery queued", zap.String("job_id", jobID), zap.String("student_id", queued.StudentID), zap.String("recipient", recipient))
	return &queued, nil
}

// Outcome returns the current state of a delivery.
func (s *DeliveryService) Outcome(jobID string) (*DeliveryOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	outcome, ok := s.outcomes[jobID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "delivery not found")
	}
	copied := *outcome
	return &copied, nil
}

func (s *DeliveryService) process(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mailer.Message)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return appErrors.Wrap(err, appErrors.ErrDeliveryFailed.Code, appErrors.ErrDeliveryFailed.Status, "send report email")
	}
	return nil
}

func (s *DeliveryService) finish(job jobs.Job, err error) {
	now := time.Now().UTC()

	s.mu.Lock()
	outcome, ok := s.outcomes[job.ID]
	if ok {
		outcome.FinishedAt = &now
		outcome.Attempts = job.Attempt + 1
		if err != nil {
			outcome.Attempts = job.Attempt
			outcome.Status = DeliveryStatusFailed
			outcome.Error = err.Error()
		} else {
			outcome.Status = DeliveryStatusSent
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.metrics.RecordDelivery(DeliveryOutcomeFailed)
		s.logger.Error("report delivery failed", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	s.metrics.RecordDelivery(DeliveryOutcomeSent)
	s.logger.Info("report delivered", zap.String("job_id", job.ID))
}
