package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

type confirmationStore interface {
	RecordOpen(ctx context.Context, id string, at time.Time) error
	Confirm(ctx context.Context, id string, at time.Time) error
	Status(ctx context.Context, id string) (models.TrackingStatus, error)
	Close() error
}

const trackingIDRule = "required,max=128,printascii,excludesall=/?#"

// TrackingService records report opens and read confirmations.
type TrackingService struct {
	store    confirmationStore
	metrics  *MetricsService
	logger   *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewTrackingService constructs the service around the injected store.
func NewTrackingService(store confirmationStore, metrics *MetricsService, logger *zap.Logger) *TrackingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingService{
		store:    store,
		metrics:  metrics,
		logger:   logger,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *TrackingService) checkID(id string) error {
	if err := s.validate.Var(id, trackingIDRule); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tracking id")
	}
	return nil
}

// RecordOpen notes that the report email identified by id was opened.
func (s *TrackingService) RecordOpen(ctx context.Context, id string) error {
	if err := s.checkID(id); err != nil {
		return err
	}
	if err := s.store.RecordOpen(ctx, id, s.now()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record open")
	}
	s.metrics.RecordTrackingEvent(TrackingEventOpen)
	s.logger.Debug("report opened", zap.String("tracking_id", id))
	return nil
}

// ConfirmView stores the confirmation time for id and returns it. A later
// confirmation replaces an earlier one.
func (s *TrackingService) ConfirmView(ctx context.Context, id string) (time.Time, error) {
	if err := s.checkID(id); err != nil {
		return time.Time{}, err
	}
	at := s.now()
	if err := s.store.Confirm(ctx, id, at); err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record confirmation")
	}
	s.metrics.RecordTrackingEvent(TrackingEventConfirm)
	s.logger.Info("report view confirmed", zap.String("tracking_id", id), zap.Time("confirmed_at", at))
	return at, nil
}

// ConfirmedAt returns when id was confirmed, or NOT_FOUND.
func (s *TrackingService) ConfirmedAt(ctx context.Context, id string) (time.Time, error) {
	status, err := s.Status(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	if !status.Confirmed() {
		return time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "report not confirmed")
	}
	return *status.ConfirmedAt, nil
}

// Status returns everything recorded for id.
func (s *TrackingService) Status(ctx context.Context, id string) (models.TrackingStatus, error) {
	if err := s.checkID(id); err != nil {
		return models.TrackingStatus{}, err
	}
	status, err := s.store.Status(ctx, id)
	if err != nil {
		return models.TrackingStatus{}, appErrors.FromError(err)
	}
	return status, nil
}

// Close releases the store.
func (s *TrackingService) Close() error {
	return s.store.Close()
}
