// Package location implements the location store: validated, append-only
// GPS samples per driver with latest/history reads and a retention sweep.
package location

import (
	"context"
	"math"
	"time"

	"github.com/dropmate/trackd/internal/domain"
	"github.com/dropmate/trackd/internal/metrics"
	"github.com/dropmate/trackd/pkg/log"
)

// History limits
const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
)

// HistoryOptions bounds a history read.
type HistoryOptions struct {
	Limit int
	Since *time.Time
}

// Store is the durable sample store. Implementations assign the row id;
// the service assigns the timestamp.
type Store interface {
	Insert(ctx context.Context, sample domain.LocationSample) (domain.LocationSample, error)
	Latest(ctx context.Context, driverID int64) (domain.LocationSample, error)
	History(ctx context.Context, driverID int64, opts HistoryOptions) ([]domain.LocationSample, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service validates and records samples. It has no side effects beyond the
// append; the tracker pipeline owns resolution and broadcast.
type Service struct {
	store  Store
	logger log.Logger
	now    func() time.Time
}

// NewService creates a location Service.
func NewService(store Store, logger log.Logger) *Service {
	return &Service{store: store, logger: logger.WithComponent("location"), now: time.Now}
}

// Record validates and durably appends one sample, returning it with the
// server-assigned timestamp. Latitude must be within [-90, 90] and
// longitude within [-180, 180].
func (s *Service) Record(ctx context.Context, driverID int64, lat, lng float64, accuracy *float64) (domain.LocationSample, error) {
	if err := validateCoords(lat, lng); err != nil {
		metrics.SamplesRejected.Inc()
		return domain.LocationSample{}, err
	}
	sample := domain.LocationSample{
		DriverID:   driverID,
		Latitude:   lat,
		Longitude:  lng,
		Accuracy:   accuracy,
		OccurredAt: s.now().UTC(),
	}
	stored, err := s.store.Insert(ctx, sample)
	if err != nil {
		return domain.LocationSample{}, err
	}
	metrics.SamplesRecorded.Inc()
	return stored, nil
}

// Latest returns the sample with the maximum OccurredAt for the driver, or
// domain.ErrNotFound when the driver has no samples.
func (s *Service) Latest(ctx context.Context, driverID int64) (domain.LocationSample, error) {
	return s.store.Latest(ctx, driverID)
}

// History returns samples newest first, bounded by opts.Limit and optionally
// filtered to OccurredAt >= opts.Since. The limit is clamped to
// MaxHistoryLimit and defaults to DefaultHistoryLimit.
func (s *Service) History(ctx context.Context, driverID int64, opts HistoryOptions) ([]domain.LocationSample, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultHistoryLimit
	}
	if opts.Limit > MaxHistoryLimit {
		opts.Limit = MaxHistoryLimit
	}
	return s.store.History(ctx, driverID, opts)
}

// PurgeBefore deletes samples older than cutoff and returns the count. The
// sweep is independent of live delivery correctness.
func (s *Service) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info("retention sweep complete", log.Int64("deleted", n), log.Time("cutoff", cutoff))
	return n, nil
}

func validateCoords(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return domain.Validationf("latitude", "must be within [-90, 90], got %v", lat)
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return domain.Validationf("longitude", "must be within [-180, 180], got %v", lng)
	}
	return nil
}
