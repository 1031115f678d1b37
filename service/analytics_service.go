package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"freightdispatch/pkg/logger"
	"freightdispatch/pkg/models"
	"freightdispatch/storage"
)

// AnalyticsService derives operational metrics from the load collection on
// demand. Reads only; nothing here is cached, so every call reflects the
// collection at the time of the call.
type AnalyticsService interface {
	Revenue(ctx context.Context, period models.Period) (decimal.Decimal, error)
	OnTimePercentage(ctx context.Context, period models.Period) (float64, error)
	AverageTransitTime(ctx context.Context, period models.Period) (time.Duration, error)
	LoadsByStatus(ctx context.Context) (map[models.LoadStatus]int, error)
}

type analyticsService struct {
	loads storage.ILoadStorage
	log   logger.ILogger
}

func NewAnalyticsService(stg storage.IStorage, log logger.ILogger) AnalyticsService {
	return &analyticsService{
		loads: stg.Load(),
		log:   log,
	}
}

// Revenue sums the rates of loads created within the period that reached
// delivered or completed.
func (s *analyticsService) Revenue(ctx context.Context, period models.Period) (decimal.Decimal, error) {
	loads, err := s.loads.GetCreatedBetween(ctx, period.From, period.To)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, l := range loads {
		if l.Status == models.StatusDelivered || l.Status == models.StatusCompleted {
			total = total.Add(l.Rate)
		}
	}
	return total, nil
}

// OnTimePercentage is the fraction of loads delivered within the period
// whose actual delivery did not exceed the target delivery date. Lateness
// is measured against the load-level target, not the terminal stop's
// appointment. Returns 0 when nothing was delivered in the period.
func (s *analyticsService) OnTimePercentage(ctx context.Context, period models.Period) (float64, error) {
	loads, err := s.loads.GetDeliveredBetween(ctx, period.From, period.To)
	if err != nil {
		return 0, err
	}
	var delivered, onTime int
	for _, l := range loads {
		if l.ActualDeliveryTime == nil {
			continue
		}
		delivered++
		if !l.ActualDeliveryTime.After(l.DeliveryDate) {
			onTime++
		}
	}
	if delivered == 0 {
		return 0, nil
	}
	return float64(onTime) / float64(delivered), nil
}

// AverageTransitTime is the mean pickup-to-delivery duration across loads
// delivered in the period that carry both actual timestamps. Returns 0
// when no such load exists.
func (s *analyticsService) AverageTransitTime(ctx context.Context, period models.Period) (time.Duration, error) {
	loads, err := s.loads.GetDeliveredBetween(ctx, period.From, period.To)
	if err != nil {
		return 0, err
	}
	var total time.Duration
	var n int
	for _, l := range loads {
		if l.ActualPickupTime == nil || l.ActualDeliveryTime == nil {
			continue
		}
		total += l.ActualDeliveryTime.Sub(*l.ActualPickupTime)
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return total / time.Duration(n), nil
}

func (s *analyticsService) LoadsByStatus(ctx context.Context) (map[models.LoadStatus]int, error) {
	return s.loads.CountByStatus(ctx)
}
