package di

import (
	"context"

	"MomentumScreener/internal/domain/models"
)

// unconfigured stands in for a live provider whose credentials are missing.
// Scheduled or Kafka-triggered runs then reject every symbol as data unavailable.
type unconfigured struct{ err error }

func (u unconfigured) GetHistory(context.Context, string) (models.PriceSeries, error) {
	return models.PriceSeries{}, u.err
}

func (u unconfigured) GetProfile(context.Context, string) (models.Fundamentals, error) {
	return models.Fundamentals{}, u.err
}
