package service

import "MomentumScreener/internal/domain/models"

// IndicatorCalculator derives the full IndicatorSet from a price series.
type IndicatorCalculator interface {
	Compute(series models.PriceSeries) models.IndicatorSet
}
