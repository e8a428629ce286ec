package usecase

import (
	"sort"

	"MomentumScreener/internal/domain/models"
)

// Aggregate partitions outcomes into the two buckets and drops rejections.
// Evaluation order is concurrent, so each bucket is sorted by symbol afterwards.
func Aggregate(outcomes []models.ScreenOutcome) models.ScreenResult {
	res := models.ScreenResult{
		Evaluated: len(outcomes),
		TopTier:   []models.ScreenOutcome{},
		Emerging:  []models.ScreenOutcome{},
	}
	for _, o := range outcomes {
		switch o.Category {
		case models.CategoryTopTier:
			res.TopTier = append(res.TopTier, o)
		case models.CategoryEmerging:
			res.Emerging = append(res.Emerging, o)
		}
	}
	bySymbol := func(xs []models.ScreenOutcome) {
		sort.Slice(xs, func(i, j int) bool { return xs[i].Symbol < xs[j].Symbol })
	}
	bySymbol(res.TopTier)
	bySymbol(res.Emerging)
	return res
}
