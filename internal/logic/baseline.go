package logic

import (
	"math"
	"sort"

	"github.com/openmohaa/medal-forecast/internal/models"
)

// Baseline heuristic weights
const (
	totalWeight    = 1.0
	momentumWeight = 0.4
)

// BaselinePredict scores every entity as total_sum + 0.4*max(0, momentum) and
// splits the rounded score across medal types by historical share. The result
// is sorted by predicted total, descending, then by entity name.
func BaselinePredict(features map[string]models.FeatureVector) []models.Forecast {
	forecasts := make([]models.Forecast, 0, len(features))
	for entity, fv := range features {
		score := totalWeight*float64(fv.Total) + momentumWeight*math.Max(0, float64(fv.Momentum))
		total := max(0, int(math.Round(score)))
		forecasts = append(forecasts, SplitByShare(entity, total, fv))
	}

	SortForecasts(forecasts)
	return forecasts
}

// SplitByShare distributes total across gold/silver/bronze using the window's
// medal proportions. Bronze absorbs the rounding remainder. When the window
// holds no medals at all every share is zero, so the whole total lands in bronze.
func SplitByShare(entity string, total int, fv models.FeatureVector) models.Forecast {
	denom := float64(fv.Gold + fv.Silver + fv.Bronze)
	if denom == 0 {
		denom = 1
	}

	gold := int(math.Round(float64(total) * float64(fv.Gold) / denom))
	silver := int(math.Round(float64(total) * float64(fv.Silver) / denom))

	// Two half-up roundings can overshoot total by one
	gold = min(gold, total)
	silver = min(silver, total-gold)

	return models.Forecast{
		Entity:          entity,
		PredictedGold:   gold,
		PredictedSilver: silver,
		PredictedBronze: max(0, total-gold-silver),
		PredictedTotal:  total,
	}
}

// SortForecasts orders forecasts by predicted total descending, ties by entity ascending
func SortForecasts(forecasts []models.Forecast) {
	sort.Slice(forecasts, func(i, j int) bool {
		if forecasts[i].PredictedTotal != forecasts[j].PredictedTotal {
			return forecasts[i].PredictedTotal > forecasts[j].PredictedTotal
		}
		return forecasts[i].Entity < forecasts[j].Entity
	})
}
