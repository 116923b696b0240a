package logic

import "github.com/openmohaa/medal-forecast/internal/models"

// DefaultWindow is the number of most recent periods aggregated per entity
const DefaultWindow = 3

// ExtractFeatures computes rolling-window aggregates over the last k records of
// each history. Momentum is the endpoint difference of the window's totals, not
// a fitted slope. Entities with no records are left out.
func ExtractFeatures(histories map[string]models.EntityHistory, k int) map[string]models.FeatureVector {
	if k < 1 {
		k = 1
	}

	features := make(map[string]models.FeatureVector, len(histories))
	for entity, h := range histories {
		if len(h.Records) == 0 {
			continue
		}

		window := h.Records[max(0, len(h.Records)-k):]
		fv := models.FeatureVector{Entity: entity, Periods: len(window)}
		for _, r := range window {
			fv.Gold += r.Gold
			fv.Silver += r.Silver
			fv.Bronze += r.Bronze
			fv.Total += r.Total
		}
		if len(window) >= 2 {
			fv.Momentum = window[len(window)-1].Total - window[0].Total
		}

		features[entity] = fv
	}

	return features
}
