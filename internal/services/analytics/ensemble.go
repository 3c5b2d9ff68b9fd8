package analytics

import (
	"math"

	"RapWatch/internal/domain/models"
)

const (
	minEnsemblePoints = 7
	emaPeriod         = 10
	maPeriod          = 7

	linearWeight = 0.4
	emaWeight    = 0.4
	maWeight     = 0.2

	// history length at which data confidence saturates
	fullConfidencePoints = 30

	increaseWindow = 10
)

// PredictPrice blends a linear-regression extrapolation, EMA(10) and the
// SMA(7) of the tail into one forecast daysAhead positions out.
//
// Components without enough data are left out together with their weight and
// the weighted sum is divided by the remaining weights. The band is one
// population standard deviation of the raw prices around the prediction.
func PredictPrice(series []models.PricePoint, daysAhead int) models.Prediction {
	if len(series) < minEnsemblePoints {
		return models.Prediction{Method: models.MethodInsufficientData}
	}

	comps := &models.PredictionComponents{}
	var weighted, weights float64
	if v, ok := PredictPriceLinear(series, daysAhead); ok {
		comps.Linear = ptr(v)
		weighted += v * linearWeight
		weights += linearWeight
	}
	if v, ok := CalculateEMA(series, emaPeriod); ok {
		comps.EMA = ptr(v)
		weighted += v * emaWeight
		weights += emaWeight
	}
	if v, ok := PredictPriceMA(series, maPeriod); ok {
		comps.MA = ptr(v)
		weighted += v * maWeight
		weights += maWeight
	}

	if weights == 0 {
		return models.Prediction{Method: models.MethodNoPredictions}
	}

	predicted := roundTo(weighted/weights, 0)
	mean, std := meanStdDev(priceValues(series))

	return models.Prediction{
		Predicted:  ptr(predicted),
		Confidence: confidenceScore(len(series), mean, std),
		Lower:      ptr(roundTo(math.Max(0, predicted-std), 0)),
		Upper:      ptr(roundTo(predicted+std, 0)),
		Method:     models.MethodWeightedEnsemble,
		Components: comps,
	}
}

// confidenceScore averages a history-length score and a relative-spread score.
func confidenceScore(n int, mean, std float64) int {
	data := math.Min(100, float64(n)/fullConfidencePoints*100)

	var spread float64
	switch {
	case mean != 0:
		spread = std / mean * 100
	case std != 0:
		spread = 100
	}
	volatility := math.Max(0, 100-spread)

	return int(roundTo((data+volatility)/2, 0))
}

// CalculatePriceIncreaseProbability is the share of rises among consecutive
// moves in the last ten points, as a whole percentage. Fewer than two points
// yield a neutral 50.
func CalculatePriceIncreaseProbability(series []models.PricePoint) int {
	if len(series) < 2 {
		return 50
	}

	recent := tail(series, increaseWindow)
	increases := 0
	for i := 1; i < len(recent); i++ {
		if recent[i].Value > recent[i-1].Value {
			increases++
		}
	}
	return int(roundTo(float64(increases)/float64(len(recent)-1)*100, 0))
}
