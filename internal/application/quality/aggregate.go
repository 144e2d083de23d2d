package quality

import (
	"tradedesk-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// Sample is one child record contributing to an aggregate.
type Sample struct {
	Quantity decimal.Decimal
	Quality  *domain.Quality
}

// meanPlaces is the precision an aggregated value is rounded to.
const meanPlaces = 10

// Aggregate returns the quantity-weighted mean of every sample that carries quality.
// It returns nil when no sample has quality, or when their total quantity is zero:
// "no data" is not the same as zero quality. The mean is computed in decimal so
// equal inputs aggregate to exactly the same value.
func Aggregate(samples []Sample) *domain.Quality {
	var measured []Sample
	total := decimal.Zero
	for _, s := range samples {
		if s.Quality == nil {
			continue
		}
		measured = append(measured, s)
		total = total.Add(s.Quantity)
	}
	if len(measured) == 0 || total.IsZero() {
		return nil
	}
	var out domain.Quality
	for _, p := range domain.QualityParams {
		sum := decimal.Zero
		for _, s := range measured {
			sum = sum.Add(decimal.NewFromFloat(s.Quality.Param(p)).Mul(s.Quantity))
		}
		out.SetParam(p, sum.Div(total).Round(meanPlaces).InexactFloat64())
	}
	return &out
}

// FromTanks builds samples from a shipment's tanks.
func FromTanks(tanks []domain.Tank) []Sample {
	out := make([]Sample, 0, len(tanks))
	for _, t := range tanks {
		out = append(out, Sample{Quantity: t.Quantity, Quality: t.Quality})
	}
	return out
}
