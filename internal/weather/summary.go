package weather

import (
	"fmt"

	"github.com/i474232898/marine-conditions/internal/common"
)

// Summarize computes the per-day statistics of a fully populated bucket.
// It only reads b.
func Summarize(b *DailyBucket) DailySummary {
	s := DailySummary{
		Tides:      fmt.Sprintf("%d high, %d low", len(b.HighTides), len(b.LowTides)),
		PeakSwellM: maxOf(b.Swell),
		Sunrise:    b.Sunrise,
		Sunset:     b.Sunset,
	}

	if len(b.Wind) > 0 {
		peak := b.Wind[0].SpeedKmh
		for _, w := range b.Wind[1:] {
			if w.SpeedKmh > peak {
				peak = w.SpeedKmh
			}
		}
		s.PeakWindKmh = &peak
	}

	s.AirTempMinC, s.AirTempMaxC, s.AirTempAvgC = minMaxAvg(b.AirTemperature)
	s.WaterTempMinC, s.WaterTempMaxC, s.WaterTempAvgC = minMaxAvg(b.WaterTemperature)
	_, _, s.CloudCoverAvgPct = minMaxAvg(b.CloudCover)

	return s
}

func maxOf(rs []Reading) *float64 {
	if len(rs) == 0 {
		return nil
	}
	m := rs[0].Value
	for _, r := range rs[1:] {
		if r.Value > m {
			m = r.Value
		}
	}
	return &m
}

// minMaxAvg returns nil for every statistic when rs is empty. The average is rounded to 1 decimal.
func minMaxAvg(rs []Reading) (minV, maxV, avgV *float64) {
	if len(rs) == 0 {
		return nil, nil, nil
	}
	lo, hi, sum := rs[0].Value, rs[0].Value, 0.0
	for _, r := range rs {
		if r.Value < lo {
			lo = r.Value
		}
		if r.Value > hi {
			hi = r.Value
		}
		sum += r.Value
	}
	mean := common.Round(sum/float64(len(rs)), 1)
	return &lo, &hi, &mean
}
