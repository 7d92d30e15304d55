package workouts

import (
	"context"
	"sort"

	"github.com/milicad/fittrack/internal/telemetry/tracing"
)

// TrendPoint is one day of the VO2max progress chart.
type TrendPoint struct {
	Date      string  `json:"date"`
	AvgVO2Max float64 `json:"avg_vo2max"`
	Workouts  int     `json:"workouts"`
}

type Analyzer struct {
	store workoutsStore
}

func NewAnalyzer(store workoutsStore) *Analyzer {
	return &Analyzer{
		store: store,
	}
}

// VO2MaxTrend buckets the user's workouts per day and averages the
// VO2max of each bucket, in ascending date order (chart-ready).
func (a *Analyzer) VO2MaxTrend(ctx context.Context, userID string) (_ []TrendPoint, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.analyzer.vo2maxTrend")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	records, err := a.store.List(ctx, userID, OrderInsertion, 0)
	if err != nil {
		return nil, err
	}

	day2records := make(map[string][]Workout)
	for _, record := range records {
		day2records[record.Date] = append(day2records[record.Date], record)
	}

	trend := make([]TrendPoint, 0, len(day2records))
	for day, dayRecords := range day2records {
		var vo2Sum float64
		for _, record := range dayRecords {
			vo2Sum += record.VO2Max
		}
		trend = append(trend, TrendPoint{
			Date:      day,
			AvgVO2Max: roundTo1Decimal(vo2Sum / float64(len(dayRecords))),
			Workouts:  len(dayRecords),
		})
	}

	sort.Slice(trend, func(i, j int) bool {
		return trend[i].Date < trend[j].Date
	})

	return trend, nil
}
