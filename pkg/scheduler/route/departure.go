package route

import (
	"context"
	"time"

	"github.com/paidan/paidan/pkg/model"
	"github.com/paidan/paidan/pkg/traveltime"
)

// 出发时刻候选范围（默认 07:00 到 09:00，每 30 分钟一档）
const (
	departureEarliestMinute = 420
	departureLatestMinute   = 540
	departureStepMinutes    = 30
)

// DepartureOption 单个出发时刻的评估结果
type DepartureOption struct {
	DepartureMinute int                  `json:"departure_minute"`
	DepartureClock  string               `json:"departure_clock"`
	Score           model.ScoreBreakdown `json:"score"`
	TravelMinutes   float64              `json:"travel_minutes"` // 该出发时刻下的实际行驶时间
	EndMinute       int                  `json:"end_minute"`
}

// DepartureResult 出发时刻选择结果
type DepartureResult struct {
	Best    DepartureOption   `json:"best"`
	Options []DepartureOption `json:"options"`
}

// SelectDeparture 为一条已定序的路线挑选最优出发时刻
// 每个候选时刻都带着路况感知的出发时间重新查询估算器并整路线重评分
func SelectDeparture(ctx context.Context, jobs []*model.Job, startLocation *model.Location, date string, estimator *traveltime.Estimator, weights Weights) *DepartureResult {
	base := time.Now()
	if d, err := model.ParseDate(date); err == nil {
		base = d
	}

	result := &DepartureResult{}
	for minute := departureEarliestMinute; minute <= departureLatestMinute; minute += departureStepMinutes {
		scorer := NewScorer(estimator, nil, weights).WithDepartureBase(base)
		scored := scorer.Score(ctx, jobs, startLocation, minute)

		opt := DepartureOption{
			DepartureMinute: minute,
			DepartureClock:  model.ClockOfMinute(minute),
			Score:           scored.Breakdown,
			TravelMinutes:   scored.Breakdown.TravelMinutes,
			EndMinute:       scored.EndMinute,
		}
		result.Options = append(result.Options, opt)

		if len(result.Options) == 1 || opt.Score.Total < result.Best.Score.Total {
			result.Best = opt
		}
	}
	return result
}
