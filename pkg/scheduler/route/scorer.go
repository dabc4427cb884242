// Package route 实现单技师路线的评分与优化
package route

import (
	"context"
	"time"

	"github.com/paidan/paidan/pkg/model"
	"github.com/paidan/paidan/pkg/timewindow"
	"github.com/paidan/paidan/pkg/traveltime"
)

// 评分常量
const (
	// jobBufferMinutes 每个工单结束后的固定缓冲时间
	jobBufferMinutes = 15
	// defaultLegMinutes 矩阵与估算器都不可用时的单段默认行驶时间
	defaultLegMinutes = 15
)

// Weights 评分权重
type Weights struct {
	Travel  float64 `yaml:"travel" json:"travel"`
	Window  float64 `yaml:"window" json:"window"`
	Urgency float64 `yaml:"urgency" json:"urgency"`
	Balance float64 `yaml:"balance" json:"balance"`
}

// DefaultWeights 返回默认权重
func DefaultWeights() Weights {
	return Weights{Travel: 1.0, Window: 2.0, Urgency: 1.5, Balance: 1.0}
}

// ScoreResult 一次路线评分结果
type ScoreResult struct {
	Breakdown model.ScoreBreakdown `json:"breakdown"`
	Stops     []model.RouteStop    `json:"stops"`
	EndMinute int                  `json:"end_minute"` // 最后一站的离开时刻
}

// Scorer 路线评分器
// 行驶时间优先查矩阵，未命中退回估算器，两者都没有时用固定默认值
type Scorer struct {
	estimator *traveltime.Estimator
	matrix    *traveltime.Matrix
	weights   Weights
	// departureBase 非零时估算器按该日期加时刻查询路况
	departureBase time.Time
}

// NewScorer 创建评分器，estimator 与 matrix 均可为 nil
func NewScorer(estimator *traveltime.Estimator, matrix *traveltime.Matrix, weights Weights) *Scorer {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Scorer{estimator: estimator, matrix: matrix, weights: weights}
}

// WithDepartureBase 设置路况查询的基准日期
func (s *Scorer) WithDepartureBase(base time.Time) *Scorer {
	s.departureBase = base
	return s
}

// Weights 返回评分权重
func (s *Scorer) Weights() Weights {
	return s.weights
}

// LegMinutes 估算一段行程的行驶时间
func (s *Scorer) LegMinutes(ctx context.Context, from, to *model.Location, clockMinute int) int {
	if from != nil && to != nil {
		if est, ok := s.matrix.Lookup(*from, *to); ok {
			return est.DurationMinutes
		}
	}
	if s.estimator != nil {
		return s.estimator.Estimate(ctx, from, to, s.timeAt(clockMinute)).DurationMinutes
	}
	return defaultLegMinutes
}

// timeAt 把当日分钟数换算成路况查询用的出发时间
func (s *Scorer) timeAt(clockMinute int) time.Time {
	if s.departureBase.IsZero() {
		return time.Time{}
	}
	day := s.departureBase.Truncate(24 * time.Hour)
	return day.Add(time.Duration(clockMinute) * time.Minute)
}

// Score 按顺序走一遍路线并累计评分
// 空路线得分为 0，明细为空
func (s *Scorer) Score(ctx context.Context, jobs []*model.Job, startLocation *model.Location, startMinute int) *ScoreResult {
	result := &ScoreResult{EndMinute: startMinute}
	if len(jobs) == 0 {
		return result
	}

	clock := startMinute
	prevLoc := startLocation
	var travelTotal, windowTotal, urgencyTotal float64

	for i, job := range jobs {
		travel := s.LegMinutes(ctx, prevLoc, job.Location, clock)
		arrival := clock + travel

		win, err := timewindow.Resolve(job)
		var penalty float64
		if err == nil {
			penalty = timewindow.Penalty(arrival, win)
		}

		travelTotal += float64(travel)
		windowTotal += penalty
		// 紧急工单排得越靠后代价越高
		urgencyTotal += float64(i) * job.Urgency.Weight()

		departure := arrival + job.EffectiveDuration()
		result.Stops = append(result.Stops, model.RouteStop{
			JobID:           job.ID,
			ArrivalMinute:   arrival,
			DepartureMinute: departure,
			TravelMinutes:   travel,
			WindowPenalty:   penalty,
		})

		clock = departure + jobBufferMinutes
		if job.Location.HasCoordinates() {
			prevLoc = job.Location
		}
	}

	result.EndMinute = result.Stops[len(result.Stops)-1].DepartureMinute
	result.Breakdown = model.ScoreBreakdown{
		TravelMinutes:     travelTotal,
		TimeWindowPenalty: windowTotal,
		UrgencyCost:       urgencyTotal,
		Total: travelTotal*s.weights.Travel +
			windowTotal*s.weights.Window +
			urgencyTotal*s.weights.Urgency,
	}
	return result
}
