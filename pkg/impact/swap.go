package impact

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/paidan/paidan/pkg/model"
	"github.com/paidan/paidan/pkg/scheduler/constraint"
	"github.com/paidan/paidan/pkg/scheduler/constraint/builtin"
	"github.com/paidan/paidan/pkg/traveltime"
)

// SwapResult 换班模拟结果
type SwapResult struct {
	Feasible            bool                   `json:"feasible"`
	Recommended         bool                   `json:"recommended"`
	Violations          []constraint.Violation `json:"violations,omitempty"`
	TravelMinutesBefore int                    `json:"travel_minutes_before"`
	TravelMinutesAfter  int                    `json:"travel_minutes_after"`
	Reason              string                 `json:"reason"`
}

// SwapSimulator 模拟两位技师整日互换工单
type SwapSimulator struct {
	evaluator *constraint.Evaluator
	estimator *traveltime.Estimator
}

// NewSwapSimulator 创建换班模拟器
func NewSwapSimulator(estimator *traveltime.Estimator) *SwapSimulator {
	return &SwapSimulator{
		evaluator: builtin.NewDefaultEvaluator(),
		estimator: estimator,
	}
}

// Simulate 模拟 A、B 两位技师在指定日期互换全部工单
// 任何一方接手后产生阻断性违反则直接否决；
// 可行时只有互换后的总行驶时间严格更低才建议执行
func (s *SwapSimulator) Simulate(ctx context.Context, workerA, workerB *model.Worker, date string, jobsA, jobsB []*model.Job, now time.Time) *SwapResult {
	result := &SwapResult{}

	result.Violations = append(result.Violations, s.crossCheck(jobsA, workerB, date, now)...)
	result.Violations = append(result.Violations, s.crossCheck(jobsB, workerA, date, now)...)
	if len(result.Violations) > 0 {
		result.Reason = fmt.Sprintf("互换会产生 %d 项阻断性违反", len(result.Violations))
		return result
	}
	result.Feasible = true

	before := s.totalTravel(ctx, workerA, jobsA) + s.totalTravel(ctx, workerB, jobsB)
	after := s.totalTravel(ctx, workerA, jobsB) + s.totalTravel(ctx, workerB, jobsA)
	result.TravelMinutesBefore = before
	result.TravelMinutesAfter = after

	if after < before {
		result.Recommended = true
		result.Reason = fmt.Sprintf("互换后总行驶时间从 %d 分钟降到 %d 分钟", before, after)
	} else {
		result.Reason = fmt.Sprintf("互换可行但不省时间（%d → %d 分钟）", before, after)
	}
	return result
}

// crossCheck 逐单评估一方的工单换给另一方后的阻断性违反
func (s *SwapSimulator) crossCheck(jobs []*model.Job, newWorker *model.Worker, date string, now time.Time) []constraint.Violation {
	var blocking []constraint.Violation
	for i, job := range jobs {
		slot := constraint.Slot{
			Date:        date,
			StartMinute: job.StartMinute(),
			EndMinute:   job.EndMinute(),
		}
		// 该方其余工单构成接手后的当日已承接集合
		others := make([]*model.Job, 0, len(jobs)-1)
		others = append(others, jobs[:i]...)
		others = append(others, jobs[i+1:]...)

		result := s.evaluator.Evaluate(&constraint.Context{
			Job:          job,
			Worker:       newWorker,
			Slot:         slot,
			ExistingJobs: others,
			Estimator:    s.estimator,
			Now:          now,
		})
		blocking = append(blocking, result.BlockingViolations()...)
	}
	return blocking
}

// totalTravel 按时间顺序走一遍某技师的当日工单并累计行驶时间
func (s *SwapSimulator) totalTravel(ctx context.Context, worker *model.Worker, jobs []*model.Job) int {
	if len(jobs) == 0 {
		return 0
	}
	ordered := make([]*model.Job, len(jobs))
	copy(ordered, jobs)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].StartMinute() < ordered[j].StartMinute()
	})
	return travelMinutes(ctx, s.estimator, worker.HomeLocation, ordered)
}
