package dispatcher

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/paidan/paidan/pkg/model"
	"github.com/paidan/paidan/pkg/scheduler/constraint"
	"github.com/paidan/paidan/pkg/scheduler/constraint/builtin"
	"github.com/paidan/paidan/pkg/traveltime"
)

// 候选时段步长与返回的备选数量
const (
	slotStepMinutes = 30
	maxAlternatives = 3
)

// SlotOutcome 时段推荐的结果类型
type SlotOutcome string

const (
	SlotOutcomeOK               SlotOutcome = "ok"
	SlotOutcomeNoEligibleWorker SlotOutcome = "no_eligible_workers"
	SlotOutcomeNoAvailableSlots SlotOutcome = "no_available_slots"
)

// SlotOption 单个候选时段
type SlotOption struct {
	WorkerID   uuid.UUID              `json:"worker_id"`
	WorkerName string                 `json:"worker_name"`
	Date       string                 `json:"date"`
	StartTime  string                 `json:"start_time"`
	EndTime    string                 `json:"end_time"`
	Score      float64                `json:"score"`
	Warnings   []constraint.Violation `json:"warnings,omitempty"`
}

// SlotResult 时段推荐结果
// Outcome 不为 ok 时 Recommendation 为 nil
type SlotResult struct {
	Outcome        SlotOutcome  `json:"outcome"`
	Recommendation *SlotOption  `json:"recommendation,omitempty"`
	Alternatives   []SlotOption `json:"alternatives,omitempty"`
}

// SlotRequest 时段推荐请求
type SlotRequest struct {
	Job  *model.Job
	Date string

	// Workers 候选技师，ExistingJobs 各技师当日已承接的工单
	Workers      []*model.Worker
	ExistingJobs map[uuid.UUID][]*model.Job

	// PreferredWorkerID 非 nil 时同分优先推荐该技师
	PreferredWorkerID *uuid.UUID

	// Estimator 行驶可达性检查用，可为 nil
	Estimator *traveltime.Estimator

	// Now 评估基准时间，零值取当前时间
	Now time.Time
}

// FindBestTimeSlot 为工单在指定日期找最优排程时段
// 在每位合格技师的工作时间内按 30 分钟步长枚举候选时段，
// 逐个走完整约束评估，按评分取最优并附带备选
func (e *Engine) FindBestTimeSlot(req SlotRequest) *SlotResult {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	eligible := make([]*model.Worker, 0, len(req.Workers))
	for _, w := range req.Workers {
		if e.eligible(req.Job, w, now) {
			eligible = append(eligible, w)
		}
	}
	if len(eligible) == 0 {
		return &SlotResult{Outcome: SlotOutcomeNoEligibleWorker}
	}

	evaluator := builtin.NewDefaultEvaluator()
	duration := req.Job.EffectiveDuration()
	var options []SlotOption

	for _, w := range eligible {
		hours := w.HoursFor(req.Date)
		if hours == nil {
			continue
		}
		start, end := hours.StartMinute(), hours.EndMinute()
		existing := req.ExistingJobs[w.ID]

		for minute := start; minute+duration <= end; minute += slotStepMinutes {
			slot := constraint.Slot{
				Date:        req.Date,
				StartMinute: minute,
				EndMinute:   minute + duration,
			}
			result := evaluator.Evaluate(&constraint.Context{
				Job:          req.Job,
				Worker:       w,
				Slot:         slot,
				ExistingJobs: existing,
				Estimator:    req.Estimator,
				Now:          now,
			})
			if !result.CanSchedule {
				continue
			}
			options = append(options, SlotOption{
				WorkerID:   w.ID,
				WorkerName: w.Name,
				Date:       req.Date,
				StartTime:  model.ClockOfMinute(minute),
				EndTime:    model.ClockOfMinute(minute + duration),
				Score:      result.Score,
				Warnings:   result.Warnings,
			})
		}
	}

	if len(options) == 0 {
		return &SlotResult{Outcome: SlotOutcomeNoAvailableSlots}
	}

	sort.SliceStable(options, func(i, j int) bool {
		if options[i].Score != options[j].Score {
			return options[i].Score > options[j].Score
		}
		if req.PreferredWorkerID != nil {
			pi := options[i].WorkerID == *req.PreferredWorkerID
			pj := options[j].WorkerID == *req.PreferredWorkerID
			if pi != pj {
				return pi
			}
		}
		return options[i].StartTime < options[j].StartTime
	})

	best := options[0]
	alternatives := options[1:]
	if len(alternatives) > maxAlternatives {
		alternatives = alternatives[:maxAlternatives]
	}
	return &SlotResult{
		Outcome:        SlotOutcomeOK,
		Recommendation: &best,
		Alternatives:   alternatives,
	}
}
