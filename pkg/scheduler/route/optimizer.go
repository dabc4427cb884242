package route

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/paidan/paidan/internal/metrics"
	"github.com/paidan/paidan/pkg/logger"
	"github.com/paidan/paidan/pkg/model"
	"github.com/paidan/paidan/pkg/timewindow"
)

// 局部搜索参数
const (
	// defaultMaxIterations 2-opt 的最大迭代轮数
	defaultMaxIterations = 100
	// orOptTolerance or-opt 接受改进的最小幅度，防止浮点震荡
	orOptTolerance = 0.1
	// urgencyConstructionBonus 构造阶段紧急权重的固定放大系数
	urgencyConstructionBonus = 10
)

// Result 路线优化结果
type Result struct {
	Jobs               []*model.Job         `json:"-"`
	InitialOrder       []uuid.UUID          `json:"initial_order"`
	OptimizedOrder     []uuid.UUID          `json:"optimized_order"`
	Stops              []model.RouteStop    `json:"stops"`
	Score              model.ScoreBreakdown `json:"score"`
	InitialScore       float64              `json:"initial_score"`
	ImprovementPercent float64              `json:"improvement_percent"`
	EndMinute          int                  `json:"end_minute"`
}

// Optimizer 单技师路线优化器
// 三阶段流水线：贪心构造 → 2-opt → or-opt，每个阶段保证评分不回退
type Optimizer struct {
	scorer        *Scorer
	maxIterations int
	log           *logger.OptimizerLogger
}

// NewOptimizer 创建优化器
func NewOptimizer(scorer *Scorer) *Optimizer {
	return &Optimizer{
		scorer:        scorer,
		maxIterations: defaultMaxIterations,
		log:           logger.NewOptimizerLogger(),
	}
}

// WithMaxIterations 设置 2-opt 最大迭代轮数
func (o *Optimizer) WithMaxIterations(n int) *Optimizer {
	if n > 0 {
		o.maxIterations = n
	}
	return o
}

// Optimize 优化一条路线
func (o *Optimizer) Optimize(ctx context.Context, jobs []*model.Job, startLocation *model.Location, startMinute int) *Result {
	started := time.Now()
	result := &Result{}
	if len(jobs) == 0 {
		return result
	}
	result.InitialOrder = jobIDs(jobs)

	ordered := o.construct(ctx, jobs, startLocation, startMinute)
	initial := o.scorer.Score(ctx, ordered, startLocation, startMinute)
	result.InitialScore = initial.Breakdown.Total

	ordered = o.twoOpt(ctx, ordered, startLocation, startMinute)
	ordered = o.orOpt(ctx, ordered, startLocation, startMinute)

	final := o.scorer.Score(ctx, ordered, startLocation, startMinute)
	result.Jobs = ordered
	result.OptimizedOrder = jobIDs(ordered)
	result.Stops = final.Stops
	result.Score = final.Breakdown
	result.EndMinute = final.EndMinute
	if result.InitialScore > 0 {
		result.ImprovementPercent = (result.InitialScore - final.Breakdown.Total) / result.InitialScore * 100
	}

	o.log.OptimizeComplete("", time.Since(started), result.InitialScore, final.Breakdown.Total)
	return result
}

// construct 贪心就近构造初始顺序
// 每步选使「行驶×W_travel + 时间窗惩罚×W_window − 紧急权重×10」最小的未排工单
func (o *Optimizer) construct(ctx context.Context, jobs []*model.Job, startLocation *model.Location, startMinute int) []*model.Job {
	remaining := make([]*model.Job, len(jobs))
	copy(remaining, jobs)
	ordered := make([]*model.Job, 0, len(jobs))

	w := o.scorer.Weights()
	clock := startMinute
	prevLoc := startLocation

	for len(remaining) > 0 {
		bestIdx := 0
		bestCost := 0.0
		bestTravel := 0
		for i, job := range remaining {
			travel := o.scorer.LegMinutes(ctx, prevLoc, job.Location, clock)
			arrival := clock + travel

			var penalty float64
			if win, err := timewindow.Resolve(job); err == nil {
				penalty = timewindow.Penalty(arrival, win)
			}

			cost := float64(travel)*w.Travel + penalty*w.Window - job.Urgency.Weight()*urgencyConstructionBonus
			if i == 0 || cost < bestCost {
				bestIdx = i
				bestCost = cost
				bestTravel = travel
			}
		}

		chosen := remaining[bestIdx]
		ordered = append(ordered, chosen)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)

		clock += bestTravel + chosen.EffectiveDuration() + jobBufferMinutes
		if chosen.Location.HasCoordinates() {
			prevLoc = chosen.Location
		}
	}
	return ordered
}

// twoOpt 反转每个连续段，接受首个使全路线重评分变优的反转
// 迭代直到无改进或达到最大轮数
func (o *Optimizer) twoOpt(ctx context.Context, jobs []*model.Job, startLocation *model.Location, startMinute int) []*model.Job {
	if len(jobs) < 3 {
		return jobs
	}

	best := o.scorer.Score(ctx, jobs, startLocation, startMinute).Breakdown.Total
	rounds := 0
	for iter := 0; iter < o.maxIterations; iter++ {
		rounds++
		improved := false
		for i := 0; i < len(jobs)-1 && !improved; i++ {
			for j := i + 1; j < len(jobs); j++ {
				candidate := reverseSegment(jobs, i, j)
				score := o.scorer.Score(ctx, candidate, startLocation, startMinute).Breakdown.Total
				if score < best {
					jobs = candidate
					best = score
					improved = true
					break
				}
			}
		}
		if !improved {
			break
		}
	}
	metrics.RecordOptimizerIterations("two_opt", rounds)
	return jobs
}

// orOpt 把单个工单搬到其它每个位置
// 只接受超过容差的改进；每次接受后从头重新扫描
func (o *Optimizer) orOpt(ctx context.Context, jobs []*model.Job, startLocation *model.Location, startMinute int) []*model.Job {
	if len(jobs) < 2 {
		return jobs
	}

	best := o.scorer.Score(ctx, jobs, startLocation, startMinute).Breakdown.Total
	rounds := 0
	for iter := 0; iter < o.maxIterations; iter++ {
		rounds++
		improved := false
	scan:
		for from := 0; from < len(jobs); from++ {
			for to := 0; to < len(jobs); to++ {
				if to == from {
					continue
				}
				candidate := relocate(jobs, from, to)
				score := o.scorer.Score(ctx, candidate, startLocation, startMinute).Breakdown.Total
				if best-score > orOptTolerance {
					jobs = candidate
					best = score
					improved = true
					break scan
				}
			}
		}
		if !improved {
			break
		}
	}
	metrics.RecordOptimizerIterations("or_opt", rounds)
	return jobs
}

// jobIDs 提取工单ID序列
func jobIDs(jobs []*model.Job) []uuid.UUID {
	ids := make([]uuid.UUID, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	return ids
}

// reverseSegment 返回反转 [i..j] 段后的新序列
func reverseSegment(jobs []*model.Job, i, j int) []*model.Job {
	out := make([]*model.Job, len(jobs))
	copy(out, jobs)
	for l, r := i, j; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}

// relocate 返回把 from 位置的工单搬到 to 位置后的新序列
func relocate(jobs []*model.Job, from, to int) []*model.Job {
	out := make([]*model.Job, 0, len(jobs))
	out = append(out, jobs[:from]...)
	out = append(out, jobs[from+1:]...)

	moved := jobs[from]
	out = append(out[:to], append([]*model.Job{moved}, out[to:]...)...)
	return out
}
