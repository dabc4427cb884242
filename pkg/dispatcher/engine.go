// Package dispatcher 实现多技师派单与最优时段推荐
package dispatcher

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/paidan/paidan/pkg/logger"
	"github.com/paidan/paidan/pkg/model"
	"github.com/paidan/paidan/pkg/scheduler/route"
	"github.com/paidan/paidan/pkg/timewindow"
	"github.com/paidan/paidan/pkg/traveltime"
)

// 排序与平衡参数
const (
	// defaultPreferredMinute 未设首选时刻的工单在排序时按正午处理
	defaultPreferredMinute = 720
	// balanceUnitPenalty 工作量平衡惩罚的放大系数
	balanceUnitPenalty = 10
	// defaultStartMinute 未指定时按 08:00 出发
	defaultStartMinute = 480
)

// Options 派单参数
type Options struct {
	Date             string          `json:"date"`
	StartLocation    *model.Location `json:"start_location,omitempty"`
	StartMinute      int             `json:"start_minute,omitempty"`
	MaxJobsPerWorker int             `json:"max_jobs_per_worker,omitempty"` // 0 表示不设上限
	Weights          route.Weights   `json:"weights,omitempty"`
	Now              time.Time       `json:"-"` // 零值时取当前时间
}

// Stats 派单统计
type Stats struct {
	TotalJobs  int     `json:"total_jobs"`
	Assigned   int     `json:"assigned"`
	Unassigned int     `json:"unassigned"`
	Workers    int     `json:"workers"`
	TotalScore float64 `json:"total_score"`
}

// Engine 多技师派单引擎
// 逐单最廉价插入构造初始方案，再用单路线优化器精修每条路线
type Engine struct {
	estimator *traveltime.Estimator
	matrix    *traveltime.Matrix
	log       *logger.OptimizerLogger
}

// NewEngine 创建派单引擎，estimator 与 matrix 均可为 nil
func NewEngine(estimator *traveltime.Estimator, matrix *traveltime.Matrix) *Engine {
	return &Engine{
		estimator: estimator,
		matrix:    matrix,
		log:       logger.NewOptimizerLogger(),
	}
}

// Dispatch 把一批工单分配给一组技师
// 不变量：已指派工单数 + 未指派工单数 == 输入工单数
func (e *Engine) Dispatch(ctx context.Context, jobs []*model.Job, workers []*model.Worker, opts Options) (*model.AssignmentPlan, *Stats) {
	started := time.Now()
	if opts.StartMinute <= 0 {
		opts.StartMinute = defaultStartMinute
	}
	if opts.Weights == (route.Weights{}) {
		opts.Weights = route.DefaultWeights()
	}

	scorer := route.NewScorer(e.estimator, e.matrix, opts.Weights)
	plan := &model.AssignmentPlan{Routes: make(map[uuid.UUID]*model.Route)}

	// 没有技师时退化为单路线优化
	if len(workers) == 0 {
		e.dispatchDegenerate(ctx, jobs, scorer, opts, plan)
		stats := e.stats(jobs, workers, plan)
		e.log.DispatchComplete(stats.TotalJobs, stats.Assigned, 0, time.Since(started))
		return plan, stats
	}

	sorted := sortJobs(jobs)
	routes := make(map[uuid.UUID][]*model.Job, len(workers))
	for _, w := range workers {
		routes[w.ID] = nil
	}
	avgPerWorker := float64(len(jobs)) / float64(len(workers))

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	for _, job := range sorted {
		workerID, position, ok := e.bestInsertion(ctx, job, workers, routes, scorer, opts, avgPerWorker, now)
		if !ok {
			plan.Unassigned = append(plan.Unassigned, model.UnassignedJob{
				JobID:  job.ID,
				Reason: e.unassignableReason(job, workers, now),
			})
			continue
		}
		routes[workerID] = insertAt(routes[workerID], job, position)
	}

	// 每条非空路线用单路线优化器精修
	optimizer := route.NewOptimizer(scorer)
	for _, w := range workers {
		ordered := routes[w.ID]
		if len(ordered) == 0 {
			continue
		}
		result := optimizer.Optimize(ctx, ordered, e.startLocationFor(w, opts), opts.StartMinute)
		plan.Routes[w.ID] = &model.Route{
			WorkerID: w.ID,
			Date:     opts.Date,
			JobIDs:   result.OptimizedOrder,
			Stops:    result.Stops,
			Score:    result.Score,
		}
		plan.TotalScore += result.Score.Total
	}

	stats := e.stats(jobs, workers, plan)
	e.log.DispatchComplete(stats.TotalJobs, stats.Assigned, stats.Workers, time.Since(started))
	return plan, stats
}

// dispatchDegenerate 零技师时把全部工单优化成一条无主路线
func (e *Engine) dispatchDegenerate(ctx context.Context, jobs []*model.Job, scorer *route.Scorer, opts Options, plan *model.AssignmentPlan) {
	if len(jobs) == 0 {
		return
	}
	result := route.NewOptimizer(scorer).Optimize(ctx, jobs, opts.StartLocation, opts.StartMinute)
	plan.Routes[uuid.Nil] = &model.Route{
		WorkerID: uuid.Nil,
		Date:     opts.Date,
		JobIDs:   result.OptimizedOrder,
		Stops:    result.Stops,
		Score:    result.Score,
	}
	plan.TotalScore = result.Score.Total
}

// bestInsertion 在所有技师路线的所有位置中找总代价最小的插入点
// 代价 = 插入后整路线评分 + 工作量平衡惩罚
func (e *Engine) bestInsertion(ctx context.Context, job *model.Job, workers []*model.Worker, routes map[uuid.UUID][]*model.Job, scorer *route.Scorer, opts Options, avgPerWorker float64, now time.Time) (uuid.UUID, int, bool) {
	var bestWorker uuid.UUID
	bestPosition := -1
	bestCost := math.Inf(1)

	for _, w := range workers {
		if !e.eligible(job, w, now) {
			continue
		}
		current := routes[w.ID]
		if opts.MaxJobsPerWorker > 0 && len(current) >= opts.MaxJobsPerWorker {
			continue
		}

		sizeAfter := float64(len(current) + 1)
		balance := math.Abs(sizeAfter-avgPerWorker) * opts.Weights.Balance * balanceUnitPenalty

		for pos := 0; pos <= len(current); pos++ {
			candidate := insertAt(current, job, pos)
			score := scorer.Score(ctx, candidate, e.startLocationFor(w, opts), opts.StartMinute)
			cost := score.Breakdown.Total + balance
			if cost < bestCost {
				bestWorker = w.ID
				bestPosition = pos
				bestCost = cost
			}
		}
	}

	return bestWorker, bestPosition, bestPosition >= 0
}

// eligible 检查技师是否具备承接该工单的资格
func (e *Engine) eligible(job *model.Job, w *model.Worker, now time.Time) bool {
	if !w.IsActive() {
		return false
	}
	for _, skill := range job.Skills {
		if !w.HasSkill(skill) {
			return false
		}
	}
	for _, cert := range job.Certifications {
		if !w.HasValidCertification(cert, now) {
			return false
		}
	}
	return true
}

// unassignableReason 给出工单无法指派的原因
func (e *Engine) unassignableReason(job *model.Job, workers []*model.Worker, now time.Time) string {
	for _, w := range workers {
		if e.eligible(job, w, now) {
			return "所有符合条件的技师都已达到工单上限"
		}
	}
	return "没有技师同时满足技能与证书要求"
}

// startLocationFor 优先用技师驻地作为路线起点
func (e *Engine) startLocationFor(w *model.Worker, opts Options) *model.Location {
	if w != nil && w.HomeLocation.HasCoordinates() {
		return w.HomeLocation
	}
	return opts.StartLocation
}

// stats 汇总派单统计
func (e *Engine) stats(jobs []*model.Job, workers []*model.Worker, plan *model.AssignmentPlan) *Stats {
	return &Stats{
		TotalJobs:  len(jobs),
		Assigned:   plan.AssignedCount(),
		Unassigned: len(plan.Unassigned),
		Workers:    len(workers),
		TotalScore: plan.TotalScore,
	}
}

// sortJobs 派单前的预排序
// 紧急权重降序；同权重硬窗先于柔窗先于灵活；再按首选时刻从早到晚
func sortJobs(jobs []*model.Job) []*model.Job {
	sorted := make([]*model.Job, len(jobs))
	copy(sorted, jobs)
	sort.SliceStable(sorted, func(i, j int) bool {
		wi, wj := sorted[i].Urgency.Weight(), sorted[j].Urgency.Weight()
		if wi != wj {
			return wi > wj
		}
		ri, rj := windowRank(sorted[i]), windowRank(sorted[j])
		if ri != rj {
			return ri < rj
		}
		return preferredMinute(sorted[i]) < preferredMinute(sorted[j])
	})
	return sorted
}

// windowRank 硬窗 0、柔窗 1、灵活 2
func windowRank(job *model.Job) int {
	win, err := timewindow.Resolve(job)
	if err != nil {
		return 2
	}
	switch win.Type {
	case model.WindowTypeHard:
		return 0
	case model.WindowTypeSoft:
		return 1
	default:
		return 2
	}
}

// preferredMinute 返回排序用的首选时刻，未设置按正午
func preferredMinute(job *model.Job) int {
	win, err := timewindow.Resolve(job)
	if err != nil || !win.HasPreferred() {
		return defaultPreferredMinute
	}
	return win.PreferredMinute
}

// insertAt 返回在 pos 位置插入工单后的新序列
func insertAt(jobs []*model.Job, job *model.Job, pos int) []*model.Job {
	out := make([]*model.Job, 0, len(jobs)+1)
	out = append(out, jobs[:pos]...)
	out = append(out, job)
	out = append(out, jobs[pos:]...)
	return out
}
