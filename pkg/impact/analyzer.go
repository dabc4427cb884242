// Package impact 分析取消与改期对当日排程的连锁影响
package impact

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/paidan/paidan/pkg/model"
	"github.com/paidan/paidan/pkg/traveltime"
)

// Severity 影响严重程度
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// rank 用于严重程度取最大值
func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// Warning 一条影响告警
type Warning struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// RouteImpact 对当日路线的影响
type RouteImpact struct {
	HasImpact      bool       `json:"has_impact"`
	PredecessorID  *uuid.UUID `json:"predecessor_id,omitempty"` // 时间顺序上的前一单
	SuccessorID    *uuid.UUID `json:"successor_id,omitempty"`   // 时间顺序上的后一单
	CreatesGap     bool       `json:"creates_gap"`              // 移除后前后单之间出现空档
	MinutesFreed   int        `json:"minutes_freed"`            // 释放的时长
	SameDayJobCount int       `json:"same_day_job_count"`       // 同日同技师的其它工单数
}

// Impact 影响分析结果
type Impact struct {
	JobID        uuid.UUID   `json:"job_id"`
	Warnings     []Warning   `json:"warnings,omitempty"`
	AffectedJobs []uuid.UUID `json:"affected_jobs,omitempty"`
	RouteImpact  RouteImpact `json:"route_impact"`
	Severity     Severity    `json:"severity"`
	Summary      string      `json:"summary"`

	// 改期分析附加字段
	HasConflicts   bool   `json:"has_conflicts,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

// Analyzer 排程影响分析器
type Analyzer struct {
	// today 当前日期 YYYY-MM-DD，用于「今天的工单」告警
	today string
}

// NewAnalyzer 创建分析器
func NewAnalyzer(today string) *Analyzer {
	return &Analyzer{today: today}
}

// AnalyzeCancellation 分析取消一个已排程工单的影响
func (a *Analyzer) AnalyzeCancellation(job *model.Job, allJobs []*model.Job) *Impact {
	impact := &Impact{JobID: job.ID, Severity: SeverityLow}
	if !job.IsScheduled() || job.AssignedWorkerID == nil {
		impact.Summary = "工单尚未排程，取消没有连锁影响"
		return impact
	}

	sameDay := sameDayJobs(job, allJobs)
	impact.RouteImpact = a.routeImpact(job, sameDay)
	for _, j := range sameDay {
		impact.AffectedJobs = append(impact.AffectedJobs, j.ID)
	}

	if job.SpansMultipleDays() {
		impact.Warnings = append(impact.Warnings, Warning{
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("该工单跨多天，取消将影响: %v", job.OccupiedDates()),
		})
	}
	if job.Date == a.today {
		impact.Warnings = append(impact.Warnings, Warning{
			Severity: SeverityMedium,
			Message:  "该工单排在今天，取消可能已无法通知客户",
		})
	}
	if len(sameDay) > 1 {
		impact.Warnings = append(impact.Warnings, Warning{
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("取消将打乱技师当日包含 %d 个其它站点的路线", len(sameDay)),
		})
	}

	impact.Severity = maxSeverity(impact.Warnings)
	impact.Summary = a.cancellationSummary(job, impact)
	return impact
}

// AnalyzeReschedule 分析把工单改期到 newDate/newStart 的影响
// 在取消分析的基础上追加新时段的冲突检查与休息日检查
func (a *Analyzer) AnalyzeReschedule(job *model.Job, newDate, newStart string, worker *model.Worker, allJobs []*model.Job) *Impact {
	impact := a.AnalyzeCancellation(job, allJobs)

	newStartMinute := model.MinuteOfClock(newStart)
	newEndMinute := newStartMinute + job.EffectiveDuration()

	if worker != nil && !worker.IsWorkingOn(newDate) {
		impact.HasConflicts = true
		impact.Warnings = append(impact.Warnings, Warning{
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("%s 是技师 %s 的休息日", newDate, worker.Name),
		})
	}

	if newStartMinute >= 0 {
		for _, other := range allJobs {
			if other.ID == job.ID || other.Date != newDate {
				continue
			}
			if job.AssignedWorkerID == nil || other.AssignedWorkerID == nil ||
				*other.AssignedWorkerID != *job.AssignedWorkerID {
				continue
			}
			if other.StartMinute() < newEndMinute && newStartMinute < other.EndMinute() {
				impact.HasConflicts = true
				impact.Warnings = append(impact.Warnings, Warning{
					Severity: SeverityHigh,
					Message:  fmt.Sprintf("新时段与工单 %q (%s-%s) 重叠", other.Title, other.StartTime, other.EndTime),
				})
			}
		}
	}

	impact.Severity = maxSeverity(impact.Warnings)
	if impact.HasConflicts {
		impact.Recommendation = "新时段存在冲突，建议改用时段推荐接口另选时间"
	} else {
		impact.Recommendation = fmt.Sprintf("可以改期到 %s %s，改期后建议重新优化当日路线", newDate, newStart)
	}
	return impact
}

// routeImpact 计算移除该工单对当日路线的影响
func (a *Analyzer) routeImpact(job *model.Job, sameDay []*model.Job) RouteImpact {
	ri := RouteImpact{
		MinutesFreed:    job.EffectiveDuration(),
		SameDayJobCount: len(sameDay),
		HasImpact:       len(sameDay) > 0,
	}
	if len(sameDay) == 0 {
		return ri
	}

	ordered := make([]*model.Job, len(sameDay))
	copy(ordered, sameDay)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].StartMinute() < ordered[j].StartMinute()
	})

	target := job.StartMinute()
	for _, j := range ordered {
		if j.EndMinute() <= target {
			id := j.ID
			ri.PredecessorID = &id
		}
		if ri.SuccessorID == nil && j.StartMinute() >= job.EndMinute() {
			id := j.ID
			ri.SuccessorID = &id
		}
	}
	ri.CreatesGap = ri.PredecessorID != nil && ri.SuccessorID != nil
	return ri
}

// cancellationSummary 生成一句话总结
func (a *Analyzer) cancellationSummary(job *model.Job, impact *Impact) string {
	if impact.RouteImpact.SameDayJobCount == 0 {
		return fmt.Sprintf("工单 %q 是技师当日唯一工单，取消影响很小", job.Title)
	}
	return fmt.Sprintf("取消工单 %q 将释放 %d 分钟，影响当日其它 %d 个工单",
		job.Title, impact.RouteImpact.MinutesFreed, impact.RouteImpact.SameDayJobCount)
}

// sameDayJobs 找出同日同技师的其它工单（按日期字符串比较，避免时区漂移）
func sameDayJobs(job *model.Job, allJobs []*model.Job) []*model.Job {
	var out []*model.Job
	for _, j := range allJobs {
		if j.ID == job.ID || j.Date != job.Date {
			continue
		}
		if j.AssignedWorkerID == nil || job.AssignedWorkerID == nil {
			continue
		}
		if *j.AssignedWorkerID == *job.AssignedWorkerID {
			out = append(out, j)
		}
	}
	return out
}

// maxSeverity 取告警中的最高严重程度，无告警为 low
func maxSeverity(warnings []Warning) Severity {
	severity := SeverityLow
	for _, w := range warnings {
		if w.Severity.rank() > severity.rank() {
			severity = w.Severity
		}
	}
	return severity
}

// travelMinutes 估算一组按时间排序工单的总行驶时间
func travelMinutes(ctx context.Context, estimator *traveltime.Estimator, start *model.Location, jobs []*model.Job) int {
	if estimator == nil {
		return 0
	}
	total := 0
	prev := start
	for _, j := range jobs {
		total += estimator.Estimate(ctx, prev, j.Location, time.Time{}).DurationMinutes
		if j.Location.HasCoordinates() {
			prev = j.Location
		}
	}
	return total
}
