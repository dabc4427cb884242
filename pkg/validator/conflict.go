// Package validator 提供派单方案的整体校验
package validator

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/paidan/paidan/pkg/model"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictOverlap      ConflictType = "overlap"       // 时间重叠
	ConflictOffDuty      ConflictType = "off_duty"      // 休息日被排单
	ConflictOutsideHours ConflictType = "outside_hours" // 超出工作时间
	ConflictOverload     ConflictType = "overload"      // 当日工单过多
)

// Conflict 冲突信息
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity string       `json:"severity"` // error/warning
	WorkerID uuid.UUID    `json:"worker_id"`
	Date     string       `json:"date"`
	Message  string       `json:"message"`
	JobIDs   []uuid.UUID  `json:"job_ids,omitempty"`
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	MaxJobsPerDay int  // 当日工单数告警阈值
	CheckHours    bool // 是否检查工作时间
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		MaxJobsPerDay: 8,
		CheckHours:    true,
	}
}

// ConflictDetector 对已排程工单集合做整体冲突检测
// 与逐单的约束评估互补，用于校验外部写入或人工调整后的排程
type ConflictDetector struct {
	config *DetectorConfig
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{config: config}
}

// DetectAll 检测全部已排程工单的冲突
func (d *ConflictDetector) DetectAll(jobs []*model.Job, workers map[uuid.UUID]*model.Worker) []Conflict {
	var conflicts []Conflict

	for workerID, workerJobs := range groupByWorker(jobs) {
		worker := workers[workerID]
		if worker == nil {
			continue
		}
		conflicts = append(conflicts, d.detectOverlaps(worker, workerJobs)...)
		if d.config.CheckHours {
			conflicts = append(conflicts, d.detectHoursViolations(worker, workerJobs)...)
		}
		conflicts = append(conflicts, d.detectOverload(worker, workerJobs)...)
	}
	return conflicts
}

// detectOverlaps 检测同一技师同日工单的时间重叠
func (d *ConflictDetector) detectOverlaps(worker *model.Worker, jobs []*model.Job) []Conflict {
	var conflicts []Conflict

	for date, dayJobs := range groupByDate(jobs) {
		sorted := make([]*model.Job, len(dayJobs))
		copy(sorted, dayJobs)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].StartMinute() < sorted[j].StartMinute()
		})

		for i := 0; i < len(sorted)-1; i++ {
			current, next := sorted[i], sorted[i+1]
			if next.StartMinute() < current.EndMinute() {
				conflicts = append(conflicts, Conflict{
					Type:     ConflictOverlap,
					Severity: "error",
					WorkerID: worker.ID,
					Date:     date,
					Message:  fmt.Sprintf("技师 %s 在 %s 有时间重叠的工单", worker.Name, date),
					JobIDs:   []uuid.UUID{current.ID, next.ID},
				})
			}
		}
	}
	return conflicts
}

// detectHoursViolations 检测休息日排单与超出工作时间的工单
func (d *ConflictDetector) detectHoursViolations(worker *model.Worker, jobs []*model.Job) []Conflict {
	var conflicts []Conflict

	for _, job := range jobs {
		hours := worker.HoursFor(job.Date)
		if hours == nil {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictOffDuty,
				Severity: "error",
				WorkerID: worker.ID,
				Date:     job.Date,
				Message:  fmt.Sprintf("技师 %s 的休息日 %s 被排了工单 %q", worker.Name, job.Date, job.Title),
				JobIDs:   []uuid.UUID{job.ID},
			})
			continue
		}
		if job.StartMinute() < hours.StartMinute() || job.EndMinute() > hours.EndMinute() {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictOutsideHours,
				Severity: "error",
				WorkerID: worker.ID,
				Date:     job.Date,
				Message: fmt.Sprintf("工单 %q (%s-%s) 超出技师 %s 的工作时间 %s-%s",
					job.Title, job.StartTime, job.EndTime, worker.Name, hours.Start, hours.End),
				JobIDs: []uuid.UUID{job.ID},
			})
		}
	}
	return conflicts
}

// detectOverload 检测当日工单数超过阈值
func (d *ConflictDetector) detectOverload(worker *model.Worker, jobs []*model.Job) []Conflict {
	var conflicts []Conflict

	for date, dayJobs := range groupByDate(jobs) {
		if len(dayJobs) <= d.config.MaxJobsPerDay {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Type:     ConflictOverload,
			Severity: "warning",
			WorkerID: worker.ID,
			Date:     date,
			Message:  fmt.Sprintf("技师 %s 在 %s 被排了 %d 个工单，超过阈值 %d", worker.Name, date, len(dayJobs), d.config.MaxJobsPerDay),
		})
	}
	return conflicts
}

// groupByWorker 按技师分组已指派的工单
func groupByWorker(jobs []*model.Job) map[uuid.UUID][]*model.Job {
	result := make(map[uuid.UUID][]*model.Job)
	for _, j := range jobs {
		if j.AssignedWorkerID == nil || !j.IsScheduled() {
			continue
		}
		result[*j.AssignedWorkerID] = append(result[*j.AssignedWorkerID], j)
	}
	return result
}

// groupByDate 按日期分组
func groupByDate(jobs []*model.Job) map[string][]*model.Job {
	result := make(map[string][]*model.Job)
	for _, j := range jobs {
		result[j.Date] = append(result[j.Date], j)
	}
	return result
}
