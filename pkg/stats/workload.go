// Package stats 提供派单方案的工作量统计
package stats

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/paidan/paidan/pkg/model"
)

// WorkerLoad 单个技师的当日负载
type WorkerLoad struct {
	WorkerID      uuid.UUID `json:"worker_id"`
	WorkerName    string    `json:"worker_name,omitempty"`
	JobCount      int       `json:"job_count"`
	WorkMinutes   int       `json:"work_minutes"`   // 工单时长合计
	TravelMinutes float64   `json:"travel_minutes"` // 行驶时间合计
}

// WorkloadReport 方案级工作量报告
type WorkloadReport struct {
	Loads          []WorkerLoad `json:"loads"`
	TotalJobs      int          `json:"total_jobs"`
	AvgJobsPerUser float64      `json:"avg_jobs_per_worker"`
	MaxJobs        int          `json:"max_jobs"`
	MinJobs        int          `json:"min_jobs"`
	GiniIndex      float64      `json:"gini_index"` // 0 完全均衡，越大越不均
}

// BuildWorkloadReport 从派单方案汇总工作量报告
func BuildWorkloadReport(plan *model.AssignmentPlan, jobsByID map[uuid.UUID]*model.Job, workers map[uuid.UUID]*model.Worker) *WorkloadReport {
	report := &WorkloadReport{MinJobs: math.MaxInt32}
	if plan == nil || len(plan.Routes) == 0 {
		report.MinJobs = 0
		return report
	}

	for workerID, r := range plan.Routes {
		load := WorkerLoad{WorkerID: workerID, JobCount: len(r.JobIDs)}
		if w := workers[workerID]; w != nil {
			load.WorkerName = w.Name
		}
		for _, jobID := range r.JobIDs {
			if job := jobsByID[jobID]; job != nil {
				load.WorkMinutes += job.EffectiveDuration()
			}
		}
		for _, stop := range r.Stops {
			load.TravelMinutes += float64(stop.TravelMinutes)
		}

		report.Loads = append(report.Loads, load)
		report.TotalJobs += load.JobCount
		if load.JobCount > report.MaxJobs {
			report.MaxJobs = load.JobCount
		}
		if load.JobCount < report.MinJobs {
			report.MinJobs = load.JobCount
		}
	}

	sort.Slice(report.Loads, func(i, j int) bool {
		return report.Loads[i].JobCount > report.Loads[j].JobCount
	})
	report.AvgJobsPerUser = float64(report.TotalJobs) / float64(len(plan.Routes))
	report.GiniIndex = giniIndex(report.Loads)
	return report
}

// giniIndex 计算工单数分布的基尼系数
func giniIndex(loads []WorkerLoad) float64 {
	n := len(loads)
	if n < 2 {
		return 0
	}

	var total float64
	for _, l := range loads {
		total += float64(l.JobCount)
	}
	if total == 0 {
		return 0
	}

	var sumDiff float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sumDiff += math.Abs(float64(loads[i].JobCount) - float64(loads[j].JobCount))
		}
	}
	return sumDiff / (2 * float64(n) * total)
}
