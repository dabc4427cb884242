// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/paidan/paidan/internal/metrics"
	"github.com/paidan/paidan/pkg/dispatcher"
	"github.com/paidan/paidan/pkg/errors"
	"github.com/paidan/paidan/pkg/model"
	"github.com/paidan/paidan/pkg/stats"
	"github.com/paidan/paidan/pkg/traveltime"
	"github.com/paidan/paidan/pkg/validator"
)

// DispatchHandler 批量派单处理器
type DispatchHandler struct {
	engine    *dispatcher.Engine
	estimator *traveltime.Estimator
}

// NewDispatchHandler 创建批量派单处理器
func NewDispatchHandler(engine *dispatcher.Engine, estimator *traveltime.Estimator) *DispatchHandler {
	return &DispatchHandler{engine: engine, estimator: estimator}
}

// DispatchRequest 批量派单请求
type DispatchRequest struct {
	Date             string          `json:"date"`
	Jobs             []*model.Job    `json:"jobs"`
	Workers          []*model.Worker `json:"workers"`
	StartLocation    *model.Location `json:"start_location,omitempty"`
	StartTime        string          `json:"start_time,omitempty"` // HH:MM
	MaxJobsPerWorker int             `json:"max_jobs_per_worker,omitempty"`
}

// DispatchResponse 批量派单响应
type DispatchResponse struct {
	Plan     *model.AssignmentPlan `json:"plan"`
	Stats    *dispatcher.Stats     `json:"stats"`
	Workload *stats.WorkloadReport `json:"workload,omitempty"`
}

// Dispatch 把一批工单分配给多位技师并优化各自路线
func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if len(req.Jobs) == 0 {
		respondError(w, errors.New(errors.CodeInvalidInput, "工单列表为空"))
		return
	}
	if _, err := model.ParseDate(req.Date); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "日期格式无效: "+req.Date))
		return
	}

	opts := dispatcher.Options{
		Date:             req.Date,
		StartLocation:    req.StartLocation,
		MaxJobsPerWorker: req.MaxJobsPerWorker,
	}
	if req.StartTime != "" {
		m := model.MinuteOfClock(req.StartTime)
		if m < 0 {
			respondError(w, errors.New(errors.CodeInvalidTimeRange, "出发时刻格式无效: "+req.StartTime))
			return
		}
		opts.StartMinute = m
	}

	started := time.Now()
	plan, dispatchStats := h.engine.Dispatch(r.Context(), req.Jobs, req.Workers, opts)
	metrics.RecordDispatch(true, time.Since(started), dispatchStats.Assigned, dispatchStats.Unassigned)

	resp := DispatchResponse{Plan: plan, Stats: dispatchStats}
	if len(req.Workers) > 0 {
		jobsByID := make(map[uuid.UUID]*model.Job, len(req.Jobs))
		for _, job := range req.Jobs {
			jobsByID[job.ID] = job
		}
		workersByID := make(map[uuid.UUID]*model.Worker, len(req.Workers))
		for _, worker := range req.Workers {
			workersByID[worker.ID] = worker
		}
		resp.Workload = stats.BuildWorkloadReport(plan, jobsByID, workersByID)
		metrics.SetWorkloadGini(resp.Workload.GiniIndex)
	}

	respondJSON(w, http.StatusOK, resp)
}

// BestSlotRequest 最优时段推荐请求
type BestSlotRequest struct {
	Job               *model.Job                 `json:"job"`
	Date              string                     `json:"date"`
	Workers           []*model.Worker            `json:"workers"`
	ExistingJobs      map[uuid.UUID][]*model.Job `json:"existing_jobs,omitempty"`
	PreferredWorkerID *uuid.UUID                 `json:"preferred_worker_id,omitempty"`
}

// BestSlot 为单个工单推荐最优排程时段
func (h *DispatchHandler) BestSlot(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req BestSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if req.Job == nil {
		respondError(w, errors.New(errors.CodeInvalidInput, "缺少工单"))
		return
	}
	if _, err := model.ParseDate(req.Date); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "日期格式无效: "+req.Date))
		return
	}

	result := h.engine.FindBestTimeSlot(dispatcher.SlotRequest{
		Job:               req.Job,
		Date:              req.Date,
		Workers:           req.Workers,
		ExistingJobs:      req.ExistingJobs,
		PreferredWorkerID: req.PreferredWorkerID,
		Estimator:         h.estimator,
	})

	switch result.Outcome {
	case dispatcher.SlotOutcomeNoEligibleWorker:
		respondError(w, errors.NoEligibleWorkers(req.Job.ID.String(), "无技师同时满足技能与证书要求"))
		return
	case dispatcher.SlotOutcomeNoAvailableSlots:
		respondError(w, errors.NoAvailableSlots(req.Job.ID.String()))
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ValidateRequest 排程校验请求
type ValidateRequest struct {
	Jobs          []*model.Job    `json:"jobs"`
	Workers       []*model.Worker `json:"workers"`
	MaxJobsPerDay int             `json:"max_jobs_per_day,omitempty"`
}

// ValidateResponse 排程校验响应
type ValidateResponse struct {
	Valid     bool                 `json:"valid"`
	Conflicts []validator.Conflict `json:"conflicts"`
}

// Validate 检测已排程工单中的冲突
func (h *DispatchHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	config := validator.DefaultDetectorConfig()
	if req.MaxJobsPerDay > 0 {
		config.MaxJobsPerDay = req.MaxJobsPerDay
	}

	workersByID := make(map[uuid.UUID]*model.Worker, len(req.Workers))
	for _, worker := range req.Workers {
		workersByID[worker.ID] = worker
	}

	conflicts := validator.NewConflictDetector(config).DetectAll(req.Jobs, workersByID)
	if conflicts == nil {
		conflicts = []validator.Conflict{}
	}

	respondJSON(w, http.StatusOK, ValidateResponse{
		Valid:     len(conflicts) == 0,
		Conflicts: conflicts,
	})
}
