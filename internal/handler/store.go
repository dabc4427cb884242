// Package handler 提供HTTP请求处理器
package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/paidan/paidan/internal/database"
	"github.com/paidan/paidan/internal/metrics"
	"github.com/paidan/paidan/internal/repository"
	"github.com/paidan/paidan/pkg/dispatcher"
	"github.com/paidan/paidan/pkg/errors"
	"github.com/paidan/paidan/pkg/model"
)

// StoreHandler 数据库存储相关的处理器
// 仅在配置了数据库时注册，提供从存储读取工单并落盘派单结果的端点
type StoreHandler struct {
	db      *database.DB
	jobs    *repository.JobRepository
	workers *repository.WorkerRepository
	engine  *dispatcher.Engine
}

// NewStoreHandler 创建存储处理器
func NewStoreHandler(db *database.DB, engine *dispatcher.Engine) *StoreHandler {
	return &StoreHandler{
		db:      db,
		jobs:    repository.NewJobRepository(db),
		workers: repository.NewWorkerRepository(db),
		engine:  engine,
	}
}

// JobsByDate 查询指定日期的工单
func (h *StoreHandler) JobsByDate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if _, err := model.ParseDate(date); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "日期格式无效: "+date))
		return
	}

	filter := repository.DefaultJobFilter().
		WithStatus(r.URL.Query().Get("status")).
		WithUrgency(r.URL.Query().Get("urgency")).
		WithWorker(r.URL.Query().Get("worker_id"))
	filter.Search = r.URL.Query().Get("search")
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	jobs, err := h.jobs.GetJobsByDate(r.Context(), date, filter)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询工单失败"))
		return
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":  date,
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// DayDispatchRequest 整日派单请求
type DayDispatchRequest struct {
	Date             string          `json:"date"`
	StartTime        string          `json:"start_time,omitempty"` // HH:MM
	StartLocation    *model.Location `json:"start_location,omitempty"`
	MaxJobsPerWorker int             `json:"max_jobs_per_worker,omitempty"`
	DryRun           bool            `json:"dry_run,omitempty"` // 为真时只计算不落盘
}

// DayDispatch 把存储中所有未排程工单派给在岗技师，并可选落盘
func (h *StoreHandler) DayDispatch(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req DayDispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if _, err := model.ParseDate(req.Date); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "日期格式无效: "+req.Date))
		return
	}

	jobs, err := h.jobs.GetUnscheduledJobs(r.Context())
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "加载未排程工单失败"))
		return
	}
	if len(jobs) == 0 {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"message": "没有待派的工单",
		})
		return
	}

	workers, err := h.workers.GetWorkers(r.Context(), true)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "加载技师失败"))
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
	plan, dispatchStats := h.engine.Dispatch(r.Context(), jobs, workers, opts)
	metrics.RecordDispatch(true, time.Since(started), dispatchStats.Assigned, dispatchStats.Unassigned)

	saved := false
	if !req.DryRun {
		assigned := applyPlan(plan, jobs, req.Date)
		err = h.db.Transaction(r.Context(), func(tx *sql.Tx) error {
			return h.jobs.SavePlan(r.Context(), tx, assigned)
		})
		if err != nil {
			respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "保存派单结果失败"))
			return
		}
		saved = true
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"plan":  plan,
		"stats": dispatchStats,
		"saved": saved,
	})
}

// AvailabilityRequest 技师时段可用性检查请求
type AvailabilityRequest struct {
	WorkerID  uuid.UUID `json:"worker_id"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"` // HH:MM
	EndTime   string    `json:"end_time"`   // HH:MM
}

// Availability 检查技师在指定时段是否可用
func (h *StoreHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	start := model.MinuteOfClock(req.StartTime)
	end := model.MinuteOfClock(req.EndTime)
	if start < 0 || end < 0 || end <= start {
		respondError(w, errors.New(errors.CodeInvalidTimeRange, "时段格式无效"))
		return
	}

	worker, err := h.workers.GetByID(r.Context(), req.WorkerID)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询技师失败"))
		return
	}
	if worker == nil {
		respondError(w, errors.NotFound("worker", req.WorkerID.String()))
		return
	}

	available, err := h.workers.CheckAvailability(r.Context(), worker, req.Date, start, end)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "检查可用性失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"worker_id": req.WorkerID,
		"date":      req.Date,
		"available": available,
	})
}

// applyPlan 把派单方案的路线与站点时刻写回工单的排程字段
func applyPlan(plan *model.AssignmentPlan, jobs []*model.Job, date string) []*model.Job {
	byID := make(map[uuid.UUID]*model.Job, len(jobs))
	for _, job := range jobs {
		byID[job.ID] = job
	}

	var out []*model.Job
	for workerID, workerRoute := range plan.Routes {
		if workerID == uuid.Nil {
			continue
		}
		wid := workerID
		for _, stop := range workerRoute.Stops {
			job, ok := byID[stop.JobID]
			if !ok {
				continue
			}
			job.AssignedWorkerID = &wid
			job.Date = date
			job.StartTime = model.ClockOfMinute(stop.ArrivalMinute)
			job.EndTime = model.ClockOfMinute(stop.DepartureMinute)
			out = append(out, job)
		}
	}
	return out
}
