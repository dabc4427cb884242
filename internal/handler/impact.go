// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/paidan/paidan/pkg/errors"
	"github.com/paidan/paidan/pkg/impact"
	"github.com/paidan/paidan/pkg/model"
	"github.com/paidan/paidan/pkg/traveltime"
)

// ImpactHandler 排程影响分析处理器
type ImpactHandler struct {
	estimator *traveltime.Estimator
}

// NewImpactHandler 创建排程影响分析处理器
func NewImpactHandler(estimator *traveltime.Estimator) *ImpactHandler {
	return &ImpactHandler{estimator: estimator}
}

// CancelImpactRequest 取消影响分析请求
type CancelImpactRequest struct {
	Job     *model.Job   `json:"job"`
	AllJobs []*model.Job `json:"all_jobs,omitempty"`
	Today   string       `json:"today,omitempty"` // YYYY-MM-DD，默认当前日期
}

// CancelImpact 分析取消一个已排程工单的影响
func (h *ImpactHandler) CancelImpact(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req CancelImpactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if req.Job == nil {
		respondError(w, errors.New(errors.CodeInvalidInput, "缺少工单"))
		return
	}

	analyzer := impact.NewAnalyzer(todayOrDefault(req.Today))
	respondJSON(w, http.StatusOK, analyzer.AnalyzeCancellation(req.Job, req.AllJobs))
}

// RescheduleImpactRequest 改期影响分析请求
type RescheduleImpactRequest struct {
	Job      *model.Job    `json:"job"`
	NewDate  string        `json:"new_date"`
	NewStart string        `json:"new_start"` // HH:MM
	Worker   *model.Worker `json:"worker,omitempty"`
	AllJobs  []*model.Job  `json:"all_jobs,omitempty"`
	Today    string        `json:"today,omitempty"`
}

// RescheduleImpact 分析把工单改期到新时段的影响
func (h *ImpactHandler) RescheduleImpact(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req RescheduleImpactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if req.Job == nil {
		respondError(w, errors.New(errors.CodeInvalidInput, "缺少工单"))
		return
	}
	if _, err := model.ParseDate(req.NewDate); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "新日期格式无效: "+req.NewDate))
		return
	}
	if model.MinuteOfClock(req.NewStart) < 0 {
		respondError(w, errors.New(errors.CodeInvalidTimeRange, "新开始时刻格式无效: "+req.NewStart))
		return
	}

	analyzer := impact.NewAnalyzer(todayOrDefault(req.Today))
	respondJSON(w, http.StatusOK, analyzer.AnalyzeReschedule(req.Job, req.NewDate, req.NewStart, req.Worker, req.AllJobs))
}

// SwapRequest 换班模拟请求
type SwapRequest struct {
	WorkerA *model.Worker `json:"worker_a"`
	WorkerB *model.Worker `json:"worker_b"`
	Date    string        `json:"date"`
	JobsA   []*model.Job  `json:"jobs_a,omitempty"`
	JobsB   []*model.Job  `json:"jobs_b,omitempty"`
}

// Swap 模拟两位技师整日互换工单
func (h *ImpactHandler) Swap(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if req.WorkerA == nil || req.WorkerB == nil {
		respondError(w, errors.New(errors.CodeInvalidInput, "缺少参与互换的技师"))
		return
	}
	if _, err := model.ParseDate(req.Date); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "日期格式无效: "+req.Date))
		return
	}

	simulator := impact.NewSwapSimulator(h.estimator)
	result := simulator.Simulate(r.Context(), req.WorkerA, req.WorkerB, req.Date, req.JobsA, req.JobsB, time.Now())

	respondJSON(w, http.StatusOK, result)
}

// todayOrDefault 空串时取当前日期
func todayOrDefault(today string) string {
	if today != "" {
		return today
	}
	return time.Now().Format(model.DateLayout)
}
