// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/paidan/paidan/internal/metrics"
	"github.com/paidan/paidan/pkg/errors"
	"github.com/paidan/paidan/pkg/model"
	"github.com/paidan/paidan/pkg/scheduler/route"
	"github.com/paidan/paidan/pkg/traveltime"
)

// OptimizeHandler 路线优化处理器
type OptimizeHandler struct {
	estimator     *traveltime.Estimator
	weights       route.Weights
	maxIterations int
}

// NewOptimizeHandler 创建路线优化处理器
func NewOptimizeHandler(estimator *traveltime.Estimator, weights route.Weights, maxIterations int) *OptimizeHandler {
	return &OptimizeHandler{
		estimator:     estimator,
		weights:       weights,
		maxIterations: maxIterations,
	}
}

// OptimizeRouteRequest 单技师路线优化请求
type OptimizeRouteRequest struct {
	WorkerID      string          `json:"worker_id,omitempty"`
	Date          string          `json:"date"`
	Jobs          []*model.Job    `json:"jobs"`
	StartLocation *model.Location `json:"start_location,omitempty"`
	StartTime     string          `json:"start_time,omitempty"` // HH:MM，默认 08:00
}

// OptimizeRouteResponse 单技师路线优化响应
type OptimizeRouteResponse struct {
	Jobs               []*model.Job         `json:"jobs"`
	InitialOrder       []uuid.UUID          `json:"initial_order"`
	OptimizedOrder     []uuid.UUID          `json:"optimized_order"`
	Stops              []model.RouteStop    `json:"stops"`
	Score              model.ScoreBreakdown `json:"score"`
	InitialScore       float64              `json:"initial_score"`
	ImprovementPercent float64              `json:"improvement_percent"`
}

// OptimizeRoute 优化单技师的当日路线
func (h *OptimizeHandler) OptimizeRoute(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req OptimizeRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if len(req.Jobs) == 0 {
		respondError(w, errors.New(errors.CodeEmptyRoute, "工单列表为空"))
		return
	}

	startMinute := 480
	if req.StartTime != "" {
		m := model.MinuteOfClock(req.StartTime)
		if m < 0 {
			respondError(w, errors.New(errors.CodeInvalidTimeRange, "出发时刻格式无效: "+req.StartTime))
			return
		}
		startMinute = m
	}

	started := time.Now()

	matrix := h.buildMatrix(r, req.Jobs, req.StartLocation)
	scorer := route.NewScorer(h.estimator, matrix, h.weights)
	optimizer := route.NewOptimizer(scorer).WithMaxIterations(h.maxIterations)

	result := optimizer.Optimize(r.Context(), req.Jobs, req.StartLocation, startMinute)

	metrics.RecordOptimize(true, time.Since(started), result.Score.Total)

	respondJSON(w, http.StatusOK, OptimizeRouteResponse{
		Jobs:               result.Jobs,
		InitialOrder:       result.InitialOrder,
		OptimizedOrder:     result.OptimizedOrder,
		Stops:              result.Stops,
		Score:              result.Score,
		InitialScore:       result.InitialScore,
		ImprovementPercent: result.ImprovementPercent,
	})
}

// DepartureRequest 出发时刻选择请求
type DepartureRequest struct {
	Date          string          `json:"date"`
	Jobs          []*model.Job    `json:"jobs"`
	StartLocation *model.Location `json:"start_location,omitempty"`
}

// SelectDeparture 在候选出发时刻中选综合得分最优的一个
func (h *OptimizeHandler) SelectDeparture(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req DepartureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if len(req.Jobs) == 0 {
		respondError(w, errors.New(errors.CodeEmptyRoute, "工单列表为空"))
		return
	}
	if _, err := model.ParseDate(req.Date); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "日期格式无效: "+req.Date))
		return
	}

	result := route.SelectDeparture(r.Context(), req.Jobs, req.StartLocation, req.Date, h.estimator, h.weights)

	respondJSON(w, http.StatusOK, result)
}

// buildMatrix 为本次请求涉及的地点预构建行驶时间矩阵
func (h *OptimizeHandler) buildMatrix(r *http.Request, jobs []*model.Job, start *model.Location) *traveltime.Matrix {
	if h.estimator == nil {
		return nil
	}
	var locations []*model.Location
	if start.HasCoordinates() {
		locations = append(locations, start)
	}
	for _, job := range jobs {
		if job.Location.HasCoordinates() {
			locations = append(locations, job.Location)
		}
	}
	if len(locations) < 2 {
		return nil
	}
	return h.estimator.BuildMatrix(r.Context(), locations, time.Now())
}
