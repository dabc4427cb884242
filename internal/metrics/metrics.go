// Package metrics 提供Prometheus监控指标
package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry
	once     sync.Once

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	optimizeTotal      *prometheus.CounterVec
	optimizeDuration   *prometheus.HistogramVec
	optimizeIterations *prometheus.CounterVec
	routeScore         prometheus.Gauge

	dispatchTotal      *prometheus.CounterVec
	dispatchDuration   prometheus.Histogram
	dispatchAssigned   prometheus.Gauge
	dispatchUnassigned prometheus.Gauge

	constraintEvaluations *prometheus.CounterVec

	travelLookupsTotal *prometheus.CounterVec

	workloadGini prometheus.Gauge

	dbConnections *prometheus.GaugeVec
)

// Registry 返回全局指标注册表，首次调用时完成所有指标注册。
func Registry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paidan_http_requests_total",
			Help: "HTTP请求总数",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paidan_http_request_duration_seconds",
			Help:    "HTTP请求延迟",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"method", "path"})

		optimizeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paidan_route_optimize_total",
			Help: "路线优化次数",
		}, []string{"status"})

		optimizeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paidan_route_optimize_duration_seconds",
			Help:    "路线优化耗时",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}, []string{"status"})

		optimizeIterations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paidan_optimizer_iterations_total",
			Help: "局部搜索迭代次数",
		}, []string{"phase"})

		routeScore = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "paidan_route_score",
			Help: "最近一次路线优化的综合得分",
		})

		dispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paidan_dispatch_total",
			Help: "批量派单次数",
		}, []string{"status"})

		dispatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "paidan_dispatch_duration_seconds",
			Help:    "批量派单耗时",
			Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		})

		dispatchAssigned = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "paidan_dispatch_assigned_jobs",
			Help: "最近一次派单成功分配的工单数",
		})

		dispatchUnassigned = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "paidan_dispatch_unassigned_jobs",
			Help: "最近一次派单未能分配的工单数",
		})

		constraintEvaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paidan_constraint_evaluations_total",
			Help: "约束评估次数",
		}, []string{"constraint_type", "result"})

		travelLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paidan_travel_lookups_total",
			Help: "行程时间查询次数",
		}, []string{"source"})

		workloadGini = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "paidan_workload_gini",
			Help: "最近一次派单的负载基尼系数",
		})

		dbConnections = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "paidan_db_connections",
			Help: "数据库连接数",
		}, []string{"state"})

		registry.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			optimizeTotal,
			optimizeDuration,
			optimizeIterations,
			routeScore,
			dispatchTotal,
			dispatchDuration,
			dispatchAssigned,
			dispatchUnassigned,
			constraintEvaluations,
			travelLookupsTotal,
			workloadGini,
			dbConnections,
		)
	})
	return registry
}

// Handler 返回 /metrics 的HTTP处理器
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{})
}

// RecordRequest 记录HTTP请求指标
func RecordRequest(method, path string, status int, duration time.Duration) {
	Registry()
	httpRequestsTotal.WithLabelValues(method, path, fmt.Sprintf("%d", status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOptimize 记录一次路线优化
func RecordOptimize(success bool, duration time.Duration, score float64) {
	Registry()
	status := "success"
	if !success {
		status = "failure"
	}
	optimizeTotal.WithLabelValues(status).Inc()
	optimizeDuration.WithLabelValues(status).Observe(duration.Seconds())
	if success {
		routeScore.Set(score)
	}
}

// RecordOptimizerIterations 记录局部搜索迭代轮数
func RecordOptimizerIterations(phase string, count int) {
	Registry()
	if count <= 0 {
		return
	}
	optimizeIterations.WithLabelValues(phase).Add(float64(count))
}

// RecordDispatch 记录一次批量派单
func RecordDispatch(success bool, duration time.Duration, assigned, unassigned int) {
	Registry()
	status := "success"
	if !success {
		status = "failure"
	}
	dispatchTotal.WithLabelValues(status).Inc()
	dispatchDuration.Observe(duration.Seconds())
	if success {
		dispatchAssigned.Set(float64(assigned))
		dispatchUnassigned.Set(float64(unassigned))
	}
}

// RecordConstraintEvaluation 记录约束评估结果
func RecordConstraintEvaluation(constraintType string, satisfied bool) {
	Registry()
	result := "satisfied"
	if !satisfied {
		result = "violated"
	}
	constraintEvaluations.WithLabelValues(constraintType, result).Inc()
}

// RecordTravelLookup 记录行程时间查询来源（cache/provider/haversine/default）
func RecordTravelLookup(source string) {
	Registry()
	travelLookupsTotal.WithLabelValues(source).Inc()
}

// SetWorkloadGini 设置负载基尼系数
func SetWorkloadGini(gini float64) {
	Registry()
	workloadGini.Set(gini)
}

// SetDBConnections 设置数据库连接状态指标
func SetDBConnections(open, inUse, idle int) {
	Registry()
	dbConnections.WithLabelValues("open").Set(float64(open))
	dbConnections.WithLabelValues("in_use").Set(float64(inUse))
	dbConnections.WithLabelValues("idle").Set(float64(idle))
}
