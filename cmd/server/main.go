// PaiDan 派单引擎服务
// 主程序入口

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/paidan/paidan/internal/config"
	"github.com/paidan/paidan/internal/database"
	"github.com/paidan/paidan/internal/handler"
	"github.com/paidan/paidan/internal/metrics"
	"github.com/paidan/paidan/pkg/dispatcher"
	"github.com/paidan/paidan/pkg/logger"
	"github.com/paidan/paidan/pkg/traveltime"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// 加载配置
	var cfg *config.Config
	var err error
	if path := os.Getenv("APP_CONFIG"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(cfg.Log)

	// 打印版本信息
	fmt.Printf("PaiDan 派单引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	// 行驶时间估算：可选 Redis 缓存
	var cache *traveltime.Cache
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis 不可达，行驶时间缓存关闭")
		} else {
			cache = traveltime.NewCache(client, cfg.Redis.CacheTTL)
			logger.Info().Str("addr", cfg.Redis.Addr()).Msg("行驶时间缓存已启用")
		}
		cancel()
	}

	estimator := traveltime.NewEstimator(nil, cache, cfg.TravelTime)
	engine := dispatcher.NewEngine(estimator, nil)

	// 创建处理器
	optimizeHandler := handler.NewOptimizeHandler(estimator, cfg.Optimizer.Weights, cfg.Optimizer.MaxIterations)
	dispatchHandler := handler.NewDispatchHandler(engine, estimator)
	impactHandler := handler.NewImpactHandler(estimator)

	// 创建 HTTP 服务器
	mux := http.NewServeMux()

	// ========================================
	// 系统端点
	// ========================================

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"paidan"}`))
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// ========================================
	// API v1 端点
	// ========================================

	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "PaiDan 派单引擎 API v1",
			"endpoints": {
				"optimize": {
					"route": "POST /api/v1/optimize/route",
					"multi": "POST /api/v1/optimize/multi",
					"departure": "POST /api/v1/optimize/departure"
				},
				"dispatch": {
					"batch": "POST /api/v1/dispatch/batch",
					"best_slot": "POST /api/v1/dispatch/best-slot",
					"validate": "POST /api/v1/dispatch/validate"
				},
				"impact": {
					"cancel": "POST /api/v1/impact/cancel",
					"reschedule": "POST /api/v1/impact/reschedule",
					"swap": "POST /api/v1/impact/swap"
				},
				"constraints": {
					"library": "GET /api/v1/constraints/library"
				}
			}
		}`))
	})

	// 路线优化 API
	mux.HandleFunc("/api/v1/optimize/route", optimizeHandler.OptimizeRoute)
	mux.HandleFunc("/api/v1/optimize/multi", dispatchHandler.Dispatch)
	mux.HandleFunc("/api/v1/optimize/departure", optimizeHandler.SelectDeparture)

	// 派单 API
	mux.HandleFunc("/api/v1/dispatch/batch", dispatchHandler.Dispatch)
	mux.HandleFunc("/api/v1/dispatch/best-slot", dispatchHandler.BestSlot)
	mux.HandleFunc("/api/v1/dispatch/validate", dispatchHandler.Validate)

	// 影响分析 API
	mux.HandleFunc("/api/v1/impact/cancel", impactHandler.CancelImpact)
	mux.HandleFunc("/api/v1/impact/reschedule", impactHandler.RescheduleImpact)
	mux.HandleFunc("/api/v1/impact/swap", impactHandler.Swap)

	// 约束库 API
	mux.HandleFunc("/api/v1/constraints/library", handleConstraintLibrary)

	// ========================================
	// 存储端点（需要数据库）
	// ========================================

	if cfg.Database.Enabled {
		db, err := database.New(&cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("数据库连接失败")
		}
		defer db.Close()

		storeHandler := handler.NewStoreHandler(db, engine)
		mux.HandleFunc("/api/v1/jobs", storeHandler.JobsByDate)
		mux.HandleFunc("/api/v1/dispatch/day", storeHandler.DayDispatch)
		mux.HandleFunc("/api/v1/workers/availability", storeHandler.Availability)

		// 连接池指标按分钟上报
		go db.ReportPoolStats(context.Background(), time.Minute)

		logger.Info().Str("host", cfg.Database.Host).Msg("数据库已连接，存储端点已启用")
	}

	// ========================================
	// 监控端点
	// ========================================

	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// ========================================
	// 中间件
	// ========================================

	// 中间件执行顺序：requestID -> rateLimit -> cors -> logging -> handler
	root := requestIDMiddleware(rateLimitMiddleware(corsMiddleware(loggingMiddleware(mux))))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}

// requestIDMiddleware 请求ID追踪中间件
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), "request_id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware 日志中间件
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID, _ := r.Context().Value("request_id").(string)

		// 包装ResponseWriter以捕获状态码
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", duration).
			Msg("请求处理")

		metrics.RecordRequest(r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

// responseWriter 包装ResponseWriter以捕获状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RateLimiter 简单的令牌桶限流器
type RateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // 每秒添加的令牌数
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter 创建限流器
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return &RateLimiter{
		tokens:     requestsPerSecond,
		maxTokens:  requestsPerSecond * 2, // 允许突发流量
		refillRate: requestsPerSecond,
		lastRefill: time.Now(),
	}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

var globalRateLimiter = NewRateLimiter(100) // 默认 100 QPS

// rateLimitMiddleware 限流中间件
func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !globalRateLimiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   true,
				"code":    "RATE_LIMITED",
				"message": "请求过于频繁，请稍后重试",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware CORS中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ConstraintDefinition 约束定义
type ConstraintDefinition struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Severity    string `json:"severity"` // blocking/warning/info
	Description string `json:"description"`
}

// ConstraintLibraryResponse 约束库响应
type ConstraintLibraryResponse struct {
	Library []ConstraintDefinition `json:"library"`
}

// handleConstraintLibrary 返回排程时评估的全部约束及其严重程度
func handleConstraintLibrary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	library := []ConstraintDefinition{
		{
			Name:        "availability",
			DisplayName: "工作时间覆盖",
			Severity:    "blocking",
			Description: "工单时段必须完整落在技师当日的工作时间内，休息日不可排程。",
		},
		{
			Name:        "skill_required",
			DisplayName: "技能匹配",
			Severity:    "blocking",
			Description: "技师必须具备工单要求的全部技能。",
		},
		{
			Name:        "certification",
			DisplayName: "证书持有",
			Severity:    "blocking",
			Description: "工单要求的证书必须由技师持有。",
		},
		{
			Name:        "certification_expired",
			DisplayName: "证书有效期",
			Severity:    "blocking",
			Description: "持有的证书在排程日期必须仍在有效期内。",
		},
		{
			Name:        "schedule_conflict",
			DisplayName: "时段冲突",
			Severity:    "blocking",
			Description: "候选时段不能与技师当日已排的工单重叠。",
		},
		{
			Name:        "travel_feasibility",
			DisplayName: "行驶可达性",
			Severity:    "warning",
			Description: "从上一站赶到本单地点的行驶时间不足时告警扣分。",
		},
		{
			Name:        "sla_deadline",
			DisplayName: "SLA 截止",
			Severity:    "warning",
			Description: "排程日期晚于SLA截止日为阻断；距截止不足24小时告警扣分。",
		},
		{
			Name:        "workload",
			DisplayName: "当日工作量",
			Severity:    "warning",
			Description: "技师当日工单数达到阈值后每多一单扣分。",
		},
		{
			Name:        "required_parts",
			DisplayName: "备件提示",
			Severity:    "info",
			Description: "工单需要备件时提示调度员确认备件已装车。",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ConstraintLibraryResponse{Library: library})
}
