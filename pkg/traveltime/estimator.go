// Package traveltime 负责站点之间行驶时间的估算
//
// 估算来源按优先级依次为：实时路况服务、缓存、直线距离估算、固定默认值。
// 路况服务不可用时静默降级，绝不向上抛错。
package traveltime

import (
	"context"
	"time"

	"github.com/paidan/paidan/internal/metrics"
	"github.com/paidan/paidan/pkg/logger"
	"github.com/paidan/paidan/pkg/model"
)

// Source 估算值的来源
type Source string

const (
	SourceProvider  Source = "provider"  // 实时路况服务
	SourceCache     Source = "cache"     // 缓存命中
	SourceHaversine Source = "haversine" // 直线距离估算
	SourceDefault   Source = "default"   // 固定默认值
)

// Estimate 一次行驶时间估算结果
type Estimate struct {
	DurationMinutes int     `json:"duration_minutes"`
	DistanceMiles   float64 `json:"distance_miles"`
	Source          Source  `json:"source"`
}

// Cell 路况服务返回的单个矩阵元素
type Cell struct {
	DurationMinutes          int     `json:"duration_minutes"`
	DurationInTrafficMinutes int     `json:"duration_in_traffic_minutes,omitempty"`
	DistanceMiles            float64 `json:"distance_miles"`
}

// ProviderOptions 查询路况服务时的附加参数
type ProviderOptions struct {
	// DepartureTime 出发时间，用于路况感知的行驶时间
	DepartureTime time.Time
}

// Provider 实时路况服务
type Provider interface {
	// GetDistanceMatrix 查询起点到终点的距离矩阵
	GetDistanceMatrix(ctx context.Context, origins, destinations []model.Location, opts ProviderOptions) ([][]Cell, error)
}

// Config 估算器配置
type Config struct {
	SpeedMPH       float64       `yaml:"speed_mph" json:"speed_mph"`             // 平均市区行驶速度
	DefaultMinutes int           `yaml:"default_minutes" json:"default_minutes"` // 缺少坐标时的默认行驶时间
	DefaultMiles   float64       `yaml:"default_miles" json:"default_miles"`     // 缺少坐标时的默认距离
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`                 // 路况服务超时
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		SpeedMPH:       30,
		DefaultMinutes: 30,
		DefaultMiles:   15,
		Timeout:        3 * time.Second,
	}
}

// Estimator 行驶时间估算器
type Estimator struct {
	provider Provider
	cache    *Cache
	cfg      Config
	log      *logger.OptimizerLogger
}

// NewEstimator 创建估算器，provider 和 cache 均可为 nil
func NewEstimator(provider Provider, cache *Cache, cfg Config) *Estimator {
	if cfg.SpeedMPH <= 0 {
		cfg.SpeedMPH = 30
	}
	if cfg.DefaultMinutes <= 0 {
		cfg.DefaultMinutes = 30
	}
	if cfg.DefaultMiles <= 0 {
		cfg.DefaultMiles = 15
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	return &Estimator{
		provider: provider,
		cache:    cache,
		cfg:      cfg,
		log:      logger.NewOptimizerLogger(),
	}
}

// Estimate 估算两点之间的行驶时间
// departureTime 可为零值，此时路况服务按当前时间查询
func (e *Estimator) Estimate(ctx context.Context, from, to *model.Location, departureTime time.Time) Estimate {
	if est, ok := e.fromProvider(ctx, from, to, departureTime); ok {
		metrics.RecordTravelLookup(string(est.Source))
		return est
	}
	est := e.fallback(from, to)
	metrics.RecordTravelLookup(string(est.Source))
	return est
}

// fromProvider 先查缓存再查路况服务，任何失败都返回 ok=false
func (e *Estimator) fromProvider(ctx context.Context, from, to *model.Location, departureTime time.Time) (Estimate, bool) {
	if e.provider == nil || !from.HasCoordinates() || !to.HasCoordinates() {
		return Estimate{}, false
	}

	if est, ok := e.cache.Get(ctx, *from, *to); ok {
		est.Source = SourceCache
		return est, true
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	matrix, err := e.provider.GetDistanceMatrix(ctx, []model.Location{*from}, []model.Location{*to}, ProviderOptions{DepartureTime: departureTime})
	if err != nil {
		e.log.ProviderFallback(err.Error())
		return Estimate{}, false
	}
	if len(matrix) == 0 || len(matrix[0]) == 0 {
		e.log.ProviderFallback("路况服务返回空矩阵")
		return Estimate{}, false
	}

	cell := matrix[0][0]
	duration := cell.DurationMinutes
	if cell.DurationInTrafficMinutes > 0 {
		duration = cell.DurationInTrafficMinutes
	}
	est := Estimate{
		DurationMinutes: duration,
		DistanceMiles:   cell.DistanceMiles,
		Source:          SourceProvider,
	}
	e.cache.Set(ctx, *from, *to, est)
	return est, true
}

// fallback 直线距离估算，缺少坐标时退回固定默认值
func (e *Estimator) fallback(from, to *model.Location) Estimate {
	if !from.HasCoordinates() || !to.HasCoordinates() {
		return Estimate{
			DurationMinutes: e.cfg.DefaultMinutes,
			DistanceMiles:   e.cfg.DefaultMiles,
			Source:          SourceDefault,
		}
	}

	miles := from.DistanceMiles(*to)
	minutes := int(miles / e.cfg.SpeedMPH * 60)
	if minutes < 1 && miles > 0 {
		minutes = 1
	}
	return Estimate{
		DurationMinutes: minutes,
		DistanceMiles:   miles,
		Source:          SourceHaversine,
	}
}
