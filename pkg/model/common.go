// Package model 定义派单引擎的核心数据模型
package model

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JSONMap 用于存储 JSONB 数据
type JSONMap map[string]interface{}

// Location 地理位置
type Location struct {
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city,omitempty"`
	District  string  `json:"district,omitempty"`
}

// HasCoordinates 检查位置是否携带有效坐标
func (l *Location) HasCoordinates() bool {
	return l != nil && (l.Latitude != 0 || l.Longitude != 0)
}

// DistanceMiles 计算两个位置之间的距离（英里）
// 使用 Haversine 公式
func (l Location) DistanceMiles(other Location) float64 {
	const earthRadiusKm = 6371.0
	const milesPerKm = 0.621371

	lat1Rad := l.Latitude * math.Pi / 180
	lat2Rad := other.Latitude * math.Pi / 180
	deltaLat := (other.Latitude - l.Latitude) * math.Pi / 180
	deltaLon := (other.Longitude - l.Longitude) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c * milesPerKm
}

// Key 返回位置的距离矩阵键（坐标保留4位小数，约11米精度）
func (l Location) Key() string {
	return fmt.Sprintf("%.4f,%.4f", l.Latitude, l.Longitude)
}

// TimeRange 时间范围
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration 返回时间范围的持续时间
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// Overlaps 检查两个时间范围是否重叠（半开区间）
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start.Before(other.End) && other.Start.Before(tr.End)
}

// Contains 检查时间范围是否包含某个时间点
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// DateLayout 日期格式 YYYY-MM-DD
const DateLayout = "2006-01-02"

// ClockLayout 时刻格式 HH:MM
const ClockLayout = "15:04"

// MinuteOfClock 把 HH:MM 转换为当日分钟数
// 解析失败返回 -1
func MinuteOfClock(clock string) int {
	t, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return -1
	}
	return t.Hour()*60 + t.Minute()
}

// ClockOfMinute 把当日分钟数转换为 HH:MM
func ClockOfMinute(minute int) string {
	if minute < 0 {
		minute = 0
	}
	return fmt.Sprintf("%02d:%02d", (minute/60)%24, minute%60)
}

// MinuteOfTime 返回某个时间点在当天的分钟数
func MinuteOfTime(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// SameDay 检查两个时间是否在同一个自然日
// 以第一个时间所在时区为准，避免跨时区比较时日期漂移
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// ParseDate 解析 YYYY-MM-DD 日期
func ParseDate(date string) (time.Time, error) {
	return time.Parse(DateLayout, date)
}

// DatesBetween 返回两个日期（含端点）之间的全部日期
func DatesBetween(startDate, endDate string) []string {
	start, err1 := ParseDate(startDate)
	end, err2 := ParseDate(endDate)
	if err1 != nil || err2 != nil || end.Before(start) {
		return nil
	}
	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates
}
