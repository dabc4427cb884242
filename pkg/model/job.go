package model

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus 工单状态
type JobStatus string

const (
	JobStatusUnscheduled JobStatus = "unscheduled" // 未排程
	JobStatusAssigned    JobStatus = "assigned"    // 已指派
	JobStatusInProgress  JobStatus = "in_progress" // 进行中
	JobStatusCompleted   JobStatus = "completed"   // 已完成
	JobStatusCancelled   JobStatus = "cancelled"   // 已取消
)

// Urgency 紧急程度
type Urgency string

const (
	UrgencyEmergency Urgency = "emergency" // 紧急抢修
	UrgencyUrgent    Urgency = "urgent"    // 加急
	UrgencyStandard  Urgency = "standard"  // 标准
	UrgencyFlexible  Urgency = "flexible"  // 可灵活安排
)

// Weight 返回紧急程度的权重
func (u Urgency) Weight() float64 {
	switch u {
	case UrgencyEmergency:
		return 10
	case UrgencyUrgent:
		return 5
	case UrgencyStandard:
		return 1
	case UrgencyFlexible:
		return 0.5
	default:
		return 1
	}
}

// DayPreference 时段偏好
type DayPreference string

const (
	DayPreferenceMorning   DayPreference = "morning"   // 上午 08:00-12:00
	DayPreferenceAfternoon DayPreference = "afternoon" // 下午 12:00-17:00
)

// WindowType 时间窗类型
type WindowType string

const (
	WindowTypeHard     WindowType = "hard"     // 硬性时间窗
	WindowTypeSoft     WindowType = "soft"     // 柔性时间窗
	WindowTypeFlexible WindowType = "flexible" // 全天灵活
)

// WindowSpec 工单上携带的显式时间窗
type WindowSpec struct {
	Start     string     `json:"start"`               // HH:MM
	End       string     `json:"end"`                 // HH:MM
	Preferred string     `json:"preferred,omitempty"` // HH:MM，可选
	Type      WindowType `json:"type"`
}

// Job 工单
type Job struct {
	BaseModel
	Title           string        `json:"title" db:"title"`
	Description     string        `json:"description,omitempty" db:"description"`
	CustomerName    string        `json:"customer_name,omitempty" db:"customer_name"`
	Address         string        `json:"address,omitempty" db:"address"`
	Location        *Location     `json:"location,omitempty" db:"-"`
	DurationMinutes int           `json:"duration_minutes" db:"duration_minutes"`
	Urgency         Urgency       `json:"urgency" db:"urgency"`
	Window          *WindowSpec   `json:"window,omitempty" db:"-"`
	ScheduledAt     string        `json:"scheduled_at,omitempty" db:"scheduled_at"`    // 固定上门时刻 HH:MM
	DayPreference   DayPreference `json:"day_preference,omitempty" db:"day_preference"` // 时段偏好
	Skills          []string      `json:"skills,omitempty" db:"-"`
	Certifications  []string      `json:"certifications,omitempty" db:"-"`
	RequiredParts   []string      `json:"required_parts,omitempty" db:"-"`
	SLADeadline     string        `json:"sla_deadline,omitempty" db:"sla_deadline"` // YYYY-MM-DD
	Status          JobStatus     `json:"status" db:"status"`

	// 排程结果字段
	AssignedWorkerID *uuid.UUID `json:"assigned_worker_id,omitempty" db:"assigned_worker_id"`
	Date             string     `json:"date,omitempty" db:"date"`           // YYYY-MM-DD
	EndDate          string     `json:"end_date,omitempty" db:"end_date"`   // 跨天工单的结束日期
	StartTime        string     `json:"start_time,omitempty" db:"start_time"` // HH:MM
	EndTime          string     `json:"end_time,omitempty" db:"end_time"`     // HH:MM

	// TravelTimeFromPrevious 距上一站的行驶时间（分钟），由约束评估回填，仅用于展示
	TravelTimeFromPrevious int `json:"travel_time_from_previous,omitempty" db:"-"`
}

// EffectiveDuration 返回工单时长，未设置时默认 60 分钟
func (j *Job) EffectiveDuration() int {
	if j.DurationMinutes <= 0 {
		return 60
	}
	return j.DurationMinutes
}

// IsScheduled 检查工单是否已有排程
func (j *Job) IsScheduled() bool {
	return j.Date != "" && j.StartTime != ""
}

// StartMinute 返回排程开始时刻的当日分钟数，未排程返回 -1
func (j *Job) StartMinute() int {
	if j.StartTime == "" {
		return -1
	}
	return MinuteOfClock(j.StartTime)
}

// EndMinute 返回排程结束时刻的当日分钟数
// 未显式设置结束时刻时按开始时刻加时长推算
func (j *Job) EndMinute() int {
	if j.EndTime != "" {
		return MinuteOfClock(j.EndTime)
	}
	start := j.StartMinute()
	if start < 0 {
		return -1
	}
	return start + j.EffectiveDuration()
}

// SpansMultipleDays 检查工单是否跨天
func (j *Job) SpansMultipleDays() bool {
	return j.EndDate != "" && j.EndDate != j.Date
}

// OccupiedDates 返回工单占用的全部日期
func (j *Job) OccupiedDates() []string {
	if j.Date == "" {
		return nil
	}
	if !j.SpansMultipleDays() {
		return []string{j.Date}
	}
	return DatesBetween(j.Date, j.EndDate)
}

// SLATime 解析 SLA 截止日期，未设置返回零值
func (j *Job) SLATime() time.Time {
	if j.SLADeadline == "" {
		return time.Time{}
	}
	t, err := ParseDate(j.SLADeadline)
	if err != nil {
		return time.Time{}
	}
	// SLA 截止到当天结束
	return t.Add(24*time.Hour - time.Minute)
}
