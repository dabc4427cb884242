package model

import (
	"github.com/google/uuid"
)

// ScoreBreakdown 路线评分明细（数值越低越好）
type ScoreBreakdown struct {
	TravelMinutes     float64 `json:"travel_minutes"`      // 总行驶时间
	TimeWindowPenalty float64 `json:"time_window_penalty"` // 时间窗惩罚
	UrgencyCost       float64 `json:"urgency_cost"`        // 紧急工单靠后的代价
	Total             float64 `json:"total"`               // 加权合计
}

// RouteStop 路线中的一站
type RouteStop struct {
	JobID           uuid.UUID `json:"job_id"`
	ArrivalMinute   int       `json:"arrival_minute"`   // 预计到达时刻（当日分钟数）
	DepartureMinute int       `json:"departure_minute"` // 预计离开时刻
	TravelMinutes   int       `json:"travel_minutes"`   // 距上一站行驶时间
	WindowPenalty   float64   `json:"window_penalty"`   // 本站时间窗惩罚
}

// Route 单条优化后的路线
type Route struct {
	WorkerID       uuid.UUID      `json:"worker_id"`
	Date           string         `json:"date,omitempty"`
	JobIDs         []uuid.UUID    `json:"job_ids"`
	Stops          []RouteStop    `json:"stops,omitempty"`
	Score          ScoreBreakdown `json:"score"`
	DepartureClock string         `json:"departure_clock,omitempty"` // 建议出发时刻 HH:MM
}

// Assignment 一次指派：某技师在某日承接某工单
type Assignment struct {
	JobID     uuid.UUID `json:"job_id"`
	WorkerID  uuid.UUID `json:"worker_id"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time,omitempty"` // HH:MM
	EndTime   string    `json:"end_time,omitempty"`   // HH:MM
	Position  int       `json:"position"`             // 在路线中的序号
}

// UnassignedJob 未能指派的工单及原因
type UnassignedJob struct {
	JobID  uuid.UUID `json:"job_id"`
	Reason string    `json:"reason"`
}

// AssignmentPlan 多技师派单方案
type AssignmentPlan struct {
	Routes     map[uuid.UUID]*Route `json:"routes"`
	Unassigned []UnassignedJob      `json:"unassigned,omitempty"`
	TotalScore float64              `json:"total_score"`
	Warnings   []string             `json:"warnings,omitempty"`
}

// AssignedCount 返回方案中已指派的工单总数
func (p *AssignmentPlan) AssignedCount() int {
	n := 0
	for _, r := range p.Routes {
		n += len(r.JobIDs)
	}
	return n
}
