// Package constraint 定义派单约束接口与评估器
package constraint

import (
	"time"

	"github.com/google/uuid"

	"github.com/paidan/paidan/pkg/model"
	"github.com/paidan/paidan/pkg/traveltime"
)

// Type 约束类型标识
type Type string

const (
	TypeAvailability         Type = "availability"          // 工作时间覆盖
	TypeSkillRequired        Type = "skill_required"        // 技能匹配
	TypeCertification        Type = "certification"         // 证书缺失
	TypeCertificationExpired Type = "certification_expired" // 证书过期
	TypeScheduleConflict     Type = "schedule_conflict"     // 时段冲突
	TypeTravelFeasibility    Type = "travel_feasibility"    // 行驶可达性
	TypeSLADeadline          Type = "sla_deadline"          // SLA 截止
	TypeWorkload             Type = "workload"              // 当日工作量
	TypeRequiredParts        Type = "required_parts"        // 备件提示
)

// Severity 违反严重程度
type Severity string

const (
	SeverityBlocking Severity = "blocking" // 阻断性违反，不可排程
	SeverityWarning  Severity = "warning"  // 告警，扣分但可排程
	SeverityInfo     Severity = "info"     // 仅提示
)

// Violation 一次约束违反
type Violation struct {
	Type      Type      `json:"type"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Deduction float64   `json:"deduction,omitempty"`          // 扣分值
	JobID     uuid.UUID `json:"job_id,omitempty"`             // 关联工单（如冲突对象）
}

// IsBlocking 检查违反是否为阻断性
func (v Violation) IsBlocking() bool {
	return v.Severity == SeverityBlocking
}

// Slot 候选排程时段
type Slot struct {
	Date        string `json:"date"`         // YYYY-MM-DD
	StartMinute int    `json:"start_minute"` // 当日分钟数
	EndMinute   int    `json:"end_minute"`
}

// Overlaps 检查两个时段是否重叠（半开区间）
func (s Slot) Overlaps(startMinute, endMinute int) bool {
	return s.StartMinute < endMinute && startMinute < s.EndMinute
}

// Context 一次约束评估的上下文
type Context struct {
	Job    *model.Job    // 待排工单
	Worker *model.Worker // 候选技师
	Slot   Slot          // 候选时段

	// ExistingJobs 该技师当天已承接的工单，由调用方提供
	ExistingJobs []*model.Job

	// Estimator 行驶时间估算器，可为 nil（跳过行驶可达性检查）
	Estimator *traveltime.Estimator

	// Now 评估基准时间，零值时取当前时间
	Now time.Time
}

// EffectiveNow 返回评估基准时间
func (c *Context) EffectiveNow() time.Time {
	if c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}

// PreviousJob 返回当天在候选时段之前结束、且结束时刻最晚的已承接工单
func (c *Context) PreviousJob() *model.Job {
	var prev *model.Job
	prevEnd := -1
	for _, j := range c.ExistingJobs {
		end := j.EndMinute()
		if end < 0 || end > c.Slot.StartMinute {
			continue
		}
		if end > prevEnd {
			prev = j
			prevEnd = end
		}
	}
	return prev
}

// Constraint 单项约束检查
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Check 执行检查，返回违反列表（可为空）
	Check(ctx *Context) []Violation
}

// Result 约束评估结果
type Result struct {
	CanSchedule bool        `json:"can_schedule"`
	Score       float64     `json:"score"` // 0-100
	Violations  []Violation `json:"violations,omitempty"`
	Warnings    []Violation `json:"warnings,omitempty"`
}

// BlockingViolations 返回全部阻断性违反
func (r *Result) BlockingViolations() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.IsBlocking() {
			out = append(out, v)
		}
	}
	return out
}
