package builtin

import (
	"fmt"

	"github.com/paidan/paidan/pkg/model"
	"github.com/paidan/paidan/pkg/scheduler/constraint"
)

// SLA 临近截止时的扣分
const slaNearDeadlineDeduction = 10

// SLAConstraint 候选日期不得晚于工单的 SLA 截止日期
// 晚于截止日阻断；距截止日不足一天时告警
type SLAConstraint struct {
	BaseConstraint
}

// NewSLAConstraint 创建 SLA 约束
func NewSLAConstraint() *SLAConstraint {
	return &SLAConstraint{
		BaseConstraint: NewBaseConstraint("SLA截止", constraint.TypeSLADeadline),
	}
}

// Check 按自然日比较候选日期与 SLA 截止日期
func (c *SLAConstraint) Check(ctx *constraint.Context) []constraint.Violation {
	if ctx.Job.SLADeadline == "" {
		return nil
	}
	deadline, err := model.ParseDate(ctx.Job.SLADeadline)
	if err != nil {
		return nil
	}
	candidate, err := model.ParseDate(ctx.Slot.Date)
	if err != nil {
		return nil
	}

	if candidate.After(deadline) {
		return []constraint.Violation{{
			Type:     constraint.TypeSLADeadline,
			Severity: constraint.SeverityBlocking,
			Message:  fmt.Sprintf("候选日期 %s 已超过 SLA 截止日期 %s", ctx.Slot.Date, ctx.Job.SLADeadline),
		}}
	}

	// 当天或前一天视为临近截止
	if deadline.Sub(candidate).Hours() <= 24 {
		return []constraint.Violation{{
			Type:      constraint.TypeSLADeadline,
			Severity:  constraint.SeverityWarning,
			Deduction: slaNearDeadlineDeduction,
			Message:   fmt.Sprintf("距 SLA 截止日期 %s 不足一天", ctx.Job.SLADeadline),
		}}
	}
	return nil
}
