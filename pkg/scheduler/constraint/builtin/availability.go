package builtin

import (
	"fmt"

	"github.com/paidan/paidan/pkg/model"
	"github.com/paidan/paidan/pkg/scheduler/constraint"
)

// AvailabilityConstraint 技师工作时间必须完整覆盖候选时段
type AvailabilityConstraint struct {
	BaseConstraint
}

// NewAvailabilityConstraint 创建工作时间约束
func NewAvailabilityConstraint() *AvailabilityConstraint {
	return &AvailabilityConstraint{
		BaseConstraint: NewBaseConstraint("工作时间覆盖", constraint.TypeAvailability),
	}
}

// Check 检查候选时段是否落在技师当天的工作时间内
func (c *AvailabilityConstraint) Check(ctx *constraint.Context) []constraint.Violation {
	hours := ctx.Worker.HoursFor(ctx.Slot.Date)
	if hours == nil {
		return []constraint.Violation{{
			Type:     constraint.TypeAvailability,
			Severity: constraint.SeverityBlocking,
			Message:  fmt.Sprintf("技师 %s 在 %s 休息", ctx.Worker.Name, ctx.Slot.Date),
		}}
	}

	start, end := hours.StartMinute(), hours.EndMinute()
	if start < 0 || end < 0 {
		return []constraint.Violation{{
			Type:     constraint.TypeAvailability,
			Severity: constraint.SeverityBlocking,
			Message:  fmt.Sprintf("技师 %s 在 %s 的工作时间配置无效", ctx.Worker.Name, ctx.Slot.Date),
		}}
	}

	if ctx.Slot.StartMinute < start || ctx.Slot.EndMinute > end {
		return []constraint.Violation{{
			Type:     constraint.TypeAvailability,
			Severity: constraint.SeverityBlocking,
			Message: fmt.Sprintf("时段 %s-%s 超出技师 %s 的工作时间 %s-%s",
				model.ClockOfMinute(ctx.Slot.StartMinute), model.ClockOfMinute(ctx.Slot.EndMinute),
				ctx.Worker.Name, hours.Start, hours.End),
		}}
	}
	return nil
}
