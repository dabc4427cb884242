package builtin

import (
	"fmt"

	"github.com/paidan/paidan/pkg/model"
	"github.com/paidan/paidan/pkg/scheduler/constraint"
)

// ConflictConstraint 候选时段不得与技师当日已承接工单重叠
type ConflictConstraint struct {
	BaseConstraint
}

// NewConflictConstraint 创建时段冲突约束
func NewConflictConstraint() *ConflictConstraint {
	return &ConflictConstraint{
		BaseConstraint: NewBaseConstraint("时段冲突", constraint.TypeScheduleConflict),
	}
}

// Check 半开区间重叠检测，并在消息中点名冲突工单
func (c *ConflictConstraint) Check(ctx *constraint.Context) []constraint.Violation {
	var violations []constraint.Violation
	for _, existing := range ctx.ExistingJobs {
		start, end := existing.StartMinute(), existing.EndMinute()
		if start < 0 {
			continue
		}
		if ctx.Slot.Overlaps(start, end) {
			violations = append(violations, constraint.Violation{
				Type:     constraint.TypeScheduleConflict,
				Severity: constraint.SeverityBlocking,
				JobID:    existing.ID,
				Message: fmt.Sprintf("与工单 %q (%s-%s) 时段重叠",
					existing.Title, model.ClockOfMinute(start), model.ClockOfMinute(end)),
			})
		}
	}
	return violations
}
