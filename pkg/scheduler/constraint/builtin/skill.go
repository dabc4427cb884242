package builtin

import (
	"fmt"

	"github.com/paidan/paidan/pkg/scheduler/constraint"
)

// SkillConstraint 工单要求的每项技能技师都必须具备
type SkillConstraint struct {
	BaseConstraint
}

// NewSkillConstraint 创建技能匹配约束
func NewSkillConstraint() *SkillConstraint {
	return &SkillConstraint{
		BaseConstraint: NewBaseConstraint("技能匹配", constraint.TypeSkillRequired),
	}
}

// Check 逐项检查工单要求的技能
func (c *SkillConstraint) Check(ctx *constraint.Context) []constraint.Violation {
	var violations []constraint.Violation
	for _, skill := range ctx.Job.Skills {
		if !ctx.Worker.HasSkill(skill) {
			violations = append(violations, constraint.Violation{
				Type:     constraint.TypeSkillRequired,
				Severity: constraint.SeverityBlocking,
				Message:  fmt.Sprintf("技师 %s 不具备技能 %s", ctx.Worker.Name, skill),
			})
		}
	}
	return violations
}
