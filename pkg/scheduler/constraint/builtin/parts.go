package builtin

import (
	"fmt"
	"strings"

	"github.com/paidan/paidan/pkg/scheduler/constraint"
)

// PartsConstraint 工单需要备件时仅做提示，库存校验不在引擎范围内
type PartsConstraint struct {
	BaseConstraint
}

// NewPartsConstraint 创建备件提示约束
func NewPartsConstraint() *PartsConstraint {
	return &PartsConstraint{
		BaseConstraint: NewBaseConstraint("备件提示", constraint.TypeRequiredParts),
	}
}

// Check 列出工单需要的备件
func (c *PartsConstraint) Check(ctx *constraint.Context) []constraint.Violation {
	if len(ctx.Job.RequiredParts) == 0 {
		return nil
	}
	return []constraint.Violation{{
		Type:     constraint.TypeRequiredParts,
		Severity: constraint.SeverityInfo,
		Message:  fmt.Sprintf("本工单需要备件: %s", strings.Join(ctx.Job.RequiredParts, ", ")),
	}}
}
