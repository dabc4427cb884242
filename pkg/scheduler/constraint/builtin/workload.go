package builtin

import (
	"fmt"

	"github.com/paidan/paidan/pkg/scheduler/constraint"
)

// 工作量告警阈值与单位扣分
const (
	workloadWarnThreshold = 6
	workloadUnitDeduction = 5
)

// WorkloadConstraint 技师当日工单数达到阈值后按超额梯度扣分
// 只告警不设硬上限
type WorkloadConstraint struct {
	BaseConstraint
}

// NewWorkloadConstraint 创建工作量约束
func NewWorkloadConstraint() *WorkloadConstraint {
	return &WorkloadConstraint{
		BaseConstraint: NewBaseConstraint("当日工作量", constraint.TypeWorkload),
	}
}

// Check 当日已有工单数 ≥6 时扣 5×(数量−5) 分
func (c *WorkloadConstraint) Check(ctx *constraint.Context) []constraint.Violation {
	count := len(ctx.ExistingJobs)
	if count < workloadWarnThreshold {
		return nil
	}
	return []constraint.Violation{{
		Type:      constraint.TypeWorkload,
		Severity:  constraint.SeverityWarning,
		Deduction: float64(workloadUnitDeduction * (count - workloadWarnThreshold + 1)),
		Message:   fmt.Sprintf("技师 %s 当日已有 %d 个工单", ctx.Worker.Name, count),
	}}
}
