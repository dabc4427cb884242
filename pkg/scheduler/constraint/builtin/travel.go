package builtin

import (
	"context"
	"fmt"

	"github.com/paidan/paidan/pkg/scheduler/constraint"
)

// 行驶不可达时的扣分
const travelInfeasibleDeduction = 15

// TravelConstraint 从上一站赶到候选时段的行驶时间必须不超过空档
// 超出只告警不阻断，估算出的行驶时间回填到工单供展示
type TravelConstraint struct {
	BaseConstraint
}

// NewTravelConstraint 创建行驶可达性约束
func NewTravelConstraint() *TravelConstraint {
	return &TravelConstraint{
		BaseConstraint: NewBaseConstraint("行驶可达性", constraint.TypeTravelFeasibility),
	}
}

// Check 估算上一站到本站的行驶时间并与空档比较
func (c *TravelConstraint) Check(ctx *constraint.Context) []constraint.Violation {
	if ctx.Estimator == nil {
		return nil
	}
	prev := ctx.PreviousJob()
	if prev == nil {
		return nil
	}

	est := ctx.Estimator.Estimate(context.Background(), prev.Location, ctx.Job.Location, ctx.EffectiveNow())
	ctx.Job.TravelTimeFromPrevious = est.DurationMinutes

	gap := ctx.Slot.StartMinute - prev.EndMinute()
	if est.DurationMinutes > gap {
		return []constraint.Violation{{
			Type:      constraint.TypeTravelFeasibility,
			Severity:  constraint.SeverityWarning,
			Deduction: travelInfeasibleDeduction,
			JobID:     prev.ID,
			Message: fmt.Sprintf("从上一站 %q 赶来需 %d 分钟，但空档只有 %d 分钟",
				prev.Title, est.DurationMinutes, gap),
		}}
	}
	return nil
}
