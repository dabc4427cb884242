package builtin

import (
	"github.com/paidan/paidan/pkg/scheduler/constraint"
)

// RegisterDefaults 按固定顺序注册全部内置约束
// 顺序即检查顺序：先阻断性检查，再告警性检查，最后提示
func RegisterDefaults(e *constraint.Evaluator) {
	e.Register(NewAvailabilityConstraint())
	e.Register(NewSkillConstraint())
	e.Register(NewCertificationConstraint())
	e.Register(NewConflictConstraint())
	e.Register(NewTravelConstraint())
	e.Register(NewSLAConstraint())
	e.Register(NewWorkloadConstraint())
	e.Register(NewPartsConstraint())
}

// NewDefaultEvaluator 创建带全部内置约束的评估器
func NewDefaultEvaluator() *constraint.Evaluator {
	e := constraint.NewEvaluator()
	RegisterDefaults(e)
	return e
}
