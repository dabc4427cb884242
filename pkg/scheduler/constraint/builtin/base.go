// Package builtin 提供内置的派单约束
package builtin

import (
	"github.com/paidan/paidan/pkg/scheduler/constraint"
)

// BaseConstraint 约束基础实现，供具体约束嵌入
type BaseConstraint struct {
	name  string
	ctype constraint.Type
}

// NewBaseConstraint 创建约束基础实现
func NewBaseConstraint(name string, ctype constraint.Type) BaseConstraint {
	return BaseConstraint{name: name, ctype: ctype}
}

// Name 返回约束名称
func (b *BaseConstraint) Name() string {
	return b.name
}

// Type 返回约束类型
func (b *BaseConstraint) Type() constraint.Type {
	return b.ctype
}
