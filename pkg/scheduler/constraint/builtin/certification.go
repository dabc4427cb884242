package builtin

import (
	"fmt"

	"github.com/paidan/paidan/pkg/scheduler/constraint"
)

// CertificationConstraint 工单要求的证书必须持有且在有效期内
// 缺失和过期是两种独立的阻断性违反
type CertificationConstraint struct {
	BaseConstraint
}

// NewCertificationConstraint 创建证书约束
func NewCertificationConstraint() *CertificationConstraint {
	return &CertificationConstraint{
		BaseConstraint: NewBaseConstraint("证书要求", constraint.TypeCertification),
	}
}

// Check 逐项检查工单要求的证书
func (c *CertificationConstraint) Check(ctx *constraint.Context) []constraint.Violation {
	now := ctx.EffectiveNow()
	var violations []constraint.Violation
	for _, name := range ctx.Job.Certifications {
		cert := ctx.Worker.CertificationFor(name)
		if cert == nil {
			violations = append(violations, constraint.Violation{
				Type:     constraint.TypeCertification,
				Severity: constraint.SeverityBlocking,
				Message:  fmt.Sprintf("技师 %s 未持有证书 %s", ctx.Worker.Name, name),
			})
			continue
		}
		if !cert.IsValidOn(now) {
			violations = append(violations, constraint.Violation{
				Type:     constraint.TypeCertificationExpired,
				Severity: constraint.SeverityBlocking,
				Message:  fmt.Sprintf("技师 %s 的证书 %s 已于 %s 过期", ctx.Worker.Name, name, cert.ExpiresAt),
			})
		}
	}
	return violations
}
