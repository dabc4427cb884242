package constraint

import (
	"github.com/paidan/paidan/internal/metrics"
	"github.com/paidan/paidan/pkg/logger"
)

// 评估初始分与单项阻断扣分
const (
	initialScore      = 100.0
	blockingDeduction = 100.0
)

// Evaluator 按注册顺序执行约束检查并汇总评分
type Evaluator struct {
	constraints []Constraint
	log         *logger.OptimizerLogger
}

// NewEvaluator 创建空评估器
func NewEvaluator() *Evaluator {
	return &Evaluator{
		constraints: make([]Constraint, 0),
		log:         logger.NewOptimizerLogger(),
	}
}

// Register 注册约束，检查按注册顺序执行
func (e *Evaluator) Register(c Constraint) {
	e.constraints = append(e.constraints, c)
}

// Constraints 返回已注册的约束列表
func (e *Evaluator) Constraints() []Constraint {
	return e.constraints
}

// Evaluate 评估一次候选排程
// 评分从 100 起算：阻断性违反直接清零，告警按各自扣分值累减，最终钳制到 [0, 100]
// 只要存在任何阻断性违反，无论数值得分如何 CanSchedule 都为 false
func (e *Evaluator) Evaluate(ctx *Context) *Result {
	result := &Result{CanSchedule: true, Score: initialScore}

	for _, c := range e.constraints {
		violations := c.Check(ctx)
		metrics.RecordConstraintEvaluation(string(c.Type()), len(violations) == 0)
		for _, v := range violations {
			switch v.Severity {
			case SeverityBlocking:
				result.CanSchedule = false
				result.Score -= blockingDeduction
				result.Violations = append(result.Violations, v)
				e.log.ConstraintViolation(c.Name(), v.Message)
			case SeverityWarning:
				result.Score -= v.Deduction
				result.Warnings = append(result.Warnings, v)
			default:
				result.Warnings = append(result.Warnings, v)
			}
		}
	}

	if result.Score < 0 {
		result.Score = 0
	}
	return result
}
