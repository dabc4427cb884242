package traveltime

import (
	"context"
	"time"

	"github.com/paidan/paidan/pkg/model"
)

// Matrix 预计算好的站点间行驶时间矩阵
// 键为坐标字符串（4位小数），调用方可以传入外部算好的矩阵避免重复查询
type Matrix struct {
	cells map[string]map[string]Estimate
}

// NewMatrix 创建空矩阵
func NewMatrix() *Matrix {
	return &Matrix{cells: make(map[string]map[string]Estimate)}
}

// Set 写入一对站点的估算值
func (m *Matrix) Set(from, to model.Location, est Estimate) {
	fk := from.Key()
	if m.cells[fk] == nil {
		m.cells[fk] = make(map[string]Estimate)
	}
	m.cells[fk][to.Key()] = est
}

// Lookup 查询一对站点的估算值
func (m *Matrix) Lookup(from, to model.Location) (Estimate, bool) {
	if m == nil {
		return Estimate{}, false
	}
	row, ok := m.cells[from.Key()]
	if !ok {
		return Estimate{}, false
	}
	est, ok := row[to.Key()]
	return est, ok
}

// Size 返回矩阵中的元素个数
func (m *Matrix) Size() int {
	n := 0
	for _, row := range m.cells {
		n += len(row)
	}
	return n
}

// BuildMatrix 为一组站点预计算全对全的行驶时间矩阵
// 每次优化调用前构建一次，优化过程内只做查表
func (e *Estimator) BuildMatrix(ctx context.Context, locations []*model.Location, departureTime time.Time) *Matrix {
	m := NewMatrix()
	for i, from := range locations {
		if !from.HasCoordinates() {
			continue
		}
		for j, to := range locations {
			if i == j || !to.HasCoordinates() {
				continue
			}
			if _, ok := m.Lookup(*from, *to); ok {
				continue
			}
			m.Set(*from, *to, e.Estimate(ctx, from, to, departureTime))
		}
	}
	return m
}
