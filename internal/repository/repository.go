// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
)

// DB 数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tx 事务接口
type Tx interface {
	DB
	Commit() error
	Rollback() error
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}

// JobFilter 工单查询过滤器
type JobFilter struct {
	Status   string `json:"status,omitempty"`
	Urgency  string `json:"urgency,omitempty"`
	WorkerID string `json:"worker_id,omitempty"`
	Search   string `json:"search,omitempty"`
	Offset   int    `json:"offset"`
	Limit    int    `json:"limit"`
}

// DefaultJobFilter 返回默认过滤器
func DefaultJobFilter() JobFilter {
	return JobFilter{Limit: 200}
}

// WithStatus 设置状态过滤
func (f JobFilter) WithStatus(status string) JobFilter {
	f.Status = status
	return f
}

// WithUrgency 设置紧急程度过滤
func (f JobFilter) WithUrgency(urgency string) JobFilter {
	f.Urgency = urgency
	return f
}

// WithWorker 设置技师过滤
func (f JobFilter) WithWorker(workerID string) JobFilter {
	f.WorkerID = workerID
	return f
}
