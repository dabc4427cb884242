// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/paidan/paidan/pkg/model"
)

// jobColumns 工单表的查询列，与 scanJob 的扫描顺序一致
const jobColumns = `id, title, description, customer_name, address, location,
	duration_minutes, urgency, time_window, scheduled_at, day_preference,
	skills, certifications, required_parts, sla_deadline, status,
	assigned_worker_id, date, end_date, start_time, end_time, created_at, updated_at`

// JobRepository 工单仓储
type JobRepository struct {
	db DB
}

// NewJobRepository 创建工单仓储
func NewJobRepository(db DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create 创建工单
func (r *JobRepository) Create(ctx context.Context, job *model.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = model.JobStatusUnscheduled
	}

	locJSON, _ := json.Marshal(job.Location)
	windowJSON, _ := json.Marshal(job.Window)

	query := fmt.Sprintf(`
		INSERT INTO jobs (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`, jobColumns)

	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.Title, job.Description, job.CustomerName, job.Address, locJSON,
		job.DurationMinutes, job.Urgency, windowJSON, job.ScheduledAt, job.DayPreference,
		pq.Array(job.Skills), pq.Array(job.Certifications), pq.Array(job.RequiredParts),
		nullString(job.SLADeadline), job.Status,
		job.AssignedWorkerID, nullString(job.Date), nullString(job.EndDate),
		nullString(job.StartTime), nullString(job.EndTime), job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建工单失败: %w", err)
	}
	return nil
}

// GetByID 根据ID获取工单，不存在时返回 nil
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = $1 AND deleted_at IS NULL`, jobColumns)
	job, err := r.scanJob(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// Update 更新工单
func (r *JobRepository) Update(ctx context.Context, job *model.Job) error {
	job.UpdatedAt = time.Now()

	locJSON, _ := json.Marshal(job.Location)
	windowJSON, _ := json.Marshal(job.Window)

	query := `
		UPDATE jobs SET
			title = $2, description = $3, customer_name = $4, address = $5, location = $6,
			duration_minutes = $7, urgency = $8, time_window = $9, scheduled_at = $10,
			day_preference = $11, skills = $12, certifications = $13, required_parts = $14,
			sla_deadline = $15, status = $16, assigned_worker_id = $17,
			date = $18, end_date = $19, start_time = $20, end_time = $21, updated_at = $22
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		job.ID, job.Title, job.Description, job.CustomerName, job.Address, locJSON,
		job.DurationMinutes, job.Urgency, windowJSON, job.ScheduledAt,
		job.DayPreference, pq.Array(job.Skills), pq.Array(job.Certifications), pq.Array(job.RequiredParts),
		nullString(job.SLADeadline), job.Status, job.AssignedWorkerID,
		nullString(job.Date), nullString(job.EndDate), nullString(job.StartTime), nullString(job.EndTime),
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新工单失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("工单不存在")
	}
	return nil
}

// Delete 软删除工单
func (r *JobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除工单失败: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("工单不存在")
	}
	return nil
}

// GetJobsByDate 查询指定日期的工单，跨天工单按起止日期包含匹配
func (r *JobRepository) GetJobsByDate(ctx context.Context, date string, filter JobFilter) ([]*model.Job, error) {
	conditions := []string{
		"deleted_at IS NULL",
		"date <= $1",
		"COALESCE(end_date, date) >= $1",
	}
	args := []interface{}{date}
	argIndex := 2

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}
	if filter.Urgency != "" {
		conditions = append(conditions, fmt.Sprintf("urgency = $%d", argIndex))
		args = append(args, filter.Urgency)
		argIndex++
	}
	if filter.WorkerID != "" {
		conditions = append(conditions, fmt.Sprintf("assigned_worker_id = $%d", argIndex))
		args = append(args, filter.WorkerID)
		argIndex++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR customer_name ILIKE $%d OR address ILIKE $%d)", argIndex, argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	paging := ""
	if filter.Limit > 0 {
		paging = fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}
	if filter.Offset > 0 {
		paging += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT %s FROM jobs
		WHERE %s
		ORDER BY start_time NULLS LAST, created_at%s
	`, jobColumns, strings.Join(conditions, " AND "), paging)

	return r.queryJobs(ctx, query, args...)
}

// GetUnscheduledJobs 查询所有未排程的待处理工单，按紧急程度和创建时间排序
func (r *JobRepository) GetUnscheduledJobs(ctx context.Context) ([]*model.Job, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM jobs
		WHERE deleted_at IS NULL
			AND status = 'unscheduled'
			AND (assigned_worker_id IS NULL OR date IS NULL)
		ORDER BY
			CASE urgency
				WHEN 'emergency' THEN 0
				WHEN 'urgent' THEN 1
				WHEN 'standard' THEN 2
				ELSE 3
			END,
			created_at
	`, jobColumns)

	return r.queryJobs(ctx, query)
}

// ListByIDs 根据ID列表获取工单
func (r *JobRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = ANY($1) AND deleted_at IS NULL`, jobColumns)
	return r.queryJobs(ctx, query, pq.Array(ids))
}

// SaveAssignment 保存单个工单的排程结果
func (r *JobRepository) SaveAssignment(ctx context.Context, job *model.Job) error {
	query := `
		UPDATE jobs SET
			assigned_worker_id = $2, date = $3, end_date = $4,
			start_time = $5, end_time = $6, status = $7, updated_at = $8
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		job.ID, job.AssignedWorkerID, nullString(job.Date), nullString(job.EndDate),
		nullString(job.StartTime), nullString(job.EndTime), model.JobStatusAssigned, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("保存排程结果失败: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("工单不存在")
	}
	return nil
}

// SavePlan 在单个事务里保存整个派单方案的排程结果
func (r *JobRepository) SavePlan(ctx context.Context, tx Tx, jobs []*model.Job) error {
	repo := &JobRepository{db: tx}
	for _, job := range jobs {
		if err := repo.SaveAssignment(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

// ClearAssignment 撤销排程，工单回到待处理状态
func (r *JobRepository) ClearAssignment(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE jobs SET
			assigned_worker_id = NULL, date = NULL, end_date = NULL,
			start_time = NULL, end_time = NULL, status = 'unscheduled', updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("撤销排程失败: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("工单不存在")
	}
	return nil
}

func (r *JobRepository) queryJobs(ctx context.Context, query string, args ...interface{}) ([]*model.Job, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询工单失败: %w", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, err := r.scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// scanJob 扫描单行工单数据
func (r *JobRepository) scanJob(row Scanner) (*model.Job, error) {
	job := &model.Job{}
	var locJSON, windowJSON []byte
	var slaDeadline, date, endDate, startTime, endTime sql.NullString

	err := row.Scan(
		&job.ID, &job.Title, &job.Description, &job.CustomerName, &job.Address, &locJSON,
		&job.DurationMinutes, &job.Urgency, &windowJSON, &job.ScheduledAt, &job.DayPreference,
		pq.Array(&job.Skills), pq.Array(&job.Certifications), pq.Array(&job.RequiredParts),
		&slaDeadline, &job.Status,
		&job.AssignedWorkerID, &date, &endDate, &startTime, &endTime,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("扫描工单数据失败: %w", err)
	}

	if len(locJSON) > 0 {
		json.Unmarshal(locJSON, &job.Location)
	}
	if len(windowJSON) > 0 {
		json.Unmarshal(windowJSON, &job.Window)
	}
	job.SLADeadline = slaDeadline.String
	job.Date = date.String
	job.EndDate = endDate.String
	job.StartTime = startTime.String
	job.EndTime = endTime.String

	return job, nil
}

// nullString 空串转 NULL
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
