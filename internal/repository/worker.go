// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/paidan/paidan/pkg/model"
)

// workerColumns 技师表的查询列，与 scanWorker 的扫描顺序一致
const workerColumns = `id, name, phone, skills, certifications, working_hours,
	home_location, max_jobs_per_day, status, created_at, updated_at`

// WorkerRepository 技师仓储
type WorkerRepository struct {
	db DB
}

// NewWorkerRepository 创建技师仓储
func NewWorkerRepository(db DB) *WorkerRepository {
	return &WorkerRepository{db: db}
}

// Create 创建技师
func (r *WorkerRepository) Create(ctx context.Context, worker *model.Worker) error {
	if worker.ID == uuid.Nil {
		worker.ID = uuid.New()
	}
	now := time.Now()
	worker.CreatedAt = now
	worker.UpdatedAt = now
	if worker.Status == "" {
		worker.Status = model.WorkerStatusActive
	}

	certsJSON, _ := json.Marshal(worker.Certifications)
	hoursJSON, _ := json.Marshal(worker.WorkingHours)
	locJSON, _ := json.Marshal(worker.HomeLocation)

	query := fmt.Sprintf(`
		INSERT INTO workers (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, workerColumns)

	_, err := r.db.ExecContext(ctx, query,
		worker.ID, worker.Name, worker.Phone, pq.Array(worker.Skills),
		certsJSON, hoursJSON, locJSON, worker.MaxJobsPerDay, worker.Status,
		worker.CreatedAt, worker.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建技师失败: %w", err)
	}
	return nil
}

// GetByID 根据ID获取技师，不存在时返回 nil
func (r *WorkerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Worker, error) {
	query := fmt.Sprintf(`SELECT %s FROM workers WHERE id = $1 AND deleted_at IS NULL`, workerColumns)
	worker, err := r.scanWorker(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return worker, err
}

// Update 更新技师
func (r *WorkerRepository) Update(ctx context.Context, worker *model.Worker) error {
	worker.UpdatedAt = time.Now()

	certsJSON, _ := json.Marshal(worker.Certifications)
	hoursJSON, _ := json.Marshal(worker.WorkingHours)
	locJSON, _ := json.Marshal(worker.HomeLocation)

	query := `
		UPDATE workers SET
			name = $2, phone = $3, skills = $4, certifications = $5,
			working_hours = $6, home_location = $7, max_jobs_per_day = $8,
			status = $9, updated_at = $10
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		worker.ID, worker.Name, worker.Phone, pq.Array(worker.Skills),
		certsJSON, hoursJSON, locJSON, worker.MaxJobsPerDay, worker.Status,
		worker.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新技师失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("技师不存在")
	}
	return nil
}

// Delete 软删除技师
func (r *WorkerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE workers SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除技师失败: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("技师不存在")
	}
	return nil
}

// GetWorkers 获取技师列表，activeOnly 为真时只返回在岗技师
func (r *WorkerRepository) GetWorkers(ctx context.Context, activeOnly bool) ([]*model.Worker, error) {
	query := fmt.Sprintf(`SELECT %s FROM workers WHERE deleted_at IS NULL`, workerColumns)
	var args []interface{}
	if activeOnly {
		query += ` AND status = $1`
		args = append(args, model.WorkerStatusActive)
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询技师失败: %w", err)
	}
	defer rows.Close()

	var workers []*model.Worker
	for rows.Next() {
		worker, err := r.scanWorker(rows)
		if err != nil {
			return nil, err
		}
		workers = append(workers, worker)
	}
	return workers, rows.Err()
}

// CheckAvailability 检查技师在指定日期的时间段是否可用：
// 当天在岗、时间段落在工作时间内、且与已排工单无重叠。
func (r *WorkerRepository) CheckAvailability(ctx context.Context, worker *model.Worker, date string, startMinute, endMinute int) (bool, error) {
	if _, err := model.ParseDate(date); err != nil {
		return false, fmt.Errorf("日期格式无效: %w", err)
	}
	if !worker.IsActive() {
		return false, nil
	}

	hours := worker.HoursFor(date)
	if hours == nil {
		return false, nil
	}
	if startMinute < hours.StartMinute() || endMinute > hours.EndMinute() {
		return false, nil
	}

	query := `
		SELECT COUNT(*) FROM jobs
		WHERE deleted_at IS NULL
			AND assigned_worker_id = $1
			AND date <= $2 AND COALESCE(end_date, date) >= $2
			AND status NOT IN ('cancelled', 'completed')
			AND start_time IS NOT NULL AND end_time IS NOT NULL
			AND start_time < $4 AND end_time > $3
	`
	var overlapping int
	err := r.db.QueryRowContext(ctx, query,
		worker.ID, date,
		model.ClockOfMinute(startMinute), model.ClockOfMinute(endMinute),
	).Scan(&overlapping)
	if err != nil {
		return false, fmt.Errorf("查询占用时段失败: %w", err)
	}

	return overlapping == 0, nil
}

// scanWorker 扫描单行技师数据
func (r *WorkerRepository) scanWorker(row Scanner) (*model.Worker, error) {
	worker := &model.Worker{}
	var certsJSON, hoursJSON, locJSON []byte

	err := row.Scan(
		&worker.ID, &worker.Name, &worker.Phone, pq.Array(&worker.Skills),
		&certsJSON, &hoursJSON, &locJSON, &worker.MaxJobsPerDay, &worker.Status,
		&worker.CreatedAt, &worker.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("扫描技师数据失败: %w", err)
	}

	if len(certsJSON) > 0 {
		json.Unmarshal(certsJSON, &worker.Certifications)
	}
	if len(hoursJSON) > 0 {
		json.Unmarshal(hoursJSON, &worker.WorkingHours)
	}
	if len(locJSON) > 0 {
		json.Unmarshal(locJSON, &worker.HomeLocation)
	}

	return worker, nil
}
