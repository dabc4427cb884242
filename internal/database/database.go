// Package database 封装派单服务的 PostgreSQL 访问
//
// 除连接池管理外还负责慢查询告警和连接池指标上报，
// 仓储层通过 repository.DB 接口使用这里的封装。
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paidan/paidan/internal/config"
	"github.com/paidan/paidan/internal/metrics"
	"github.com/paidan/paidan/pkg/logger"

	_ "github.com/lib/pq" // PostgreSQL 驱动
)

// pingTimeout 建连探活的超时时间
const pingTimeout = 5 * time.Second

// DB 数据库连接封装
type DB struct {
	*sql.DB
	cfg       *config.DatabaseConfig
	slowQuery time.Duration
}

// New 建立连接池并探活，失败时不保留半开连接
func New(cfg *config.DatabaseConfig) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	slowQuery := cfg.SlowQueryThreshold
	if slowQuery <= 0 {
		slowQuery = 100 * time.Millisecond
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("数据库连接成功")

	return &DB{DB: db, cfg: cfg, slowQuery: slowQuery}, nil
}

// Close 关闭数据库连接
func (db *DB) Close() error {
	if db.DB != nil {
		logger.Info().Msg("关闭数据库连接")
		return db.DB.Close()
	}
	return nil
}

// Health 健康检查
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// ReportPoolStats 按固定间隔把连接池状态写入监控指标
// 阻塞运行直到 ctx 取消，调用方在独立 goroutine 中启动
func (db *DB) ReportPoolStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := db.DB.Stats()
			metrics.SetDBConnections(s.OpenConnections, s.InUse, s.Idle)
		}
	}
}

// Transaction 在单个事务中执行 fn，出错或 panic 时回滚
func (db *DB) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("事务回滚失败: %v (原始错误: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("事务提交失败: %w", err)
	}

	return nil
}

// Stats 返回连接池统计信息
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// ExecContext 执行SQL语句，超过阈值时记录慢查询
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := db.DB.ExecContext(ctx, query, args...)
	db.warnSlow(query, time.Since(start))
	return result, err
}

// QueryContext 执行查询，超过阈值时记录慢查询
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.DB.QueryContext(ctx, query, args...)
	db.warnSlow(query, time.Since(start))
	return rows, err
}

// QueryRowContext 执行单行查询
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRowContext(ctx, query, args...)
}

func (db *DB) warnSlow(query string, duration time.Duration) {
	if duration <= db.slowQuery {
		return
	}
	logger.Warn().
		Str("query", truncateQuery(query)).
		Dur("duration", duration).
		Msg("慢SQL查询")
}

// truncateQuery 截断长查询
func truncateQuery(query string) string {
	if len(query) > 200 {
		return query[:200] + "..."
	}
	return query
}
