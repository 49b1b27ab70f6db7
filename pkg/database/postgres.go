package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"webui-dashboard-api/pkg/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// uniqueViolation is the SQLSTATE raised for unique constraint conflicts.
const uniqueViolation = "23505"

// PostgresDatabase PostgreSQL数据库实现
type PostgresDatabase struct {
	db *sqlx.DB
}

var _ DatabaseInterface = (*PostgresDatabase)(nil)

// NewPostgresDatabase 创建PostgreSQL数据库实例
func NewPostgresDatabase(ctx context.Context, dsn string) (*PostgresDatabase, error) {
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresDatabase{db: db}, nil
}

// withConn runs fn on one exclusive connection and always hands it back to
// the pool afterwards, whether fn succeeds or not.
func (db *PostgresDatabase) withConn(ctx context.Context, fn func(*sqlx.Conn) error) error {
	conn, err := db.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

// withTx runs fn inside a transaction on a scoped connection. The
// transaction is rolled back when fn fails and committed otherwise.
func (db *PostgresDatabase) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return db.withConn(ctx, func(conn *sqlx.Conn) error {
		tx, err := conn.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

// ================= Package requests =================

const packageColumns = `id, package_name, added_by, added_at, status, status_note, status_updated_by, status_updated_at`

func (db *PostgresDatabase) ListPackages(ctx context.Context) ([]models.PackageRequest, error) {
	var list []models.PackageRequest
	err := db.withConn(ctx, func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &list,
			`SELECT `+packageColumns+` FROM required_packages ORDER BY added_at DESC, id DESC`)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	for i := range list {
		normalizePackageTimes(&list[i])
	}
	return list, nil
}

func (db *PostgresDatabase) CreatePackage(ctx context.Context, pkg *models.PackageRequest) error {
	if pkg.Status == "" {
		pkg.Status = models.PackagePending
	}
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		return tx.QueryRowxContext(ctx, `
			INSERT INTO required_packages (package_name, added_by, added_at, status)
			VALUES ($1, $2, NOW(), $3)
			RETURNING id, added_at
		`, pkg.PackageName, pkg.AddedBy, string(pkg.Status)).Scan(&pkg.ID, &pkg.AddedAt)
	})
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("package %q: %w", pkg.PackageName, ErrDuplicate)
		}
		return fmt.Errorf("failed to create package: %w", err)
	}
	normalizePackageTimes(pkg)
	return nil
}

func (db *PostgresDatabase) DeletePackage(ctx context.Context, id int64, authorize func(*models.PackageRequest) error) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		var pkg models.PackageRequest
		err := tx.GetContext(ctx, &pkg,
			`SELECT `+packageColumns+` FROM required_packages WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("package %d: %w", id, ErrNotFound)
			}
			return fmt.Errorf("failed to get package: %w", err)
		}
		if authorize != nil {
			if err := authorize(&pkg); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM required_packages WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete package: %w", err)
		}
		return nil
	})
}

func (db *PostgresDatabase) UpdatePackageStatus(ctx context.Context, id int64, update models.PackageStatusUpdate) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE required_packages
			SET status = $1, status_note = $2, status_updated_by = $3, status_updated_at = NOW()
			WHERE id = $4
		`, string(update.Status), update.Note, update.UpdatedBy, id)
		if err != nil {
			return fmt.Errorf("failed to update package status: %w", err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return fmt.Errorf("package %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

func normalizePackageTimes(pkg *models.PackageRequest) {
	pkg.AddedAt = pkg.AddedAt.In(models.KST)
	if pkg.StatusUpdatedAt != nil {
		t := pkg.StatusUpdatedAt.In(models.KST)
		pkg.StatusUpdatedAt = &t
	}
}

// HealthCheck 健康检查
func (db *PostgresDatabase) HealthCheck(ctx context.Context) error {
	return db.withConn(ctx, func(conn *sqlx.Conn) error {
		var one int
		return conn.GetContext(ctx, &one, `SELECT 1`)
	})
}

// Close 关闭连接
func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}
