package database

import (
	"context"
	"errors"
	"fmt"

	"webui-dashboard-api/pkg/models"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("already exists")
)

// DatabaseInterface is the store behind every handler.
//
// Every method serves one request: implementations acquire a single store
// session for the duration of the call and release it before returning.
// Ordering of returned rows is not part of the contract; callers sort.
type DatabaseInterface interface {
	// Aggregates over chat/feedback/workspace/user/group records
	Overview(ctx context.Context) (*models.OverviewStats, error)
	// DailyStats buckets chats created in [start, end) epoch seconds by KST date.
	DailyStats(ctx context.Context, start, end int64) ([]models.DailyStat, error)
	ModelUsage(ctx context.Context) ([]models.ModelChatCount, []models.ModelResponseLength, error)
	WorkspaceRanking(ctx context.Context) ([]models.WorkspaceRanking, error)
	DeveloperRanking(ctx context.Context) ([]models.DeveloperRanking, error)
	GroupAggregates(ctx context.Context) ([]models.GroupAggregate, error)
	FeedbackSummary(ctx context.Context, recentLimit int) (*models.FeedbackSummary, error)
	RecentChats(ctx context.Context, limit int) ([]models.ChatRow, error)

	// Package requests
	ListPackages(ctx context.Context) ([]models.PackageRequest, error)
	CreatePackage(ctx context.Context, pkg *models.PackageRequest) error
	// DeletePackage removes the row after authorize accepts it; both happen
	// inside one transaction. A non-nil error from authorize aborts the delete.
	DeletePackage(ctx context.Context, id int64, authorize func(*models.PackageRequest) error) error
	UpdatePackageStatus(ctx context.Context, id int64, update models.PackageStatusUpdate) error

	// 健康检查
	HealthCheck(ctx context.Context) error

	// 关闭连接
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	UseLocalDB  bool
	LocalDBPath string
	PostgresDSN string
}

// NewDatabase 根据配置选择数据库实现
func NewDatabase(ctx context.Context, config DatabaseConfig) (DatabaseInterface, error) {
	if config.UseLocalDB {
		if config.LocalDBPath == "" {
			return NewLocalDatabase(Dataset{}), nil
		}
		db, err := LoadLocalDatabase(config.LocalDBPath)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	if config.PostgresDSN != "" {
		db, err := NewPostgresDatabase(ctx, config.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("no valid database configuration found: set POSTGRES_DSN or USE_LOCAL_DB")
}
