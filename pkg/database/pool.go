package database

import (
	"context"
	"sync"
	"time"

	"webui-dashboard-api/pkg/logger"
)

// DatabasePool 数据库连接池
type DatabasePool struct {
	instance DatabaseInterface
	config   DatabaseConfig
	mu       sync.RWMutex
	lastUsed time.Time
}

func (p *DatabasePool) touch() {
	p.mu.Lock()
	p.lastUsed = time.Now()
	p.mu.Unlock()
}

// maxIdle is how long an unused Postgres store is kept before it is reopened.
const maxIdle = 30 * time.Minute

// retireGrace is how long a replaced store stays open for requests that
// already hold it.
var retireGrace = 2 * time.Minute

var (
	globalPool *DatabasePool
	poolMutex  sync.Mutex
)

// GetDatabase returns the cached store, opening a new one when none is
// usable for config.
//
// The health check of the cached store runs without holding the pool lock;
// the lock only guards swapping in a new store.
func GetDatabase(ctx context.Context, config DatabaseConfig, log *logger.Logger) (DatabaseInterface, error) {
	poolMutex.Lock()
	current := globalPool
	poolMutex.Unlock()

	if current != nil && !shouldRecreateConnection(ctx, current, config, log) {
		current.touch()
		log.Debug("Reusing existing database connection")
		return current.instance, nil
	}

	poolMutex.Lock()
	defer poolMutex.Unlock()

	// 其他请求可能已经完成了重建
	if globalPool != nil && globalPool != current && globalPool.config == config {
		globalPool.touch()
		return globalPool.instance, nil
	}

	log.Info("Creating new database connection pool")
	instance, err := NewDatabase(ctx, config)
	if err != nil {
		return nil, err
	}
	if globalPool != nil && globalPool.instance != nil {
		retire(globalPool.instance, log)
	}
	globalPool = &DatabasePool{
		instance: instance,
		config:   config,
		lastUsed: time.Now(),
	}
	return instance, nil
}

// retire closes a replaced store once in-flight requests had time to finish.
func retire(instance DatabaseInterface, log *logger.Logger) {
	time.AfterFunc(retireGrace, func() {
		if err := instance.Close(); err != nil {
			log.Warn("Failed to close retired database", "error", err)
		}
	})
}

// shouldRecreateConnection 判断是否需要重新创建连接
func shouldRecreateConnection(ctx context.Context, pool *DatabasePool, newConfig DatabaseConfig, log *logger.Logger) bool {
	if pool == nil || pool.instance == nil {
		return true
	}

	if pool.config != newConfig {
		log.Info("Database configuration changed, recreating connection")
		return true
	}

	// 本地数据库保存着已创建的包请求，不能因空闲而丢弃
	if newConfig.UseLocalDB {
		return false
	}

	pool.mu.RLock()
	expired := time.Since(pool.lastUsed) > maxIdle
	pool.mu.RUnlock()
	if expired {
		log.Info("Database connection expired, recreating")
		return true
	}

	if err := pool.instance.HealthCheck(ctx); err != nil {
		log.Warn("Database health check failed, recreating", "error", err)
		return true
	}

	return false
}

// ClosePool releases the cached store, if any.
func ClosePool() error {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return nil
	}
	err := globalPool.instance.Close()
	globalPool = nil
	return err
}
