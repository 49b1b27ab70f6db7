package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"webui-dashboard-api/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDatabase_ReusesUntilConfigChanges(t *testing.T) {
	t.Cleanup(func() { _ = ClosePool() })
	ctx := context.Background()
	log := logger.Nop()

	cfg := DatabaseConfig{UseLocalDB: true}
	first, err := GetDatabase(ctx, cfg, log)
	require.NoError(t, err)
	again, err := GetDatabase(ctx, cfg, log)
	require.NoError(t, err)
	assert.Same(t, first, again)

	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"chats": []}`), 0o600))
	changed, err := GetDatabase(ctx, DatabaseConfig{UseLocalDB: true, LocalDBPath: path}, log)
	require.NoError(t, err)
	assert.NotSame(t, first, changed)

	require.NoError(t, ClosePool())
	reopened, err := GetDatabase(ctx, DatabaseConfig{UseLocalDB: true, LocalDBPath: path}, log)
	require.NoError(t, err)
	assert.NotSame(t, changed, reopened)
}

func TestGetDatabase_NoBackend(t *testing.T) {
	t.Cleanup(func() { _ = ClosePool() })

	_, err := GetDatabase(context.Background(), DatabaseConfig{}, logger.Nop())
	assert.Error(t, err)
}

// stubStore is a cached store whose health and closing can be observed.
type stubStore struct {
	*LocalDatabase
	health func(ctx context.Context) error
	closed atomic.Bool
}

func (s *stubStore) HealthCheck(ctx context.Context) error {
	if s.health != nil {
		return s.health(ctx)
	}
	return nil
}

func (s *stubStore) Close() error {
	s.closed.Store(true)
	return nil
}

func installPool(t *testing.T, instance DatabaseInterface, cfg DatabaseConfig, lastUsed time.Time) {
	t.Helper()
	poolMutex.Lock()
	globalPool = &DatabasePool{instance: instance, config: cfg, lastUsed: lastUsed}
	poolMutex.Unlock()
	t.Cleanup(func() {
		poolMutex.Lock()
		globalPool = nil
		poolMutex.Unlock()
	})
}

func TestGetDatabase_LocalStoreSurvivesIdleAndCancelledContext(t *testing.T) {
	cfg := DatabaseConfig{UseLocalDB: true}
	local := NewLocalDatabase(Dataset{})
	installPool(t, local, cfg, time.Now().Add(-2*maxIdle))

	got, err := GetDatabase(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	assert.Same(t, local, got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err = GetDatabase(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	assert.Same(t, local, got)
}

func TestGetDatabase_ReplacedStoreIsClosedLater(t *testing.T) {
	grace := retireGrace
	t.Cleanup(func() { retireGrace = grace })

	stale := &stubStore{
		LocalDatabase: NewLocalDatabase(Dataset{}),
		health:        func(context.Context) error { return errors.New("connection refused") },
	}
	cfg := DatabaseConfig{PostgresDSN: "postgres://stale"}
	installPool(t, stale, cfg, time.Now())

	retireGrace = time.Hour
	fresh, err := GetDatabase(context.Background(), DatabaseConfig{UseLocalDB: true}, logger.Nop())
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh)
	assert.False(t, stale.closed.Load())

	retiring := &stubStore{LocalDatabase: NewLocalDatabase(Dataset{})}
	installPool(t, retiring, cfg, time.Now())
	retireGrace = 0
	_, err = GetDatabase(context.Background(), DatabaseConfig{UseLocalDB: true}, logger.Nop())
	require.NoError(t, err)
	assert.Eventually(t, retiring.closed.Load, time.Second, 5*time.Millisecond)
}

func TestGetDatabase_HealthCheckDoesNotHoldPoolLock(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	slow := &stubStore{
		LocalDatabase: NewLocalDatabase(Dataset{}),
		health: func(context.Context) error {
			close(entered)
			<-release
			return nil
		},
	}
	cfg := DatabaseConfig{PostgresDSN: "postgres://slow"}
	installPool(t, slow, cfg, time.Now())

	done := make(chan DatabaseInterface, 1)
	go func() {
		db, _ := GetDatabase(context.Background(), cfg, logger.Nop())
		done <- db
	}()
	<-entered

	locked := make(chan struct{})
	go func() {
		poolMutex.Lock()
		poolMutex.Unlock()
		close(locked)
	}()
	select {
	case <-locked:
	case <-time.After(time.Second):
		close(release)
		t.Fatal("pool lock held while the health check runs")
	}

	close(release)
	assert.Same(t, slow, <-done)
}
