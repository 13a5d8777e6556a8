package database

import (
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Metrics tracks query counts, latencies, and errors for the connection
// pool.
type Metrics struct {
	db     *sql.DB
	logger *zap.Logger

	mu            sync.RWMutex
	totalQueries  int64
	failedQueries int64
	slowQueries   int64
	totalLatency  time.Duration
	byType        map[string]int64
	startTime     time.Time
	stopCh        chan struct{}
	stopOnce      sync.Once
}

// MetricsSnapshot is a point-in-time copy of the collected metrics.
type MetricsSnapshot struct {
	TotalQueries   int64            `json:"total_queries"`
	FailedQueries  int64            `json:"failed_queries"`
	SlowQueries    int64            `json:"slow_queries"`
	AverageLatency time.Duration    `json:"average_latency"`
	QueriesByType  map[string]int64 `json:"queries_by_type"`
	OpenConns      int              `json:"open_connections"`
	InUseConns     int              `json:"in_use_connections"`
	IdleConns      int              `json:"idle_connections"`
	WaitCount      int64            `json:"wait_count"`
	Uptime         time.Duration    `json:"uptime"`
}

// NewMetrics creates a new metrics collector.
func NewMetrics(db *sql.DB, logger *zap.Logger) *Metrics {
	return &Metrics{
		db:        db,
		logger:    logger,
		byType:    make(map[string]int64),
		startTime: time.Now(),
		stopCh:    make(chan struct{}),
	}
}

// RecordQuery records one query execution.
func (m *Metrics) RecordQuery(queryType string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalQueries++
	m.totalLatency += duration
	m.byType[queryType]++

	if err != nil {
		m.failedQueries++
	}
	if duration > 100*time.Millisecond {
		m.slowQueries++
	}
}

// Snapshot returns a copy of the current metrics plus live pool stats.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byType := make(map[string]int64, len(m.byType))
	for k, v := range m.byType {
		byType[k] = v
	}

	var avg time.Duration
	if m.totalQueries > 0 {
		avg = m.totalLatency / time.Duration(m.totalQueries)
	}

	stats := m.db.Stats()
	return &MetricsSnapshot{
		TotalQueries:   m.totalQueries,
		FailedQueries:  m.failedQueries,
		SlowQueries:    m.slowQueries,
		AverageLatency: avg,
		QueriesByType:  byType,
		OpenConns:      stats.OpenConnections,
		InUseConns:     stats.InUse,
		IdleConns:      stats.Idle,
		WaitCount:      stats.WaitCount,
		Uptime:         time.Since(m.startTime),
	}
}

// Stop shuts down the collector.
func (m *Metrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

// Reset clears all counters.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalQueries = 0
	m.failedQueries = 0
	m.slowQueries = 0
	m.totalLatency = 0
	m.byType = make(map[string]int64)
	m.startTime = time.Now()
}
