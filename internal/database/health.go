package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// HealthStatus describes the outcome of one database health check.
type HealthStatus struct {
	Status     string            `json:"status"` // healthy, degraded, unhealthy
	Timestamp  time.Time         `json:"timestamp"`
	Latency    time.Duration     `json:"latency"`
	Checks     map[string]string `json:"checks"`
	OpenConns  int               `json:"open_connections"`
	InUseConns int               `json:"in_use_connections"`
	Issues     []string          `json:"issues,omitempty"`
}

// HealthChecker runs connectivity and pool checks against the manager.
type HealthChecker struct {
	manager *Manager
	logger  *zap.Logger
}

// NewHealthChecker creates a new health checker.
func NewHealthChecker(manager *Manager, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		manager: manager,
		logger:  logger,
	}
}

// Check runs all health checks and aggregates an overall status.
func (hc *HealthChecker) Check(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	start := time.Now()
	if err := hc.checkConnectivity(ctx); err != nil {
		status.Checks["connectivity"] = "failed"
		status.Issues = append(status.Issues, err.Error())
	} else {
		status.Checks["connectivity"] = "ok"
	}
	status.Latency = time.Since(start)

	stats := hc.manager.Stats()
	status.OpenConns = stats.OpenConnections
	status.InUseConns = stats.InUse
	if stats.MaxOpenConnections > 0 &&
		stats.OpenConnections >= stats.MaxOpenConnections {
		status.Checks["connection_pool"] = "saturated"
		status.Issues = append(status.Issues, "connection pool saturated")
	} else {
		status.Checks["connection_pool"] = "ok"
	}

	status.Status = hc.determineOverallStatus(status)
	if status.Status != "healthy" {
		hc.logger.Warn("Database health degraded",
			zap.String("status", status.Status),
			zap.Strings("issues", status.Issues),
		)
	}

	return status
}

func (hc *HealthChecker) checkConnectivity(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := hc.manager.HealthCheck(checkCtx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var result int
	row := hc.manager.QueryRowContext(checkCtx, "SELECT 1")
	if err := row.Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	return nil
}

func (hc *HealthChecker) determineOverallStatus(status *HealthStatus) string {
	if status.Checks["connectivity"] != "ok" {
		return "unhealthy"
	}
	if len(status.Issues) > 0 {
		return "degraded"
	}
	return "healthy"
}

// IsHealthy reports whether the last check would pass right now.
func (hc *HealthChecker) IsHealthy(ctx context.Context) bool {
	return hc.Check(ctx).Status == "healthy"
}

// WaitForHealthy polls until the database reports healthy or the timeout
// elapses.
func (hc *HealthChecker) WaitForHealthy(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		if hc.Check(ctx).Status == "healthy" {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("database did not become healthy within %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
