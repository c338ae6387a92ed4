package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// AuditRetention is how long audit logs are kept
const AuditRetention = 180 * 24 * time.Hour

// RevokedTokenRetention is how long revoked refresh tokens are kept
const RevokedTokenRetention = 7 * 24 * time.Hour

// TokenPurger removes stale refresh tokens
type TokenPurger interface {
	CleanupExpired(ctx context.Context) (int64, error)
	CleanupRevoked(ctx context.Context, olderThan time.Duration) (int64, error)
}

// RateLimitPurger removes expired login attempt records
type RateLimitPurger interface {
	CleanupExpiredRateLimits(ctx context.Context) (int64, error)
}

// AuditPurger removes old audit logs
type AuditPurger interface {
	CleanupOldAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error)
}

// MaintenanceService manages scheduled cleanup jobs
type MaintenanceService struct {
	cron       *cron.Cron
	tokens     TokenPurger
	rateLimits RateLimitPurger
	audit      AuditPurger
	logger     logrus.FieldLogger
	timeout    time.Duration
}

// NewMaintenanceService creates a new MaintenanceService
func NewMaintenanceService(tokens TokenPurger, rateLimits RateLimitPurger, audit AuditPurger, logger logrus.FieldLogger) *MaintenanceService {
	return &MaintenanceService{
		cron:       cron.New(cron.WithSeconds()),
		tokens:     tokens,
		rateLimits: rateLimits,
		audit:      audit,
		logger:     logger,
		timeout:    5 * time.Minute,
	}
}

// Start schedules all jobs and starts the scheduler
func (s *MaintenanceService) Start() error {
	// second minute hour day month weekday
	jobs := []struct {
		schedule string
		name     string
		fn       func()
	}{
		{"0 5 * * * *", "Purge login rate limits (hourly)", s.purgeRateLimitsJob},
		{"0 30 3 * * *", "Purge refresh tokens (daily at 3:30 AM)", s.purgeTokensJob},
		{"0 0 4 * * 0", "Purge audit logs older than 180 days (Sundays at 4:00 AM)", s.purgeAuditLogsJob},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.schedule, job.fn); err != nil {
			return fmt.Errorf("failed to schedule %q: %w", job.name, err)
		}
		s.logger.WithField("schedule", job.schedule).Infof("Scheduled: %s", job.name)
	}

	s.cron.Start()
	s.logger.Info("Maintenance scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *MaintenanceService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Maintenance scheduler stopped")
}

func (s *MaintenanceService) run(name string, fn func(ctx context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := fn(ctx)
	entry := s.logger.WithFields(logrus.Fields{
		"job":      name,
		"duration": time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Error("Maintenance job failed")
		return
	}
	entry.WithField("rows", n).Info("Maintenance job finished")
}

func (s *MaintenanceService) purgeRateLimitsJob() {
	s.run("purge_rate_limits", s.rateLimits.CleanupExpiredRateLimits)
}

func (s *MaintenanceService) purgeTokensJob() {
	s.run("purge_refresh_tokens", func(ctx context.Context) (int64, error) {
		expired, err := s.tokens.CleanupExpired(ctx)
		if err != nil {
			return expired, err
		}
		revoked, err := s.tokens.CleanupRevoked(ctx, RevokedTokenRetention)
		return expired + revoked, err
	})
}

func (s *MaintenanceService) purgeAuditLogsJob() {
	s.run("purge_audit_logs", func(ctx context.Context) (int64, error) {
		return s.audit.CleanupOldAuditLogs(ctx, AuditRetention)
	})
}

// RunAllNow runs every job immediately
func (s *MaintenanceService) RunAllNow() {
	s.purgeRateLimitsJob()
	s.purgeTokensJob()
	s.purgeAuditLogsJob()
}

// GetJobStatus returns the status of scheduled jobs
func (s *MaintenanceService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
