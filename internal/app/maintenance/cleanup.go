package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/anonwork/anonwork/internal/cache"
	"github.com/anonwork/anonwork/internal/models"
	"github.com/anonwork/anonwork/pkg/logger"
)

const (
	defaultNotificationRetentionDays = 90
	defaultNotificationSpec          = "@daily"
	defaultCacheSpec                 = "@hourly"
)

// Cleaner coordinates background maintenance tasks: pruning old read
// notifications and removing expired database cache entries. Unread
// notifications are never touched regardless of age.
type Cleaner struct {
	db        *gorm.DB
	store     *cache.DatabaseStore
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention int

	notificationSchedule string
	cacheSchedule        string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for retention comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithNotificationRetentionDays adjusts how long read notifications are kept.
func WithNotificationRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithNotificationSchedule overrides the cron spec for notification pruning.
func WithNotificationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.notificationSchedule = spec
		}
	}
}

// WithCacheStore enables expired-entry cleanup for the database cache backend.
func WithCacheStore(store *cache.DatabaseStore) Option {
	return func(cleaner *Cleaner) {
		cleaner.store = store
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(db *gorm.DB, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:                   db,
		now:                  time.Now,
		retention:            defaultNotificationRetentionDays,
		notificationSchedule: defaultNotificationSpec,
		cacheSchedule:        defaultCacheSpec,
		log:                  logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.db == nil {
		return nil
	}

	if c.retention > 0 {
		if _, err := c.cron.AddFunc(c.notificationSchedule, func() {
			ctx := context.Background()
			if _, err := CleanupReadNotifications(ctx, c.db, c.now(), c.retention); err != nil {
				c.log.Warn("notification cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.store != nil {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			ctx := context.Background()
			if _, err := c.store.CleanupExpired(ctx, c.now()); err != nil {
				c.log.Warn("cache cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily used
// in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.db != nil && c.retention > 0 {
		if _, err := CleanupReadNotifications(ctx, c.db, c.now(), c.retention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.store != nil {
		if _, err := c.store.CleanupExpired(ctx, c.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// CleanupReadNotifications deletes read notifications older than the retention
// window. Returns the number of rows removed.
func CleanupReadNotifications(ctx context.Context, db *gorm.DB, now time.Time, retentionDays int) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup notifications: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cutoff := now.AddDate(0, 0, -retentionDays)
	result := db.WithContext(ctx).
		Where("read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}
