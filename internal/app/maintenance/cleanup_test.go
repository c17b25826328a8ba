package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/anonwork/anonwork/internal/cache"
	"github.com/anonwork/anonwork/internal/database/testutil"
	"github.com/anonwork/anonwork/internal/models"
)

func seedNotification(t *testing.T, db *gorm.DB, read bool, createdAt time.Time) models.Notification {
	t.Helper()

	notification := models.Notification{
		UserID: "user-1",
		Type:   models.NotificationComment,
		Title:  "old news",
		Read:   read,
	}
	notification.CreatedAt = createdAt
	require.NoError(t, db.Create(&notification).Error)
	return notification
}

func TestCleanupReadNotifications(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	now := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)

	seedNotification(t, db, true, now.AddDate(0, 0, -120))  // pruned
	seedNotification(t, db, false, now.AddDate(0, 0, -120)) // unread, kept
	seedNotification(t, db, true, now.AddDate(0, 0, -10))   // recent, kept

	removed, err := CleanupReadNotifications(context.Background(), db, now, 90)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	now := time.Now().UTC()

	seedNotification(t, db, true, now.AddDate(0, 0, -100))

	store := cache.NewDatabaseStore(db)
	require.NoError(t, store.Set(context.Background(), "stale", []byte("v"), time.Minute))

	// The cache entry expires a minute out, so run the cleaner "later".
	cleaner := NewCleaner(db,
		WithNow(func() time.Time { return now.Add(time.Hour) }),
		WithNotificationRetentionDays(90),
		WithCacheStore(store),
	)

	require.NoError(t, cleaner.RunOnce(context.Background()))

	var notifications int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&notifications).Error)
	require.EqualValues(t, 0, notifications)

	var entries int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Count(&entries).Error)
	require.EqualValues(t, 0, entries)
}
