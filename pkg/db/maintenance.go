package db

import (
	"context"
	"time"

	"github.com/smith3v/tg-couple-bot/pkg/logger"
)

const MaintenanceInterval = time.Hour

// CleanupOrphanFirings drops trigger bookkeeping for couples that no longer
// exist, so a pair that unlinks and re-pairs starts with fresh triggers.
func CleanupOrphanFirings() (int64, error) {
	if DB == nil {
		return 0, nil
	}
	live := DB.Model(&User{}).
		Select("user_id").
		Where("partner_id IS NOT NULL AND partner_id > user_id")
	res := DB.Where("couple_id NOT IN (?)", live).Delete(&TriggerFiring{})
	return res.RowsAffected, res.Error
}

func StartMaintenance(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = MaintenanceInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := CleanupOrphanFirings()
			if err != nil {
				logger.Error("failed to cleanup trigger firings", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Debug("removed orphan trigger firings", "count", deleted)
			}
		}
	}
}
