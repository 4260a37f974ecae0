package counter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hirebridge/hirebridge/app/models"
	"github.com/hirebridge/hirebridge/internal/pkg/cache"
	"github.com/hirebridge/hirebridge/internal/pkg/database"
	"gorm.io/gorm/clause"
)

const webhookEventsKey = "webhook:counters:events"

// AddWebhookEvent increments the pending counter for a webhook event type in Redis
func AddWebhookEvent(eventType string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookEventsKey, eventType, 1).Err()
}

// FlushAll flushes pending webhook counters to the database
func FlushAll() error {
	return flushHashToStats(webhookEventsKey)
}

// flushHashToStats drains a Redis hash atomically and applies the buffered
// increments to the webhook_stats table. Uses RENAME to a temporary key for
// atomic drain without losing in-flight increments.
func flushHashToStats(redisKey string) error {
	ctx := context.Background()
	rdb := cache.GetClient()

	// Atomically move the hash to a temp key for draining
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	// Ensure cleanup of tmpKey even if later steps fail
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	day := time.Now().UTC().Format("2006-01-02")
	db := database.GetDB()
	for eventType, v := range data {
		inc, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil || inc == 0 {
			continue
		}
		stat := models.WebhookStat{Day: day, EventType: eventType, Count: inc}
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "day"}, {Name: "event_type"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count": clause.Expr{SQL: "count + ?", Vars: []interface{}{inc}},
			}),
		}).Create(&stat).Error
		if err != nil {
			return err
		}
	}
	return nil
}
