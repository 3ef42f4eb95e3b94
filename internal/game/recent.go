package game

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const recentCrashesKey = "aviator:recent_crashes"

// RecentCrashes keeps the last N crash points in a capped Redis list for
// the multiplier strip the client shows above the game.
type RecentCrashes struct {
	rdb  *redis.Client
	size int64
}

func NewRecentCrashes(rdb *redis.Client, size int64) *RecentCrashes {
	if size <= 0 {
		size = 30
	}
	return &RecentCrashes{rdb: rdb, size: size}
}

func (rc *RecentCrashes) Push(ctx context.Context, crashPoint decimal.Decimal) error {
	if err := rc.rdb.LPush(ctx, recentCrashesKey, crashPoint.StringFixed(2)).Err(); err != nil {
		return err
	}
	return rc.rdb.LTrim(ctx, recentCrashesKey, 0, rc.size-1).Err()
}

func (rc *RecentCrashes) List(ctx context.Context) ([]float64, error) {
	raw, err := rc.rdb.LRange(ctx, recentCrashesKey, 0, rc.size-1).Result()
	if err != nil {
		return nil, err
	}

	points := make([]float64, 0, len(raw))
	for _, s := range raw {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			continue
		}
		points = append(points, f)
	}
	return points, nil
}
