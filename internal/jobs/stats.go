package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"cataloghub/pkg/database"
)

// Payloads for the three job types.

type ItemStatsPayload struct {
	ItemID int64 `json:"item_id"`
}

type UserStatsPayload struct {
	UserID int64 `json:"user_id"`
}

type HeartbeatPayload struct {
	Name string `json:"name"`
}

// StatsResult is what an aggregate job writes back to its row. A subject
// with no ratings is a valid outcome, reported through Message with zeroed
// numbers rather than a failed job.
type StatsResult struct {
	ItemID       *int64  `json:"item_id,omitempty"`
	UserID       *int64  `json:"user_id,omitempty"`
	TotalRatings int     `json:"total_ratings"`
	AverageScore float64 `json:"average_score"`
	Message      string  `json:"message"`
}

const noRatingsMessage = "no ratings found"

// ComputeItemStats aggregates all ratings for one item: count and mean
// score, rounded to 2 decimals.
func ComputeItemStats(ctx context.Context, db database.Querier, itemID int64) (StatsResult, error) {
	res := StatsResult{ItemID: &itemID}
	if err := aggregateRatings(ctx, db, "item_id", itemID, &res); err != nil {
		return StatsResult{}, fmt.Errorf("item stats: %w", err)
	}
	return res, nil
}

// ComputeUserStats aggregates every rating a user has recorded.
func ComputeUserStats(ctx context.Context, db database.Querier, userID int64) (StatsResult, error) {
	res := StatsResult{UserID: &userID}
	if err := aggregateRatings(ctx, db, "user_id", userID, &res); err != nil {
		return StatsResult{}, fmt.Errorf("user stats: %w", err)
	}
	return res, nil
}

func aggregateRatings(ctx context.Context, db database.Querier, col string, id int64, res *StatsResult) error {
	var (
		count int
		avg   sql.NullFloat64
	)
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*), AVG(score) FROM ratings WHERE `+col+` = ?
	`, id).Scan(&count, &avg)
	if err != nil {
		return err
	}

	if count == 0 {
		res.Message = noRatingsMessage
		return nil
	}
	res.TotalRatings = count
	res.AverageScore = math.Round(avg.Float64*100) / 100
	res.Message = "statistics calculated"
	return nil
}
