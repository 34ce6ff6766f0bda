package models

// Rating is one user's score for an item. Multiple ratings per
// (user_id, item_id) pair are allowed.
type Rating struct {
	ID         int64   `json:"id"`
	UserID     int64   `json:"user_id"`
	ItemID     int64   `json:"item_id"`
	Score      float64 `json:"score"`
	RecordedAt int64   `json:"recorded_at"`
}
