package models

type Tag struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	ItemID     int64  `json:"item_id"`
	Label      string `json:"label"`
	RecordedAt int64  `json:"recorded_at"`
}
