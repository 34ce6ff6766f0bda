package models

// Item is a catalog entry. ItemID is the external stable identifier and the
// primary key; category membership is many-to-many via item_categories.
type Item struct {
	ItemID     int64    `json:"item_id"`
	Title      string   `json:"title"`
	Categories []string `json:"categories,omitempty"`
}

// Loaded wraps a relation that may or may not have been fetched yet, so a
// deferred field is taken through an explicit load call rather than a hidden
// getter. Fetched reports whether taking the value cost a query.
type Loaded[T any] struct {
	Value   T    `json:"value"`
	Fetched bool `json:"fetched"`
}
