package models

// CrossRef maps an item to its identifiers in external databases.
// One-to-one with items; ExternalIDB may be absent.
type CrossRef struct {
	ItemID      int64   `json:"item_id"`
	ExternalIDA string  `json:"external_id_a"`
	ExternalIDB *string `json:"external_id_b,omitempty"`
}
