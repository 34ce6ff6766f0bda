package catalog

import (
	"database/sql"
	"testing"

	"cataloghub/pkg/database"
)

// newTestDB opens an in-memory catalog seeded with a small fixed fixture:
//
//	item 1 "Toy Story"     [Animation Comedy Children]  crossref  ratings 3.0 4.0 5.0
//	item 2 "Heat"          [Drama]                      crossref  rating 4.5   tag "must watch"
//	item 3 "Ghost Story"   [Drama]                      -         -            tag "classic"
//	item 4 "Silent Film"   []                           -         -
//	item 5 "Cartoon Caper" [Animation]                  crossref  rating 2.0
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT INTO categories (id, name) VALUES (1, 'Animation'), (2, 'Comedy'), (3, 'Drama'), (4, 'Children')`, nil},
		{`INSERT INTO items (item_id, title) VALUES
			(1, 'Toy Story'), (2, 'Heat'), (3, 'Ghost Story'), (4, 'Silent Film'), (5, 'Cartoon Caper')`, nil},
		{`INSERT INTO item_categories (item_id, category_id) VALUES
			(1, 1), (1, 2), (1, 4), (2, 3), (3, 3), (5, 1)`, nil},
		{`INSERT INTO crossrefs (item_id, external_id_a, external_id_b) VALUES
			(1, '0114709', '862'), (2, '0113277', NULL), (5, '0099999', '777')`, nil},
		{`INSERT INTO ratings (user_id, item_id, score, recorded_at) VALUES
			(1, 1, 3.0, 1000), (2, 1, 4.0, 1001), (3, 1, 5.0, 1002),
			(1, 2, 4.5, 1003), (2, 5, 2.0, 1004)`, nil},
		{`INSERT INTO tags (user_id, item_id, label, recorded_at) VALUES
			(1, 3, 'classic', 2000), (2, 2, 'must watch', 2001)`, nil},
	}
	for _, s := range stmts {
		if _, err := db.Exec(s.query, s.args...); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return db
}
