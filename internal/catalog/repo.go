package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cataloghub/pkg/database"
	"cataloghub/pkg/models"
	"cataloghub/pkg/predicate"
)

// Repo reads the catalog store through a Querier, so callers that need an
// exact round-trip count pass a counting Conn instead of the raw DB.
type Repo struct {
	DB database.Querier
}

func NewRepo(db database.Querier) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) ListItems(ctx context.Context, limit int) ([]models.Item, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT item_id, title
		FROM items
		ORDER BY item_id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	out := make([]models.Item, 0, limit)
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ItemID, &it.Title); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// GetCrossRef returns the item's crossref, or nil when it has none.
func (r *Repo) GetCrossRef(ctx context.Context, itemID int64) (*models.CrossRef, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT item_id, external_id_a, external_id_b
		FROM crossrefs
		WHERE item_id = ?
	`, itemID)

	var (
		ref models.CrossRef
		b   sql.NullString
	)
	if err := row.Scan(&ref.ItemID, &ref.ExternalIDA, &b); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan crossref: %w", err)
	}
	if b.Valid {
		ref.ExternalIDB = &b.String
	}
	return &ref, nil
}

// ListItemsWithCrossRefs joins items to crossrefs in a single query.
// Items without a crossref come back with a nil ref.
func (r *Repo) ListItemsWithCrossRefs(ctx context.Context, limit int) ([]models.Item, []*models.CrossRef, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT i.item_id, i.title, c.item_id, c.external_id_a, c.external_id_b
		FROM items i
		LEFT JOIN crossrefs c ON c.item_id = i.item_id
		ORDER BY i.item_id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("join items crossrefs: %w", err)
	}
	defer rows.Close()

	var (
		items []models.Item
		refs  []*models.CrossRef
	)
	for rows.Next() {
		var (
			it    models.Item
			refID sql.NullInt64
			a, b  sql.NullString
		)
		if err := rows.Scan(&it.ItemID, &it.Title, &refID, &a, &b); err != nil {
			return nil, nil, fmt.Errorf("scan joined row: %w", err)
		}
		items = append(items, it)
		if refID.Valid {
			ref := &models.CrossRef{ItemID: refID.Int64, ExternalIDA: a.String}
			if b.Valid {
				ref.ExternalIDB = &b.String
			}
			refs = append(refs, ref)
		} else {
			refs = append(refs, nil)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows err: %w", err)
	}
	return items, refs, nil
}

// CategoriesByItem fetches category names for the whole id set in one
// membership query and groups them by owning item.
func (r *Repo) CategoriesByItem(ctx context.Context, itemIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT ic.item_id, c.name
		FROM item_categories ic
		JOIN categories c ON c.id = ic.category_id
		WHERE ic.item_id IN (` + placeholders(len(itemIDs)) + `)
		ORDER BY ic.item_id, c.name
	`
	rows, err := r.DB.QueryContext(ctx, query, int64Args(itemIDs)...)
	if err != nil {
		return nil, fmt.Errorf("categories by item: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			itemID int64
			name   string
		)
		if err := rows.Scan(&itemID, &name); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		out[itemID] = append(out[itemID], name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// RatingsByItem fetches ratings for the whole id set in one membership query
// and groups them by owning item.
func (r *Repo) RatingsByItem(ctx context.Context, itemIDs []int64) (map[int64][]models.Rating, error) {
	out := make(map[int64][]models.Rating, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT id, user_id, item_id, score, recorded_at
		FROM ratings
		WHERE item_id IN (` + placeholders(len(itemIDs)) + `)
		ORDER BY item_id, id
	`
	rows, err := r.DB.QueryContext(ctx, query, int64Args(itemIDs)...)
	if err != nil {
		return nil, fmt.Errorf("ratings by item: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rt models.Rating
		if err := rows.Scan(&rt.ID, &rt.UserID, &rt.ItemID, &rt.Score, &rt.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan rating row: %w", err)
		}
		out[rt.ItemID] = append(out[rt.ItemID], rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// FilterItems evaluates a predicate tree in a single store query and returns
// the matching id+title pairs.
func (r *Repo) FilterItems(ctx context.Context, where predicate.Expr) ([]models.Item, error) {
	clause, args := where.SQL()
	rows, err := r.DB.QueryContext(ctx, `
		SELECT item_id, title
		FROM items
		WHERE `+clause+`
		ORDER BY item_id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("filter items: %w", err)
	}
	defer rows.Close()

	out := []models.Item{}
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ItemID, &it.Title); err != nil {
			return nil, fmt.Errorf("scan filtered item: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// UpdateRatings applies store-side assignments to every rating matching the
// predicate and returns the number of rows updated. Zero matches is a zero
// count, not an error.
func (r *Repo) UpdateRatings(ctx context.Context, assigns []predicate.Assignment, where predicate.Expr) (int64, error) {
	query, args := predicate.BuildUpdate("ratings", assigns, where)
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update ratings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ListItemIDs fetches only the identifiers, leaving the title deferred.
func (r *Repo) ListItemIDs(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT item_id FROM items ORDER BY item_id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list item ids: %w", err)
	}
	defer rows.Close()

	out := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan item id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// GetTitle loads the deferred title for one item.
func (r *Repo) GetTitle(ctx context.Context, itemID int64) (string, error) {
	var title string
	err := r.DB.QueryRowContext(ctx, `
		SELECT title FROM items WHERE item_id = ?
	`, itemID).Scan(&title)
	if err != nil {
		return "", fmt.Errorf("get title: %w", err)
	}
	return title, nil
}

// ListAsMaps returns rows as plain key/value maps keyed by column name.
func (r *Repo) ListAsMaps(ctx context.Context, limit int) ([]map[string]any, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT item_id, title FROM items ORDER BY item_id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list as maps: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan map row: %w", err)
		}
		m := make(map[string]any, len(cols))
		for i, col := range cols {
			m[col] = values[i]
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// ListAsTuples returns rows as positional (item_id, title) tuples plus the
// flattened single-column variant holding just the titles.
func (r *Repo) ListAsTuples(ctx context.Context, limit int) ([][]any, []any, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT item_id, title FROM items ORDER BY item_id LIMIT ?
	`, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("list as tuples: %w", err)
	}
	defer rows.Close()

	tuples := [][]any{}
	flat := []any{}
	for rows.Next() {
		var (
			id    int64
			title string
		)
		if err := rows.Scan(&id, &title); err != nil {
			return nil, nil, fmt.Errorf("scan tuple row: %w", err)
		}
		tuples = append(tuples, []any{id, title})
		flat = append(flat, title)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows err: %w", err)
	}
	return tuples, flat, nil
}

// CountRatingsScoreAtLeast counts ratings with score >= min. With
// defeatIndex the filter is rewritten to the logically equivalent
// score + 0.0 >= min, which forces a full scan past idx_ratings_score.
func (r *Repo) CountRatingsScoreAtLeast(ctx context.Context, min float64, defeatIndex bool) (int, error) {
	col := "score"
	if defeatIndex {
		col = "score + 0.0"
	}
	var n int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ratings WHERE `+col+` >= ?
	`, min).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count ratings: %w", err)
	}
	return n, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
