package catalog

import (
	"context"
	"math"

	"cataloghub/pkg/models"
)

// Loader resolves related records for a batch of root items under one of
// four strategies. Strategies differ only in how many store round trips they
// make; all of them return roots in stable input order. The exact query
// count is read off the counting Conn the Repo was built with.
type Loader struct {
	Repo *Repo
}

func NewLoader(repo *Repo) *Loader {
	return &Loader{Repo: repo}
}

// FanoutItem is a root with its one-to-one crossref. The crossref sits in a
// Loaded wrapper: the naive strategy fetches it explicitly per root, so the
// per-root cost stays visible instead of hiding behind a getter.
type FanoutItem struct {
	ItemID   int64                           `json:"item_id"`
	Title    string                          `json:"title"`
	CrossRef models.Loaded[*models.CrossRef] `json:"crossref"`
}

// BatchItem is a root with its to-many relations attached.
type BatchItem struct {
	ItemID       int64    `json:"item_id"`
	Title        string   `json:"title"`
	Categories   []string `json:"categories"`
	RatingsCount int      `json:"ratings_count"`
}

// CombinedItem carries everything: joined crossref plus batched to-many
// relations and the computed rating aggregate.
type CombinedItem struct {
	ItemID        int64            `json:"item_id"`
	Title         string           `json:"title"`
	CrossRef      *models.CrossRef `json:"crossref"`
	Categories    []string         `json:"categories"`
	RatingsCount  int              `json:"ratings_count"`
	AverageRating float64          `json:"average_rating"`
}

// Naive is the fan-out baseline: one query for the roots, then one more per
// root for its crossref — 1+N round trips. Kept as a selectable strategy on
// purpose; its query count is the number the other strategies are judged
// against.
func (l *Loader) Naive(ctx context.Context, limit int) ([]FanoutItem, error) {
	items, err := l.Repo.ListItems(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]FanoutItem, 0, len(items))
	for _, it := range items {
		ref, err := l.Repo.GetCrossRef(ctx, it.ItemID)
		if err != nil {
			return nil, err
		}
		out = append(out, FanoutItem{
			ItemID:   it.ItemID,
			Title:    it.Title,
			CrossRef: models.Loaded[*models.CrossRef]{Value: ref, Fetched: true},
		})
	}
	return out, nil
}

// Join resolves the to-one crossref with a single joined query. Valid here
// because crossrefs is one-to-one with items, so the join cannot duplicate
// roots.
func (l *Loader) Join(ctx context.Context, limit int) ([]FanoutItem, error) {
	items, refs, err := l.Repo.ListItemsWithCrossRefs(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]FanoutItem, 0, len(items))
	for i, it := range items {
		out = append(out, FanoutItem{
			ItemID:   it.ItemID,
			Title:    it.Title,
			CrossRef: models.Loaded[*models.CrossRef]{Value: refs[i], Fetched: true},
		})
	}
	return out, nil
}

// Batch resolves to-many relations with one membership query per relation
// type: 1 query for roots + 1 for categories + 1 for ratings, independent of
// N. Returned rows are grouped by owning root in O(N+M) and merged back in
// input order.
func (l *Loader) Batch(ctx context.Context, limit int) ([]BatchItem, error) {
	items, err := l.Repo.ListItems(ctx, limit)
	if err != nil {
		return nil, err
	}

	ids := itemIDs(items)
	categories, err := l.Repo.CategoriesByItem(ctx, ids)
	if err != nil {
		return nil, err
	}
	ratings, err := l.Repo.RatingsByItem(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]BatchItem, 0, len(items))
	for _, it := range items {
		out = append(out, BatchItem{
			ItemID:       it.ItemID,
			Title:        it.Title,
			Categories:   orEmpty(categories[it.ItemID]),
			RatingsCount: len(ratings[it.ItemID]),
		})
	}
	return out, nil
}

// Combined applies the join strategy for the to-one crossref and the batch
// strategy for categories and ratings in one logical request: 3 queries
// total regardless of N, plus the per-item rating aggregate.
func (l *Loader) Combined(ctx context.Context, limit int) ([]CombinedItem, error) {
	items, refs, err := l.Repo.ListItemsWithCrossRefs(ctx, limit)
	if err != nil {
		return nil, err
	}

	ids := itemIDs(items)
	categories, err := l.Repo.CategoriesByItem(ctx, ids)
	if err != nil {
		return nil, err
	}
	ratings, err := l.Repo.RatingsByItem(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]CombinedItem, 0, len(items))
	for i, it := range items {
		rs := ratings[it.ItemID]
		avg := 0.0
		if len(rs) > 0 {
			sum := 0.0
			for _, r := range rs {
				sum += r.Score
			}
			avg = round2(sum / float64(len(rs)))
		}
		out = append(out, CombinedItem{
			ItemID:        it.ItemID,
			Title:         it.Title,
			CrossRef:      refs[i],
			Categories:    orEmpty(categories[it.ItemID]),
			RatingsCount:  len(rs),
			AverageRating: avg,
		})
	}
	return out, nil
}

func itemIDs(items []models.Item) []int64 {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ItemID
	}
	return ids
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
