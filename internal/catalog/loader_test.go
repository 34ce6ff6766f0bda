package catalog

import (
	"context"
	"testing"

	"cataloghub/pkg/database"
)

func newSession(t *testing.T) (*database.Conn, *Loader) {
	t.Helper()
	conn := database.NewConn(newTestDB(t))
	return conn, NewLoader(NewRepo(conn))
}

func TestNaiveIssuesOneQueryPerRoot(t *testing.T) {
	conn, loader := newSession(t)

	items, err := loader.Naive(context.Background(), 10)
	if err != nil {
		t.Fatalf("naive: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("got %d items, want 5", len(items))
	}
	// 1 for the roots + 1 per root for its crossref
	if got := conn.Count(); got != 1+5 {
		t.Errorf("queries_count = %d, want %d", got, 1+5)
	}

	for i, it := range items {
		if it.ItemID != int64(i+1) {
			t.Errorf("position %d holds item %d, input order not preserved", i, it.ItemID)
		}
		if !it.CrossRef.Fetched {
			t.Errorf("item %d crossref not marked fetched", it.ItemID)
		}
	}

	// missing one-to-one relation is a nil value, not an error
	if items[2].CrossRef.Value != nil {
		t.Errorf("item 3 should have no crossref")
	}
	if items[0].CrossRef.Value == nil || items[0].CrossRef.Value.ExternalIDA != "0114709" {
		t.Errorf("item 1 crossref wrong: %+v", items[0].CrossRef.Value)
	}
}

func TestJoinIssuesSingleQuery(t *testing.T) {
	conn, loader := newSession(t)

	items, err := loader.Join(context.Background(), 10)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if got := conn.Count(); got != 1 {
		t.Errorf("queries_count = %d, want 1", got)
	}
	if len(items) != 5 {
		t.Fatalf("got %d items, want 5", len(items))
	}

	if items[1].CrossRef.Value == nil || items[1].CrossRef.Value.ExternalIDB != nil {
		t.Errorf("item 2 crossref should have absent external_id_b: %+v", items[1].CrossRef.Value)
	}
	if items[3].CrossRef.Value != nil {
		t.Errorf("item 4 should have no crossref")
	}
}

func TestBatchQueryCountIndependentOfN(t *testing.T) {
	for _, limit := range []int{2, 5, 10} {
		conn, loader := newSession(t)
		if _, err := loader.Batch(context.Background(), limit); err != nil {
			t.Fatalf("batch limit %d: %v", limit, err)
		}
		// roots + one membership query per relation type (categories, ratings)
		if got := conn.Count(); got != 3 {
			t.Errorf("limit %d: queries_count = %d, want 3", limit, got)
		}
	}
}

func TestBatchSingleRelationIsTwoQueries(t *testing.T) {
	conn, loader := newSession(t)
	repo := loader.Repo
	ctx := context.Background()

	items, err := repo.ListItems(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ratings, err := repo.RatingsByItem(ctx, itemIDs(items))
	if err != nil {
		t.Fatalf("ratings: %v", err)
	}

	if got := conn.Count(); got != 2 {
		t.Errorf("queries_count = %d, want exactly 2", got)
	}
	if len(ratings[1]) != 3 {
		t.Errorf("item 1 has %d ratings, want 3", len(ratings[1]))
	}
}

func TestBatchGroupsRowsByRoot(t *testing.T) {
	_, loader := newSession(t)

	items, err := loader.Batch(context.Background(), 10)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}

	byID := map[int64]BatchItem{}
	for _, it := range items {
		byID[it.ItemID] = it
	}

	if got := byID[1].Categories; len(got) != 3 {
		t.Errorf("item 1 categories %v, want 3 names", got)
	}
	if byID[1].RatingsCount != 3 {
		t.Errorf("item 1 ratings_count = %d, want 3", byID[1].RatingsCount)
	}
	if got := byID[4].Categories; len(got) != 0 {
		t.Errorf("item 4 categories %v, want empty", got)
	}
	if byID[4].RatingsCount != 0 {
		t.Errorf("item 4 ratings_count = %d, want 0", byID[4].RatingsCount)
	}
}

func TestCombinedFixedQueryCountAndOrdering(t *testing.T) {
	conn, loader := newSession(t)

	items, err := loader.Combined(context.Background(), 10)
	if err != nil {
		t.Fatalf("combined: %v", err)
	}
	// joined roots+crossrefs, categories membership, ratings membership
	if got := conn.Count(); got != 3 {
		t.Errorf("queries_count = %d, want 3", got)
	}

	for i, it := range items {
		if it.ItemID != int64(i+1) {
			t.Fatalf("position %d holds item %d, input order not preserved", i, it.ItemID)
		}
	}

	if items[0].AverageRating != 4.0 || items[0].RatingsCount != 3 {
		t.Errorf("item 1 aggregate = (%v, %d), want (4.0, 3)", items[0].AverageRating, items[0].RatingsCount)
	}
	if items[3].AverageRating != 0 || items[3].RatingsCount != 0 {
		t.Errorf("item 4 aggregate = (%v, %d), want (0, 0)", items[3].AverageRating, items[3].RatingsCount)
	}
	if items[0].CrossRef == nil || items[2].CrossRef != nil {
		t.Errorf("crossref placement wrong: item1=%v item3=%v", items[0].CrossRef, items[2].CrossRef)
	}
}

func TestCombinedEmptyBatch(t *testing.T) {
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	conn := database.NewConn(db)
	loader := NewLoader(NewRepo(conn))

	items, err := loader.Combined(context.Background(), 10)
	if err != nil {
		t.Fatalf("combined over empty catalog: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items, want 0", len(items))
	}
}
