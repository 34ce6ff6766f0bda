package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(newTestDB(t)).RegisterRoutes(r.Group("/items"))
	return r
}

func do(t *testing.T, r *gin.Engine, method, target, body string) map[string]any {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s: status %d, body %s", method, target, w.Code, w.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestFanoutEndpointReportsQueryCount(t *testing.T) {
	r := newTestRouter(t)
	body := do(t, r, http.MethodGet, "/items/fanout", "")

	if body["strategy"] != "naive" {
		t.Errorf("strategy = %v", body["strategy"])
	}
	if body["items_count"] != float64(5) {
		t.Errorf("items_count = %v, want 5", body["items_count"])
	}
	if body["queries_count"] != float64(6) {
		t.Errorf("queries_count = %v, want 6 (1 + N)", body["queries_count"])
	}
}

func TestJoinAndCombinedEndpointCounts(t *testing.T) {
	r := newTestRouter(t)

	join := do(t, r, http.MethodGet, "/items/join", "")
	if join["queries_count"] != float64(1) {
		t.Errorf("join queries_count = %v, want 1", join["queries_count"])
	}

	combined := do(t, r, http.MethodGet, "/items/combined", "")
	if combined["queries_count"] != float64(3) {
		t.Errorf("combined queries_count = %v, want 3", combined["queries_count"])
	}

	data := combined["data"].([]any)
	first := data[0].(map[string]any)
	if first["average_rating"] != float64(4) {
		t.Errorf("item 1 average_rating = %v, want 4", first["average_rating"])
	}
}

func TestFilterEndpointRunsThreeTrees(t *testing.T) {
	r := newTestRouter(t)
	body := do(t, r, http.MethodGet, "/items/filter", "")

	filters := body["filters"].([]any)
	if len(filters) != 3 {
		t.Fatalf("got %d filters, want 3", len(filters))
	}
	for _, f := range filters {
		m := f.(map[string]any)
		if m["filter"] == "" {
			t.Errorf("filter missing name: %v", m)
		}
		if _, ok := m["matches"]; !ok {
			t.Errorf("filter %v missing matches", m["filter"])
		}
	}
	if body["queries_count"] != float64(3) {
		t.Errorf("queries_count = %v, want 3 (one per tree)", body["queries_count"])
	}
}

func TestAtomicUpdateEndpoint(t *testing.T) {
	r := newTestRouter(t)

	body := do(t, r, http.MethodPost, "/items/atomic-update",
		`{"item_id": 1, "field": "recorded_at", "delta": 60}`)
	if body["updated_count"] != float64(3) {
		t.Errorf("updated_count = %v, want 3", body["updated_count"])
	}

	// no matching rows is a zero count, not an error
	body = do(t, r, http.MethodPost, "/items/atomic-update",
		`{"item_id": 999, "delta": 60}`)
	if body["updated_count"] != float64(0) {
		t.Errorf("updated_count = %v, want 0", body["updated_count"])
	}
}

func TestAtomicUpdateRejectsUnknownField(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/items/atomic-update",
		strings.NewReader(`{"item_id": 1, "field": "user_id", "delta": 1}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestIndexCompareEndpoint(t *testing.T) {
	r := newTestRouter(t)
	body := do(t, r, http.MethodGet, "/items/index-compare", "")

	indexed := body["indexed"].(map[string]any)
	scanned := body["non_indexed"].(map[string]any)
	if indexed["results_count"] != scanned["results_count"] {
		t.Errorf("results_count mismatch: %v vs %v",
			indexed["results_count"], scanned["results_count"])
	}
}

func TestDeferredEndpoint(t *testing.T) {
	r := newTestRouter(t)
	body := do(t, r, http.MethodGet, "/items/deferred", "")

	// 1 for the ids + 1 per deferred title taken
	if body["queries_count"] != float64(6) {
		t.Errorf("queries_count = %v, want 6", body["queries_count"])
	}
	data := body["data"].([]any)
	first := data[0].(map[string]any)
	title := first["title"].(map[string]any)
	if title["value"] != "Toy Story" || title["fetched"] != true {
		t.Errorf("deferred title = %v", title)
	}
}

func TestTuplesEndpointFlatVariant(t *testing.T) {
	r := newTestRouter(t)
	body := do(t, r, http.MethodGet, "/items/as-tuples", "")

	flat := body["flat_titles"].([]any)
	if len(flat) != 5 || flat[0] != "Toy Story" {
		t.Errorf("flat_titles = %v", flat)
	}
}
