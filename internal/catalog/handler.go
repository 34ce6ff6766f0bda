package catalog

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cataloghub/pkg/database"
	"cataloghub/pkg/models"
	"cataloghub/pkg/predicate"
)

// pageSize is the fixed batch size every demo endpoint reads. Small on
// purpose: the interesting number in each response is queries_count, not the
// row count.
const pageSize = 10

type Handler struct {
	DB *sql.DB
}

func NewHandler(db *sql.DB) *Handler {
	return &Handler{DB: db}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/fanout", h.fanout)
	rg.GET("/join", h.join)
	rg.GET("/batch", h.batch)
	rg.GET("/combined", h.combined)
	rg.GET("/filter", h.filter)
	rg.POST("/atomic-update", h.atomicUpdate)
	rg.GET("/projected", h.projected)
	rg.GET("/deferred", h.deferred)
	rg.GET("/as-maps", h.asMaps)
	rg.GET("/as-tuples", h.asTuples)
	rg.GET("/index-compare", h.indexCompare)
}

// session gives each request its own counting connection, so queries_count
// in the response is exactly this request's round trips.
func (h *Handler) session() (*database.Conn, *Loader) {
	conn := database.NewConn(h.DB)
	return conn, NewLoader(NewRepo(conn))
}

func (h *Handler) fanout(c *gin.Context) {
	conn, loader := h.session()
	items, err := loader.Naive(c.Request.Context(), pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"strategy":      "naive",
		"items_count":   len(items),
		"queries_count": conn.Count(),
		"data":          items,
	})
}

func (h *Handler) join(c *gin.Context) {
	conn, loader := h.session()
	items, err := loader.Join(c.Request.Context(), pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"strategy":      "join",
		"items_count":   len(items),
		"queries_count": conn.Count(),
		"data":          items,
	})
}

func (h *Handler) batch(c *gin.Context) {
	conn, loader := h.session()
	items, err := loader.Batch(c.Request.Context(), pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"strategy":      "batch",
		"items_count":   len(items),
		"queries_count": conn.Count(),
		"data":          items,
	})
}

func (h *Handler) combined(c *gin.Context) {
	conn, loader := h.session()
	items, err := loader.Combined(c.Request.Context(), pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"strategy":      "combined",
		"items_count":   len(items),
		"queries_count": conn.Count(),
		"data":          items,
	})
}

// filter runs three named predicate trees, each compiled to one store query.
func (h *Handler) filter(c *gin.Context) {
	conn, loader := h.session()
	repo := loader.Repo

	trees := []struct {
		name string
		expr predicate.Expr
	}{
		{
			name: "animated_and_well_rated",
			expr: predicate.And(
				predicate.HasCategory("Animation"),
				predicate.HasRatingAtLeast(4.0),
			),
		},
		{
			name: "classic_or_story_title",
			expr: predicate.Or(
				predicate.HasTagLabel("classic"),
				predicate.Contains("title", "story"),
			),
		},
		{
			name: "non_drama_favorites",
			expr: predicate.And(
				predicate.Not(predicate.HasCategory("Drama")),
				predicate.Or(
					predicate.HasRatingAtLeast(4.5),
					predicate.HasTagLabel("must watch"),
				),
			),
		},
	}

	results := make([]gin.H, 0, len(trees))
	for _, tree := range trees {
		matches, err := repo.FilterItems(c.Request.Context(), tree.expr)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "filter failed"})
			return
		}
		results = append(results, gin.H{
			"filter":  tree.name,
			"count":   len(matches),
			"matches": matches,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"queries_count": conn.Count(),
		"filters":       results,
	})
}

type atomicUpdateReq struct {
	ItemID int64   `json:"item_id"`
	Field  string  `json:"field"` // recorded_at or score
	Delta  float64 `json:"delta"`
}

// atomicUpdate bumps a rating field by delta inside the store. The new value
// is computed from the stored value in the UPDATE itself, so concurrent
// callers can never overwrite each other's increment.
func (h *Handler) atomicUpdate(c *gin.Context) {
	var req atomicUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var assign predicate.Assignment
	switch req.Field {
	case "", "recorded_at":
		assign = predicate.Add("recorded_at", int64(req.Delta))
	case "score":
		assign = predicate.Add("score", req.Delta)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "field must be recorded_at or score"})
		return
	}

	conn, loader := h.session()
	updated, err := loader.Repo.UpdateRatings(c.Request.Context(),
		[]predicate.Assignment{assign},
		predicate.Eq("item_id", req.ItemID),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"updated_count": updated,
		"queries_count": conn.Count(),
	})
}

func (h *Handler) projected(c *gin.Context) {
	conn, loader := h.session()
	items, err := loader.Repo.ListItems(c.Request.Context(), pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"fields":        []string{"item_id", "title"},
		"items_count":   len(items),
		"queries_count": conn.Count(),
		"data":          items,
	})
}

type deferredItem struct {
	ItemID int64                 `json:"item_id"`
	Title  models.Loaded[string] `json:"title"`
}

// deferred fetches ids eagerly and takes each title through an explicit
// per-item load, so the cost of touching a deferred field shows up in
// queries_count instead of hiding inside an accessor.
func (h *Handler) deferred(c *gin.Context) {
	conn, loader := h.session()
	repo := loader.Repo

	ids, err := repo.ListItemIDs(c.Request.Context(), pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	out := make([]deferredItem, 0, len(ids))
	for _, id := range ids {
		title, err := repo.GetTitle(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "load failed"})
			return
		}
		out = append(out, deferredItem{
			ItemID: id,
			Title:  models.Loaded[string]{Value: title, Fetched: true},
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"deferred_field": "title",
		"items_count":    len(out),
		"queries_count":  conn.Count(),
		"data":           out,
	})
}

func (h *Handler) asMaps(c *gin.Context) {
	conn, loader := h.session()
	rows, err := loader.Repo.ListAsMaps(c.Request.Context(), pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items_count":   len(rows),
		"queries_count": conn.Count(),
		"data":          rows,
	})
}

func (h *Handler) asTuples(c *gin.Context) {
	conn, loader := h.session()
	tuples, flat, err := loader.Repo.ListAsTuples(c.Request.Context(), pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items_count":   len(tuples),
		"queries_count": conn.Count(),
		"data":          tuples,
		"flat_titles":   flat,
	})
}

// indexCompare runs the same logical filter against the indexed score column
// and an index-defeating rewrite, reporting elapsed time and row count for
// each plus the speedup ratio. Row counts must match; only timing differs.
func (h *Handler) indexCompare(c *gin.Context) {
	const threshold = 4.0
	conn, loader := h.session()
	repo := loader.Repo

	start := time.Now()
	indexedCount, err := repo.CountRatingsScoreAtLeast(c.Request.Context(), threshold, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "indexed query failed"})
		return
	}
	indexedElapsed := time.Since(start)

	start = time.Now()
	scanCount, err := repo.CountRatingsScoreAtLeast(c.Request.Context(), threshold, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "non-indexed query failed"})
		return
	}
	scanElapsed := time.Since(start)

	speedup := 0.0
	if indexedElapsed > 0 {
		speedup = float64(scanElapsed) / float64(indexedElapsed)
	}

	c.JSON(http.StatusOK, gin.H{
		"filter":        "score >= 4.0",
		"queries_count": conn.Count(),
		"indexed": gin.H{
			"results_count": indexedCount,
			"elapsed_ms":    float64(indexedElapsed.Microseconds()) / 1000,
		},
		"non_indexed": gin.H{
			"results_count": scanCount,
			"elapsed_ms":    float64(scanElapsed.Microseconds()) / 1000,
		},
		"speedup_ratio": speedup,
	})
}
