// Package cachedemo serves the three cache tiers over the catalog: a manual
// key/value tier, a whole-response tier, and a fragment tier. All three share
// one injected backing store; none of them are invalidated by data mutation,
// so reads can be stale for up to the configured TTL.
package cachedemo

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cataloghub/pkg/cache"
	"cataloghub/pkg/database"
)

type Handler struct {
	DB    *sql.DB
	Store cache.Store
	TTL   time.Duration
}

func NewHandler(db *sql.DB, store cache.Store, ttl time.Duration) *Handler {
	return &Handler{DB: db, Store: store, TTL: ttl}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/manual", h.manual)
	rg.GET("/per-view", cache.PerView(h.Store, h.TTL), h.perView)
	rg.GET("/fragment", h.fragment)
}

// ratingsSummary is the "expensive" computation the cache tiers shelter:
// a full aggregate over the ratings table.
type ratingsSummary struct {
	RatingsCount int     `json:"ratings_count"`
	AverageScore float64 `json:"average_score"`
}

func (h *Handler) computeSummary(ctx context.Context, conn *database.Conn) (ratingsSummary, error) {
	var (
		n   int
		avg sql.NullFloat64
	)
	err := conn.QueryRowContext(ctx, `
		SELECT COUNT(*), AVG(score) FROM ratings
	`).Scan(&n, &avg)
	if err != nil {
		return ratingsSummary{}, err
	}
	return ratingsSummary{RatingsCount: n, AverageScore: avg.Float64}, nil
}

// manual drives the store directly: explicit key, get, recompute on miss,
// set. Deleting the key is the only way the entry leaves before its TTL.
func (h *Handler) manual(c *gin.Context) {
	const key = "manual:ratings_summary"
	ctx := c.Request.Context()
	conn := database.NewConn(h.DB)

	status := cache.StatusHit
	b, ok, err := h.Store.Get(ctx, key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache store unavailable"})
		return
	}
	if !ok {
		status = cache.StatusMiss
		summary, err := h.computeSummary(ctx, conn)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
			return
		}
		if b, err = json.Marshal(summary); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "encode failed"})
			return
		}
		if err := h.Store.Set(ctx, key, b, h.TTL); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cache store unavailable"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"cache_status":  status,
		"ttl_seconds":   int(h.TTL.Seconds()),
		"queries_count": conn.Count(),
		"payload":       json.RawMessage(b),
	})
}

// perView runs behind the cache.PerView middleware: within a TTL window the
// whole response body is replayed verbatim, generated_at included. The stale
// timestamp on a hit is the point of the demo, not a bug.
func (h *Handler) perView(c *gin.Context) {
	conn := database.NewConn(h.DB)
	summary, err := h.computeSummary(c.Request.Context(), conn)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"generated_at":  time.Now().UTC().Format(time.RFC3339Nano),
		"queries_count": conn.Count(),
		"payload":       summary,
	})
}

// fragment caches only the summary sub-computation; generated_at is computed
// on every call and differs between two hits on the same fragment.
func (h *Handler) fragment(c *gin.Context) {
	ctx := c.Request.Context()
	conn := database.NewConn(h.DB)

	b, status, err := cache.Fragment(ctx, h.Store, "fragment:ratings_summary", h.TTL,
		func(ctx context.Context) ([]byte, error) {
			summary, err := h.computeSummary(ctx, conn)
			if err != nil {
				return nil, err
			}
			return json.Marshal(summary)
		})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fragment failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cache_status":  status,
		"generated_at":  time.Now().UTC().Format(time.RFC3339Nano),
		"queries_count": conn.Count(),
		"fragment":      json.RawMessage(b),
	})
}
