package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"cataloghub/pkg/database"
)

// Bulk loader for the four flat tables. Items and categories must land
// before crossrefs, ratings and tags (foreign-key ordering); rows go in
// through chunked transactions so large dumps stay tractable.

const chunkSize = 1000

func main() {
	var (
		itemsIn     = flag.String("items", "data/items.csv", "items CSV: item_id,title,category_list")
		crossrefsIn = flag.String("crossrefs", "data/crossrefs.csv", "crossrefs CSV: item_id,external_id_a,external_id_b")
		ratingsIn   = flag.String("ratings", "data/ratings.csv", "ratings CSV: user_id,item_id,score,recorded_at")
		tagsIn      = flag.String("tags", "data/tags.csv", "tags CSV: user_id,item_id,label,recorded_at")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := importItems(ctx, db, *itemsIn); err != nil {
		log.Fatalf("import items failed: %v", err)
	}
	if err := importCrossRefs(ctx, db, *crossrefsIn); err != nil {
		log.Fatalf("import crossrefs failed: %v", err)
	}
	if err := importRatings(ctx, db, *ratingsIn); err != nil {
		log.Fatalf("import ratings failed: %v", err)
	}
	if err := importTags(ctx, db, *tagsIn); err != nil {
		log.Fatalf("import tags failed: %v", err)
	}

	log.Println("all data imported")
}

// importItems loads categories first (extracted from the pipe-separated
// category_list column), then items, then the join rows.
func importItems(ctx context.Context, db *sql.DB, path string) error {
	rows, header, err := readAll(path)
	if err != nil {
		return err
	}

	// pass 1: distinct category names
	seen := map[string]bool{}
	for _, row := range rows {
		for _, name := range splitCategories(valueAt(header, row, "category_list")) {
			seen[name] = true
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for name := range seen {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO categories (name) VALUES (?)
			ON CONFLICT(name) DO NOTHING
		`, name); err != nil {
			return fmt.Errorf("insert category %q: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("imported %d categories", len(seen))

	categoryIDs := map[string]int64{}
	catRows, err := db.QueryContext(ctx, `SELECT id, name FROM categories`)
	if err != nil {
		return err
	}
	defer catRows.Close()
	for catRows.Next() {
		var (
			id   int64
			name string
		)
		if err := catRows.Scan(&id, &name); err != nil {
			return err
		}
		categoryIDs[name] = id
	}
	if err := catRows.Err(); err != nil {
		return err
	}

	// pass 2: items + membership rows, chunked
	count := 0
	err = inChunks(ctx, db, rows, func(tx *sql.Tx, row []string) error {
		itemID, err := strconv.ParseInt(valueAt(header, row, "item_id"), 10, 64)
		if err != nil {
			return fmt.Errorf("bad item_id %q: %w", valueAt(header, row, "item_id"), err)
		}
		title := valueAt(header, row, "title")

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO items (item_id, title) VALUES (?, ?)
			ON CONFLICT(item_id) DO UPDATE SET title = excluded.title
		`, itemID, title); err != nil {
			return fmt.Errorf("insert item %d: %w", itemID, err)
		}

		for _, name := range splitCategories(valueAt(header, row, "category_list")) {
			catID, ok := categoryIDs[name]
			if !ok {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO item_categories (item_id, category_id) VALUES (?, ?)
				ON CONFLICT(item_id, category_id) DO NOTHING
			`, itemID, catID); err != nil {
				return fmt.Errorf("insert item category: %w", err)
			}
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("imported %d items", count)
	return nil
}

func importCrossRefs(ctx context.Context, db *sql.DB, path string) error {
	rows, header, err := readAll(path)
	if err != nil {
		return err
	}

	count := 0
	err = inChunks(ctx, db, rows, func(tx *sql.Tx, row []string) error {
		itemID, err := strconv.ParseInt(valueAt(header, row, "item_id"), 10, 64)
		if err != nil {
			return fmt.Errorf("bad item_id: %w", err)
		}
		a := valueAt(header, row, "external_id_a")
		var b any
		if s := valueAt(header, row, "external_id_b"); s != "" {
			b = s
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO crossrefs (item_id, external_id_a, external_id_b) VALUES (?, ?, ?)
			ON CONFLICT(item_id) DO UPDATE SET
			  external_id_a = excluded.external_id_a,
			  external_id_b = excluded.external_id_b
		`, itemID, a, b); err != nil {
			return fmt.Errorf("insert crossref %d: %w", itemID, err)
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("imported %d crossrefs", count)
	return nil
}

func importRatings(ctx context.Context, db *sql.DB, path string) error {
	rows, header, err := readAll(path)
	if err != nil {
		return err
	}

	count := 0
	err = inChunks(ctx, db, rows, func(tx *sql.Tx, row []string) error {
		userID, err := strconv.ParseInt(valueAt(header, row, "user_id"), 10, 64)
		if err != nil {
			return fmt.Errorf("bad user_id: %w", err)
		}
		itemID, err := strconv.ParseInt(valueAt(header, row, "item_id"), 10, 64)
		if err != nil {
			return fmt.Errorf("bad item_id: %w", err)
		}
		score, err := strconv.ParseFloat(valueAt(header, row, "score"), 64)
		if err != nil {
			return fmt.Errorf("bad score: %w", err)
		}
		recordedAt, err := strconv.ParseInt(valueAt(header, row, "recorded_at"), 10, 64)
		if err != nil {
			return fmt.Errorf("bad recorded_at: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ratings (user_id, item_id, score, recorded_at) VALUES (?, ?, ?, ?)
		`, userID, itemID, score, recordedAt); err != nil {
			return fmt.Errorf("insert rating: %w", err)
		}
		count++
		if count%10000 == 0 {
			log.Printf("imported %d ratings...", count)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("imported %d ratings", count)
	return nil
}

func importTags(ctx context.Context, db *sql.DB, path string) error {
	rows, header, err := readAll(path)
	if err != nil {
		return err
	}

	count := 0
	err = inChunks(ctx, db, rows, func(tx *sql.Tx, row []string) error {
		userID, err := strconv.ParseInt(valueAt(header, row, "user_id"), 10, 64)
		if err != nil {
			return fmt.Errorf("bad user_id: %w", err)
		}
		itemID, err := strconv.ParseInt(valueAt(header, row, "item_id"), 10, 64)
		if err != nil {
			return fmt.Errorf("bad item_id: %w", err)
		}
		recordedAt, err := strconv.ParseInt(valueAt(header, row, "recorded_at"), 10, 64)
		if err != nil {
			return fmt.Errorf("bad recorded_at: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tags (user_id, item_id, label, recorded_at) VALUES (?, ?, ?, ?)
		`, userID, itemID, valueAt(header, row, "label"), recordedAt); err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("imported %d tags", count)
	return nil
}

// inChunks runs fn per row inside transactions of chunkSize rows each.
func inChunks(ctx context.Context, db *sql.DB, rows [][]string, fn func(tx *sql.Tx, row []string) error) error {
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		for _, row := range rows[start:end] {
			if len(row) == 0 {
				continue
			}
			if err := fn(tx, row); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func readAll(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return nil, nil, err
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
	}
	return rows, header, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]int, len(row))
	for i, name := range row {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, name string) string {
	i, ok := header[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func splitCategories(list string) []string {
	if list == "" || list == "(no categories listed)" {
		return nil
	}
	var out []string
	for _, name := range strings.Split(list, "|") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
