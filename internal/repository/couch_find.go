package repository

import (
	"context"

	"github.com/go-kivik/kivik/v4"
)

// findPageSize bounds every Mango query. Without an explicit limit CouchDB
// answers _find with at most 25 documents.
const findPageSize = 200

// findPage runs one Mango query and reports how many documents it returned
// and the bookmark of the next page.
type findPage func(ctx context.Context, query map[string]interface{}) (int, string, error)

// findAll pages through every document matching selector. It stops at the
// first short page or when the bookmark stops moving.
func findAll(ctx context.Context, selector map[string]interface{}, fields []string, page findPage) error {
	bookmark := ""
	for {
		query := map[string]interface{}{
			"selector": selector,
			"limit":    findPageSize,
		}
		if len(fields) > 0 {
			query["fields"] = fields
		}
		if bookmark != "" {
			query["bookmark"] = bookmark
		}

		n, next, err := page(ctx, query)
		if err != nil {
			return err
		}
		if n < findPageSize || next == "" || next == bookmark {
			return nil
		}
		bookmark = next
	}
}

// scanPage runs query against db, passing each row to scan.
func scanPage(ctx context.Context, db *kivik.DB, query map[string]interface{}, scan func(*kivik.ResultSet) error) (int, string, error) {
	rows := db.Find(ctx, query)
	defer rows.Close()

	n := 0
	for rows.Next() {
		if err := scan(rows); err != nil {
			return 0, "", err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, "", err
	}

	meta, err := rows.Metadata()
	if err != nil {
		return 0, "", err
	}
	return n, meta.Bookmark, nil
}
