//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Without FTS5 the notes table itself is searched with LIKE.
func initFTS(_ *sql.DB) error { return nil }

func ftsUpsert(_ *sql.Tx, _, _, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) error { return nil }

// Search returns notes, in path order, whose summary or content contain
// every term of query, ignoring ASCII case.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	where := make([]string, len(terms))
	args := make([]any, 0, 2*len(terms)+1)
	for i, t := range terms {
		where[i] = `(summary LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`
		p := likePattern(t)
		args = append(args, p, p)
	}
	args = append(args, limit)

	rows, err := db.conn.Query(`
		SELECT path, summary, content
		FROM notes
		WHERE parse_error = '' AND `+strings.Join(where, " AND ")+`
		ORDER BY path
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var (
			r       SearchResult
			content string
		)
		if err := rows.Scan(&r.Path, &r.Summary, &content); err != nil {
			return nil, err
		}
		r.Snippet = snippet(content, terms)
		out = append(out, r)
	}
	return out, rows.Err()
}
