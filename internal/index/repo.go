package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/notelog/internal/apperr"
	"github.com/starford/notelog/internal/note"
)

// Row is one cached note file. Document is nil when the file could not be
// parsed; ParseError then says why.
type Row struct {
	Path       string
	Checksum   string
	Document   *note.Document
	ParseError string
	UpdatedAt  time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Summary string `json:"summary"`
	Snippet string `json:"snippet"`
}

// UpsertNote inserts or replaces a note and its FTS entry within a transaction.
func (db *DB) UpsertNote(r Row) error {
	var header, summary, content string
	if r.Document != nil {
		b, err := yaml.Marshal(r.Document.Header)
		if err != nil {
			return fmt.Errorf("index: encode header of %s: %w", r.Path, err)
		}
		header, summary, content = string(b), r.Document.Summary, r.Document.Content
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO notes (path, checksum, header, summary, content, parse_error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum    = excluded.checksum,
			header      = excluded.header,
			summary     = excluded.summary,
			content     = excluded.content,
			parse_error = excluded.parse_error,
			updated_at  = excluded.updated_at
	`, r.Path, r.Checksum, header, summary, content, r.ParseError, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, r.Path, summary, content); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteNote removes a note and its FTS entry.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns the stored checksum of every indexed path.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

const selectRow = `SELECT path, checksum, header, summary, content, parse_error, updated_at FROM notes`

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (Row, error) {
	var (
		r                        Row
		header, summary, content string
	)
	if err := s.Scan(&r.Path, &r.Checksum, &header, &summary, &content, &r.ParseError, &r.UpdatedAt); err != nil {
		return Row{}, err
	}
	if r.ParseError != "" {
		return r, nil
	}
	doc := &note.Document{Summary: summary, Content: content}
	if err := yaml.Unmarshal([]byte(header), &doc.Header); err != nil {
		return Row{}, fmt.Errorf("index: decode header of %s: %w", r.Path, err)
	}
	r.Document = doc
	return r, nil
}

// GetNote returns the cached row for path, or apperr.ErrNotFound.
func (db *DB) GetNote(path string) (*Row, error) {
	r, err := scanRow(db.conn.QueryRow(selectRow+` WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return &r, nil
}

// Documents returns every cached row ordered by path.
func (db *DB) Documents() ([]Row, error) {
	rows, err := db.conn.Query(selectRow + ` ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("index: documents: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
