// Package storage defines the notes directory abstraction.
package storage

import "time"

// Entry describes one note file on disk.
type Entry struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for note file operations. Paths are relative to
// the notes directory.
type Provider interface {
	// List returns an entry for every visible .md file under dir.
	List(dir string) ([]Entry, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Exists reports whether a file is present at path.
	Exists(path string) (bool, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path and prunes emptied directories.
	Delete(path string) error
}
