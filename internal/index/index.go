package index

// NoteIndex is the cache the note service, Sync and Watch work against.
type NoteIndex interface {
	UpsertNote(r Row) error
	DeleteNote(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	GetNote(path string) (*Row, error)
	Documents() ([]Row, error)
	Search(query string, limit int) ([]SearchResult, error)
}

var _ NoteIndex = (*DB)(nil)
