package index

// EventIndex defines the ledger index operations. Consumers should depend on
// this interface rather than the concrete *DB type.
type EventIndex interface {
	UpsertEvent(row EventRow) error
	DeleteEvent(line int) error
	TruncateAfter(line int) ([]int, error)
	AllChecksums() (map[int]string, error)
	GetEvent(line int) (*EventRow, error)
	ListEvents(f Filter) ([]EventRow, int, error)
	TaskHistory(task string) ([]EventRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies EventIndex at compile time.
var _ EventIndex = (*DB)(nil)
