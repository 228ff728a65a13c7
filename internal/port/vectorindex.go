package port

import "docrag/internal/domain"

// VectorIndex stores (id, vector, text, metadata) entries in named
// collections and supports nearest-neighbor retrieval by the collection's
// declared metric. Reads are safe concurrently; writes are serialized per
// store.
type VectorIndex interface {
	// CreateCollection declares a collection with a fixed dimension and
	// metric. Fails with domain.ErrCollectionExists unless recreate is set,
	// in which case the old collection is replaced in one transaction.
	CreateCollection(name string, dimension int, metric domain.Metric, recreate bool) error

	// Upsert adds or overwrites entries by id. Dimensions are validated for
	// the whole batch before anything is written.
	Upsert(collection string, entries []Entry) error

	// Search returns the top-k entries by descending similarity. Entries
	// with equal score are ordered by ascending id. Optional filters match
	// metadata fields exactly.
	Search(collection string, query []float32, k int, filters map[string]string) ([]SearchResult, error)

	// Delete removes entries by id. Unknown ids are ignored.
	Delete(collection string, ids []string) error

	// DropCollection removes a collection and all its entries.
	DropCollection(name string) error

	// Count returns the number of entries in a collection.
	Count(collection string) (int, error)

	// ListCollections returns metadata for every collection.
	ListCollections() ([]CollectionInfo, error)

	// Generation increases on every write; cache layers use it to detect
	// stale results.
	Generation() uint64

	Close() error
}

// Entry is a persisted vector record.
type Entry struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]string
}

// SearchResult pairs an entry with its similarity score.
type SearchResult struct {
	Entry Entry
	Score float64
}

// CollectionInfo describes a collection.
type CollectionInfo struct {
	Name      string
	Dimension int
	Metric    domain.Metric
	Entries   int
}
