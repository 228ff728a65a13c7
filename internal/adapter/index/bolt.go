// Package index implements the persisted vector index on bbolt. Entries are
// grouped into named collections, each declared with a fixed dimension and
// similarity metric. Search is exact k-nearest-neighbor over an in-memory
// entry cache; the cache is rebuilt from disk on open.
package index

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"docrag/internal/domain"
	"docrag/internal/port"
)

var bucketCollections = []byte("collections")

var _ port.VectorIndex = (*BoltIndex)(nil)

func entriesBucket(name string) []byte {
	return []byte("entries:" + name)
}

// BoltIndex implements port.VectorIndex using bbolt for persistence.
// Reads take the shared lock; writes take the exclusive lock, which gives
// the single-writer discipline per store. A recreate replaces the old
// collection inside one transaction and swaps the cache under the write
// lock, so readers never observe a partially rebuilt collection.
type BoltIndex struct {
	db *bbolt.DB

	mu          sync.RWMutex
	collections map[string]*collection
	generation  uint64
}

type collection struct {
	dimension int
	metric    domain.Metric
	entries   map[string]cachedEntry
}

type cachedEntry struct {
	vector   []float32
	text     string
	metadata map[string]string
}

type storedMeta struct {
	Dimension int           `json:"dimension"`
	Metric    domain.Metric `json:"metric"`
}

type storedEntry struct {
	Vector   []float32         `json:"v"`
	Text     string            `json:"t"`
	Metadata map[string]string `json:"m,omitempty"`
}

// NewBoltIndex opens (or creates) the index file and loads all collections
// into memory.
func NewBoltIndex(path string) (*BoltIndex, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open index db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCollections)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create collections bucket: %w", err)
	}

	idx := &BoltIndex{
		db:          db,
		collections: make(map[string]*collection),
	}
	if err := idx.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load collections: %w", err)
	}
	return idx, nil
}

func (x *BoltIndex) load() error {
	return x.db.View(func(tx *bbolt.Tx) error {
		metaBucket := tx.Bucket(bucketCollections)
		return metaBucket.ForEach(func(k, v []byte) error {
			var meta storedMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return nil // Skip corrupted metadata
			}

			col := &collection{
				dimension: meta.Dimension,
				metric:    meta.Metric,
				entries:   make(map[string]cachedEntry),
			}

			if eb := tx.Bucket(entriesBucket(string(k))); eb != nil {
				_ = eb.ForEach(func(id, data []byte) error {
					var stored storedEntry
					if err := json.Unmarshal(data, &stored); err != nil {
						return nil // Skip corrupted entries
					}
					col.entries[string(id)] = cachedEntry{
						vector:   stored.Vector,
						text:     stored.Text,
						metadata: stored.Metadata,
					}
					return nil
				})
			}

			x.collections[string(k)] = col
			return nil
		})
	})
}

// CreateCollection declares a collection. With recreate the existing
// collection (if any) is dropped and replaced in the same transaction.
func (x *BoltIndex) CreateCollection(name string, dimension int, metric domain.Metric, recreate bool) error {
	if name == "" {
		return fmt.Errorf("%w: collection name must not be empty", domain.ErrInvalidArgument)
	}
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidConfiguration, dimension)
	}
	if _, err := domain.ParseMetric(string(metric)); err != nil {
		return err
	}
	if metric == "" {
		metric = domain.MetricCosine
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if _, exists := x.collections[name]; exists && !recreate {
		return fmt.Errorf("%w: %s", domain.ErrCollectionExists, name)
	}

	err := x.db.Update(func(tx *bbolt.Tx) error {
		meta, err := json.Marshal(storedMeta{Dimension: dimension, Metric: metric})
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketCollections).Put([]byte(name), meta); err != nil {
			return err
		}
		if tx.Bucket(entriesBucket(name)) != nil {
			if err := tx.DeleteBucket(entriesBucket(name)); err != nil {
				return err
			}
		}
		_, err = tx.CreateBucket(entriesBucket(name))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	x.collections[name] = &collection{
		dimension: dimension,
		metric:    metric,
		entries:   make(map[string]cachedEntry),
	}
	x.generation++
	return nil
}

// Upsert adds or overwrites entries by id. The whole batch is dimension
// checked before anything is written, so a bad vector causes no partial
// write.
func (x *BoltIndex) Upsert(name string, entries []port.Entry) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	col, exists := x.collections[name]
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}

	for _, e := range entries {
		if len(e.Vector) != col.dimension {
			return fmt.Errorf("%w: collection %s expects %d, entry %s has %d",
				domain.ErrDimensionMismatch, name, col.dimension, e.ID, len(e.Vector))
		}
	}

	err := x.db.Update(func(tx *bbolt.Tx) error {
		eb := tx.Bucket(entriesBucket(name))
		if eb == nil {
			return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
		}
		for _, e := range entries {
			data, err := json.Marshal(storedEntry{Vector: e.Vector, Text: e.Text, Metadata: e.Metadata})
			if err != nil {
				return err
			}
			if err := eb.Put([]byte(e.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, e := range entries {
		col.entries[e.ID] = cachedEntry{vector: e.Vector, text: e.Text, metadata: e.Metadata}
	}
	x.generation++
	return nil
}

// Search returns the top-k entries by descending similarity. Equal scores
// are ordered by ascending id for determinism.
func (x *BoltIndex) Search(name string, query []float32, k int, filters map[string]string) ([]port.SearchResult, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	col, exists := x.collections[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}
	if len(query) != col.dimension {
		return nil, fmt.Errorf("%w: collection %s expects %d, query has %d",
			domain.ErrDimensionMismatch, name, col.dimension, len(query))
	}

	type scored struct {
		id    string
		score float64
		entry cachedEntry
	}

	scores := make([]scored, 0, len(col.entries))
	for id, entry := range col.entries {
		if !matchesFilters(entry.metadata, filters) {
			continue
		}
		scores = append(scores, scored{
			id:    id,
			score: similarity(col.metric, query, entry.vector),
			entry: entry,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].id < scores[j].id
	})

	if k > len(scores) {
		k = len(scores)
	}
	results := make([]port.SearchResult, k)
	for i := 0; i < k; i++ {
		results[i] = port.SearchResult{
			Entry: port.Entry{
				ID:       scores[i].id,
				Vector:   scores[i].entry.vector,
				Text:     scores[i].entry.text,
				Metadata: scores[i].entry.metadata,
			},
			Score: scores[i].score,
		}
	}
	return results, nil
}

// Delete removes entries by id. Unknown ids are ignored.
func (x *BoltIndex) Delete(name string, ids []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	col, exists := x.collections[name]
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}

	err := x.db.Update(func(tx *bbolt.Tx) error {
		eb := tx.Bucket(entriesBucket(name))
		if eb == nil {
			return nil
		}
		for _, id := range ids {
			if err := eb.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range ids {
		delete(col.entries, id)
	}
	x.generation++
	return nil
}

// DropCollection removes a collection and all its entries.
func (x *BoltIndex) DropCollection(name string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, exists := x.collections[name]; !exists {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}

	err := x.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketCollections).Delete([]byte(name)); err != nil {
			return err
		}
		if tx.Bucket(entriesBucket(name)) != nil {
			return tx.DeleteBucket(entriesBucket(name))
		}
		return nil
	})
	if err != nil {
		return err
	}

	delete(x.collections, name)
	x.generation++
	return nil
}

// Count returns the number of entries in a collection.
func (x *BoltIndex) Count(name string) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	col, exists := x.collections[name]
	if !exists {
		return 0, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	return len(col.entries), nil
}

// ListCollections returns metadata for every collection, sorted by name.
func (x *BoltIndex) ListCollections() ([]port.CollectionInfo, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	infos := make([]port.CollectionInfo, 0, len(x.collections))
	for name, col := range x.collections {
		infos = append(infos, port.CollectionInfo{
			Name:      name,
			Dimension: col.dimension,
			Metric:    col.metric,
			Entries:   len(col.entries),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Generation increases on every write.
func (x *BoltIndex) Generation() uint64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.generation
}

func (x *BoltIndex) Close() error {
	return x.db.Close()
}

func matchesFilters(metadata, filters map[string]string) bool {
	for k, v := range filters {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// similarity scores query against vec by the collection metric. For the
// euclidean metric the negated distance is returned, so "higher is better"
// holds for every metric.
func similarity(metric domain.Metric, query, vec []float32) float64 {
	switch metric {
	case domain.MetricDot:
		return dotProduct(query, vec)
	case domain.MetricEuclidean:
		return -euclideanDistance(query, vec)
	default:
		return cosineSimilarity(query, vec)
	}
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func dotProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func euclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
