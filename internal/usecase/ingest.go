package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"docrag/internal/domain"
	"docrag/internal/logger"
	"docrag/internal/port"
)

// Ingestor runs the indexing pipeline: walk files, load documents, chunk,
// embed, upsert. Embedding calls across documents are bounded by a
// semaphore so a large corpus cannot flood the provider.
type Ingestor struct {
	walker      FileWalker
	loader      port.Loader
	chunker     port.Chunker
	embedder    port.Embedder
	index       port.VectorIndex
	collection  string
	metric      domain.Metric
	concurrency int
}

// FileWalker enumerates indexable files under a root.
type FileWalker interface {
	Walk(root string) ([]string, error)
}

type IngestorOptions struct {
	Walker      FileWalker
	Loader      port.Loader
	Chunker     port.Chunker
	Embedder    port.Embedder
	Index       port.VectorIndex
	Collection  string
	Metric      domain.Metric
	Concurrency int
}

func NewIngestor(opts IngestorOptions) *Ingestor {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Ingestor{
		walker:      opts.Walker,
		loader:      opts.Loader,
		chunker:     opts.Chunker,
		embedder:    opts.Embedder,
		index:       opts.Index,
		collection:  opts.Collection,
		metric:      opts.Metric,
		concurrency: concurrency,
	}
}

// Ingest indexes every matching file under root into the collection and
// returns the number of chunks written. The collection is created on first
// use. Documents with no extractable text are skipped with a warning.
// progress, when non-nil, is called after each file completes.
func (in *Ingestor) Ingest(ctx context.Context, root string, progress func(done, total int)) (int, error) {
	files, err := in.walker.Walk(root)
	if err != nil {
		return 0, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	if len(files) == 0 {
		return 0, nil
	}

	err = in.index.CreateCollection(in.collection, in.embedder.Dimension(), in.metric, false)
	if err != nil && !errors.Is(err, domain.ErrCollectionExists) {
		return 0, err
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		total    int
		done     int
	)
	sem := make(chan struct{}, in.concurrency)

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(file string) {
			defer wg.Done()
			defer func() { <-sem }()

			count, err := in.ingestFile(ctx, file)

			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", file, err)
			}
			total += count
			done++
			if progress != nil {
				progress(done, len(files))
			}
		}(file)
	}
	wg.Wait()

	if firstErr != nil {
		return total, firstErr
	}
	if err := ctx.Err(); err != nil {
		return total, err
	}
	return total, nil
}

func (in *Ingestor) ingestFile(ctx context.Context, file string) (int, error) {
	docs, err := in.loader.Load(file)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, doc := range docs {
		chunks, err := in.chunker.Split(doc)
		if err != nil {
			if errors.Is(err, domain.ErrEmptyDocument) {
				logger.Warnf("skipping %s page %d: no extractable text", doc.Source, doc.Page)
				continue
			}
			return count, err
		}

		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vectors, err := in.embedder.Embed(ctx, texts)
		if err != nil {
			return count, err
		}
		if len(vectors) != len(chunks) {
			return count, fmt.Errorf("%w: embedded %d of %d chunks",
				domain.ErrEmbeddingProvider, len(vectors), len(chunks))
		}

		entries := make([]port.Entry, len(chunks))
		for i, c := range chunks {
			entries[i] = port.Entry{
				ID:     c.ID,
				Vector: vectors[i],
				Text:   c.Text,
				Metadata: map[string]string{
					"doc_id": c.DocID,
					"source": c.Source,
					"page":   strconv.Itoa(c.Page),
					"seq":    strconv.Itoa(c.Seq),
				},
			}
		}
		if err := in.index.Upsert(in.collection, entries); err != nil {
			return count, err
		}
		count += len(entries)
	}
	return count, nil
}
