// Package index walks a story repository, chunks every markdown document
// according to its type, embeds the chunks, and loads them into the vector
// store in batches.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/karrick/godirwalk"

	"github.com/lorebase/lorebase/engine/config"
	"github.com/lorebase/lorebase/engine/domain"
	"github.com/lorebase/lorebase/engine/segment"
	"github.com/lorebase/lorebase/engine/semantic"
	"github.com/lorebase/lorebase/pkg/fn"
	"github.com/lorebase/lorebase/pkg/metrics"
)

// Embedder turns chunk texts into vectors. A single failure fails the whole
// batch; a document is never stored with partial vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the subset of the vector store the indexer drives.
type Store interface {
	EnsureCollection(ctx context.Context, dims int) error
	DeleteCollection(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	Upsert(ctx context.Context, records []semantic.Record) error
}

// Walker abstracts directory traversal.
type Walker interface {
	Walk(root string, options *godirwalk.Options) error
}

// FileReader abstracts file reads.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

type osWalker struct{}

func (osWalker) Walk(root string, options *godirwalk.Options) error {
	return godirwalk.Walk(root, options)
}

type osFileReader struct{}

func (osFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Deps holds the indexer's collaborators. Walker and Reader default to the
// real filesystem; Metrics and Logger may be nil.
type Deps struct {
	Segmenter *segment.Segmenter
	Embedder  Embedder
	Store     Store
	Rules     []config.DocTypeRule
	Walker    Walker
	Reader    FileReader
	Metrics   *metrics.Registry
	Logger    *slog.Logger
}

// Options bounds an indexing run.
type Options struct {
	// Dimensions is the embedding vector size, used when creating the
	// collection.
	Dimensions int
	// Workers bounds concurrent per-file processing.
	Workers int
	// StorageBatchSize is the number of records per upsert.
	StorageBatchSize int
	// IgnorePatterns skips any path containing one of these substrings.
	IgnorePatterns []string
}

// Indexer runs bulk indexing over a document tree.
type Indexer struct {
	deps Deps
	opts Options
	log  *slog.Logger
}

// New creates an Indexer, filling in filesystem and logging defaults.
func New(deps Deps, opts Options) *Indexer {
	if deps.Walker == nil {
		deps.Walker = osWalker{}
	}
	if deps.Reader == nil {
		deps.Reader = osFileReader{}
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{deps: deps, opts: opts, log: log}
}

// Stats summarizes one indexing run.
type Stats struct {
	FilesIndexed int `json:"files_indexed"`
	FilesSkipped int `json:"files_skipped"`
	Chunks       int `json:"chunks"`
}

// fileDoc is one parsed document on its way through the pipeline.
type fileDoc struct {
	relPath string
	chunks  []domain.Chunk
	skipped bool
}

// fileOutput is the result of processing one document.
type fileOutput struct {
	records []semantic.Record
	skipped bool
}

// corpusBatch is everything one run produced, ready for storage.
type corpusBatch struct {
	stats   Stats
	records []semantic.Record
}

// Run indexes every markdown file under root. With force, the collection is
// rebuilt from scratch; without it, a populated collection makes the run a
// no-op so repeated starts never re-embed the corpus.
func (ix *Indexer) Run(ctx context.Context, root string, force bool) (Stats, error) {
	start := time.Now()

	populated, err := ix.prepareCollection(ctx, force)
	if err != nil {
		return Stats{}, err
	}
	if populated {
		ix.log.Info("collection already populated, skipping indexing", "root", root)
		return Stats{}, nil
	}

	files, err := ix.collectFiles(root)
	if err != nil {
		return Stats{}, fmt.Errorf("index: walk %s: %w", root, err)
	}
	ix.log.Info("indexing started", "root", root, "files", len(files), "workers", ix.opts.Workers)

	// One file flows parse → embed; the corpus fans the file stage out over
	// the worker pool and folds the outputs into a storage batch.
	fileStage := fn.TracedStage("index.file", fn.Then(ix.parseFile(root), ix.embedFile))
	corpusStage := fn.Then(
		fn.BatchStage(ix.opts.Workers, fileStage),
		fn.MapStage(summarize),
	)
	batch, err := corpusStage(ctx, files).Unwrap()
	if err != nil {
		return Stats{}, err
	}
	stats := batch.stats

	for _, records := range fn.Chunk(batch.records, ix.opts.StorageBatchSize) {
		if err := ix.deps.Store.Upsert(ctx, records); err != nil {
			return stats, fmt.Errorf("index: store batch: %w", err)
		}
	}

	if reg := ix.deps.Metrics; reg != nil {
		reg.Counter("lorebase_index_files_total", "Files indexed").Add(int64(stats.FilesIndexed))
		reg.Counter("lorebase_index_chunks_total", "Chunks stored").Add(int64(stats.Chunks))
		reg.Histogram("lorebase_index_run_seconds", "Duration of indexing runs", nil).Since(start)
	}
	ix.log.Info("indexing finished",
		"files", stats.FilesIndexed, "skipped", stats.FilesSkipped,
		"chunks", stats.Chunks, "duration", time.Since(start))
	return stats, nil
}

// prepareCollection returns true when the collection already holds points
// and the run should be skipped.
func (ix *Indexer) prepareCollection(ctx context.Context, force bool) (bool, error) {
	if force {
		if err := ix.deps.Store.DeleteCollection(ctx); err != nil {
			// A missing collection is fine; the recreate below decides.
			ix.log.Warn("delete collection", "error", err)
		}
		if err := ix.deps.Store.EnsureCollection(ctx, ix.opts.Dimensions); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := ix.deps.Store.EnsureCollection(ctx, ix.opts.Dimensions); err != nil {
		return false, err
	}
	count, err := ix.deps.Store.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// parseFile reads, classifies, and segments one document. Unreadable files
// are logged and skipped, not failed.
func (ix *Indexer) parseFile(root string) fn.Stage[string, fileDoc] {
	return func(_ context.Context, path string) fn.Result[fileDoc] {
		data, err := ix.deps.Reader.ReadFile(path)
		if err != nil {
			ix.log.Warn("unreadable file skipped", "path", path, "error", err)
			return fn.Ok(fileDoc{skipped: true})
		}

		relPath := path
		if rel, err := filepath.Rel(root, path); err == nil {
			relPath = rel
		}

		docType, strategy := Classify(relPath, ix.deps.Rules)
		chunks := ix.deps.Segmenter.Segment(string(data), relPath, docType, strategy)
		if len(chunks) == 0 {
			return fn.Ok(fileDoc{skipped: true})
		}
		return fn.Ok(fileDoc{relPath: relPath, chunks: chunks})
	}
}

// embedFile turns a parsed document's chunks into storable records.
// Embedding failures fail the run.
func (ix *Indexer) embedFile(ctx context.Context, doc fileDoc) fn.Result[fileOutput] {
	if doc.skipped {
		return fn.Ok(fileOutput{skipped: true})
	}

	texts := fn.Map(doc.chunks, func(c domain.Chunk) string { return c.Content })
	vectors, err := ix.deps.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fn.Errf[fileOutput]("index: embed %s: %w", doc.relPath, err)
	}
	if len(vectors) != len(doc.chunks) {
		return fn.Errf[fileOutput]("index: embed %s: %d vectors for %d chunks", doc.relPath, len(vectors), len(doc.chunks))
	}

	records := make([]semantic.Record, len(doc.chunks))
	for i, c := range doc.chunks {
		records[i] = semantic.Record{Chunk: c, Vector: vectors[i]}
	}
	return fn.Ok(fileOutput{records: records})
}

// summarize folds per-file outputs into run stats and one record list.
func summarize(outputs []fileOutput) corpusBatch {
	var batch corpusBatch
	for _, out := range outputs {
		if out.skipped {
			batch.stats.FilesSkipped++
			continue
		}
		batch.stats.FilesIndexed++
		batch.records = append(batch.records, out.records...)
	}
	batch.stats.Chunks = len(batch.records)
	return batch
}

// collectFiles gathers markdown paths under root, sorted for deterministic
// runs.
func (ix *Indexer) collectFiles(root string) ([]string, error) {
	var files []string
	err := ix.deps.Walker.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de != nil && de.IsDir() {
				if path != root && ix.ignored(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(path, ".md") || ix.ignored(path) {
				return nil
			}
			files = append(files, path)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (ix *Indexer) ignored(path string) bool {
	for _, pattern := range ix.opts.IgnorePatterns {
		if strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}
