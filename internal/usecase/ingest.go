package usecase

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"catalograg/internal/adapter/catalog"
	"catalograg/internal/domain"
	"catalograg/internal/port"
)

// Ingestor populates the vector index from raw catalog rows:
// normalize -> embed (batched) -> upsert. Row failures are isolated; a
// bad row lands in the report, never aborts the run.
type Ingestor struct {
	normalizer *catalog.Normalizer
	embedder   port.Embedder
	index      port.VectorIndex
	batchSize  int
	workers    int

	// Progress, when set, is called after each committed batch.
	Progress func(done, total int)
}

// NewIngestor creates an ingestion pipeline.
func NewIngestor(normalizer *catalog.Normalizer, embedder port.Embedder, index port.VectorIndex, batchSize, workers int) *Ingestor {
	if batchSize <= 0 {
		batchSize = 64
	}
	if workers <= 0 {
		workers = 4
	}
	return &Ingestor{
		normalizer: normalizer,
		embedder:   embedder,
		index:      index,
		batchSize:  batchSize,
		workers:    workers,
	}
}

// pending pairs a source row with its normalized document while it waits
// for embedding.
type pending struct {
	row catalog.Row
	doc domain.Document
}

// Ingest processes all rows and reports what happened. Embedding runs in
// batches with bounded concurrency; each embedded batch commits to the
// index in a single transaction, so a crash mid-run leaves the index
// holding a clean prefix of the committed batches, never a torn entry.
func (u *Ingestor) Ingest(ctx context.Context, rows []catalog.Row) (*domain.IngestReport, error) {
	report := &domain.IngestReport{}

	var docs []pending
	for _, row := range rows {
		doc, err := u.normalizer.Normalize(row)
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, domain.RowError{
				Row: row.Index,
				Ref: row.Source,
				Err: err,
			})
			continue
		}
		docs = append(docs, pending{row: row, doc: doc})
	}

	var (
		mu   sync.Mutex
		done int
	)
	total := len(docs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)

	for start := 0; start < len(docs); start += u.batchSize {
		end := start + u.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		g.Go(func() error {
			inserted, rowErrs, err := u.ingestBatch(gctx, batch)
			if err != nil {
				return err
			}

			mu.Lock()
			report.Inserted += inserted
			report.Skipped += len(rowErrs)
			report.Errors = append(report.Errors, rowErrs...)
			done += len(batch)
			if u.Progress != nil {
				u.Progress(done, total)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Only infrastructure failures (index write, cancellation) reach
		// here; row-level failures are already in the report.
		return report, err
	}
	return report, nil
}

// ingestBatch embeds one batch and commits it. When the whole batch fails
// to embed, rows are retried one at a time so a single poisoned row does
// not sink its neighbors.
func (u *Ingestor) ingestBatch(ctx context.Context, batch []pending) (int, []domain.RowError, error) {
	texts := make([]string, len(batch))
	for i, p := range batch {
		texts[i] = p.doc.Text
	}

	vectors, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return u.ingestSingly(ctx, batch)
	}

	entries := make([]port.VectorEntry, len(batch))
	for i, p := range batch {
		entries[i] = port.VectorEntry{
			ID:       p.doc.ID,
			Vector:   vectors[i],
			Text:     p.doc.Text,
			Metadata: p.doc.Metadata,
		}
	}

	if err := u.index.Upsert(ctx, entries); err != nil {
		return 0, nil, err
	}
	return len(entries), nil, nil
}

func (u *Ingestor) ingestSingly(ctx context.Context, batch []pending) (int, []domain.RowError, error) {
	inserted := 0
	var rowErrs []domain.RowError

	for _, p := range batch {
		if err := ctx.Err(); err != nil {
			return inserted, rowErrs, err
		}

		vectors, err := u.embedder.Embed(ctx, []string{p.doc.Text})
		if err != nil {
			rowErrs = append(rowErrs, domain.RowError{
				Row: p.row.Index,
				Ref: p.row.Source,
				Err: err,
			})
			continue
		}

		entry := port.VectorEntry{
			ID:       p.doc.ID,
			Vector:   vectors[0],
			Text:     p.doc.Text,
			Metadata: p.doc.Metadata,
		}
		if err := u.index.Upsert(ctx, []port.VectorEntry{entry}); err != nil {
			return inserted, rowErrs, err
		}
		inserted++
	}
	return inserted, rowErrs, nil
}
