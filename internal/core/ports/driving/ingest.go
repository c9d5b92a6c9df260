package driving

import "context"

// IngestService processes resumes into embedded chunks in the document store.
type IngestService interface {
	// Run loads, chunks, embeds and stores every resume from the feed.
	// force reprocesses documents even when their content hash is unchanged.
	// One failing document is logged and skipped; the run proceeds.
	Run(ctx context.Context, force bool) (*IngestReport, error)

	// Stats returns corpus counts from the document store.
	Stats(ctx context.Context) (*CorpusStats, error)
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	DocumentsSeen    int
	DocumentsSkipped int
	DocumentsFailed  int
	ChunksCreated    int
	ChunksEmbedded   int
}

// CorpusStats holds document store counts.
type CorpusStats struct {
	Documents int
	Chunks    int
}
