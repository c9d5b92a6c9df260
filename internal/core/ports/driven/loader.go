package driven

import (
	"context"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
)

// ResumeLoader reads raw resumes from a source directory and normalises
// them into documents ready for chunking and embedding.
type ResumeLoader interface {
	// Load returns one document per readable resume. A file that fails to
	// parse is logged and skipped; it never aborts the whole load.
	Load(ctx context.Context) ([]domain.Document, error)
}
