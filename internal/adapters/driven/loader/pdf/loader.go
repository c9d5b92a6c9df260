// Package pdf loads PDF resumes from a feed directory and normalises them
// into documents ready for chunking and embedding.
package pdf

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	pdfreader "github.com/ledongthuc/pdf"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
	"github.com/custodia-labs/cvscreener/internal/core/ports/driven"
	"github.com/custodia-labs/cvscreener/internal/logger"
)

// Ensure Loader implements the interface.
var _ driven.ResumeLoader = (*Loader)(nil)

// filePrefix strips "cv-01-" style prefixes when guessing candidate names.
var filePrefix = regexp.MustCompile(`(?i)^cv[-_]*\d*[-_]*`)

// Loader reads every *.pdf in a directory. A file that fails to parse or
// yields no text is logged and skipped; it never aborts the whole load.
type Loader struct {
	dir string
	log logger.Logger
}

// NewLoader creates a loader over the feed directory.
func NewLoader(dir string, log logger.Logger) *Loader {
	if log == nil {
		log = logger.Default()
	}
	return &Loader{dir: dir, log: log}
}

// Load returns one document per readable resume, ordered by file name.
func (l *Loader) Load(ctx context.Context) ([]domain.Document, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read feed directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	l.log.Info("scanning feed directory", "dir", l.dir, "pdf_files", len(names))

	var docs []domain.Document
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(l.dir, name)

		text, pages, err := extractText(path)
		if err != nil {
			l.log.Error("failed to process resume", "file", name, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			l.log.Warn("empty text extracted, skipping", "file", name)
			continue
		}

		stem := strings.TrimSuffix(name, filepath.Ext(name))
		candidate := guessCandidateName(stem)
		sum := md5.Sum([]byte(text))

		docs = append(docs, domain.Document{
			URL:     "cv://" + stem,
			Title:   candidate,
			Content: text,
			Metadata: map[string]any{
				"candidate":     candidate,
				"source_file":   name,
				"source_path":   path,
				"document_type": "resume",
				"pages":         pages,
			},
			ContentHash: hex.EncodeToString(sum[:]),
		})
	}

	l.log.Info("loaded resumes", "count", len(docs))
	return docs, nil
}

// extractText pulls plain text from every page, joined by blank lines.
func extractText(path string) (string, int, error) {
	f, reader, err := pdfreader.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pageCount := reader.NumPage()
	var pages []string
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("extract page %d: %w", i, err)
		}
		if cleaned := strings.TrimSpace(text); cleaned != "" {
			pages = append(pages, cleaned)
		}
	}
	return strings.Join(pages, "\n\n"), pageCount, nil
}

// guessCandidateName infers a readable name from the file stem:
// "cv-01-jane_doe" becomes "Jane Doe". Falls back to the stem itself.
func guessCandidateName(stem string) string {
	cleaned := filePrefix.ReplaceAllString(stem, "")
	cleaned = strings.NewReplacer("_", " ", "-", " ").Replace(cleaned)
	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return stem
	}
	for i, f := range fields {
		fields[i] = titleCase(f)
	}
	return strings.Join(fields, " ")
}

func titleCase(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
}
