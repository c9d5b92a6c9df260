package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/cvscreener/internal/core/domain"
	"github.com/custodia-labs/cvscreener/internal/core/ports/driving"
)

type mockConversationService struct {
	result   *driving.QueryResult
	err      error
	lastTopK int
}

func (m *mockConversationService) Query(_ context.Context, _ string, topK int) (*driving.QueryResult, error) {
	m.lastTopK = topK
	return m.result, m.err
}

func (m *mockConversationService) ClearHistory()   {}
func (m *mockConversationService) HistoryLen() int { return 0 }

type mockIngestService struct {
	report    *driving.IngestReport
	stats     *driving.CorpusStats
	err       error
	lastForce bool
}

func (m *mockIngestService) Run(_ context.Context, force bool) (*driving.IngestReport, error) {
	m.lastForce = force
	return m.report, m.err
}

func (m *mockIngestService) Stats(context.Context) (*driving.CorpusStats, error) {
	return m.stats, m.err
}

type mockRunner struct {
	runs int
	err  error
}

func (m *mockRunner) Run() error {
	m.runs++
	return m.err
}

// setupTestServices swaps mock services into the package and returns a
// cleanup restoring the previous wiring.
func setupTestServices() func() {
	oldConv, oldIngest, oldServer := conversationService, ingestService, apiServer
	conversationService = &mockConversationService{
		result: &driving.QueryResult{
			Answer: "Jane Doe is a backend engineer [1].",
			Sources: []domain.RetrievedResult{
				{ChunkID: "c1", Title: "Jane Doe", VectorScore: 0.9, HasVectorScore: true},
			},
		},
	}
	ingestService = &mockIngestService{
		report: &driving.IngestReport{DocumentsSeen: 3, ChunksCreated: 12, ChunksEmbedded: 12},
		stats:  &driving.CorpusStats{Documents: 3, Chunks: 12},
	}
	apiServer = &mockRunner{}
	return func() {
		conversationService, ingestService, apiServer = oldConv, oldIngest, oldServer
	}
}

func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "cvscreener", rootCmd.Use)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}

	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "ingest")
	assert.Contains(t, names, "ask")
	assert.Contains(t, names, "stats")
	assert.Contains(t, names, "version")
}
