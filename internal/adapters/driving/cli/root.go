// Package cli wires the cobra command tree. Services are injected by main
// through SetServices before Execute runs.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/cvscreener/internal/core/ports/driving"
)

var version = "dev"

// Runner is a long-running server started by the serve command.
type Runner interface {
	Run() error
}

var (
	conversationService driving.ConversationService
	ingestService       driving.IngestService
	apiServer           Runner
)

var rootCmd = &cobra.Command{
	Use:   "cvscreener",
	Short: "RAG service over PDF resumes",
	Long: `cvscreener ingests PDF resumes into a vector store and answers
questions about the candidates through a retrieval-augmented pipeline.`,
	SilenceUsage: true,
}

// SetServices injects the application services the commands run against.
func SetServices(conv driving.ConversationService, ingest driving.IngestService, server Runner) {
	conversationService = conv
	ingestService = ingest
	apiServer = server
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
