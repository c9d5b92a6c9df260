package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var ingestForce bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest PDF resumes from the feed directory",
	Long: `Loads every PDF resume from the feed directory, chunks and embeds
the text, and stores the result in the document store. Documents whose
content is unchanged since the last run are skipped unless --force is set.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestForce, "force", "f", false, "reprocess documents even when unchanged")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	cmd.Println("Ingesting resumes...")

	report, err := ingestService.Run(context.Background(), ingestForce)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	cmd.Printf("Documents seen:    %d\n", report.DocumentsSeen)
	cmd.Printf("Documents skipped: %d\n", report.DocumentsSkipped)
	cmd.Printf("Documents failed:  %d\n", report.DocumentsFailed)
	cmd.Printf("Chunks created:    %d\n", report.ChunksCreated)
	cmd.Printf("Chunks embedded:   %d\n", report.ChunksEmbedded)
	return nil
}
