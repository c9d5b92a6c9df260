package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/cvscreener/internal/core/ports/driving"
)

var (
	askTopK int
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the ingested resumes",
	Long: `Runs one question through the retrieval pipeline and prints the
answer with its sources.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of sources to retrieve (0 uses the configured default)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]

	if conversationService == nil {
		return errors.New("conversation service not configured")
	}

	result, err := conversationService.Query(context.Background(), question, askTopK)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if askJSON {
		return outputAskJSON(cmd, result)
	}

	cmd.Println(result.Answer)
	if len(result.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i := range result.Sources {
			r := &result.Sources[i]
			cmd.Printf("  [%d] %s (%.2f)\n", i+1, r.Title, r.Similarity())
		}
	}
	return nil
}

func outputAskJSON(cmd *cobra.Command, result *driving.QueryResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
