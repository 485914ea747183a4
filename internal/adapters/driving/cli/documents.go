package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	documentsAfter   int64
	documentsLimit   int
	documentsJSON    bool
	documentsDetails bool
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"document", "docs"},
	Short:   "Manage corpus documents",
	Long:    `Import, list and inspect the segmented articles of the corpus.`,
}

var documentsImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import documents from JSON lines",
	Long: `Imports one document per line of {"title": ..., "body": ..., "parent_id": ...}.
Reads standard input when no file is given or the file is "-".
Lines that do not parse or have an empty body are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDocumentsImport,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsGetCmd = &cobra.Command{
	Use:   "get [document-id]",
	Short: "Show a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsGet,
}

var documentsTopicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List the topics of the latest fit",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsTopics,
}

func init() {
	documentsListCmd.Flags().Int64Var(&documentsAfter, "after", 0, "list documents with a greater id")
	documentsListCmd.Flags().IntVarP(&documentsLimit, "limit", "n", 20, "maximum number of documents")
	documentsGetCmd.Flags().BoolVar(&documentsDetails, "details", false, "include entities, topics and sentiment")
	documentsCmd.PersistentFlags().BoolVar(&documentsJSON, "json", false, "output as JSON")

	documentsCmd.AddCommand(documentsImportCmd)
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsGetCmd)
	documentsCmd.AddCommand(documentsTopicsCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsImport(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return fmt.Errorf("document service: %w", errNotConfigured)
	}

	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		r = f
	}

	report, err := documentService.Import(commandContext(cmd), r)
	if err != nil {
		return fmt.Errorf("import failed after %d documents: %w", report.Imported, err)
	}
	if documentsJSON {
		return printJSON(cmd, report)
	}
	cmd.Printf("Imported %d documents (%d skipped).\n", report.Imported, report.Skipped)
	return nil
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return fmt.Errorf("document service: %w", errNotConfigured)
	}

	ctx := commandContext(cmd)
	docs, err := documentService.List(ctx, documentsAfter, documentsLimit)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if documentsJSON {
		return printJSON(cmd, docs)
	}
	total, err := documentService.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}
	for i := range docs {
		title := docs[i].Title
		if title == "" {
			title = "(untitled)"
		}
		cmd.Printf("  %6d  %s\n", docs[i].ID, title)
	}
	cmd.Printf("\nShown: %d of %d documents (next page: --after %d)\n", len(docs), total, docs[len(docs)-1].ID)
	return nil
}

func runDocumentsTopics(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return fmt.Errorf("document service: %w", errNotConfigured)
	}

	topics, err := documentService.Topics(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list topics: %w", err)
	}
	if documentsJSON {
		return printJSON(cmd, topics)
	}
	if len(topics) == 0 {
		cmd.Println("No topics yet. Run: trinity enrich topics")
		return nil
	}
	for _, t := range topics {
		cmd.Printf("  %3d  %s\n", t.ID, t.Label)
	}
	return nil
}

func runDocumentsGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return fmt.Errorf("document service: %w", errNotConfigured)
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid document id %q", args[0])
	}
	ctx := commandContext(cmd)

	if !documentsDetails {
		doc, err := documentService.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get document: %w", err)
		}
		if documentsJSON {
			return printJSON(cmd, doc)
		}
		cmd.Printf("Document: %d\n\n", doc.ID)
		cmd.Printf("  Title:  %s\n", doc.Title)
		if doc.ParentID != nil {
			cmd.Printf("  Parent: %d\n", *doc.ParentID)
		}
		cmd.Printf("\n%s\n", doc.Body)
		return nil
	}

	details, err := documentService.Details(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get document details: %w", err)
	}
	if documentsJSON {
		return printJSON(cmd, details)
	}

	cmd.Printf("Document: %d\n\n", details.Document.ID)
	cmd.Printf("  Title:  %s\n", details.Document.Title)
	cmd.Printf("\n  Entities (%d):\n", len(details.Entities))
	for _, e := range details.Entities {
		cmd.Printf("    %-7s %s [%d:%d]\n", e.Type, e.Value, e.Start, e.End)
	}
	cmd.Printf("\n  Topics (%d):\n", len(details.Topics))
	for _, t := range details.Topics {
		cmd.Printf("    topic %d  %.3f\n", t.TopicID, t.Weight)
	}
	if s := details.Sentiment; s != nil {
		cmd.Printf("\n  Sentiment: compound %.3f (pos %.3f, neg %.3f, neu %.3f)\n", s.Compound, s.Pos, s.Neg, s.Neu)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
