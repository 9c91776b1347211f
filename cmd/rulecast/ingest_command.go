package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"rulecast/internal/ingestion"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ingest <document.json|->",
		Short: "Build and persist a manifest from a raw rulebook document",
		Long: "Reads a raw document (metadata, optional BGG record, and extracted pages), " +
			"builds its manifest under the active contract, persists it, and records the " +
			"attempt in the catalog. Use - to read the document from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, closeFn, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			doc, err := ingestion.DecodeDocument(reader)
			if err != nil {
				return err
			}
			pipeline, _, err := ctx.pipeline(cmd.Context(), ctx.metricsSink())
			if err != nil {
				return err
			}
			outcome, err := pipeline.Ingest(cmd.Context(), doc)
			if err != nil {
				return fmt.Errorf("ingestion %s %s: %w", outcome.IngestionID, outcome.Status, err)
			}
			if asJSON {
				return writeJSON(cmd, outcome.Manifest)
			}

			m := outcome.Manifest
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Accepted %s (ingestion %s)\n", outcome.DocumentID, outcome.IngestionID)
			fmt.Fprintf(out, "Manifest: %s\n", outcome.Location)
			fmt.Fprintf(out, "Headings: %d  Components: %d  Pages: %d  OCR fallbacks: %d\n",
				m.Stats.HeadingCount, m.Stats.ComponentCount, m.Stats.PageCount, len(m.OCRUsage))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full manifest as JSON")
	return cmd
}

// openInput opens path for reading, treating "-" as stdin.
func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return file, func() { _ = file.Close() }, nil
}
