package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"rulecast/internal/manifest"
)

func newManifestCommand(ctx *commandContext) *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect persisted manifests and ingestion history",
	}
	manifestCmd.AddCommand(newManifestListCommand(ctx))
	manifestCmd.AddCommand(newManifestShowCommand(ctx))
	manifestCmd.AddCommand(newManifestHistoryCommand(ctx))
	return manifestCmd
}

func newManifestListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged manifests, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, records)
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No manifests cataloged")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.DocumentID,
					rec.Title,
					rec.Version,
					strconv.Itoa(rec.HeadingCount),
					strconv.Itoa(rec.ComponentCount),
					strconv.Itoa(rec.IngestionsTotal),
					rec.UpdatedAt.Format("2006-01-02 15:04"),
				})
			}
			printRows(cmd,
				[]string{"Document", "Title", "Version", "Headings", "Components", "Ingestions", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newManifestShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <documentId>",
		Short: "Show a manifest's outline and components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.manifestStore(cmd.Context())
			if err != nil {
				return err
			}
			m, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, m)
			}
			printManifest(cmd, m)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the manifest as JSON")
	return cmd
}

func printManifest(cmd *cobra.Command, m *manifest.Manifest) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", m.Document.Title, m.Document.ID)
	fmt.Fprintf(out, "Game: %s  Source: %s\n", m.Document.GameID, m.Document.Source)
	fmt.Fprintf(out, "Contract %s  Generated %s\n", m.Heuristics.ContractVersion, m.Document.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Pages %d  Headings %d  Components %d  OCR fallbacks %d\n\n",
		m.Stats.PageCount, m.Stats.HeadingCount, m.Stats.ComponentCount, len(m.OCRUsage))

	spans := make(map[string][2]int, len(m.Components))
	for _, comp := range m.Components {
		spans[comp.SourceHeading] = [2]int{comp.PageStart, comp.PageEnd}
	}
	rows := make([][]string, 0, len(m.Outline))
	for _, heading := range m.Outline {
		span := spans[heading.ID]
		rows = append(rows, []string{
			heading.ID,
			strconv.Itoa(heading.Level),
			heading.Title,
			fmt.Sprintf("%d-%d", span[0], span[1]),
			heading.Slug,
		})
	}
	printRows(cmd, []string{"ID", "Level", "Title", "Pages", "Slug"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft})
}

func newManifestHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history <documentId>",
		Short: "Show every ingestion attempt for a document, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			attempts, err := store.History(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, attempts)
			}
			if len(attempts) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No ingestions recorded for %s\n", args[0])
				return nil
			}
			rows := make([][]string, 0, len(attempts))
			for _, attempt := range attempts {
				rows = append(rows, []string{
					attempt.StartedAt.Format("2006-01-02 15:04:05"),
					attempt.IngestionID,
					string(attempt.Status),
					attempt.ErrorCode,
					attempt.Duration.Round(1e6).String(),
				})
			}
			printRows(cmd, []string{"Started", "Ingestion", "Status", "Code", "Duration"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight})
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum attempts to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}
