package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"rulecast/internal/fileutil"
	"rulecast/internal/storyboard"
	"rulecast/internal/textutil"
)

func newStoryboardCommand(ctx *commandContext) *cobra.Command {
	storyboardCmd := &cobra.Command{
		Use:   "storyboard",
		Short: "Compile storyboards from payloads or manifests",
	}
	storyboardCmd.AddCommand(newStoryboardCompileCommand(ctx))
	storyboardCmd.AddCommand(newStoryboardFromManifestCommand(ctx))
	return storyboardCmd
}

func newStoryboardCompileCommand(ctx *commandContext) *cobra.Command {
	var payloadPath, outPath string
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a storyboard payload file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(payloadPath) == "" {
				return fmt.Errorf("--payload is required")
			}
			reader, closeFn, err := openInput(cmd, payloadPath)
			if err != nil {
				return err
			}
			defer closeFn()
			payload, err := storyboard.DecodePayload(reader)
			if err != nil {
				return err
			}
			return emitStoryboard(cmd, ctx, payload, outPath)
		},
	}
	cmd.Flags().StringVar(&payloadPath, "payload", "", "Payload JSON file (- for stdin)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the storyboard to this file instead of stdout")
	return cmd
}

func newStoryboardFromManifestCommand(ctx *commandContext) *cobra.Command {
	var resolution, outPath string
	var save bool
	cmd := &cobra.Command{
		Use:   "from-manifest <documentId>",
		Short: "Derive setup steps from a persisted manifest and compile them",
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
			payload := storyboard.PayloadFromManifest(m)
			payload.Resolution.Policy = resolution
			if save && outPath == "" {
				name := textutil.SanitizeFileName(m.Document.ID) + ".storyboard.json"
				outPath = filepath.Join(ctx.configValue().Paths.StoryboardDir, name)
			}
			return emitStoryboard(cmd, ctx, payload, outPath)
		},
	}
	cmd.Flags().StringVar(&resolution, "resolution", "", "Resolution policy (1080p, 720p, 4k, vertical)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the storyboard to this file instead of stdout")
	cmd.Flags().BoolVar(&save, "save", false, "Write into the configured storyboard directory")
	return cmd
}

func emitStoryboard(cmd *cobra.Command, ctx *commandContext, payload storyboard.Payload, outPath string) error {
	board, err := ctx.compiler(ctx.metricsSink()).Compile(payload)
	if err != nil {
		return err
	}
	if outPath == "" {
		return writeJSON(cmd, board)
	}
	if err := fileutil.WriteJSONAtomic(outPath, board); err != nil {
		return fmt.Errorf("write storyboard: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d scenes (%ds) to %s\n", len(board.Scenes), board.TotalDurationSec, outPath)
	return nil
}
