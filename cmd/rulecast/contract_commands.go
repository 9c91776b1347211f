package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"rulecast/internal/contract"
)

func newContractCommand(ctx *commandContext) *cobra.Command {
	contractCmd := &cobra.Command{
		Use:   "contract",
		Short: "Inspect and validate governance contracts",
	}
	contractCmd.AddCommand(newContractShowCommand(ctx))
	contractCmd.AddCommand(newContractValidateCommand())
	return contractCmd
}

func newContractShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the active contract merged over built-in defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := ctx.contractLoader()
			if err != nil {
				return err
			}
			active := loader.Current()
			if asJSON {
				return writeJSON(cmd, active)
			}
			printContract(cmd, active)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the contract as JSON")
	return cmd
}

func newContractValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate <path>",
		Short:       "Validate a contract file without activating it",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := contract.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Contract %s is valid (version %s, %d heading levels, %s hashing)\n",
				args[0], c.Version, len(c.HeadingRules.Levels), c.Hashing.Algorithm)
			return nil
		},
	}
}

func printContract(cmd *cobra.Command, c *contract.Contract) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Version:        %s\n", c.Version)
	fmt.Fprintf(out, "Source:         %s\n", c.Source)
	fmt.Fprintf(out, "Hashing:        %s\n", c.Hashing.Algorithm)
	fmt.Fprintf(out, "OCR budget:     %d fallbacks per document\n", c.OCR.MaxFallbacksPerDocument)
	fmt.Fprintf(out, "Required:       %s\n", strings.Join(c.Metadata.RequiredFields, ", "))
	fmt.Fprintf(out, "BGG fields:     %s\n", strings.Join(c.Metadata.BGG.AllowedFields, ", "))
	fmt.Fprintf(out, "TOC heuristics: %s\n", c.TOC.HeuristicsVersion)
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(c.HeadingRules.Levels))
	for _, level := range c.HeadingRules.Levels {
		rows = append(rows, []string{strconv.Itoa(level.Level), strconv.FormatFloat(level.MinSize, 'f', -1, 64)})
	}
	printRows(cmd, []string{"Level", "Min font size"}, rows, []columnAlignment{alignRight, alignRight})
}
