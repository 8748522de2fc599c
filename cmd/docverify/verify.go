package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docverify/internal/pipeline"
)

type verifyOptions struct {
	format string
}

func newVerifyCmd(root *rootOptions) *cobra.Command {
	opts := &verifyOptions{}
	cmd := &cobra.Command{
		Use:   "verify <file>...",
		Short: "Run documents through matching, extraction and verification",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), root)
			if err != nil {
				return err
			}
			var results []*pipeline.Result
			var firstErr error
			for _, path := range args {
				res, err := a.processor.Process(cmd.Context(), pipeline.Document{Path: path, Ext: filepath.Ext(path)})
				if err != nil {
					a.logger.Error("document failed", "path", path, "error", err)
					if firstErr == nil {
						firstErr = fmt.Errorf("%s: %w", path, err)
					}
					continue
				}
				results = append(results, res)
			}
			if err := writeResults(cmd, opts.format, results); err != nil {
				return err
			}
			return firstErr
		},
	}
	cmd.Flags().StringVarP(&opts.format, "output", "o", "table", "Output format: table or json")
	return cmd
}

func writeResults(cmd *cobra.Command, format string, results []*pipeline.Result) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "table", "":
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SOURCE\tTEMPLATE\tCONFIDENCE\tGENUINENESS\tVERIFICATION\tDECISION\tREASON")
		for _, r := range results {
			fmt.Fprintf(tw, "%s\t%s\t%.3f\t%.3f\t%.3f\t%s\t%s\n",
				r.Source, r.Match.TemplateID, r.Match.Confidence, r.Genuineness, r.Verification.Score, r.Decision, r.Reason)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
