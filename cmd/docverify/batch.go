package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/export"
	"github.com/joseph-ayodele/docverify/internal/ingest"
	"github.com/joseph-ayodele/docverify/internal/pipeline"
)

type batchOptions struct {
	exts       []string
	skipHidden bool
	xlsxPath   string
	parquet    string
	jsonOut    bool
}

func newBatchCmd(root *rootOptions) *cobra.Command {
	opts := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Verify every supported document under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, root)
			if err != nil {
				return err
			}
			files, stats, err := ingest.CollectDirectory(ctx, args[0], opts.exts, opts.skipHidden)
			if err != nil {
				return err
			}
			a.logger.Info("directory scanned",
				"root", args[0],
				"scanned", stats.Scanned,
				"matched", stats.Matched,
				"duplicates", stats.Duplicates,
				"failed", stats.Failed,
			)

			var docs []pipeline.Document
			for _, f := range files {
				switch {
				case f.Err != "":
					a.logger.Warn("skipping unreadable file", "path", f.Path, "error", f.Err)
				case f.DuplicateOf != "":
					a.logger.Info("skipping duplicate", "path", f.Path, "duplicate_of", f.DuplicateOf)
				default:
					docs = append(docs, pipeline.Document{Path: f.Path, Ext: filepath.Ext(f.Path)})
				}
			}

			ctx = common.WithBatchID(ctx, uuid.NewString())
			items, err := a.processor.ProcessBatch(ctx, docs)
			if err != nil {
				return err
			}
			if err := opts.writeExports(a, items); err != nil {
				return err
			}

			summary := pipeline.Summarize(items)
			if opts.jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			printf(cmd, "documents: %d  accepted: %d  rejected: %d  failed: %d\n",
				summary.Total, summary.Accepted, summary.Rejected(), summary.Failed)
			for d, n := range summary.Decisions {
				printf(cmd, "  %-30s %d\n", d, n)
			}
			for code, n := range summary.Errors {
				printf(cmd, "  %-30s %d\n", code, n)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&opts.exts, "ext", nil, "Extensions to include (default: every supported format)")
	cmd.Flags().BoolVar(&opts.skipHidden, "skip-hidden", true, "Skip dot files and directories")
	cmd.Flags().StringVar(&opts.xlsxPath, "xlsx", "", "Write an Excel report to this path")
	cmd.Flags().StringVar(&opts.parquet, "parquet", "", "Write a Parquet report to this path")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the summary as JSON")
	return cmd
}

func (o *batchOptions) writeExports(a *app, items []pipeline.BatchItem) error {
	svc := export.NewService(a.logger)
	if o.xlsxPath != "" {
		data, err := svc.ResultsXLSX(items)
		if err != nil {
			return err
		}
		if err := os.WriteFile(o.xlsxPath, data, 0o644); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
	}
	if o.parquet != "" {
		f, err := os.Create(o.parquet)
		if err != nil {
			return fmt.Errorf("create parquet: %w", err)
		}
		if err := svc.WriteParquet(f, items); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close parquet: %w", err)
		}
	}
	return nil
}
